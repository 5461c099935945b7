package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/AlexZinkM/edufund/cardano"
	"github.com/AlexZinkM/edufund/internal/api"
	"github.com/AlexZinkM/edufund/internal/auth"
	"github.com/AlexZinkM/edufund/internal/client"
	"github.com/AlexZinkM/edufund/internal/config"
	"github.com/AlexZinkM/edufund/internal/handler"
	"github.com/AlexZinkM/edufund/internal/logging"
	"github.com/AlexZinkM/edufund/internal/store"
)

const (
	shutdownTimeout = 15 * time.Second

	// bridgeSlack is added on top of SignTimeout for the HTTP round trip.
	bridgeSlack = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	var dev bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Init(); err != nil {
				return err
			}
			cfg := config.Get()
			if dev {
				cfg.DevMode = true
			}

			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().BoolVar(&dev, "dev", false, "allow development defaults such as the built-in JWT secret")
	return cmd
}

// bridgeTimeout caps a single wallet bridge request. signTx waits on the user
// for up to SignTimeout, so the cap sits above it; no SignTimeout means no cap.
func bridgeTimeout(cfg *config.Config) time.Duration {
	if cfg.SignTimeout <= 0 {
		return 0
	}
	return cfg.SignTimeout + bridgeSlack
}

func serve(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	if err := cfg.CheckJWTSecret(); err != nil {
		return err
	}
	if cfg.DevMode {
		logger.Warn("dev mode: development defaults are accepted, do not expose this instance")
	}
	if err := cfg.PromptForProjectID(); err != nil {
		return err
	}

	endpoints, err := cfg.Providers()
	if err != nil {
		return err
	}
	urls := make(map[string]string, len(endpoints))
	for _, e := range endpoints {
		urls[e.Name] = e.URL
	}
	ns := client.NewBridgeNamespace(urls, bridgeTimeout(cfg))

	session := cardano.NewSession(ns, cardano.SessionConfig{
		Extensions: cfg.WalletExtensions,
		Balance: cardano.BalanceOptions{
			PlausibilityThresholdADA: cfg.PlausibilityThresholdADA,
			FallbackLovelace:         cfg.FallbackBalanceLovelace,
			Logger:                   logger,
		},
		Logger: logger,
	})

	blockfrost, err := client.NewBlockfrostClient(client.BlockfrostConfig{
		BaseURL:   cfg.BlockfrostBaseURL(),
		ProjectID: cfg.BlockfrostProjectID,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	sender := cardano.NewSender(blockfrost, cardano.SenderConfig{
		SignTimeout:      cfg.SignTimeout,
		SubmitTimeout:    cfg.SubmitTimeout,
		ConfirmTimeout:   cfg.ConfirmTimeout,
		TTLSlots:         cfg.TTLSlots,
		SubmitViaBackend: cfg.SubmitVia == "blockfrost",
		Cooldown:         cfg.SendCooldown,
		Logger:           logger,
	})

	st, err := store.Open(cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	jwt := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	wallet := handler.NewWalletHandler(session, sender, client.NewCoinGeckoClient(cfg.CoinGeckoURL), logger)
	platform := handler.NewPlatformHandler(st, jwt, wallet, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.SetupRouter(wallet, platform, jwt),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{
			"port":       cfg.Port,
			"providers":  len(endpoints),
			"submit_via": cfg.SubmitVia,
			"extensions": cfg.ExtensionsString(),
		}).Info("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	session.Disconnect()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
