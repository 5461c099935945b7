package cardano

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/AlexZinkM/edufund/internal/logging"
)

// WalletHandle is an enabled provider session.
type WalletHandle struct {
	Provider    string
	API         API
	ConnectedAt time.Time
}

// Session owns at most one WalletHandle. Connect and Disconnect are serialized;
// concurrent Connect calls share a single enable round trip.
type Session struct {
	ns         Namespace
	extensions []int
	balance    BalanceOptions
	log        log.FieldLogger

	connMu sync.Mutex
	group  singleflight.Group

	mu     sync.RWMutex
	handle *WalletHandle
}

// SessionConfig holds the session tunables.
type SessionConfig struct {
	// Extensions are the CIP numbers requested on enable (e.g. 30).
	Extensions []int
	Balance    BalanceOptions
	Logger     log.FieldLogger
}

// NewSession creates a disconnected session over ns.
func NewSession(ns Namespace, cfg SessionConfig) *Session {
	return &Session{
		ns:         ns,
		extensions: append([]int(nil), cfg.Extensions...),
		balance:    cfg.Balance.withDefaults(),
		log:        logging.Component(cfg.Logger, "wallet"),
	}
}

// Providers enumerates the session's namespace.
func (s *Session) Providers() []ProviderInfo {
	return ListProviders(s.ns)
}

// Connect enables the preferred provider and holds the handle.
// When already connected it returns the held handle without prompting again.
func (s *Session) Connect(ctx context.Context) (*WalletHandle, error) {
	if h := s.Handle(); h != nil {
		return h, nil
	}

	v, err, shared := s.group.Do("connect", func() (any, error) {
		s.connMu.Lock()
		defer s.connMu.Unlock()

		if h := s.Handle(); h != nil {
			return h, nil
		}

		h, err := s.enable(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.handle = h
		s.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debug("joined in-flight connect")
	}
	return v.(*WalletHandle), nil
}

func (s *Session) enable(ctx context.Context) (*WalletHandle, error) {
	selected, ok := SelectProvider(ListProviders(s.ns))
	if !ok {
		return nil, ErrNoProviderFound
	}
	logger := s.log.WithField("provider", selected.Name)

	enabled := false
	if checker, ok := selected.Provider.(EnabledChecker); ok {
		var err error
		enabled, err = checker.IsEnabled(ctx)
		if err != nil {
			logger.WithError(err).Warn("isEnabled failed, requesting access")
			enabled = false
		}
	}

	api, err := selected.Provider.Enable(ctx, s.extensions)
	if err != nil {
		if !enabled {
			return nil, asProviderError(selected.Name, OpEnable, err)
		}

		// Already enabled: a failed extension request is not fatal.
		logger.WithError(err).Warn("failed to re-request wallet extensions")
		api, err = selected.Provider.Enable(ctx, nil)
		if err != nil {
			return nil, asProviderError(selected.Name, OpEnable, err)
		}
	}

	logger.WithFields(log.Fields{
		"already_enabled": enabled,
		"extensions":      s.extensions,
	}).Info("wallet connected")

	return &WalletHandle{
		Provider:    selected.Name,
		API:         api,
		ConnectedAt: time.Now(),
	}, nil
}

// Disconnect drops the held handle. It is idempotent.
func (s *Session) Disconnect() {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.mu.Lock()
	prev := s.handle
	s.handle = nil
	s.mu.Unlock()

	if prev != nil {
		s.log.WithField("provider", prev.Provider).Info("wallet disconnected")
	}
}

// IsConnected reports whether a handle is held. No I/O.
func (s *Session) IsConnected() bool {
	return s.Handle() != nil
}

// Handle returns the held handle or nil.
func (s *Session) Handle() *WalletHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle
}

func (s *Session) requireHandle() (*WalletHandle, error) {
	h := s.Handle()
	if h == nil {
		return nil, ErrNotConnected
	}
	return h, nil
}

// provider re-resolves the connected provider in the namespace.
func (s *Session) provider(h *WalletHandle) (Provider, error) {
	if s.ns == nil {
		return nil, ErrNoProviderFound
	}
	p, ok := s.ns.Lookup(h.Provider)
	if !ok {
		return nil, ErrNoProviderFound
	}
	return p, nil
}
