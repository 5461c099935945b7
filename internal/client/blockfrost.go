package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/AlexZinkM/edufund/internal/logging"
	"github.com/AlexZinkM/edufund/internal/txbuilder"
)

var ErrMissingProjectID = errors.New("blockfrost project id is required")

// BlockfrostConfig configures BlockfrostClient. Zero values get defaults.
type BlockfrostConfig struct {
	BaseURL      string
	ProjectID    string
	PollInterval time.Duration
	Retry        RetryConfig
	Limiter      *RateLimiter
	HTTPClient   *http.Client
	Logger       log.FieldLogger
}

// BlockfrostClient talks to the Blockfrost indexing API: protocol parameters,
// chain tip, submission and confirmation.
type BlockfrostClient struct {
	baseURL      string
	projectID    string
	pollInterval time.Duration
	retry        RetryConfig
	limiter      *RateLimiter
	client       *http.Client
	log          log.FieldLogger
}

// NewBlockfrostClient creates a Blockfrost client.
func NewBlockfrostClient(cfg BlockfrostConfig) (*BlockfrostClient, error) {
	if cfg.ProjectID == "" {
		return nil, ErrMissingProjectID
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Limiter == nil {
		cfg.Limiter = DefaultRateLimiter()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &BlockfrostClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		projectID:    cfg.ProjectID,
		pollInterval: cfg.PollInterval,
		retry:        cfg.Retry,
		limiter:      cfg.Limiter,
		client:       cfg.HTTPClient,
		log:          logging.Component(cfg.Logger, "blockfrost"),
	}, nil
}

// protocolParamsResponse is the subset of /epochs/latest/parameters we use.
type protocolParamsResponse struct {
	MinFeeA          uint64  `json:"min_fee_a"`
	MinFeeB          uint64  `json:"min_fee_b"`
	MaxTxSize        uint64  `json:"max_tx_size"`
	CoinsPerUTxOSize *string `json:"coins_per_utxo_size"`
	CoinsPerUTxOWord *string `json:"coins_per_utxo_word"`
}

type blockResponse struct {
	Hash string  `json:"hash"`
	Slot *uint64 `json:"slot"`
}

func (c *BlockfrostClient) headers() map[string]string {
	return map[string]string{"project_id": c.projectID}
}

// get runs a rate limited, retried GET.
func (c *BlockfrostClient) get(ctx context.Context, endpoint string, result any) error {
	_, err := Retry(ctx, c.retry, func() (struct{}, error) {
		if err := c.limiter.Wait(ctx, endpoint); err != nil {
			return struct{}{}, err
		}
		err := httpRequest(ctx, c.client, http.MethodGet, c.baseURL+endpoint, nil, c.headers(), result)
		if err != nil && IsRetryable(err) {
			c.log.WithError(err).WithField("endpoint", endpoint).Debug("retrying request")
		}
		return struct{}{}, err
	})
	return err
}

// ProtocolParameters fetches the fee and min-UTxO parameters of the current epoch.
func (c *BlockfrostClient) ProtocolParameters(ctx context.Context) (txbuilder.ProtocolParams, error) {
	var resp protocolParamsResponse
	if err := c.get(ctx, "/epochs/latest/parameters", &resp); err != nil {
		return txbuilder.ProtocolParams{}, fmt.Errorf("failed to get protocol parameters: %w", err)
	}

	coinsPerByte, err := coinsPerUTxOByte(resp)
	if err != nil {
		return txbuilder.ProtocolParams{}, err
	}

	return txbuilder.ProtocolParams{
		MinFeeA:          resp.MinFeeA,
		MinFeeB:          resp.MinFeeB,
		CoinsPerUTxOByte: coinsPerByte,
		MaxTxSize:        resp.MaxTxSize,
	}, nil
}

// coinsPerUTxOByte reads coins_per_utxo_size, deriving it from the
// pre-Babbage per-word value when only that is present.
func coinsPerUTxOByte(resp protocolParamsResponse) (uint64, error) {
	if resp.CoinsPerUTxOSize != nil && *resp.CoinsPerUTxOSize != "" {
		v, err := strconv.ParseUint(*resp.CoinsPerUTxOSize, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid coins_per_utxo_size %q: %w", *resp.CoinsPerUTxOSize, err)
		}
		return v, nil
	}
	if resp.CoinsPerUTxOWord != nil && *resp.CoinsPerUTxOWord != "" {
		v, err := strconv.ParseUint(*resp.CoinsPerUTxOWord, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid coins_per_utxo_word %q: %w", *resp.CoinsPerUTxOWord, err)
		}
		return v / 8, nil
	}
	return 0, errors.New("protocol parameters carry no coins per utxo value")
}

// TipSlot returns the slot of the latest block.
func (c *BlockfrostClient) TipSlot(ctx context.Context) (uint64, error) {
	var resp blockResponse
	if err := c.get(ctx, "/blocks/latest", &resp); err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	if resp.Slot == nil {
		return 0, fmt.Errorf("latest block %s has no slot", resp.Hash)
	}
	return *resp.Slot, nil
}

// SubmitTx submits a signed CBOR transaction and returns its id.
// Submission is never retried.
func (c *BlockfrostClient) SubmitTx(ctx context.Context, tx []byte) (string, error) {
	if err := c.limiter.Wait(ctx, "/tx/submit"); err != nil {
		return "", err
	}

	headers := c.headers()
	headers["Content-Type"] = "application/cbor"

	var txID string
	if err := httpRequest(ctx, c.client, http.MethodPost, c.baseURL+"/tx/submit", tx, headers, &txID); err != nil {
		return "", fmt.Errorf("failed to submit transaction: %w", err)
	}
	return txID, nil
}

// AwaitTx polls until the transaction is indexed or ctx is done.
func (c *BlockfrostClient) AwaitTx(ctx context.Context, txID string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	endpoint := "/txs/" + txID
	for {
		if err := c.limiter.Wait(ctx, "/txs"); err != nil {
			return err
		}
		err := httpRequest(ctx, c.client, http.MethodGet, c.baseURL+endpoint, nil, c.headers(), nil)
		if err == nil {
			return nil
		}

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || !(httpErr.IsNotFound() || httpErr.Temporary()) {
			return fmt.Errorf("failed to check transaction %s: %w", txID, err)
		}
		c.log.WithField("tx_id", txID).Debug("transaction not yet confirmed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
