package cardano

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/AlexZinkM/edufund/internal/address"
	"github.com/AlexZinkM/edufund/internal/logging"
	"github.com/AlexZinkM/edufund/internal/txbuilder"
)

// ChainBackend is the indexing API used to build, submit and confirm transactions.
type ChainBackend interface {
	ProtocolParameters(ctx context.Context) (txbuilder.ProtocolParams, error)
	TipSlot(ctx context.Context) (uint64, error)
	SubmitTx(ctx context.Context, tx []byte) (string, error)
	AwaitTx(ctx context.Context, txID string) error
}

// SenderConfig holds the send timeouts and policies. Zero timeouts disable the
// corresponding deadline.
type SenderConfig struct {
	SignTimeout    time.Duration
	SubmitTimeout  time.Duration
	ConfirmTimeout time.Duration
	TTLSlots       uint64
	// SubmitViaBackend submits through the ChainBackend instead of the wallet.
	SubmitViaBackend bool
	Cooldown         time.Duration
	Logger           log.FieldLogger
}

// SendResult describes a confirmed payment.
type SendResult struct {
	TxID      string `json:"txId"`
	Recipient string `json:"recipient"`
	Lovelace  uint64 `json:"lovelace"`
	Fee       uint64 `json:"fee"`
	Change    uint64 `json:"change"`
	Inputs    int    `json:"inputs"`
	Provider  string `json:"provider"`
}

// Sender builds, signs, submits and confirms single-output payments.
// Failures are returned as is; nothing is retried.
type Sender struct {
	backend ChainBackend
	cfg     SenderConfig
	log     log.FieldLogger

	mu       sync.Mutex
	lastSend time.Time
}

func NewSender(backend ChainBackend, cfg SenderConfig) *Sender {
	return &Sender{
		backend: backend,
		cfg:     cfg,
		log:     logging.Component(cfg.Logger, "sender"),
	}
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Send pays lovelace to recipient from the session's wallet and waits for confirmation.
func (s *Sender) Send(ctx context.Context, session *Session, recipient string, lovelace uint64) (*SendResult, error) {
	h, err := session.requireHandle()
	if err != nil {
		return nil, err
	}
	if _, err := session.provider(h); err != nil {
		return nil, err
	}
	if lovelace == 0 {
		return nil, ErrInvalidAmount
	}
	to, err := address.Decode(recipient)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}

	// One send at a time, with an optional cooldown between them
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Cooldown > 0 && !s.lastSend.IsZero() {
		if elapsed := time.Since(s.lastSend); elapsed < s.cfg.Cooldown {
			remaining := s.cfg.Cooldown - elapsed
			return nil, fmt.Errorf("%w, please wait %v", ErrCooldown, remaining.Round(time.Second))
		}
	}

	logger := s.log.WithFields(log.Fields{
		"provider":  h.Provider,
		"recipient": recipient,
		"lovelace":  lovelace,
	})

	plan, err := s.build(ctx, h, to, lovelace, logger)
	if err != nil {
		return nil, err
	}
	logger = logger.WithFields(log.Fields{"tx_id": plan.TxID, "fee": plan.Fee})

	// Sign (may wait on the user)
	unsignedHex, err := plan.UnsignedTxHex()
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}
	signCtx, cancel := withOptionalTimeout(ctx, s.cfg.SignTimeout)
	witnessHex, err := h.API.SignTx(signCtx, unsignedHex, true)
	cancel()
	if err != nil {
		return nil, asProviderError(h.Provider, OpSignTx, err)
	}

	signed, err := txbuilder.AttachWitnesses(plan.Body, witnessHex)
	if err != nil {
		return nil, fmt.Errorf("failed to attach witnesses: %w", err)
	}

	txID, err := s.submit(ctx, h, signed)
	if err != nil {
		return nil, err
	}
	if txID == "" {
		txID = plan.TxID
	} else if txID != plan.TxID {
		logger.WithField("submitted_id", txID).Warn("submitted tx id differs from computed id")
	}
	s.lastSend = time.Now()
	logger.Info("transaction submitted")

	// The payment is out of our hands now; a departed caller must not abort
	// the confirmation wait when it is bounded by ConfirmTimeout.
	confirmParent := ctx
	if s.cfg.ConfirmTimeout > 0 {
		confirmParent = context.WithoutCancel(ctx)
	}
	confirmCtx, cancel := withOptionalTimeout(confirmParent, s.cfg.ConfirmTimeout)
	defer cancel()
	if err := s.backend.AwaitTx(confirmCtx, txID); err != nil {
		logger.WithError(err).Error("submitted transaction not confirmed")
		return nil, &UnconfirmedError{TxID: txID, Err: err}
	}
	logger.Info("transaction confirmed")

	return &SendResult{
		TxID:      txID,
		Recipient: recipient,
		Lovelace:  lovelace,
		Fee:       plan.Fee,
		Change:    plan.Change,
		Inputs:    len(plan.Inputs),
		Provider:  h.Provider,
	}, nil
}

func (s *Sender) build(ctx context.Context, h *WalletHandle, to []byte, lovelace uint64, logger log.FieldLogger) (*txbuilder.Plan, error) {
	params, err := s.backend.ProtocolParameters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch protocol parameters: %w", err)
	}
	tip, err := s.backend.TipSlot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tip: %w", err)
	}

	rawUTxOs, err := h.API.GetUtxos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get utxos: %w", err)
	}
	utxos := make([]txbuilder.UTxO, 0, len(rawUTxOs))
	for _, raw := range rawUTxOs {
		u, err := txbuilder.DecodeUTxOHex(raw)
		if err != nil {
			logger.WithError(err).Warn("skipping undecodable utxo")
			continue
		}
		utxos = append(utxos, u)
	}

	change, err := s.changeAddress(ctx, h, logger)
	if err != nil {
		return nil, err
	}

	var ttl uint64
	if s.cfg.TTLSlots > 0 {
		ttl = tip + s.cfg.TTLSlots
	}

	plan, err := txbuilder.Build(txbuilder.Request{
		UTxOs:         utxos,
		To:            to,
		Amount:        lovelace,
		ChangeAddress: change,
		Params:        params,
		TTL:           ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	for _, in := range plan.Inputs {
		logger.WithField("utxo", in.Ref()).Debug("input selected")
	}
	return plan, nil
}

func (s *Sender) changeAddress(ctx context.Context, h *WalletHandle, logger log.FieldLogger) ([]byte, error) {
	raw, err := h.API.GetChangeAddress(ctx)
	if err == nil {
		if b, decErr := address.Decode(raw); decErr == nil {
			return b, nil
		}
	}

	raw, _, err = resolveRawAddress(ctx, h.API, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve change address: %w", err)
	}
	b, err := address.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode change address: %w", err)
	}
	return b, nil
}

func (s *Sender) submit(ctx context.Context, h *WalletHandle, signed []byte) (string, error) {
	submitCtx, cancel := withOptionalTimeout(ctx, s.cfg.SubmitTimeout)
	defer cancel()

	if s.cfg.SubmitViaBackend {
		id, err := s.backend.SubmitTx(submitCtx, signed)
		if err != nil {
			return "", fmt.Errorf("failed to submit transaction: %w", err)
		}
		return id, nil
	}

	id, err := h.API.SubmitTx(submitCtx, hex.EncodeToString(signed))
	if err != nil {
		return "", asProviderError(h.Provider, OpSubmitTx, err)
	}
	return id, nil
}
