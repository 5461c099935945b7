package cardano

import (
	"errors"
	"fmt"

	"github.com/AlexZinkM/edufund/internal/address"
	"github.com/AlexZinkM/edufund/internal/txbuilder"
)

var (
	//nolint:staticcheck // shown to users as is
	ErrNoProviderFound = errors.New("No Cardano wallet found: install Eternl, Nami, Lace, Flint or Yoroi")
	ErrNotConnected    = errors.New("wallet not connected")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrCooldown        = errors.New("send cooldown active")

	ErrInvalidAddress    = address.ErrInvalidAddress
	ErrInsufficientFunds = txbuilder.ErrInsufficientFunds
)

// Wallet operations named in ProviderError.
const (
	OpEnable   = "enable"
	OpSignTx   = "signTx"
	OpSubmitTx = "submitTx"
)

// ErrorCode is a CIP-30 error code. Its meaning depends on the operation.
type ErrorCode int

// APIError codes (enable and queries).
const (
	APIErrorInvalidRequest ErrorCode = -1
	APIErrorInternalError  ErrorCode = -2
	APIErrorRefused        ErrorCode = -3
	APIErrorAccountChange  ErrorCode = -4
)

// TxSignError codes.
const (
	TxSignErrorProofGeneration ErrorCode = 1
	TxSignErrorUserDeclined    ErrorCode = 2
)

// TxSendError codes.
const (
	TxSendErrorRefused ErrorCode = 1
	TxSendErrorFailure ErrorCode = 2
)

// ProviderError is a rejection from the wallet extension or its user.
type ProviderError struct {
	Provider string
	Op       string
	Code     ErrorCode
	Info     string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := e.Info
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s %s rejected (code %d): %s", e.Provider, e.Op, e.Code, msg)
	}
	return fmt.Sprintf("%s %s rejected: %s", e.Provider, e.Op, msg)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// UserDeclined reports whether the user refused the request in the wallet UI.
func (e *ProviderError) UserDeclined() bool {
	switch e.Op {
	case OpSignTx:
		return e.Code == TxSignErrorUserDeclined
	case OpEnable:
		return e.Code == APIErrorRefused
	default:
		return false
	}
}

// asProviderError attributes err to provider and op, keeping any code the
// transport already decoded.
func asProviderError(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		out := *pe
		if out.Provider == "" {
			out.Provider = provider
		}
		if out.Op == "" {
			out.Op = op
		}
		return &out
	}
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// UnconfirmedError reports a transaction that was submitted but not seen on
// chain in time. The payment may still land, so TxID must not be dropped.
type UnconfirmedError struct {
	TxID string
	Err  error
}

func (e *UnconfirmedError) Error() string {
	return fmt.Sprintf("failed to confirm transaction %s: %v", e.TxID, e.Err)
}

func (e *UnconfirmedError) Unwrap() error {
	return e.Err
}
