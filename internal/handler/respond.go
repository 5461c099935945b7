package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AlexZinkM/edufund/cardano"
	"github.com/AlexZinkM/edufund/internal/auth"
	"github.com/AlexZinkM/edufund/internal/model"
	"github.com/AlexZinkM/edufund/internal/store"
	"github.com/AlexZinkM/edufund/internal/txbuilder"
)

const maxRequestBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "bad_request")
		return false
	}
	return true
}

// errorStatus maps domain errors to an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
	var (
		perr        *cardano.ProviderError
		unconfirmed *cardano.UnconfirmedError
	)
	switch {
	case errors.Is(err, cardano.ErrNoProviderFound):
		return http.StatusNotFound, "no_provider"
	case errors.Is(err, cardano.ErrNotConnected):
		return http.StatusConflict, "not_connected"
	case errors.As(err, &perr):
		if perr.UserDeclined() {
			return http.StatusBadGateway, "user_declined"
		}
		return http.StatusBadGateway, "provider_rejected"
	case errors.Is(err, cardano.ErrCooldown):
		return http.StatusTooManyRequests, "cooldown"
	case errors.Is(err, cardano.ErrInvalidAmount),
		errors.Is(err, cardano.ErrInvalidAddress),
		errors.Is(err, txbuilder.ErrBelowMinUTxO),
		errors.Is(err, txbuilder.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, cardano.ErrInsufficientFunds):
		return http.StatusBadRequest, "insufficient_funds"
	case errors.Is(err, txbuilder.ErrTxTooLarge):
		return http.StatusBadRequest, "tx_too_large"
	case errors.As(err, &unconfirmed):
		return http.StatusGatewayTimeout, "unconfirmed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrEmailTaken), errors.Is(err, store.ErrDuplicateTx):
		return http.StatusConflict, "conflict"
	case errors.Is(err, store.ErrUnknownDonor):
		return http.StatusBadRequest, "unknown_donor"
	case errors.Is(err, store.ErrAmountRange):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	writeError(w, status, err.Error(), code)
}

func claims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	c, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required", "unauthorized")
	}
	return c, ok
}
