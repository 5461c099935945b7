package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/edufund/cardano"
	"github.com/AlexZinkM/edufund/internal/client"
)

var _ cardano.ChainBackend = (*client.BlockfrostClient)(nil)

func newBlockfrost(t *testing.T, handler http.Handler) *client.BlockfrostClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := client.NewBlockfrostClient(client.BlockfrostConfig{
		BaseURL:      srv.URL,
		ProjectID:    "preprodTEST",
		PollInterval: 5 * time.Millisecond,
		Retry:        client.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	})
	require.NoError(t, err)
	return c
}

func TestNewBlockfrostClient_RequiresProjectID(t *testing.T) {
	_, err := client.NewBlockfrostClient(client.BlockfrostConfig{BaseURL: "http://localhost"})
	require.ErrorIs(t, err, client.ErrMissingProjectID)
}

func TestBlockfrost_ProtocolParameters(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected uint64
	}{
		{"per byte", `{"min_fee_a":44,"min_fee_b":155381,"max_tx_size":16384,"coins_per_utxo_size":"4310"}`, 4310},
		{"per word", `{"min_fee_a":44,"min_fee_b":155381,"max_tx_size":16384,"coins_per_utxo_size":null,"coins_per_utxo_word":"34482"}`, 4310},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newBlockfrost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/epochs/latest/parameters", r.URL.Path)
				assert.Equal(t, "preprodTEST", r.Header.Get("project_id"))
				_, _ = io.WriteString(w, tt.body)
			}))

			params, err := c.ProtocolParameters(context.Background())
			require.NoError(t, err)
			assert.Equal(t, uint64(44), params.MinFeeA)
			assert.Equal(t, uint64(155381), params.MinFeeB)
			assert.Equal(t, uint64(16384), params.MaxTxSize)
			assert.Equal(t, tt.expected, params.CoinsPerUTxOByte)
		})
	}
}

func TestBlockfrost_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newBlockfrost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"hash":"abc","slot":74000000}`)
	}))

	slot, err := c.TipSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(74_000_000), slot)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBlockfrost_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newBlockfrost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"status_code":403,"error":"Forbidden","message":"Invalid project token."}`)
	}))

	_, err := c.TipSlot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid project token.")
	assert.Equal(t, int32(1), calls.Load())

	var httpErr *client.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
}

func TestBlockfrost_SubmitTx(t *testing.T) {
	var calls atomic.Int32
	c := newBlockfrost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tx/submit", r.URL.Path)
		assert.Equal(t, "application/cbor", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte{0x84, 0xa0}, body)
		_ = json.NewEncoder(w).Encode("d1c9b7a5")
	}))

	id, err := c.SubmitTx(context.Background(), []byte{0x84, 0xa0})
	require.NoError(t, err)
	assert.Equal(t, "d1c9b7a5", id)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBlockfrost_SubmitTxNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newBlockfrost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.SubmitTx(context.Background(), []byte{0x84})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBlockfrost_AwaitTx(t *testing.T) {
	var calls atomic.Int32
	c := newBlockfrost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/txs/abc", r.URL.Path)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"hash":"abc","block_height":1}`)
	}))

	require.NoError(t, c.AwaitTx(context.Background(), "abc"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestBlockfrost_AwaitTxTimeout(t *testing.T) {
	c := newBlockfrost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := c.AwaitTx(ctx, "abc")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBlockfrost_AwaitTxBadRequest(t *testing.T) {
	c := newBlockfrost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	err := c.AwaitTx(context.Background(), "zz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check transaction")
}
