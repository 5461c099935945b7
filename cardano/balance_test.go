package cardano_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"strconv"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/edufund/cardano"
)

func TestDecodeBalance_Strategies(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		lovelace uint64
		strategy cardano.Strategy
	}{
		{"decimal", "24981836", 24_981_836, cardano.StrategyDecimal},
		{"decimal zero", "0", 0, cardano.StrategyDecimal},
		{"direct hex", "0x1312d00", 20_000_000, cardano.StrategyDirectHex},
		{"direct hex letters", "1e8480", 2_000_000, cardano.StrategyDirectHex},
		// direct parse is 4.6e18, little-endian read is 1 ADA
		{"reversed hex", "40420f0000000000", 1_000_000, cardano.StrategyReversedHex},
		{"truncated hex", "ffffffffffffffffffffffff00000000000f4240", 1_000_000, cardano.StrategyTruncatedHex},
		{"cbor-like", "0x1b000000000000007530", 30_000, cardano.StrategyCBORLike},
		{"cbor-like short", "1b000000007530", 30_000, cardano.StrategyCBORLike},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := cardano.DecodeBalance(tt.raw, nil, cardano.BalanceOptions{})
			assert.Equal(t, tt.strategy, rec.Strategy)
			assert.Equal(t, tt.lovelace, rec.Lovelace)
			assert.Equal(t, tt.raw, rec.Raw)
		})
	}
}

func TestDecodeBalance_DecimalMatchesDirectParse(t *testing.T) {
	for _, raw := range []string{"1", "999999", "5000000000", "123456789012345"} {
		rec := cardano.DecodeBalance(raw, nil, cardano.BalanceOptions{})
		require.Equal(t, cardano.StrategyDecimal, rec.Strategy, raw)
		assert.Equal(t, raw, strconv.FormatUint(rec.Lovelace, 10))
	}
}

func TestDecodeBalance_UTxOSum(t *testing.T) {
	utxo := func(seed byte, coin uint64) string {
		b, err := cbor.Marshal([]any{
			[]any{bytes.Repeat([]byte{seed}, 32), uint64(0)},
			[]any{[]byte{0x60, 1, 2, 3}, coin},
		})
		require.NoError(t, err)
		return hex.EncodeToString(b)
	}

	calls := 0
	rec := cardano.DecodeBalance("zzz", func() ([]string, error) {
		calls++
		return []string{utxo(1, 3_000_000), utxo(2, 2_500_000), "1000000"}, nil
	}, cardano.BalanceOptions{})

	assert.Equal(t, cardano.StrategyUTxOSum, rec.Strategy)
	assert.Equal(t, uint64(6_500_000), rec.Lovelace)
	assert.Equal(t, 1, calls)
}

func TestDecodeBalance_UTxOsNotQueriedWhenScalarWorks(t *testing.T) {
	rec := cardano.DecodeBalance("1000", func() ([]string, error) {
		t.Fatal("utxos should not be queried")
		return nil, nil
	}, cardano.BalanceOptions{})
	assert.Equal(t, cardano.StrategyDecimal, rec.Strategy)
}

func TestDecodeBalance_Fallback(t *testing.T) {
	huge := "ffffffffffffffffffffffffffffffffffffffff"

	tests := []struct {
		name  string
		raw   string
		utxos func() ([]string, error)
	}{
		{"no utxo source", huge, nil},
		{"utxo error", huge, func() ([]string, error) { return nil, errors.New("boom") }},
		{"empty utxos", "", func() ([]string, error) { return nil, nil }},
		{"undecodable utxo", "not a number", func() ([]string, error) { return []string{"???"}, nil }},
		{"implausible decimal", "99999999999999999999", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := cardano.DecodeBalance(tt.raw, tt.utxos, cardano.BalanceOptions{})
			assert.Equal(t, cardano.StrategyFallback, rec.Strategy)
			assert.Equal(t, cardano.DefaultFallbackLovelace, rec.Lovelace)
		})
	}
}

func TestDecodeBalance_ConfigurableThresholds(t *testing.T) {
	opts := cardano.BalanceOptions{PlausibilityThresholdADA: 10, FallbackLovelace: 42}

	rec := cardano.DecodeBalance("9999999", nil, opts)
	assert.Equal(t, cardano.StrategyDecimal, rec.Strategy)

	rec = cardano.DecodeBalance("10000000", nil, opts)
	assert.Equal(t, cardano.StrategyFallback, rec.Strategy)
	assert.Equal(t, uint64(42), rec.Lovelace)
}

func TestGetBalance(t *testing.T) {
	api := &fakeAPI{balance: "1a01312d00"}
	s := connected(t, api)

	rec, err := s.GetBalance(context.Background())
	require.NoError(t, err)
	// CBOR uint32 20 ADA read as a plain hex number is still below the threshold
	assert.Equal(t, cardano.StrategyDirectHex, rec.Strategy)
	assert.Equal(t, uint64(111_689_149_696), rec.Lovelace)
	assert.Zero(t, api.utxoCalls.Load())
}

func TestGetBalance_ErrorFallsBackToUTxOs(t *testing.T) {
	coin, err := cbor.Marshal([]any{
		[]any{bytes.Repeat([]byte{9}, 32), uint64(1)},
		map[uint64]any{0: []byte{0x60, 1}, 1: uint64(4_000_000)},
	})
	require.NoError(t, err)

	api := &fakeAPI{balanceErr: errors.New("not implemented"), utxos: []string{hex.EncodeToString(coin)}}
	s := connected(t, api)

	rec, err := s.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cardano.StrategyUTxOSum, rec.Strategy)
	assert.Equal(t, uint64(4_000_000), rec.Lovelace)
	assert.Equal(t, int32(1), api.utxoCalls.Load())
}
