package txbuilder_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/edufund/internal/txbuilder"
)

var testParams = txbuilder.ProtocolParams{
	MinFeeA:          44,
	MinFeeB:          155381,
	CoinsPerUTxOByte: 4310,
	MaxTxSize:        16384,
}

func testAddr(header byte, fill byte) []byte {
	b := make([]byte, 29)
	b[0] = header
	for i := 1; i < len(b); i++ {
		b[i] = fill
	}
	return b
}

func testUTxO(seed byte, index uint64, lovelace uint64) txbuilder.UTxO {
	return txbuilder.UTxO{
		TxHash:   bytes.Repeat([]byte{seed}, 32),
		Index:    index,
		Address:  testAddr(0x60, 0x11),
		Lovelace: lovelace,
	}
}

func encodeUTxO(t *testing.T, hash []byte, index uint64, output any) string {
	t.Helper()
	b, err := cbor.Marshal([]any{[]any{hash, index}, output})
	require.NoError(t, err)
	return hex.EncodeToString(b)
}

func TestDecodeUTxOHex_Layouts(t *testing.T) {
	hash := bytes.Repeat([]byte{0xab}, 32)
	addr := testAddr(0x60, 0x22)

	tests := []struct {
		name      string
		output    any
		lovelace  uint64
		hasAssets bool
	}{
		{"legacy coin", []any{addr, uint64(5_000_000)}, 5_000_000, false},
		{"legacy multiasset", []any{addr, []any{uint64(2_000_000), map[string]any{"p": map[string]uint64{"t": 1}}}}, 2_000_000, true},
		{"map coin", map[uint64]any{0: addr, 1: uint64(7_000_000)}, 7_000_000, false},
		{"map empty assets", map[uint64]any{0: addr, 1: []any{uint64(1_500_000), map[string]any{}}}, 1_500_000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := txbuilder.DecodeUTxOHex(encodeUTxO(t, hash, 3, tt.output))
			require.NoError(t, err)
			assert.Equal(t, tt.lovelace, u.Lovelace)
			assert.Equal(t, tt.hasAssets, u.HasAssets)
			assert.Equal(t, addr, u.Address)
			assert.Equal(t, uint64(3), u.Index)
			assert.Equal(t, hex.EncodeToString(hash)+"#3", u.Ref())
		})
	}
}

func TestDecodeUTxOHex_Invalid(t *testing.T) {
	short := encodeUTxO(t, []byte{1, 2, 3}, 0, []any{testAddr(0x60, 1), uint64(1)})
	noValue := encodeUTxO(t, bytes.Repeat([]byte{1}, 32), 0, map[uint64]any{0: testAddr(0x60, 1)})

	for _, s := range []string{"zz", "a0", short, noValue} {
		_, err := txbuilder.DecodeUTxOHex(s)
		require.ErrorIs(t, err, txbuilder.ErrInvalidUTxO, s)
	}
}

func TestBuild_BalancesWithChange(t *testing.T) {
	utxos := []txbuilder.UTxO{
		testUTxO(0x01, 0, 3_000_000),
		testUTxO(0x02, 1, 10_000_000),
	}
	req := txbuilder.Request{
		UTxOs:         utxos,
		To:            testAddr(0x60, 0x33),
		Amount:        2_000_000,
		ChangeAddress: testAddr(0x60, 0x11),
		Params:        testParams,
		TTL:           1_000,
	}

	plan, err := txbuilder.Build(req)
	require.NoError(t, err)

	require.Len(t, plan.Inputs, 1, "largest UTxO alone covers the payment")
	assert.Equal(t, uint64(10_000_000), plan.Inputs[0].Lovelace)
	assert.Equal(t, uint64(10_000_000), req.Amount+plan.Fee+plan.Change)

	// one key witness: 5 + 101 bytes
	minFee := testParams.MinFeeA*uint64(len(plan.Body)+3+106) + testParams.MinFeeB
	assert.GreaterOrEqual(t, plan.Fee, minFee)
	assert.Less(t, plan.Fee, minFee+testParams.MinFeeA*4)
	assert.Equal(t, txbuilder.TxID(plan.Body), plan.TxID)

	var body map[uint64]cbor.RawMessage
	require.NoError(t, cbor.Unmarshal(plan.Body, &body))
	assert.Len(t, body, 4)

	var ttl uint64
	require.NoError(t, cbor.Unmarshal(body[3], &ttl))
	assert.Equal(t, uint64(1_000), ttl)

	var outs [][]cbor.RawMessage
	require.NoError(t, cbor.Unmarshal(body[1], &outs))
	require.Len(t, outs, 2)
}

func TestBuild_SmallChangeFoldsIntoFee(t *testing.T) {
	plan, err := txbuilder.Build(txbuilder.Request{
		UTxOs:         []txbuilder.UTxO{testUTxO(0x01, 0, 2_300_000)},
		To:            testAddr(0x60, 0x33),
		Amount:        2_000_000,
		ChangeAddress: testAddr(0x60, 0x11),
		Params:        testParams,
	})
	require.NoError(t, err)

	assert.Zero(t, plan.Change)
	assert.Equal(t, uint64(300_000), plan.Fee)

	var body map[uint64]cbor.RawMessage
	require.NoError(t, cbor.Unmarshal(plan.Body, &body))
	_, hasTTL := body[3]
	assert.False(t, hasTTL)
}

func TestBuild_SkipsAssetUTxOs(t *testing.T) {
	withAssets := testUTxO(0x09, 0, 50_000_000)
	withAssets.HasAssets = true

	_, err := txbuilder.Build(txbuilder.Request{
		UTxOs:         []txbuilder.UTxO{withAssets, testUTxO(0x01, 0, 1_000_000)},
		To:            testAddr(0x60, 0x33),
		Amount:        5_000_000,
		ChangeAddress: testAddr(0x60, 0x11),
		Params:        testParams,
	})
	require.ErrorIs(t, err, txbuilder.ErrInsufficientFunds)
}

func TestBuild_RequestErrors(t *testing.T) {
	base := txbuilder.Request{
		UTxOs:         []txbuilder.UTxO{testUTxO(0x01, 0, 10_000_000)},
		To:            testAddr(0x60, 0x33),
		Amount:        2_000_000,
		ChangeAddress: testAddr(0x60, 0x11),
		Params:        testParams,
	}

	noAmount := base
	noAmount.Amount = 0
	_, err := txbuilder.Build(noAmount)
	require.ErrorIs(t, err, txbuilder.ErrInvalidRequest)

	noTo := base
	noTo.To = nil
	_, err = txbuilder.Build(noTo)
	require.ErrorIs(t, err, txbuilder.ErrInvalidRequest)

	dust := base
	dust.Amount = 1_000
	_, err = txbuilder.Build(dust)
	require.ErrorIs(t, err, txbuilder.ErrBelowMinUTxO)

	tiny := base
	tiny.Params.MaxTxSize = 50
	_, err = txbuilder.Build(tiny)
	require.ErrorIs(t, err, txbuilder.ErrTxTooLarge)
}

func TestMinUTxO(t *testing.T) {
	// 29 byte address: array(1) + bytes header(2) + 29 + uint32 coin(5) = 37
	got, err := txbuilder.MinUTxO(testParams, testAddr(0x60, 0x11), 2_000_000)
	require.NoError(t, err)
	assert.Equal(t, testParams.CoinsPerUTxOByte*(160+37), got)
}

func TestUnsignedTxAndAttachWitnesses(t *testing.T) {
	plan, err := txbuilder.Build(txbuilder.Request{
		UTxOs:         []txbuilder.UTxO{testUTxO(0x01, 0, 10_000_000)},
		To:            testAddr(0x60, 0x33),
		Amount:        2_000_000,
		ChangeAddress: testAddr(0x60, 0x11),
		Params:        testParams,
		TTL:           42,
	})
	require.NoError(t, err)

	unsigned, err := plan.UnsignedTx()
	require.NoError(t, err)
	var parts []cbor.RawMessage
	require.NoError(t, cbor.Unmarshal(unsigned, &parts))
	require.Len(t, parts, 4)
	assert.Equal(t, plan.Body, []byte(parts[0]))
	assert.Equal(t, []byte{0xa0}, []byte(parts[1]))

	unsignedHex, err := plan.UnsignedTxHex()
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(unsigned), unsignedHex)

	witness := map[uint64]any{0: []any{[]any{bytes.Repeat([]byte{7}, 32), bytes.Repeat([]byte{8}, 64)}}}
	ws, err := cbor.Marshal(witness)
	require.NoError(t, err)

	signed, err := txbuilder.AttachWitnesses(plan.Body, hex.EncodeToString(ws))
	require.NoError(t, err)
	require.NoError(t, cbor.Unmarshal(signed, &parts))
	assert.Equal(t, plan.Body, []byte(parts[0]))
	assert.Equal(t, ws, []byte(parts[1]))

	_, err = txbuilder.AttachWitnesses(plan.Body, "not-hex")
	require.ErrorIs(t, err, txbuilder.ErrInvalidWitnessSet)

	_, err = txbuilder.AttachWitnesses(plan.Body, "01")
	require.ErrorIs(t, err, txbuilder.ErrInvalidWitnessSet)
}

func TestTxID(t *testing.T) {
	// blake2b-256 of the empty input
	assert.Equal(t, "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8", txbuilder.TxID(nil))
}
