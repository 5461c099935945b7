// Package txbuilder builds single-output Cardano payment transactions from
// wallet UTxOs. It performs no I/O: protocol parameters and the tip slot come
// from the caller, signing happens in the wallet.
package txbuilder

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

var ErrInvalidUTxO = errors.New("invalid transaction unspent output")

// UTxO is one decoded TransactionUnspentOutput as returned by a CIP-30 wallet.
type UTxO struct {
	TxHash    []byte
	Index     uint64
	Address   []byte
	Lovelace  uint64
	HasAssets bool
}

// Ref returns "txhash#index".
func (u UTxO) Ref() string {
	return fmt.Sprintf("%s#%d", hex.EncodeToString(u.TxHash), u.Index)
}

type txInput struct {
	_      struct{} `cbor:",toarray"`
	TxHash []byte
	Index  uint64
}

// DecodeUTxOHex decodes a hex encoded [input, output] pair.
func DecodeUTxOHex(s string) (UTxO, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return UTxO{}, fmt.Errorf("%w: %w", ErrInvalidUTxO, err)
	}
	return DecodeUTxO(b)
}

// DecodeUTxO decodes CBOR [input, output]. Outputs may use the legacy array
// layout or the post-Alonzo map layout.
func DecodeUTxO(b []byte) (UTxO, error) {
	var pair []cbor.RawMessage
	if err := cbor.Unmarshal(b, &pair); err != nil {
		return UTxO{}, fmt.Errorf("%w: %w", ErrInvalidUTxO, err)
	}
	if len(pair) != 2 {
		return UTxO{}, fmt.Errorf("%w: expected 2 elements, got %d", ErrInvalidUTxO, len(pair))
	}

	var in txInput
	if err := cbor.Unmarshal(pair[0], &in); err != nil {
		return UTxO{}, fmt.Errorf("%w: input: %w", ErrInvalidUTxO, err)
	}
	if len(in.TxHash) != 32 {
		return UTxO{}, fmt.Errorf("%w: tx hash is %d bytes", ErrInvalidUTxO, len(in.TxHash))
	}

	addr, value, err := splitOutput(pair[1])
	if err != nil {
		return UTxO{}, err
	}
	coin, assets, err := DecodeValue(value)
	if err != nil {
		return UTxO{}, err
	}

	return UTxO{
		TxHash:    in.TxHash,
		Index:     in.Index,
		Address:   addr,
		Lovelace:  coin,
		HasAssets: assets,
	}, nil
}

func splitOutput(raw cbor.RawMessage) ([]byte, cbor.RawMessage, error) {
	var addr []byte

	var arr []cbor.RawMessage
	if err := cbor.Unmarshal(raw, &arr); err == nil {
		if len(arr) < 2 {
			return nil, nil, fmt.Errorf("%w: output has %d elements", ErrInvalidUTxO, len(arr))
		}
		if err := cbor.Unmarshal(arr[0], &addr); err != nil {
			return nil, nil, fmt.Errorf("%w: output address: %w", ErrInvalidUTxO, err)
		}
		return addr, arr[1], nil
	}

	var m map[uint64]cbor.RawMessage
	if err := cbor.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("%w: output: %w", ErrInvalidUTxO, err)
	}
	rawAddr, ok := m[0]
	if !ok {
		return nil, nil, fmt.Errorf("%w: output without address", ErrInvalidUTxO)
	}
	value, ok := m[1]
	if !ok {
		return nil, nil, fmt.Errorf("%w: output without value", ErrInvalidUTxO)
	}
	if err := cbor.Unmarshal(rawAddr, &addr); err != nil {
		return nil, nil, fmt.Errorf("%w: output address: %w", ErrInvalidUTxO, err)
	}
	return addr, value, nil
}

// DecodeValue reads a ledger value: either a bare coin or [coin, multiasset].
func DecodeValue(raw []byte) (coin uint64, hasAssets bool, err error) {
	if err := cbor.Unmarshal(raw, &coin); err == nil {
		return coin, false, nil
	}

	var parts []cbor.RawMessage
	if err := cbor.Unmarshal(raw, &parts); err != nil || len(parts) != 2 {
		return 0, false, fmt.Errorf("%w: unsupported value encoding", ErrInvalidUTxO)
	}
	if err := cbor.Unmarshal(parts[0], &coin); err != nil {
		return 0, false, fmt.Errorf("%w: value coin: %w", ErrInvalidUTxO, err)
	}
	// 0xa0 is the empty map
	assets := len(parts[1]) > 0 && parts[1][0] != 0xa0
	return coin, assets, nil
}
