// Package address encodes and decodes Cardano address bytes.
//
// Shelley addresses are bech32 with an "addr"/"stake" human readable part whose
// "_test" suffix marks network id 0. Byron addresses are base58 over their CBOR bytes.
package address

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/mr-tron/base58"
)

// Encoding tells how a display string was produced.
type Encoding string

const (
	EncodingBech32 Encoding = "bech32"
	EncodingBase58 Encoding = "base58"
)

// Header type nibbles (CIP-19).
const (
	typeByron        = 0x8
	typeRewardKey    = 0xe
	typeRewardScript = 0xf
)

// minShelleyLen is the size of the shortest Shelley address (header + one 28 byte hash).
const minShelleyLen = 29

var ErrInvalidAddress = errors.New("invalid Cardano address")

// HRP returns the bech32 prefix for a header byte.
func HRP(header byte) (string, bool) {
	typ := header >> 4
	mainnet := header&0x0f == 1

	switch {
	case typ <= 0x7:
		if mainnet {
			return "addr", true
		}
		return "addr_test", true
	case typ == typeRewardKey || typ == typeRewardScript:
		if mainnet {
			return "stake", true
		}
		return "stake_test", true
	default:
		return "", false
	}
}

// IsCardanoHRP reports whether hrp is one of the address prefixes.
func IsCardanoHRP(hrp string) bool {
	switch hrp {
	case "addr", "addr_test", "stake", "stake_test":
		return true
	default:
		return false
	}
}

// Encode renders address bytes in their canonical text form.
func Encode(b []byte) (string, Encoding, error) {
	if len(b) == 0 {
		return "", "", ErrInvalidAddress
	}

	if b[0]>>4 == typeByron {
		return base58.Encode(b), EncodingBase58, nil
	}

	hrp, ok := HRP(b[0])
	if !ok {
		return "", "", fmt.Errorf("%w: unknown header byte %#x", ErrInvalidAddress, b[0])
	}
	if len(b) < minShelleyLen {
		return "", "", fmt.Errorf("%w: %d bytes is too short", ErrInvalidAddress, len(b))
	}

	conv, err := bech32.ConvertBits(b, 8, 5, true)
	if err != nil {
		return "", "", fmt.Errorf("failed to convert address bits: %w", err)
	}
	s, err := bech32.Encode(hrp, conv)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode bech32: %w", err)
	}
	return s, EncodingBech32, nil
}

// EncodeHex is Encode over a hex string.
func EncodeHex(raw string) (string, Encoding, error) {
	b, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return Encode(b)
}

// Decode parses bech32, hex or Byron base58 text into address bytes.
func Decode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidAddress
	}

	if b, ok := decodeBech32(s); ok {
		return b, nil
	}

	if b, err := hex.DecodeString(s); err == nil && len(b) >= minShelleyLen {
		if _, ok := HRP(b[0]); ok || b[0]>>4 == typeByron {
			return b, nil
		}
	}

	// Byron payloads are a two element CBOR array.
	if b, err := base58.Decode(s); err == nil && len(b) > 0 && b[0] == 0x82 {
		return b, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
}

// IsBech32 reports whether s is a bech32 Cardano address.
func IsBech32(s string) bool {
	_, ok := decodeBech32(strings.TrimSpace(s))
	return ok
}

func decodeBech32(s string) ([]byte, bool) {
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil || !IsCardanoHRP(hrp) {
		return nil, false
	}
	b, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil || len(b) == 0 {
		return nil, false
	}
	return b, true
}

// PaymentCredential returns the bytes identifying the key that must witness a spend
// from this address, and whether the address is a Byron bootstrap address.
// Script-locked payment parts return ok=false.
func PaymentCredential(b []byte) (cred []byte, byron bool, ok bool) {
	if len(b) == 0 {
		return nil, false, false
	}
	typ := b[0] >> 4
	switch {
	case typ == typeByron:
		return b, true, true
	case typ <= 0x7 && typ%2 == 0 && len(b) >= minShelleyLen:
		return b[1:minShelleyLen], false, true
	default:
		return nil, false, false
	}
}
