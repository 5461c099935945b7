package cardano

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/AlexZinkM/edufund/internal/address"
)

// NetworkHint is the network guessed from an address encoding.
type NetworkHint string

const (
	HintMainnet NetworkHint = "mainnet"
	HintTestnet NetworkHint = "testnet"
	HintUnknown NetworkHint = "unknown"
)

// Display encodings besides the address package's bech32 and base58.
const (
	EncodingHeuristic   = "heuristic"
	EncodingPlaceholder = "placeholder"
)

// PlaceholderAddress is shown when no address method returned anything.
const PlaceholderAddress = "addr_unavailable"

// AddressRecord is a resolved wallet address.
type AddressRecord struct {
	Raw      string      `json:"raw"`
	Display  string      `json:"display"`
	Encoding string      `json:"encoding"`
	Hint     NetworkHint `json:"networkHint"`
	// Source is the wallet method that produced Raw, or "placeholder".
	Source string `json:"source"`
}

// IsPlaceholder reports whether no wallet method produced an address.
func (r AddressRecord) IsPlaceholder() bool {
	return r.Source == EncodingPlaceholder
}

var errNoAddress = errors.New("no address returned by wallet")

type addressQuery struct {
	method string
	fetch  func(ctx context.Context, api API) (string, error)
}

func firstOf(f func(context.Context) ([]string, error)) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		list, err := f(ctx)
		if err != nil || len(list) == 0 {
			return "", err
		}
		return list[0], nil
	}
}

// addressQueries is tried in order; the first non-empty result wins.
var addressQueries = []addressQuery{
	{"getUsedAddresses", func(ctx context.Context, api API) (string, error) {
		return firstOf(api.GetUsedAddresses)(ctx)
	}},
	{"getChangeAddress", func(ctx context.Context, api API) (string, error) {
		return api.GetChangeAddress(ctx)
	}},
	{"getRewardAddresses", func(ctx context.Context, api API) (string, error) {
		return firstOf(api.GetRewardAddresses)(ctx)
	}},
	{"getUnusedAddresses", func(ctx context.Context, api API) (string, error) {
		return firstOf(api.GetUnusedAddresses)(ctx)
	}},
}

// resolveRawAddress runs the method cascade and returns the raw address and the
// method that produced it.
func resolveRawAddress(ctx context.Context, api API, logger log.FieldLogger) (string, string, error) {
	for _, q := range addressQueries {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		raw, err := q.fetch(ctx, api)
		raw = strings.TrimSpace(raw)
		entry := logger.WithField("method", q.method)
		switch {
		case err != nil:
			entry.WithError(err).Debug("address method failed")
		case raw == "":
			entry.Debug("address method returned nothing")
		default:
			entry.Debug("address resolved")
			return raw, q.method, nil
		}
	}
	return "", "", errNoAddress
}

// GetAddress resolves one wallet address. When every method fails the result is
// an explicit placeholder record, not an error.
func (s *Session) GetAddress(ctx context.Context) (*AddressRecord, error) {
	h, err := s.requireHandle()
	if err != nil {
		return nil, err
	}

	logger := s.log.WithField("provider", h.Provider)
	raw, method, err := resolveRawAddress(ctx, h.API, logger)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("no address available, using placeholder")
		return &AddressRecord{
			Display:  PlaceholderAddress,
			Encoding: EncodingPlaceholder,
			Hint:     HintUnknown,
			Source:   EncodingPlaceholder,
		}, nil
	}

	rec := NewAddressRecord(raw, method)
	return &rec, nil
}

// NewAddressRecord builds the record for a raw wallet address.
func NewAddressRecord(raw, source string) AddressRecord {
	display, enc := DisplayAddress(raw)
	return AddressRecord{
		Raw:      raw,
		Display:  display,
		Encoding: enc,
		Hint:     NetworkHintFor(raw),
		Source:   source,
	}
}

// DisplayAddress renders a raw address for humans. Bech32 input is returned as
// is; hex with a valid header is encoded properly. Anything else falls back to
// "{addr|addr_test}_{hex}" with one leading "00" stripped, which is not a real
// address encoding.
func DisplayAddress(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if address.IsBech32(raw) {
		return raw, string(address.EncodingBech32)
	}

	if s, enc, err := address.EncodeHex(raw); err == nil {
		return s, string(enc)
	}

	prefix := "addr"
	if NetworkHintFor(raw) == HintTestnet {
		prefix = "addr_test"
	}
	return prefix + "_" + strings.TrimPrefix(raw, "00"), EncodingHeuristic
}

// NetworkHintFor applies the display heuristic: raw strings starting with "0"
// are testnet, everything else mainnet.
func NetworkHintFor(raw string) NetworkHint {
	if strings.HasPrefix(strings.TrimSpace(raw), "0") {
		return HintTestnet
	}
	return HintMainnet
}

// testnetHeaders are the first bytes of network id 0 Shelley addresses.
var testnetHeaders = []string{"00", "10", "20", "30", "40", "50", "60", "70", "e0", "f0"}

// IsTestnetAddress reports whether raw is a testnet-format address, either by
// its hex header byte or its bech32 prefix.
func IsTestnetAddress(raw string) bool {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "addr_test") || strings.HasPrefix(raw, "stake_test") {
		return true
	}
	for _, h := range testnetHeaders {
		if strings.HasPrefix(raw, h) {
			return true
		}
	}
	return false
}
