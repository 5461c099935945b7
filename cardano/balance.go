package cardano

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/AlexZinkM/edufund/internal/common"
	"github.com/AlexZinkM/edufund/internal/logging"
	"github.com/AlexZinkM/edufund/internal/txbuilder"
)

// Strategy names the decoder that produced a balance.
type Strategy string

const (
	StrategyDecimal      Strategy = "decimal"
	StrategyDirectHex    Strategy = "direct-hex"
	StrategyReversedHex  Strategy = "reversed-hex"
	StrategyTruncatedHex Strategy = "truncated-hex"
	StrategyCBORLike     Strategy = "cbor-like"
	StrategyUTxOSum      Strategy = "utxo-sum"
	StrategyFallback     Strategy = "fallback-constant"
)

const (
	DefaultPlausibilityThresholdADA uint64 = 1_000_000_000
	DefaultFallbackLovelace         uint64 = 20_000_000
)

// cborUint64Tag is the CBOR initial byte of an 8 byte unsigned integer.
const cborUint64Tag = "1b"

// truncatedHexLen is 8 bytes of hex.
const truncatedHexLen = 16

// BalanceRecord is a decoded wallet balance.
type BalanceRecord struct {
	Raw      string   `json:"raw"`
	Lovelace uint64   `json:"lovelace"`
	Strategy Strategy `json:"strategy"`
}

// BalanceOptions tunes the decoding cascade.
type BalanceOptions struct {
	// PlausibilityThresholdADA: decoded values at or above this many ADA are rejected.
	PlausibilityThresholdADA uint64
	// FallbackLovelace is reported when every strategy fails.
	FallbackLovelace uint64
	Logger           log.FieldLogger
}

func (o BalanceOptions) withDefaults() BalanceOptions {
	if o.PlausibilityThresholdADA == 0 {
		o.PlausibilityThresholdADA = DefaultPlausibilityThresholdADA
	}
	if o.FallbackLovelace == 0 {
		o.FallbackLovelace = DefaultFallbackLovelace
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	return o
}

func (o BalanceOptions) plausible(v *big.Int) bool {
	if v == nil || v.Sign() < 0 {
		return false
	}
	limit := new(big.Int).Mul(
		new(big.Int).SetUint64(o.PlausibilityThresholdADA),
		big.NewInt(common.LovelacePerADA),
	)
	return v.Cmp(limit) < 0 && v.IsUint64()
}

type balanceStrategy struct {
	name   Strategy
	decode func(raw string) (*big.Int, bool)
}

// scalarStrategies run in order over the raw getBalance string; the first
// plausible result wins.
var scalarStrategies = []balanceStrategy{
	{StrategyDecimal, decodeDecimal},
	{StrategyDirectHex, decodeDirectHex},
	{StrategyReversedHex, decodeReversedHex},
	{StrategyTruncatedHex, decodeTruncatedHex},
	{StrategyCBORLike, decodeCBORLike},
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// looksHex: has a 0x prefix or any a-f letter.
func looksHex(s string) bool {
	l := strings.ToLower(s)
	if strings.HasPrefix(l, "0x") {
		return true
	}
	return strings.ContainsAny(l, "abcdef")
}

func hexDigits(s string) (string, bool) {
	if !looksHex(s) {
		return "", false
	}
	l := strings.TrimPrefix(strings.ToLower(s), "0x")
	if l == "" {
		return "", false
	}
	for _, r := range l {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", false
		}
	}
	return l, true
}

func parseHex(h string) (*big.Int, bool) {
	if h == "" {
		return nil, false
	}
	return new(big.Int).SetString(h, 16)
}

func decodeDecimal(raw string) (*big.Int, bool) {
	if !isDigits(raw) {
		return nil, false
	}
	return new(big.Int).SetString(raw, 10)
}

func decodeDirectHex(raw string) (*big.Int, bool) {
	h, ok := hexDigits(raw)
	if !ok {
		return nil, false
	}
	return parseHex(h)
}

// decodeReversedHex reads the digits as little-endian bytes.
func decodeReversedHex(raw string) (*big.Int, bool) {
	h, ok := hexDigits(raw)
	if !ok {
		return nil, false
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, false
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return new(big.Int).SetBytes(b), true
}

// decodeTruncatedHex keeps the trailing 8 bytes. Values carrying the CBOR uint64
// tag are left to decodeCBORLike.
func decodeTruncatedHex(raw string) (*big.Int, bool) {
	h, ok := hexDigits(raw)
	if !ok || len(h) <= truncatedHexLen || strings.HasPrefix(h, cborUint64Tag) {
		return nil, false
	}
	return parseHex(h[len(h)-truncatedHexLen:])
}

func decodeCBORLike(raw string) (*big.Int, bool) {
	h, ok := hexDigits(raw)
	if !ok || len(h) <= len(cborUint64Tag) || !strings.HasPrefix(h, cborUint64Tag) {
		return nil, false
	}
	return parseHex(h[len(cborUint64Tag):])
}

// decodeScalar runs the scalar strategies over raw.
func decodeScalar(raw string, opts BalanceOptions, logger log.FieldLogger) (uint64, Strategy, bool) {
	raw = strings.TrimSpace(raw)
	for _, st := range scalarStrategies {
		v, ok := st.decode(raw)
		entry := logger.WithFields(log.Fields{"strategy": st.name, "applicable": ok})
		if !ok {
			entry.Debug("balance strategy skipped")
			continue
		}
		if !opts.plausible(v) {
			entry.WithField("value", v.String()).Debug("balance strategy implausible")
			continue
		}
		entry.WithField("value", v.String()).Debug("balance strategy accepted")
		return v.Uint64(), st.name, true
	}
	return 0, "", false
}

// sumUTxOs adds the coin of every UTxO. Entries that are not CBOR
// TransactionUnspentOutputs go through the scalar cascade.
func sumUTxOs(utxos []string, opts BalanceOptions, logger log.FieldLogger) (uint64, bool) {
	if len(utxos) == 0 {
		return 0, false
	}

	total := new(big.Int)
	for i, u := range utxos {
		if decoded, err := txbuilder.DecodeUTxOHex(u); err == nil {
			total.Add(total, new(big.Int).SetUint64(decoded.Lovelace))
			continue
		}
		v, st, ok := decodeScalar(u, opts, logger.WithField("utxo", i))
		if !ok {
			logger.WithField("utxo", i).Debug("utxo amount undecodable")
			return 0, false
		}
		logger.WithFields(log.Fields{"utxo": i, "utxo_strategy": st}).Debug("utxo amount decoded")
		total.Add(total, new(big.Int).SetUint64(v))
	}

	if !opts.plausible(total) {
		logger.WithField("value", total.String()).Debug("utxo sum implausible")
		return 0, false
	}
	return total.Uint64(), true
}

// DecodeBalance runs the full cascade. utxos is only called when every scalar
// strategy fails; it may be nil. Decoding never fails: the last resort is the
// fallback constant.
func DecodeBalance(raw string, utxos func() ([]string, error), opts BalanceOptions) BalanceRecord {
	opts = opts.withDefaults()
	logger := opts.Logger

	if v, st, ok := decodeScalar(raw, opts, logger); ok {
		return BalanceRecord{Raw: raw, Lovelace: v, Strategy: st}
	}

	if utxos != nil {
		list, err := utxos()
		entry := logger.WithField("strategy", StrategyUTxOSum)
		if err != nil {
			entry.WithError(err).Debug("balance strategy failed")
		} else if v, ok := sumUTxOs(list, opts, logger); ok {
			entry.WithField("value", v).Debug("balance strategy accepted")
			return BalanceRecord{Raw: raw, Lovelace: v, Strategy: StrategyUTxOSum}
		}
	}

	logger.WithFields(log.Fields{
		"strategy": StrategyFallback,
		"raw":      raw,
	}).Warn("balance undecodable, reporting fallback constant")
	return BalanceRecord{Raw: raw, Lovelace: opts.FallbackLovelace, Strategy: StrategyFallback}
}

// GetBalance queries the wallet balance and decodes it.
func (s *Session) GetBalance(ctx context.Context) (*BalanceRecord, error) {
	h, err := s.requireHandle()
	if err != nil {
		return nil, err
	}

	opts := s.balance
	opts.Logger = s.log.WithField("provider", h.Provider)

	raw, err := h.API.GetBalance(ctx)
	if err != nil {
		opts.Logger.WithError(err).Warn("getBalance failed")
		raw = ""
	}

	rec := DecodeBalance(raw, func() ([]string, error) {
		return h.API.GetUtxos(ctx)
	}, opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &rec, nil
}
