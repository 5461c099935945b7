package txbuilder

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/AlexZinkM/edufund/internal/address"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBelowMinUTxO      = errors.New("amount is below the minimum UTxO value")
	ErrTxTooLarge        = errors.New("transaction exceeds maximum size")
	ErrInvalidRequest    = errors.New("invalid transaction request")
	ErrInvalidWitnessSet = errors.New("invalid witness set")
)

const (
	// utxoEntryOverhead is the fixed per-entry size the ledger adds in the min-UTxO rule.
	utxoEntryOverhead = 160
	// vkeyWitnessSize is a [vkey(32), signature(64)] pair with CBOR headers.
	vkeyWitnessSize = 101
	// bootstrapWitnessSize covers Byron witnesses (vkey, signature, chain code, attributes).
	bootstrapWitnessSize = 140
	// witnessSetOverhead is the map header plus the key and array header.
	witnessSetOverhead = 5
	// txEnvelopeOverhead is the array header plus `true` and `null` around body and witnesses.
	txEnvelopeOverhead = 3
	maxFeeIterations   = 10
)

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// ProtocolParams are the ledger parameters the builder needs.
type ProtocolParams struct {
	MinFeeA          uint64
	MinFeeB          uint64
	CoinsPerUTxOByte uint64
	MaxTxSize        uint64
}

// Request describes a single-output payment.
type Request struct {
	UTxOs         []UTxO
	To            []byte
	Amount        uint64
	ChangeAddress []byte
	Params        ProtocolParams
	TTL           uint64
}

// Plan is a built, unsigned transaction.
type Plan struct {
	Inputs []UTxO
	Fee    uint64
	Change uint64
	Body   []byte
	TxID   string
}

// UnsignedTx returns the CBOR transaction with an empty witness set.
func (p *Plan) UnsignedTx() ([]byte, error) {
	return encMode.Marshal([]any{cbor.RawMessage(p.Body), map[uint64]any{}, true, nil})
}

// UnsignedTxHex is UnsignedTx hex encoded, as CIP-30 signTx expects.
func (p *Plan) UnsignedTxHex() (string, error) {
	b, err := p.UnsignedTx()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type output struct {
	_       struct{} `cbor:",toarray"`
	Address []byte
	Coin    uint64
}

// Build selects inputs largest-first and returns a balanced transaction body.
// Inputs carrying native assets are skipped so change never has to carry tokens.
func Build(req Request) (*Plan, error) {
	if len(req.To) == 0 || len(req.ChangeAddress) == 0 {
		return nil, fmt.Errorf("%w: missing address", ErrInvalidRequest)
	}
	if req.Amount == 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}

	minOut, err := MinUTxO(req.Params, req.To, req.Amount)
	if err != nil {
		return nil, err
	}
	if req.Amount < minOut {
		return nil, fmt.Errorf("%w: need at least %d lovelace", ErrBelowMinUTxO, minOut)
	}

	candidates := make([]UTxO, 0, len(req.UTxOs))
	for _, u := range req.UTxOs {
		if !u.HasAssets && u.Lovelace > 0 {
			candidates = append(candidates, u)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Lovelace != candidates[j].Lovelace {
			return candidates[i].Lovelace > candidates[j].Lovelace
		}
		return compareRef(candidates[i], candidates[j]) < 0
	})

	var available uint64
	for i := range candidates {
		available += candidates[i].Lovelace
		plan, err := req.balance(candidates[:i+1])
		if err != nil {
			return nil, err
		}
		if plan != nil {
			return plan, nil
		}
	}

	return nil, fmt.Errorf("%w: have %d lovelace in spendable UTxOs, need more than %d", ErrInsufficientFunds, available, req.Amount)
}

// balance finds a fee fixed point for the given inputs. It returns nil, nil when
// the inputs do not cover amount plus fee.
func (req Request) balance(inputs []UTxO) (*Plan, error) {
	var total uint64
	for _, u := range inputs {
		total += u.Lovelace
	}
	witnesses := estimateWitnessSize(inputs)

	var fee uint64
	for iter := 0; iter < maxFeeIterations; iter++ {
		if total < req.Amount+fee {
			return nil, nil
		}
		change := total - req.Amount - fee

		outputs := []output{{Address: req.To, Coin: req.Amount}}
		withChange := false
		if change > 0 {
			minChange, err := MinUTxO(req.Params, req.ChangeAddress, change)
			if err != nil {
				return nil, err
			}
			withChange = change >= minChange
		}

		paidFee := fee
		if withChange {
			outputs = append(outputs, output{Address: req.ChangeAddress, Coin: change})
		} else {
			paidFee = total - req.Amount
		}

		body, err := encodeBody(inputs, outputs, paidFee, req.TTL)
		if err != nil {
			return nil, err
		}
		size := uint64(len(body) + txEnvelopeOverhead + witnesses)
		if req.Params.MaxTxSize > 0 && size > req.Params.MaxTxSize {
			return nil, fmt.Errorf("%w: %d > %d bytes", ErrTxTooLarge, size, req.Params.MaxTxSize)
		}
		required := req.Params.MinFeeA*size + req.Params.MinFeeB

		if paidFee >= required {
			plan := &Plan{
				Inputs: append([]UTxO(nil), inputs...),
				Fee:    paidFee,
				Body:   body,
				TxID:   TxID(body),
			}
			if withChange {
				plan.Change = change
			}
			return plan, nil
		}
		fee = required
	}

	return nil, nil
}

// MinUTxO is coinsPerUTxOByte * (160 + serialized output size).
func MinUTxO(params ProtocolParams, addr []byte, coin uint64) (uint64, error) {
	b, err := encMode.Marshal(output{Address: addr, Coin: coin})
	if err != nil {
		return 0, fmt.Errorf("failed to encode output: %w", err)
	}
	return params.CoinsPerUTxOByte * uint64(utxoEntryOverhead+len(b)), nil
}

func encodeBody(inputs []UTxO, outputs []output, fee, ttl uint64) ([]byte, error) {
	sorted := append([]UTxO(nil), inputs...)
	sort.Slice(sorted, func(i, j int) bool { return compareRef(sorted[i], sorted[j]) < 0 })

	ins := make([]txInput, 0, len(sorted))
	for _, u := range sorted {
		ins = append(ins, txInput{TxHash: u.TxHash, Index: u.Index})
	}

	body := map[uint64]any{
		0: ins,
		1: outputs,
		2: fee,
	}
	if ttl > 0 {
		body[3] = ttl
	}

	b, err := encMode.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction body: %w", err)
	}
	return b, nil
}

func estimateWitnessSize(inputs []UTxO) int {
	seen := make(map[string]struct{})
	size := witnessSetOverhead
	for _, u := range inputs {
		cred, byron, ok := address.PaymentCredential(u.Address)
		if !ok {
			// unknown credential: assume one more key witness
			size += vkeyWitnessSize
			continue
		}
		key := string(cred)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if byron {
			size += bootstrapWitnessSize
		} else {
			size += vkeyWitnessSize
		}
	}
	if len(seen) == 0 && size == witnessSetOverhead {
		size += vkeyWitnessSize
	}
	return size
}

func compareRef(a, b UTxO) int {
	if c := bytes.Compare(a.TxHash, b.TxHash); c != 0 {
		return c
	}
	switch {
	case a.Index < b.Index:
		return -1
	case a.Index > b.Index:
		return 1
	default:
		return 0
	}
}

// TxID is the blake2b-256 hash of the body bytes, hex encoded.
func TxID(body []byte) string {
	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// AttachWitnesses combines the original body bytes with the witness set the wallet
// returned from signTx. The body is reused byte for byte so the tx id is unchanged.
func AttachWitnesses(body []byte, witnessSetHex string) ([]byte, error) {
	ws, err := hex.DecodeString(witnessSetHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWitnessSet, err)
	}
	var check map[uint64]cbor.RawMessage
	if err := cbor.Unmarshal(ws, &check); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWitnessSet, err)
	}
	return encMode.Marshal([]any{cbor.RawMessage(body), cbor.RawMessage(ws), true, nil})
}
