package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AlexZinkM/edufund/cardano"
)

// BridgeProvider is a CIP-30 wallet reached through an HTTP relay. The relay
// exposes isEnabled and enable at its base URL and the full API under /api/{method}.
// Every call is a POST with {"args": [...]} answered by {"result": ...} or
// {"error": {"code": n, "info": "..."}}.
type BridgeProvider struct {
	name    string
	baseURL string
	client  *http.Client
}

// NewBridgeProvider creates a provider for the relay at baseURL.
func NewBridgeProvider(name, baseURL string, httpClient *http.Client) *BridgeProvider {
	if httpClient == nil {
		// no client timeout: enable and signTx wait on the user, callers bound them with ctx
		httpClient = &http.Client{}
	}
	return &BridgeProvider{
		name:    strings.ToLower(name),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

type bridgeRequest struct {
	Args []any `json:"args"`
}

type bridgeError struct {
	Code int    `json:"code"`
	Info string `json:"info"`
}

type bridgeResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *bridgeError    `json:"error"`
}

func (p *BridgeProvider) call(ctx context.Context, path, op string, args []any) (json.RawMessage, error) {
	if args == nil {
		args = []any{}
	}

	var resp bridgeResponse
	err := httpRequest(ctx, p.client, http.MethodPost, p.baseURL+path, bridgeRequest{Args: args}, nil, &resp)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			var body bridgeResponse
			if json.Unmarshal(httpErr.Body, &body) == nil && body.Error != nil {
				return nil, p.providerError(op, body.Error)
			}
		}
		return nil, &cardano.ProviderError{Provider: p.name, Op: op, Err: err}
	}
	if resp.Error != nil {
		return nil, p.providerError(op, resp.Error)
	}
	return resp.Result, nil
}

func (p *BridgeProvider) providerError(op string, e *bridgeError) error {
	return &cardano.ProviderError{
		Provider: p.name,
		Op:       op,
		Code:     cardano.ErrorCode(e.Code),
		Info:     e.Info,
	}
}

// Name implements cardano.Provider.
func (p *BridgeProvider) Name() string {
	return p.name
}

// IsEnabled implements cardano.EnabledChecker.
func (p *BridgeProvider) IsEnabled(ctx context.Context) (bool, error) {
	raw, err := p.call(ctx, "/isEnabled", "isEnabled", nil)
	if err != nil {
		return false, err
	}
	var enabled bool
	if err := json.Unmarshal(raw, &enabled); err != nil {
		return false, fmt.Errorf("failed to decode isEnabled result: %w", err)
	}
	return enabled, nil
}

type extension struct {
	CIP int `json:"cip"`
}

type enableOptions struct {
	Extensions []extension `json:"extensions"`
}

// Enable implements cardano.Provider.
func (p *BridgeProvider) Enable(ctx context.Context, extensions []int) (cardano.API, error) {
	var args []any
	if len(extensions) > 0 {
		opts := enableOptions{}
		for _, cip := range extensions {
			opts.Extensions = append(opts.Extensions, extension{CIP: cip})
		}
		args = []any{opts}
	}
	if _, err := p.call(ctx, "/enable", cardano.OpEnable, args); err != nil {
		return nil, err
	}
	return &bridgeAPI{p: p}, nil
}

// bridgeAPI is the enabled handle of a BridgeProvider.
type bridgeAPI struct {
	p *BridgeProvider
}

func (a *bridgeAPI) method(ctx context.Context, name string, args ...any) (json.RawMessage, error) {
	return a.p.call(ctx, "/api/"+name, name, args)
}

func (a *bridgeAPI) GetNetworkID(ctx context.Context) (int, error) {
	raw, err := a.method(ctx, "getNetworkId")
	if err != nil {
		return 0, err
	}
	var id *int
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("failed to decode network id: %w", err)
	}
	if id == nil {
		return 0, errors.New("wallet reported no network id")
	}
	return *id, nil
}

func (a *bridgeAPI) stringList(ctx context.Context, name string) ([]string, error) {
	raw, err := a.method(ctx, name)
	if err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode %s result: %w", name, err)
	}
	return list, nil
}

func (a *bridgeAPI) GetUsedAddresses(ctx context.Context) ([]string, error) {
	return a.stringList(ctx, "getUsedAddresses")
}

func (a *bridgeAPI) GetUnusedAddresses(ctx context.Context) ([]string, error) {
	return a.stringList(ctx, "getUnusedAddresses")
}

func (a *bridgeAPI) GetRewardAddresses(ctx context.Context) ([]string, error) {
	return a.stringList(ctx, "getRewardAddresses")
}

func (a *bridgeAPI) GetChangeAddress(ctx context.Context) (string, error) {
	raw, err := a.method(ctx, "getChangeAddress")
	if err != nil {
		return "", err
	}
	return scalarString(raw)
}

// GetBalance returns the balance as the wallet sent it; numbers are rendered as
// their decimal text.
func (a *bridgeAPI) GetBalance(ctx context.Context) (string, error) {
	raw, err := a.method(ctx, "getBalance")
	if err != nil {
		return "", err
	}
	return scalarString(raw)
}

// GetUtxos accepts CBOR hex strings or objects carrying an "amount".
func (a *bridgeAPI) GetUtxos(ctx context.Context) ([]string, error) {
	raw, err := a.method(ctx, "getUtxos")
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode utxos: %w", err)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '{' {
			var obj struct {
				Amount json.RawMessage `json:"amount"`
			}
			if err := json.Unmarshal(item, &obj); err != nil {
				return nil, fmt.Errorf("failed to decode utxo: %w", err)
			}
			item = obj.Amount
		}
		s, err := scalarString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (a *bridgeAPI) SignTx(ctx context.Context, txHex string, partial bool) (string, error) {
	raw, err := a.method(ctx, cardano.OpSignTx, txHex, partial)
	if err != nil {
		return "", err
	}
	return scalarString(raw)
}

func (a *bridgeAPI) SubmitTx(ctx context.Context, txHex string) (string, error) {
	raw, err := a.method(ctx, cardano.OpSubmitTx, txHex)
	if err != nil {
		return "", err
	}
	return scalarString(raw)
}

// scalarString reads a JSON string or number as text. null is the empty string.
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("failed to decode string: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", raw)
	}
	return n.String(), nil
}

// NewBridgeNamespace builds a namespace from name/url pairs.
func NewBridgeNamespace(endpoints map[string]string, timeout time.Duration) cardano.MapNamespace {
	ns := cardano.MapNamespace{}
	for name, url := range endpoints {
		var hc *http.Client
		if timeout > 0 {
			hc = &http.Client{Timeout: timeout}
		}
		ns.Add(NewBridgeProvider(name, url, hc))
	}
	return ns
}
