// Package cardano is the wallet adapter: it discovers CIP-30 wallet providers,
// holds the enabled session and turns the loosely specified values wallets
// return (addresses, balances, network ids) into typed records.
package cardano

import (
	"context"
	"strings"
)

// ProviderPriority is the order providers are enumerated in. The first entry is
// preferred when connecting.
var ProviderPriority = []string{"eternl", "nami", "lace", "flint", "yoroi"}

// PreferredProvider is selected whenever it is available.
const PreferredProvider = "eternl"

// Provider is an injected wallet before it has been enabled.
type Provider interface {
	Name() string
	// Enable asks the wallet for access, optionally requesting CIP extensions.
	// May block on a user prompt.
	Enable(ctx context.Context, extensions []int) (API, error)
}

// EnabledChecker is implemented by providers exposing isEnabled.
type EnabledChecker interface {
	IsEnabled(ctx context.Context) (bool, error)
}

// API is the capability handle returned by Enable (CIP-30 full API).
// Addresses, balances and UTxOs are returned as the wallet reports them,
// usually hex encoded CBOR.
type API interface {
	GetNetworkID(ctx context.Context) (int, error)
	GetUsedAddresses(ctx context.Context) ([]string, error)
	GetUnusedAddresses(ctx context.Context) ([]string, error)
	GetChangeAddress(ctx context.Context) (string, error)
	GetRewardAddresses(ctx context.Context) ([]string, error)
	GetBalance(ctx context.Context) (string, error)
	GetUtxos(ctx context.Context) ([]string, error)
	SignTx(ctx context.Context, txHex string, partial bool) (string, error)
	SubmitTx(ctx context.Context, txHex string) (string, error)
}

// Namespace is where injected providers are looked up by name.
type Namespace interface {
	Lookup(name string) (Provider, bool)
}

// MapNamespace is an in-memory Namespace keyed by lowercase provider name.
type MapNamespace map[string]Provider

// Lookup implements Namespace.
func (m MapNamespace) Lookup(name string) (Provider, bool) {
	p, ok := m[strings.ToLower(name)]
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

// Add registers p under its own name.
func (m MapNamespace) Add(p Provider) {
	m[strings.ToLower(p.Name())] = p
}

// ProviderInfo is one enumerated provider.
type ProviderInfo struct {
	Name     string
	Provider Provider
}

// ListProviders returns the injected providers in priority order.
// An empty namespace is not an error.
func ListProviders(ns Namespace) []ProviderInfo {
	if ns == nil {
		return nil
	}

	var out []ProviderInfo
	for _, name := range ProviderPriority {
		if p, ok := ns.Lookup(name); ok {
			out = append(out, ProviderInfo{Name: name, Provider: p})
		}
	}
	return out
}

// SelectProvider picks the preferred provider if present, otherwise the first one.
func SelectProvider(providers []ProviderInfo) (ProviderInfo, bool) {
	if len(providers) == 0 {
		return ProviderInfo{}, false
	}
	for _, p := range providers {
		if p.Name == PreferredProvider {
			return p, true
		}
	}
	return providers[0], true
}
