package cardano

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Network is the reconciled network of the connected wallet.
type Network string

const (
	NetworkMainnet                  Network = "mainnet"
	NetworkTestnet                  Network = "testnet"
	NetworkTestnetByAddressOverride Network = "testnet-by-address-override"
	NetworkUnknown                  Network = "unknown"
)

// Reported network ids. The mapping is kept as wallets have been observed to
// report it in this adapter, which is the reverse of the ledger's network tag.
const (
	NetworkIDMainnet = 0
	NetworkIDTestnet = 1
)

// NetworkStatus is the outcome of CheckNetwork.
type NetworkStatus struct {
	// ReportedID is nil when the wallet did not report one.
	ReportedID  *int        `json:"reportedId"`
	AddressHint NetworkHint `json:"addressHint"`
	Network     Network     `json:"network"`
	NeedsSwitch bool        `json:"needsSwitch"`
}

// Reconcile combines the reported network id with the network seen in the
// wallet's address format. A testnet address overrides a mainnet id.
func Reconcile(reported *int, hint NetworkHint) NetworkStatus {
	st := NetworkStatus{ReportedID: reported, AddressHint: hint}

	switch {
	case reported == nil:
		st.Network, st.NeedsSwitch = NetworkUnknown, true
	case *reported == NetworkIDMainnet && hint == HintTestnet:
		st.Network, st.NeedsSwitch = NetworkTestnetByAddressOverride, false
	case *reported == NetworkIDMainnet:
		st.Network, st.NeedsSwitch = NetworkMainnet, true
	case *reported == NetworkIDTestnet:
		st.Network, st.NeedsSwitch = NetworkTestnet, false
	default:
		st.Network, st.NeedsSwitch = NetworkUnknown, true
	}
	return st
}

// CheckNetwork queries the network id and one address and reconciles them.
// The address is resolved again through the method cascade.
func (s *Session) CheckNetwork(ctx context.Context) (*NetworkStatus, error) {
	h, err := s.requireHandle()
	if err != nil {
		return nil, err
	}
	logger := s.log.WithField("provider", h.Provider)

	var reported *int
	if id, err := h.API.GetNetworkID(ctx); err != nil {
		logger.WithError(err).Warn("getNetworkId failed")
	} else {
		reported = &id
	}

	hint := HintUnknown
	raw, method, err := resolveRawAddress(ctx, h.API, logger)
	switch {
	case err == nil && IsTestnetAddress(raw):
		hint = HintTestnet
	case err == nil:
		hint = HintMainnet
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}

	st := Reconcile(reported, hint)
	logger.WithFields(log.Fields{
		"reported_id":    reported,
		"address_method": method,
		"address_hint":   hint,
		"network":        st.Network,
		"needs_switch":   st.NeedsSwitch,
	}).Info("network checked")
	return &st, nil
}
