package model

// ProvidersResponse represents response for GET /wallet/providers
type ProvidersResponse struct {
	Providers []string `json:"providers"`
}

// WalletStatusResponse represents response for GET /wallet/status and POST /wallet/connect
type WalletStatusResponse struct {
	Connected   bool   `json:"connected"`
	Provider    string `json:"provider,omitempty"`
	ConnectedAt string `json:"connectedAt,omitempty"`
}

// AddressResponse represents response for GET /wallet/address
type AddressResponse struct {
	Raw         string `json:"raw"`
	Display     string `json:"display"`
	Encoding    string `json:"encoding"`
	NetworkHint string `json:"networkHint"`
	Source      string `json:"source"`
	QR          string `json:"QR,omitempty"`
}

// NetworkResponse represents response for GET /wallet/network
type NetworkResponse struct {
	ReportedID  *int   `json:"reportedId"`
	AddressHint string `json:"addressHint"`
	Network     string `json:"network"`
	NeedsSwitch bool   `json:"needsSwitch"`
}
