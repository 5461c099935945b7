package model

// WalletBalanceResponse represents response for GET /wallet/balance
type WalletBalanceResponse struct {
	Lovelace uint64 `json:"lovelace"`
	ADA      string `json:"ada"`
	Strategy string `json:"strategy"`
	Raw      string `json:"raw"`
	// Rate is ADA/USD, empty when the rate is unavailable
	Rate string `json:"rate,omitempty"`
	USD  string `json:"ada_amount_in_usd,omitempty"`
}
