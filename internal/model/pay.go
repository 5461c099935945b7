package model

// SendRequest represents request for POST /wallet/send
type SendRequest struct {
	ToAddress string `json:"toAddress" binding:"required"`
	Amount    string `json:"amount" binding:"required"` // ADA, up to 6 decimals
}

// SendResponse represents response for POST /wallet/send
type SendResponse struct {
	TxID     string `json:"txId"`
	Amount   string `json:"amount"`
	Fee      string `json:"fee"`
	Provider string `json:"provider"`
}

// DonateRequest represents request for POST /projects/{id}/donate
type DonateRequest struct {
	Amount  string `json:"amount" binding:"required"`
	Message string `json:"message,omitempty"`
}

// DonateResponse represents response for POST /projects/{id}/donate
type DonateResponse struct {
	Donation Donation     `json:"donation"`
	Send     SendResponse `json:"send"`
}
