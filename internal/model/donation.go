package model

import (
	"fmt"
	"time"

	"github.com/AlexZinkM/edufund/internal/common"
)

// Donation is a recorded on-chain payment to a project.
type Donation struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	DonorID   string    `json:"donorId"`
	TxID      string    `json:"txId"`
	Lovelace  uint64    `json:"lovelace"`
	Amount    string    `json:"amount"` // ADA
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DonationRequest represents request for POST /donations
type DonationRequest struct {
	ProjectID string `json:"projectId" binding:"required"`
	TxID      string `json:"txId" binding:"required"`
	Amount    string `json:"amount" binding:"required"` // ADA
	Message   string `json:"message,omitempty"`
}

// DonationsResponse represents response for GET /donations
type DonationsResponse struct {
	Total     string     `json:"total"` // ADA
	Donations []Donation `json:"donations"`
}

// DonationFilter represents query parameters for GET /donations
type DonationFilter struct {
	ProjectID *string    `form:"projectId"`
	DonorID   *string    `form:"donorId"`
	TxID      *string    `form:"txId"`
	From      *time.Time `form:"from"`
	To        *time.Time `form:"to"`
	MinAmount *string    `form:"minAmount"` // ADA
	MaxAmount *string    `form:"maxAmount"` // ADA
}

// Validate validates DonationFilter parameters.
func (f *DonationFilter) Validate() error {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return fmt.Errorf("to date must be after or equal to from date")
	}
	for _, a := range []*string{f.MinAmount, f.MaxAmount} {
		if a == nil {
			continue
		}
		if _, err := common.ADAToLovelace(*a); err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
	}
	if f.MinAmount != nil && f.MaxAmount != nil {
		cmp, err := common.CompareADAAmounts(*f.MinAmount, *f.MaxAmount)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
		if cmp == 1 {
			return fmt.Errorf("minAmount must be less than or equal to maxAmount")
		}
	}
	return nil
}
