package model

import (
	"errors"
	"strings"
	"time"
)

// Project is a fundraising project created by a student researcher.
type Project struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"ownerId"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	PayoutAddress  string    `json:"payoutAddress"`
	GoalLovelace   uint64    `json:"goalLovelace"`
	RaisedLovelace uint64    `json:"raisedLovelace"`
	Goal           string    `json:"goal"`   // ADA
	Raised         string    `json:"raised"` // ADA
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ProjectRequest represents request for POST /projects and PUT /projects/{id}
type ProjectRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	PayoutAddress string `json:"payoutAddress" binding:"required"`
	Goal          string `json:"goal" binding:"required"` // ADA
}

// Validate checks required fields. Address and amount formats are checked by the caller.
func (r *ProjectRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	if strings.TrimSpace(r.PayoutAddress) == "" {
		return errors.New("payoutAddress is required")
	}
	if strings.TrimSpace(r.Goal) == "" {
		return errors.New("goal is required")
	}
	return nil
}

// ProjectQRResponse represents response for GET /projects/{id}/qr
type ProjectQRResponse struct {
	Address string `json:"address"`
	QR      string `json:"QR"`
}
