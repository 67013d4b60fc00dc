package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundRequest represents a wallet top-up request raised by a retailer
type FundRequest struct {
	ID           string          `json:"id"`
	RequesterID  string          `json:"requester_id"`
	Amount       decimal.Decimal `json:"amount"`
	BankName     string          `json:"bank_name"`
	UTRNumber    string          `json:"utr_number"`
	Status       string          `json:"status"`
	Remarks      string          `json:"remarks"`
	AdminRemarks string          `json:"admin_remarks"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
