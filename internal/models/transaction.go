package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the common shape of every ledger row (recharge, DTH,
// electricity, settlement, payout). Fields a report kind does not carry
// stay zero; anything else the backend sent lands in Extra.
type Transaction struct {
	ID            string            `json:"id"`
	Reference     string            `json:"reference"` // Customer mobile, consumer number or beneficiary
	Operator      string            `json:"operator,omitempty"`
	Bank          string            `json:"bank,omitempty"`
	Amount        decimal.Decimal   `json:"amount"`
	BeforeBalance decimal.Decimal   `json:"before_balance"`
	AfterBalance  decimal.Decimal   `json:"after_balance"`
	Commission    decimal.Decimal   `json:"commission"`
	Status        string            `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// TransactionResult is the backend's answer to a recharge, bill payment or transfer
type TransactionResult struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
}
