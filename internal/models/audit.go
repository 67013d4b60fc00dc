package models

import "time"

// AuditEvent records one money- or identity-affecting action by a retailer
type AuditEvent struct {
	ID         int64     `json:"id"`
	RetailerID string    `json:"retailer_id"`
	Action     string    `json:"action"`
	Subject    string    `json:"subject"` // Masked mobile, beneficiary id or transaction id
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Audit outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
