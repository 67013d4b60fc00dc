package report

import (
	"sort"
	"strings"
)

// Fields maps canonical transaction fields to the backend's JSON keys for
// one report kind. An empty key means the kind does not carry that field.
type Fields struct {
	ID            string
	Reference     string
	Operator      string
	Bank          string
	Amount        string
	BeforeBalance string
	AfterBalance  string
	Commission    string
	Status        string
	CreatedAt     string
}

// Definition configures one filterable report
type Definition struct {
	Kind           string
	Title          string
	Path           string // Backend list endpoint
	ReferenceLabel string // Column header for Transaction.Reference
	Statuses       []string
	Fields         Fields
	// SearchKeys are canonical field names ("id", "reference", "operator",
	// "bank", "status") or raw backend keys kept in Extra.
	SearchKeys []string
}

// AllowsStatus reports whether status is blank or part of the kind's enum
func (d Definition) AllowsStatus(status string) bool {
	if status == "" {
		return true
	}
	for _, s := range d.Statuses {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}

var txnStatuses = []string{"SUCCESS", "PENDING", "FAILED", "REFUNDED"}

var definitions = map[string]Definition{
	"recharge": {
		Kind:           "recharge",
		Title:          "Mobile Recharge Report",
		Path:           "/recharge/transactions",
		ReferenceLabel: "Mobile Number",
		Statuses:       txnStatuses,
		Fields: Fields{
			ID: "recharge_transaction_id", Reference: "mobile_number", Operator: "operator_name",
			Amount: "amount", BeforeBalance: "before_balance", AfterBalance: "after_balance",
			Commission: "commission", Status: "recharge_status", CreatedAt: "created_at",
		},
		SearchKeys: []string{"id", "reference", "operator", "operator_transaction_id"},
	},
	"dth": {
		Kind:           "dth",
		Title:          "DTH Recharge Report",
		Path:           "/dth/transactions",
		ReferenceLabel: "Customer ID",
		Statuses:       txnStatuses,
		Fields: Fields{
			ID: "dth_transaction_id", Reference: "customer_id", Operator: "operator_name",
			Amount: "amount", BeforeBalance: "before_balance", AfterBalance: "after_balance",
			Commission: "commission", Status: "transaction_status", CreatedAt: "created_at",
		},
		SearchKeys: []string{"id", "reference", "operator"},
	},
	"electricity": {
		Kind:           "electricity",
		Title:          "Electricity Bill Report",
		Path:           "/bbps/transactions",
		ReferenceLabel: "Consumer Number",
		Statuses:       txnStatuses,
		Fields: Fields{
			ID: "bbps_transaction_id", Reference: "consumer_number", Operator: "biller_name",
			Amount: "amount", BeforeBalance: "before_balance", AfterBalance: "after_balance",
			Commission: "commission", Status: "transaction_status", CreatedAt: "created_at",
		},
		SearchKeys: []string{"id", "reference", "operator", "customer_name"},
	},
	"settlement": {
		Kind:           "settlement",
		Title:          "Settlement Report",
		Path:           "/settlement/transactions",
		ReferenceLabel: "Beneficiary",
		Statuses:       txnStatuses,
		Fields: Fields{
			ID: "settlement_transaction_id", Reference: "beneficiary_name", Bank: "bank_name",
			Amount: "amount", BeforeBalance: "before_balance", AfterBalance: "after_balance",
			Commission: "charges", Status: "transaction_status", CreatedAt: "created_at",
		},
		SearchKeys: []string{"id", "reference", "bank", "account_number", "utr"},
	},
	"payout": {
		Kind:           "payout",
		Title:          "Payout Report",
		Path:           "/payout/transactions",
		ReferenceLabel: "Beneficiary",
		Statuses:       txnStatuses,
		Fields: Fields{
			ID: "payout_transaction_id", Reference: "beneficiary_name", Bank: "bank_name",
			Amount: "amount", BeforeBalance: "before_balance", AfterBalance: "after_balance",
			Commission: "commission", Status: "transaction_status", CreatedAt: "created_at",
		},
		SearchKeys: []string{"id", "reference", "bank", "account_number", "transfer_mode"},
	},
	"fund-requests": {
		Kind:           "fund-requests",
		Title:          "Fund Requests",
		Path:           "/fund-requests",
		ReferenceLabel: "UTR Number",
		Statuses:       []string{"PENDING", "APPROVED", "REJECTED"},
		Fields: Fields{
			ID: "request_id", Reference: "utr_number", Bank: "bank_name",
			Amount: "amount", Status: "request_status", CreatedAt: "created_at",
		},
		SearchKeys: []string{"id", "reference", "bank", "remarks", "admin_remarks"},
	},
}

// Lookup returns the definition for kind
func Lookup(kind string) (Definition, bool) {
	d, ok := definitions[kind]
	return d, ok
}

// Kinds lists the configured report kinds in a stable order
func Kinds() []string {
	kinds := make([]string, 0, len(definitions))
	for k := range definitions {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
