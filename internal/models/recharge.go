package models

import "github.com/shopspring/decimal"

// Operator is a telecom or DTH operator
type Operator struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Kind string `json:"kind"` // prepaid, dth
}

// Circle is a regional telecom circle
type Circle struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Plan is a recharge plan offered for an operator and circle
type Plan struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Validity    string          `json:"validity"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
}

// RechargeReference bundles the reference data the recharge screen needs
type RechargeReference struct {
	Operators []Operator `json:"operators"`
	Circles   []Circle   `json:"circles"`
}
