package models

import "github.com/shopspring/decimal"

// Biller is a BBPS electricity biller
type Biller struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Bill is a fetched BBPS bill awaiting payment
type Bill struct {
	BillerID       string          `json:"biller_id"`
	ConsumerNumber string          `json:"consumer_number"`
	CustomerName   string          `json:"customer_name"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        string          `json:"due_date"`
	BillNumber     string          `json:"bill_number"`
	FetchRef       string          `json:"fetch_ref"`
}
