package models

import "github.com/shopspring/decimal"

// WalletBalance is the retailer's main and AEPS wallet balance
type WalletBalance struct {
	Main decimal.Decimal `json:"main"`
	AEPS decimal.Decimal `json:"aeps"`
}

// CommissionSummary aggregates earned commission per service
type CommissionSummary struct {
	Total     decimal.Decimal            `json:"total"`
	ByService map[string]decimal.Decimal `json:"by_service"`
}

// Profile is the retailer's own profile
type Profile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobile_number"`
	ShopName     string `json:"shop_name"`
	Address      string `json:"address"`
}

// Location is a resolved latitude/longitude pair
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"` // Metres
	Source    string  `json:"source"`             // browser, geoip
}
