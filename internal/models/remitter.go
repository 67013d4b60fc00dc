package models

// WalletState tracks how far a remitter got through DMT wallet creation
type WalletState string

const (
	WalletUnknown  WalletState = "unknown"
	WalletExists   WalletState = "exists"
	WalletCreated  WalletState = "created"  // Created, awaiting OTP
	WalletVerified WalletState = "verified" // OTP confirmed
)

// Remitter represents a DMT sender identified by mobile number
type Remitter struct {
	MobileNumber  string      `json:"mobile_number"`
	AadhaarNumber string      `json:"aadhaar_number,omitempty"`
	WalletState   WalletState `json:"wallet_state"`
}
