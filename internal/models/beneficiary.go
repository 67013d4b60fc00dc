package models

// Beneficiary represents a bank payee registered against a remitter mobile
type Beneficiary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	IFSCCode      string `json:"ifsc_code"`
	MobileNumber  string `json:"mobile_number"`
	Verified      bool   `json:"verified"`
}

// TransferMode is the payout rail selected in the pay dialog
type TransferMode string

const (
	ModeIMPS TransferMode = "IMPS"
	ModeNEFT TransferMode = "NEFT"
)

// Valid reports whether the mode is one the backend accepts
func (m TransferMode) Valid() bool {
	return m == ModeIMPS || m == ModeNEFT
}
