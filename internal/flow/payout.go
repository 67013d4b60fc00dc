package flow

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/utils"
)

// DialogState is a settlement pay dialog state
type DialogState string

const (
	DialogClosed     DialogState = "closed"
	DialogDetails    DialogState = "details"
	DialogMPIN       DialogState = "mpin"
	DialogSubmitting DialogState = "submitting"
)

const mpinDigits = 4

// MaxPayoutAmount is the per-transfer ceiling in rupees
var MaxPayoutAmount = decimal.NewFromInt(200000)

var (
	ErrInvalidAmount  = apperr.Validation("invalid_amount", "Invalid Amount")
	ErrAmountTooHigh  = apperr.Validation("amount_too_high", "Amount Too High")
	ErrInvalidMode    = apperr.Validation("invalid_mode", "Select IMPS or NEFT")
	ErrInvalidMPIN    = apperr.Validation("invalid_mpin", "Enter your 4-digit MPIN")
	ErrPayoutInFlight = apperr.Conflict("payout_in_flight", "Payout is being processed. Please wait")
)

// ValidateAmount applies the payout amount rules
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(MaxPayoutAmount) {
		return ErrAmountTooHigh
	}
	return nil
}

// PayDialog is the two-phase settlement confirmation:
// Closed -> Details -> MPIN -> Submitting -> Closed. The MPIN itself is
// never part of the dialog state.
type PayDialog struct {
	state         DialogState
	beneficiaryID string
	mode          models.TransferMode
	amount        decimal.Decimal
}

// NewPayDialog returns a closed dialog
func NewPayDialog() *PayDialog {
	return &PayDialog{state: DialogClosed}
}

func (d *PayDialog) State() DialogState { return d.state }
func (d *PayDialog) BeneficiaryID() string { return d.beneficiaryID }
func (d *PayDialog) Mode() models.TransferMode { return d.mode }
func (d *PayDialog) Amount() decimal.Decimal { return d.amount }

// Open starts a payment to a beneficiary, discarding any unfinished one
func (d *PayDialog) Open(beneficiaryID string) error {
	if d.state == DialogSubmitting {
		return ErrPayoutInFlight
	}
	if beneficiaryID == "" {
		return apperr.Validation("beneficiary_required", "Select a beneficiary")
	}
	*d = PayDialog{state: DialogDetails, beneficiaryID: beneficiaryID}
	return nil
}

// SubmitDetails validates mode and amount and moves to MPIN entry. A
// rejected amount leaves the dialog on the details step.
func (d *PayDialog) SubmitDetails(mode models.TransferMode, amount decimal.Decimal) error {
	if err := d.expect(DialogDetails); err != nil {
		return err
	}
	if !mode.Valid() {
		return ErrInvalidMode
	}
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	d.mode = mode
	d.amount = amount
	d.state = DialogMPIN
	return nil
}

// BeginSubmit checks the MPIN and marks the payout in flight. A malformed
// MPIN keeps the dialog on the MPIN step so the caller can re-prompt.
func (d *PayDialog) BeginSubmit(mpin []byte) error {
	if err := d.expect(DialogMPIN); err != nil {
		return err
	}
	if !utils.IsExactDigits(string(mpin), mpinDigits) {
		return ErrInvalidMPIN
	}
	d.state = DialogSubmitting
	return nil
}

// Resolve ends an in-flight payout. Success closes the dialog; failure
// returns to MPIN entry with the details kept.
func (d *PayDialog) Resolve(success bool) error {
	if err := d.expect(DialogSubmitting); err != nil {
		return err
	}
	if success {
		*d = PayDialog{state: DialogClosed}
		return nil
	}
	d.state = DialogMPIN
	return nil
}

// BackToDetails leaves MPIN entry to edit mode or amount
func (d *PayDialog) BackToDetails() error {
	if err := d.expect(DialogMPIN); err != nil {
		return err
	}
	d.state = DialogDetails
	return nil
}

// Dismiss closes the dialog unless a payout is in flight
func (d *PayDialog) Dismiss() error {
	if d.state == DialogSubmitting {
		return ErrPayoutInFlight
	}
	*d = PayDialog{state: DialogClosed}
	return nil
}

func (d *PayDialog) expect(state DialogState) error {
	if d.state == DialogSubmitting && state != DialogSubmitting {
		return ErrPayoutInFlight
	}
	if d.state != state {
		return apperr.Conflict("illegal_transition", fmt.Sprintf("Action not allowed while dialog is %s", d.state))
	}
	return nil
}

type payDialogJSON struct {
	State         DialogState         `json:"state"`
	BeneficiaryID string              `json:"beneficiary_id,omitempty"`
	Mode          models.TransferMode `json:"mode,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
}

// MarshalJSON implements json.Marshaler
func (d *PayDialog) MarshalJSON() ([]byte, error) {
	return json.Marshal(payDialogJSON{
		State:         d.state,
		BeneficiaryID: d.beneficiaryID,
		Mode:          d.mode,
		Amount:        d.amount,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (d *PayDialog) UnmarshalJSON(b []byte) error {
	var s payDialogJSON
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s.State {
	case DialogClosed, DialogDetails, DialogMPIN, DialogSubmitting:
	default:
		return fmt.Errorf("unknown dialog state %q", s.State)
	}
	if s.State != DialogClosed && s.BeneficiaryID == "" {
		return fmt.Errorf("open dialog without beneficiary")
	}
	*d = PayDialog{state: s.State, beneficiaryID: s.BeneficiaryID, mode: s.Mode, amount: s.Amount}
	return nil
}
