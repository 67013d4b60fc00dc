// Package flow holds the portal's multi-step state machines. They are pure
// values: services load one, apply a transition and persist it.
package flow

import (
	"encoding/json"
	"fmt"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/utils"
)

// Step is a DMT onboarding step
type Step string

const (
	StepEnterMobile      Step = "enter_mobile"
	StepAadhaarBiometric Step = "aadhaar_biometric"
	StepOtpVerify        Step = "otp_verify"
	StepSuccess          Step = "success"
	// StepBeneficiary is the early exit for a remitter whose wallet exists.
	StepBeneficiary Step = "beneficiary"
)

const (
	mobileDigits  = 10
	aadhaarDigits = 12
	minOTPDigits  = 4
)

var (
	errLocationRequired = apperr.Validation("location_required", "Please allow location access to continue")
	errInvalidMobile    = apperr.Validation("invalid_mobile", "Enter a valid 10-digit mobile number")
	errInvalidAadhaar   = apperr.Validation("invalid_aadhaar", "Enter a valid 12-digit Aadhaar number")
	errCaptureRequired  = apperr.Validation("capture_required", "Please capture fingerprint before creating the wallet")
	errInvalidOTP       = apperr.Validation("invalid_otp", "Enter the OTP sent to the remitter's mobile")
	errEkycMissing      = apperr.Validation("ekyc_missing", "eKYC reference is missing. Please create the wallet again")
)

// kyc couples an Aadhaar number with the capture taken for it, so a capture
// can never outlive the Aadhaar it was taken for.
type kyc struct {
	aadhaar string
	capture *models.BiometricCapture
}

// Onboarding is the DMT remitter onboarding state machine:
// EnterMobile -> AadhaarBiometric -> OtpVerify -> Success, with an early
// exit to Beneficiary when the wallet already exists.
type Onboarding struct {
	step     Step
	mobile   string
	location *models.Location
	kyc      kyc
	ekycID   string
}

// NewOnboarding starts a flow at StepEnterMobile
func NewOnboarding() *Onboarding {
	return &Onboarding{step: StepEnterMobile}
}

func (o *Onboarding) Step() Step { return o.step }
func (o *Onboarding) Mobile() string { return o.mobile }
func (o *Onboarding) Aadhaar() string { return o.kyc.aadhaar }
func (o *Onboarding) EkycID() string { return o.ekycID }
func (o *Onboarding) Location() *models.Location { return o.location }

// Capture returns the attached biometric capture, if any
func (o *Onboarding) Capture() (models.BiometricCapture, bool) {
	if o.kyc.capture == nil {
		return models.BiometricCapture{}, false
	}
	return *o.kyc.capture, true
}

// SetLocation records a resolved position
func (o *Onboarding) SetLocation(loc models.Location) {
	o.location = &loc
}

// ClearLocation forgets the position after a failed re-acquisition
func (o *Onboarding) ClearLocation() {
	o.location = nil
}

// CanCheckWallet reports whether the check-wallet action is enabled for mobile
func (o *Onboarding) CanCheckWallet(mobile string) bool {
	return o.step == StepEnterMobile && o.location != nil && utils.IsExactDigits(mobile, mobileDigits)
}

// BeginWalletCheck validates the check-wallet guards and records the mobile
func (o *Onboarding) BeginWalletCheck(mobile string) error {
	if err := o.expect(StepEnterMobile); err != nil {
		return err
	}
	if o.location == nil {
		return errLocationRequired
	}
	if !utils.IsExactDigits(mobile, mobileDigits) {
		return errInvalidMobile
	}
	if mobile != o.mobile {
		// A different remitter invalidates anything gathered for the old one.
		o.kyc = kyc{}
		o.ekycID = ""
	}
	o.mobile = mobile
	return nil
}

// ApplyWalletCheck advances on the backend's answer. An existing wallet
// skips KYC and OTP entirely.
func (o *Onboarding) ApplyWalletCheck(accountExists bool) error {
	if err := o.expect(StepEnterMobile); err != nil {
		return err
	}
	if o.mobile == "" {
		return errInvalidMobile
	}
	if accountExists {
		o.step = StepBeneficiary
		return nil
	}
	o.step = StepAadhaarBiometric
	return nil
}

// SetAadhaar records the Aadhaar number. A different number drops any
// capture taken for the previous one.
func (o *Onboarding) SetAadhaar(aadhaar string) error {
	if err := o.expect(StepAadhaarBiometric); err != nil {
		return err
	}
	if !utils.IsExactDigits(aadhaar, aadhaarDigits) {
		return errInvalidAadhaar
	}
	if aadhaar != o.kyc.aadhaar {
		o.kyc = kyc{aadhaar: aadhaar}
	}
	return nil
}

// ReadyToCapture checks that a capture may be taken now
func (o *Onboarding) ReadyToCapture() error {
	if err := o.expect(StepAadhaarBiometric); err != nil {
		return err
	}
	if !utils.IsExactDigits(o.kyc.aadhaar, aadhaarDigits) {
		return errInvalidAadhaar
	}
	return nil
}

// AttachCapture stores a successful capture for the current Aadhaar,
// replacing any earlier one
func (o *Onboarding) AttachCapture(c models.BiometricCapture) error {
	if err := o.ReadyToCapture(); err != nil {
		return err
	}
	o.kyc.capture = &c
	return nil
}

// CanCreateWallet reports whether the create-wallet action is enabled
func (o *Onboarding) CanCreateWallet() bool {
	return o.step == StepAadhaarBiometric &&
		utils.IsExactDigits(o.kyc.aadhaar, aadhaarDigits) &&
		o.kyc.capture != nil
}

// ReadyToCreateWallet returns the first unmet create-wallet guard
func (o *Onboarding) ReadyToCreateWallet() error {
	if err := o.expect(StepAadhaarBiometric); err != nil {
		return err
	}
	if !utils.IsExactDigits(o.kyc.aadhaar, aadhaarDigits) {
		return errInvalidAadhaar
	}
	if o.kyc.capture == nil {
		return errCaptureRequired
	}
	return nil
}

// ApplyWalletCreated advances to OTP verification with the backend's eKYC id
func (o *Onboarding) ApplyWalletCreated(ekycID string) error {
	if err := o.ReadyToCreateWallet(); err != nil {
		return err
	}
	if ekycID == "" {
		return errEkycMissing
	}
	o.ekycID = ekycID
	o.step = StepOtpVerify
	return nil
}

// CanVerify reports whether the verify-wallet action is enabled for otp
func (o *Onboarding) CanVerify(otp string) bool {
	return o.step == StepOtpVerify && o.ekycID != "" && len(otp) >= minOTPDigits && utils.IsDigits(otp)
}

// ReadyToVerify returns the first unmet verify-wallet guard
func (o *Onboarding) ReadyToVerify(otp string) error {
	if err := o.expect(StepOtpVerify); err != nil {
		return err
	}
	if len(otp) < minOTPDigits || !utils.IsDigits(otp) {
		return errInvalidOTP
	}
	if o.ekycID == "" {
		return errEkycMissing
	}
	return nil
}

// ApplyVerified finishes the flow
func (o *Onboarding) ApplyVerified(otp string) error {
	if err := o.ReadyToVerify(otp); err != nil {
		return err
	}
	o.step = StepSuccess
	return nil
}

// Back steps one screen back. The capture is always discarded so the
// remitter must re-capture; the mobile number is kept.
func (o *Onboarding) Back() error {
	switch o.step {
	case StepAadhaarBiometric:
		o.step = StepEnterMobile
	case StepOtpVerify:
		o.step = StepAadhaarBiometric
		o.ekycID = ""
	default:
		return apperr.Conflict("illegal_transition", fmt.Sprintf("Cannot go back from %s", o.step))
	}
	o.kyc.capture = nil
	return nil
}

func (o *Onboarding) expect(step Step) error {
	if o.step != step {
		return apperr.Conflict("illegal_transition", fmt.Sprintf("Action not allowed at step %s", o.step))
	}
	return nil
}

type onboardingJSON struct {
	Step     Step                     `json:"step"`
	Mobile   string                   `json:"mobile,omitempty"`
	Location *models.Location         `json:"location,omitempty"`
	Aadhaar  string                   `json:"aadhaar,omitempty"`
	Capture  *models.BiometricCapture `json:"capture,omitempty"`
	EkycID   string                   `json:"ekyc_id,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (o *Onboarding) MarshalJSON() ([]byte, error) {
	return json.Marshal(onboardingJSON{
		Step:     o.step,
		Mobile:   o.mobile,
		Location: o.location,
		Aadhaar:  o.kyc.aadhaar,
		Capture:  o.kyc.capture,
		EkycID:   o.ekycID,
	})
}

// UnmarshalJSON implements json.Unmarshaler and rejects states the
// transitions could never have produced
func (o *Onboarding) UnmarshalJSON(b []byte) error {
	var s onboardingJSON
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s.Step {
	case StepEnterMobile, StepAadhaarBiometric, StepOtpVerify, StepSuccess, StepBeneficiary:
	default:
		return fmt.Errorf("unknown onboarding step %q", s.Step)
	}
	if s.Capture != nil && s.Aadhaar == "" {
		return fmt.Errorf("capture without aadhaar")
	}
	if s.Step == StepOtpVerify && s.EkycID == "" {
		return fmt.Errorf("otp step without ekyc id")
	}
	*o = Onboarding{
		step:     s.Step,
		mobile:   s.Mobile,
		location: s.Location,
		kyc:      kyc{aadhaar: s.Aadhaar, capture: s.Capture},
		ekycID:   s.EkycID,
	}
	return nil
}

// View is the client-facing snapshot of the flow, without PID payloads
type View struct {
	Step            Step             `json:"step"`
	Mobile          string           `json:"mobile,omitempty"`
	Aadhaar         string           `json:"aadhaar,omitempty"` // Masked
	Location        *models.Location `json:"location,omitempty"`
	Captured        bool             `json:"captured"`
	CaptureDevice   string           `json:"capture_device,omitempty"`
	EkycID          string           `json:"ekyc_id,omitempty"`
	CanCheckWallet  bool             `json:"can_check_wallet"`
	CanCreateWallet bool             `json:"can_create_wallet"`
	CanVerify       bool             `json:"can_verify"`
}

// Input is what the retailer has typed but not yet submitted
type Input struct {
	Mobile string
	OTP    string
}

// View renders the flow for the client
func (o *Onboarding) View() View {
	return o.ViewFor(Input{})
}

// ViewFor renders the flow with action gates evaluated against in. An empty
// mobile falls back to the one already on record.
func (o *Onboarding) ViewFor(in Input) View {
	mobile := in.Mobile
	if mobile == "" {
		mobile = o.mobile
	}
	v := View{
		Step:            o.step,
		Mobile:          o.mobile,
		Location:        o.location,
		EkycID:          o.ekycID,
		CanCheckWallet:  o.CanCheckWallet(mobile),
		CanCreateWallet: o.CanCreateWallet(),
		CanVerify:       o.CanVerify(in.OTP),
	}
	if o.kyc.aadhaar != "" {
		v.Aadhaar = utils.MaskAadhaar(o.kyc.aadhaar)
	}
	if o.kyc.capture != nil {
		v.Captured = true
		v.CaptureDevice = o.kyc.capture.Device
	}
	return v
}
