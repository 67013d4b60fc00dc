package service

import (
	"context"
	"errors"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/flow"
	"github.com/paybazaar/retailer-portal/internal/logging"
	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/utils"
)

const flowPayout = "payout"

// NewBeneficiary is the add-beneficiary form
type NewBeneficiary struct {
	Name          string `json:"name" validate:"required,max=100"`
	BankName      string `json:"bank_name" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required,min=6,max=20,digits"`
	IFSCCode      string `json:"ifsc_code" validate:"required,len=11"`
	MobileNumber  string `json:"mobile_number" validate:"required,len=10,digits"`
}

// PayView is the client-facing pay dialog snapshot
type PayView struct {
	State         flow.DialogState    `json:"state"`
	Mobile        string              `json:"mobile,omitempty"`
	BeneficiaryID string              `json:"beneficiary_id,omitempty"`
	Mode          models.TransferMode `json:"mode,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	MaxAmount     decimal.Decimal     `json:"max_amount"`
}

// PayoutResult is returned after a successful payout
type PayoutResult struct {
	TransactionID string               `json:"transaction_id"`
	Beneficiaries []models.Beneficiary `json:"beneficiaries"`
}

// payState is the stored dialog plus the remitter whose beneficiaries it pays
type payState struct {
	Mobile string          `json:"mobile"`
	Dialog *flow.PayDialog `json:"dialog"`
}

func (p *payState) view() PayView {
	return PayView{
		State:         p.Dialog.State(),
		Mobile:        p.Mobile,
		BeneficiaryID: p.Dialog.BeneficiaryID(),
		Mode:          p.Dialog.Mode(),
		Amount:        p.Dialog.Amount(),
		MaxAmount:     flow.MaxPayoutAmount,
	}
}

type payoutRequest struct {
	BeneficiaryID string              `json:"beneficiary_id"`
	MobileNumber  string              `json:"mobile_number"`
	TransferMode  models.TransferMode `json:"transfer_mode"`
	Amount        decimal.Decimal     `json:"amount"`
	MPIN          string              `json:"mpin,omitempty"`
	SealedMPIN    string              `json:"sealed_mpin,omitempty"`
}

type payoutResponse struct {
	TransactionID string `json:"transaction_id"`
}

// ListBeneficiaries fetches the beneficiaries registered against a remitter mobile
func (s *Service) ListBeneficiaries(ctx context.Context, mobile string) ([]models.Beneficiary, error) {
	if !utils.IsExactDigits(mobile, 10) {
		return nil, apperr.Validation("invalid_mobile", "Enter a valid 10-digit mobile number")
	}
	var out []models.Beneficiary
	if err := s.backend.Get(ctx, "/settlement/beneficiaries", url.Values{"mobile_number": {mobile}}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Beneficiary{}
	}
	return out, nil
}

// AddBeneficiary registers a payee and returns the refreshed list
func (s *Service) AddBeneficiary(ctx context.Context, in NewBeneficiary) ([]models.Beneficiary, error) {
	id, err := retailer(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	err = s.backend.Post(ctx, "/settlement/beneficiaries", in, nil)
	s.record(ctx, id, ActionBeneficiaryAdd, utils.MaskAccount(in.AccountNumber), err)
	if err != nil {
		return nil, err
	}
	return s.ListBeneficiaries(ctx, in.MobileNumber)
}

// DeleteBeneficiary removes a payee
func (s *Service) DeleteBeneficiary(ctx context.Context, beneficiaryID string) error {
	id, err := retailer(ctx)
	if err != nil {
		return err
	}
	if beneficiaryID == "" {
		return apperr.Validation("beneficiary_required", "Select a beneficiary")
	}
	err = s.backend.Delete(ctx, "/settlement/beneficiaries/"+url.PathEscape(beneficiaryID), nil)
	s.record(ctx, id, ActionBeneficiaryDel, beneficiaryID, err)
	return err
}

// VerifyBeneficiary asks the backend to penny-drop verify a payee
func (s *Service) VerifyBeneficiary(ctx context.Context, beneficiaryID string) (*models.Beneficiary, error) {
	if beneficiaryID == "" {
		return nil, apperr.Validation("beneficiary_required", "Select a beneficiary")
	}
	var out models.Beneficiary
	if err := s.backend.Post(ctx, "/settlement/beneficiaries/"+url.PathEscape(beneficiaryID)+"/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) loadPay(ctx context.Context, retailerID string) (*payState, error) {
	p := &payState{Dialog: flow.NewPayDialog()}
	if _, err := s.flows.Load(ctx, flowPayout, retailerID, p); err != nil {
		return nil, err
	}
	if p.Dialog == nil {
		p.Dialog = flow.NewPayDialog()
	}
	return p, nil
}

func (s *Service) withPay(ctx context.Context, fn func(retailerID string, p *payState) error) (PayView, error) {
	id, err := retailer(ctx)
	if err != nil {
		return PayView{}, err
	}
	release, err := s.claim(ctx, flowPayout, id, flow.ErrPayoutInFlight)
	if err != nil {
		return PayView{}, err
	}
	defer release()
	p, err := s.loadPay(ctx, id)
	if err != nil {
		return PayView{}, err
	}
	p = s.dropOrphan(ctx, id, p)
	if err := fn(id, p); err != nil {
		return PayView{}, err
	}
	if err := s.flows.Save(ctx, flowPayout, id, p); err != nil {
		return PayView{}, err
	}
	return p.view(), nil
}

// PayDialogState returns the retailer's pay dialog
func (s *Service) PayDialogState(ctx context.Context) (PayView, error) {
	id, err := retailer(ctx)
	if err != nil {
		return PayView{}, err
	}
	// A busy claim means a submit is running; show its state as stored.
	release, owned, err := s.flows.Claim(ctx, flowPayout, id, s.claimTTL())
	if err != nil {
		return PayView{}, err
	}
	if owned {
		defer release()
	}
	p, err := s.loadPay(ctx, id)
	if err != nil {
		return PayView{}, err
	}
	if owned {
		p = s.dropOrphan(ctx, id, p)
	}
	return p.view(), nil
}

// dropOrphan closes a dialog left in submitting by a request that no longer
// holds the claim. The transfer's outcome is unknown, so it is never retried.
func (s *Service) dropOrphan(ctx context.Context, retailerID string, p *payState) *payState {
	if p.Dialog.State() != flow.DialogSubmitting {
		return p
	}
	logging.Entry(ctx, s.log).WithField("retailer_id", retailerID).Warn("Discarding orphaned payout submission")
	return &payState{Dialog: flow.NewPayDialog()}
}

// OpenPayDialog starts a payment to one of the remitter's beneficiaries
func (s *Service) OpenPayDialog(ctx context.Context, mobile, beneficiaryID string) (PayView, error) {
	return s.withPay(ctx, func(_ string, p *payState) error {
		if !utils.IsExactDigits(mobile, 10) {
			return apperr.Validation("invalid_mobile", "Enter a valid 10-digit mobile number")
		}
		if err := p.Dialog.Open(beneficiaryID); err != nil {
			return err
		}
		p.Mobile = mobile
		return nil
	})
}

// SubmitPayDetails validates mode and amount and moves to MPIN entry
func (s *Service) SubmitPayDetails(ctx context.Context, mode models.TransferMode, amount decimal.Decimal) (PayView, error) {
	return s.withPay(ctx, func(_ string, p *payState) error {
		return p.Dialog.SubmitDetails(mode, amount)
	})
}

// PayBackToDetails returns from MPIN entry to the details step
func (s *Service) PayBackToDetails(ctx context.Context) (PayView, error) {
	return s.withPay(ctx, func(_ string, p *payState) error {
		return p.Dialog.BackToDetails()
	})
}

// DismissPayDialog closes the dialog. It is rejected while a payout is in flight.
func (s *Service) DismissPayDialog(ctx context.Context) (PayView, error) {
	return s.withPay(ctx, func(_ string, p *payState) error {
		if err := p.Dialog.Dismiss(); err != nil {
			return err
		}
		p.Mobile = ""
		return nil
	})
}

// SubmitPayout issues the payout with the MPIN. The MPIN buffer is zeroed
// before returning whatever the outcome; a malformed MPIN never reaches the
// network and leaves the dialog on MPIN entry.
func (s *Service) SubmitPayout(ctx context.Context, mpin []byte) (*PayoutResult, error) {
	defer utils.Zero(mpin)

	id, err := retailer(ctx)
	if err != nil {
		return nil, err
	}
	// Held until the dialog is resolved so a repeated submit cannot issue
	// a second transfer.
	release, err := s.claim(ctx, flowPayout, id, flow.ErrPayoutInFlight)
	if err != nil {
		return nil, err
	}
	defer release()
	p, err := s.loadPay(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Dialog.BeginSubmit(mpin); err != nil {
		return nil, err
	}
	if err := s.flows.Save(ctx, flowPayout, id, p); err != nil {
		return nil, err
	}

	req := payoutRequest{
		BeneficiaryID: p.Dialog.BeneficiaryID(),
		MobileNumber:  p.Mobile,
		TransferMode:  p.Dialog.Mode(),
		Amount:        p.Dialog.Amount(),
	}
	if key := s.config.MPINSealKey; len(key) > 0 {
		sealed, err := utils.SealMPIN(mpin, key, mpinAAD(id, req.BeneficiaryID))
		if err != nil {
			return nil, s.failPayout(ctx, id, p, err)
		}
		req.SealedMPIN = sealed
	} else {
		req.MPIN = string(mpin)
	}

	var resp payoutResponse
	if err := s.backend.Post(ctx, "/settlement/payout", req, &resp); err != nil {
		return nil, s.failPayout(ctx, id, p, err)
	}

	// The money has moved: from here on nothing may turn this into a failure.
	s.record(ctx, id, ActionPayout, resp.TransactionID, nil)
	if err := p.Dialog.Resolve(true); err != nil {
		logging.Entry(ctx, s.log).Errorf("Failed to close pay dialog: %v", err)
	} else if err := s.flows.Save(context.WithoutCancel(ctx), flowPayout, id, p); err != nil {
		logging.Entry(ctx, s.log).WithField("transaction_id", resp.TransactionID).
			Errorf("Failed to close pay dialog after payout: %v", err)
	}
	logging.Entry(ctx, s.log).WithFields(logrus.Fields{
		"retailer_id":    id,
		"transaction_id": resp.TransactionID,
		"amount":         req.Amount.String(),
		"mode":           req.TransferMode,
	}).Info("Payout submitted")

	result := &PayoutResult{TransactionID: resp.TransactionID}
	beneficiaries, err := s.ListBeneficiaries(ctx, req.MobileNumber)
	if err != nil {
		// The payout itself succeeded; a stale list is not worth failing it.
		logging.Entry(ctx, s.log).Warnf("Failed to refresh beneficiaries after payout: %v", err)
		beneficiaries = []models.Beneficiary{}
	}
	result.Beneficiaries = beneficiaries
	return result, nil
}

// failPayout returns the dialog to MPIN entry and records the failure
func (s *Service) failPayout(ctx context.Context, retailerID string, p *payState, cause error) error {
	bg := context.WithoutCancel(ctx)
	if err := p.Dialog.Resolve(false); err != nil {
		return errors.Join(cause, err)
	}
	if err := s.flows.Save(bg, flowPayout, retailerID, p); err != nil {
		logging.Entry(ctx, s.log).Errorf("Failed to reset pay dialog: %v", err)
	}
	s.record(ctx, retailerID, ActionPayout, p.Dialog.BeneficiaryID(), cause)
	return cause
}

func mpinAAD(retailerID, beneficiaryID string) string {
	return retailerID + ":" + beneficiaryID
}
