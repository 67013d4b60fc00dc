package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/flow"
	"github.com/paybazaar/retailer-portal/internal/integrations/geo"
	"github.com/paybazaar/retailer-portal/internal/integrations/rdservice"
	"github.com/paybazaar/retailer-portal/internal/logging"
	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/utils"
)

const flowDMT = "dmt"

// Audit actions
const (
	ActionWalletCheck    = "dmt_wallet_check"
	ActionWalletCreate   = "dmt_wallet_create"
	ActionWalletVerify   = "dmt_wallet_verify"
	ActionPayout         = "settlement_payout"
	ActionBeneficiaryAdd = "beneficiary_add"
	ActionBeneficiaryDel = "beneficiary_delete"
)

type checkRemitterRequest struct {
	MobileNumber string  `json:"mobile_number"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

type checkRemitterResponse struct {
	AccountExists flag `json:"AccountExists"`
}

type createWalletRequest struct {
	MobileNumber  string            `json:"mobile_number"`
	AadhaarNumber string            `json:"aadhaar_number"`
	Latitude      float64           `json:"latitude"`
	Longitude     float64           `json:"longitude"`
	PIDData       string            `json:"pid_data"`
	SessionKey    string            `json:"skey"`
	HMAC          string            `json:"hmac"`
	Device        models.DeviceInfo `json:"device_info"`
}

type createWalletResponse struct {
	EkycID string `json:"ekyc_id"`
}

type verifyWalletRequest struct {
	MobileNumber string `json:"mobile_number"`
	EkycID       string `json:"ekyc_id"`
	OTP          string `json:"otp"`
}

// loadOnboarding returns the retailer's flow, or a fresh one
func (s *Service) loadOnboarding(ctx context.Context, retailerID string) (*flow.Onboarding, error) {
	o := flow.NewOnboarding()
	if _, err := s.flows.Load(ctx, flowDMT, retailerID, o); err != nil {
		return nil, err
	}
	return o, nil
}

// withOnboarding claims the flow, loads it, applies fn and persists the
// result only when fn succeeds, so a failed step leaves the stored flow
// untouched and concurrent steps cannot both reach the backend.
func (s *Service) withOnboarding(ctx context.Context, fn func(retailerID string, o *flow.Onboarding) error) (flow.View, error) {
	id, err := retailer(ctx)
	if err != nil {
		return flow.View{}, err
	}
	release, err := s.claim(ctx, flowDMT, id, errFlowBusy)
	if err != nil {
		return flow.View{}, err
	}
	defer release()
	o, err := s.loadOnboarding(ctx, id)
	if err != nil {
		return flow.View{}, err
	}
	if err := fn(id, o); err != nil {
		return flow.View{}, err
	}
	if err := s.flows.Save(ctx, flowDMT, id, o); err != nil {
		return flow.View{}, err
	}
	return o.View(), nil
}

// OnboardingState returns the retailer's current onboarding view
func (s *Service) OnboardingState(ctx context.Context, in flow.Input) (flow.View, error) {
	id, err := retailer(ctx)
	if err != nil {
		return flow.View{}, err
	}
	o, err := s.loadOnboarding(ctx, id)
	if err != nil {
		return flow.View{}, err
	}
	return o.ViewFor(in), nil
}

// ReportLocation resolves the browser's position report. A failure clears
// any earlier fix so the check-wallet gate closes until a retry succeeds.
func (s *Service) ReportLocation(ctx context.Context, report geo.Report) (flow.View, error) {
	id, err := retailer(ctx)
	if err != nil {
		return flow.View{}, err
	}
	release, err := s.claim(ctx, flowDMT, id, errFlowBusy)
	if err != nil {
		return flow.View{}, err
	}
	defer release()
	o, err := s.loadOnboarding(ctx, id)
	if err != nil {
		return flow.View{}, err
	}

	loc, locErr := s.locator.Locate(ctx, report)
	if locErr != nil {
		o.ClearLocation()
	} else {
		o.SetLocation(loc)
	}
	if err := s.flows.Save(ctx, flowDMT, id, o); err != nil {
		return flow.View{}, err
	}
	if locErr != nil {
		logging.Entry(ctx, s.log).WithField("retailer_id", id).Infof("Location unavailable: %v", locErr)
		return o.View(), locateError(locErr)
	}
	return o.View(), nil
}

// CheckWallet asks the backend whether the remitter already has a wallet
func (s *Service) CheckWallet(ctx context.Context, mobile string) (flow.View, error) {
	return s.withOnboarding(ctx, func(id string, o *flow.Onboarding) error {
		if err := o.BeginWalletCheck(mobile); err != nil {
			return err
		}
		loc := o.Location()

		var resp checkRemitterResponse
		err := s.backend.Post(ctx, "/dmt/check-remitter", checkRemitterRequest{
			MobileNumber: mobile,
			Latitude:     loc.Latitude,
			Longitude:    loc.Longitude,
		}, &resp)
		if err != nil {
			return err
		}
		if err := o.ApplyWalletCheck(bool(resp.AccountExists)); err != nil {
			return err
		}

		if resp.AccountExists {
			// Skips KYC and OTP; kept on record for compliance review.
			s.record(ctx, id, ActionWalletCheck, utils.MaskMobile(mobile), nil)
		}
		logging.Entry(ctx, s.log).WithFields(logrus.Fields{
			"retailer_id":    id,
			"mobile":         utils.MaskMobile(mobile),
			"account_exists": bool(resp.AccountExists),
		}).Info("Remitter wallet checked")
		return nil
	})
}

// SetAadhaar records the remitter's Aadhaar number
func (s *Service) SetAadhaar(ctx context.Context, aadhaar string) (flow.View, error) {
	return s.withOnboarding(ctx, func(_ string, o *flow.Onboarding) error {
		return o.SetAadhaar(aadhaar)
	})
}

// CaptureBiometric takes a fingerprint from the selected device and attaches
// it to the flow. A failed capture keeps whatever was attached before.
func (s *Service) CaptureBiometric(ctx context.Context, device string) (flow.View, error) {
	return s.withOnboarding(ctx, func(id string, o *flow.Onboarding) error {
		if err := o.ReadyToCapture(); err != nil {
			return err
		}
		capture, err := s.rd.Capture(ctx, rdservice.Device(device))
		if err != nil {
			logging.Entry(ctx, s.log).WithFields(logrus.Fields{
				"retailer_id": id,
				"device":      device,
			}).Warnf("Biometric capture failed: %v", err)
			return captureError(err)
		}
		return o.AttachCapture(capture)
	})
}

// SubmitCapture attaches a PidData document the retailer's browser obtained
// from its own RD-service driver
func (s *Service) SubmitCapture(ctx context.Context, device, pidXML string) (flow.View, error) {
	if strings.TrimSpace(pidXML) == "" {
		return flow.View{}, apperr.Validation("pid_data_required", "Capture data is required")
	}
	return s.withOnboarding(ctx, func(id string, o *flow.Onboarding) error {
		if err := o.ReadyToCapture(); err != nil {
			return err
		}
		capture, err := s.rd.Normalize(rdservice.Device(device), []byte(pidXML))
		if err != nil {
			logging.Entry(ctx, s.log).WithFields(logrus.Fields{
				"retailer_id": id,
				"device":      device,
			}).Warnf("Relayed biometric capture rejected: %v", err)
			return captureError(err)
		}
		return o.AttachCapture(capture)
	})
}

// CaptureSetup lists the supported devices and the capture options the
// browser sends to its driver
func (s *Service) CaptureSetup(ctx context.Context) (models.CaptureSetup, error) {
	if _, err := retailer(ctx); err != nil {
		return models.CaptureSetup{}, err
	}
	opts, err := s.rd.PidOptions()
	if err != nil {
		return models.CaptureSetup{}, fmt.Errorf("failed to build PID options: %w", err)
	}
	setup := models.CaptureSetup{PidOptions: opts}
	for _, d := range s.rd.Devices() {
		setup.Devices = append(setup.Devices, string(d))
	}
	return setup, nil
}

// DeviceStatus reports the selected RD-service device's readiness
func (s *Service) DeviceStatus(ctx context.Context, device string) (models.DeviceInfo, error) {
	if _, err := retailer(ctx); err != nil {
		return models.DeviceInfo{}, err
	}
	info, err := s.rd.DeviceInfo(ctx, rdservice.Device(device))
	if err != nil {
		return models.DeviceInfo{}, captureError(err)
	}
	return info, nil
}

// CreateWallet submits the Aadhaar and capture to the backend
func (s *Service) CreateWallet(ctx context.Context) (flow.View, error) {
	return s.withOnboarding(ctx, func(id string, o *flow.Onboarding) error {
		if err := o.ReadyToCreateWallet(); err != nil {
			return err
		}
		capture, _ := o.Capture()
		req := createWalletRequest{
			MobileNumber:  o.Mobile(),
			AadhaarNumber: o.Aadhaar(),
			PIDData:       capture.RawXML,
			SessionKey:    capture.SessionKey,
			HMAC:          capture.HMAC,
			Device:        capture.DeviceInfo,
		}
		if loc := o.Location(); loc != nil {
			req.Latitude, req.Longitude = loc.Latitude, loc.Longitude
		}

		var resp createWalletResponse
		err := s.backend.Post(ctx, "/dmt/create-wallet", req, &resp)
		if err == nil {
			err = o.ApplyWalletCreated(resp.EkycID)
		}
		s.record(ctx, id, ActionWalletCreate, utils.MaskMobile(o.Mobile()), err)
		return err
	})
}

// VerifyWallet confirms the wallet with the OTP sent to the remitter. A
// wrong OTP keeps the flow on the OTP step.
func (s *Service) VerifyWallet(ctx context.Context, otp string) (flow.View, error) {
	return s.withOnboarding(ctx, func(id string, o *flow.Onboarding) error {
		if err := o.ReadyToVerify(otp); err != nil {
			return err
		}
		err := s.backend.Post(ctx, "/dmt/verify-wallet", verifyWalletRequest{
			MobileNumber: o.Mobile(),
			EkycID:       o.EkycID(),
			OTP:          otp,
		}, nil)
		if err == nil {
			err = o.ApplyVerified(otp)
		}
		s.record(ctx, id, ActionWalletVerify, utils.MaskMobile(o.Mobile()), err)
		return err
	})
}

// OnboardingBack steps the flow one screen back
func (s *Service) OnboardingBack(ctx context.Context) (flow.View, error) {
	return s.withOnboarding(ctx, func(_ string, o *flow.Onboarding) error {
		return o.Back()
	})
}

// ResetOnboarding discards the retailer's flow
func (s *Service) ResetOnboarding(ctx context.Context) (flow.View, error) {
	id, err := retailer(ctx)
	if err != nil {
		return flow.View{}, err
	}
	release, err := s.claim(ctx, flowDMT, id, errFlowBusy)
	if err != nil {
		return flow.View{}, err
	}
	defer release()
	if err := s.flows.Delete(ctx, flowDMT, id); err != nil {
		return flow.View{}, err
	}
	return flow.NewOnboarding().View(), nil
}
