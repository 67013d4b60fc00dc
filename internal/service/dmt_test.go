package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/flow"
	"github.com/paybazaar/retailer-portal/internal/integrations/geo"
	"github.com/paybazaar/retailer-portal/internal/integrations/rdservice"
	"github.com/paybazaar/retailer-portal/internal/models"
)

// toAadhaarStep drives a fresh flow to the Aadhaar step for mobile
func toAadhaarStep(t *testing.T, env *testEnv, ctx context.Context) {
	t.Helper()
	env.backend.reply("POST", "/dmt/check-remitter", map[string]any{"AccountExists": 0})
	_, err := env.svc.ReportLocation(ctx, fix(19.07, 72.87))
	require.NoError(t, err)
	v, err := env.svc.CheckWallet(ctx, "9876543210")
	require.NoError(t, err)
	require.Equal(t, flow.StepAadhaarBiometric, v.Step)
}

func TestCheckWalletRequiresLocation(t *testing.T) {
	env := newTestEnv(t)
	ctx := retailerCtx("R1")

	_, err := env.svc.CheckWallet(ctx, "9876543210")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, env.backend.calls)
}

func TestLocationFailureIsClassified(t *testing.T) {
	env := newTestEnv(t)
	ctx := retailerCtx("R1")

	_, err := env.svc.ReportLocation(ctx, fix(19.07, 72.87))
	require.NoError(t, err)

	v, err := env.svc.ReportLocation(ctx, geo.Report{ErrorCode: 1})
	require.Error(t, err)
	e := apperr.As(err)
	assert.Equal(t, "location_permission_denied", e.Code)
	assert.Equal(t, geo.Message(geo.ReasonPermissionDenied), e.Message)
	assert.Nil(t, v.Location, "a failed retry closes the gate")

	_, err = env.svc.CheckWallet(ctx, "9876543210")
	assert.Error(t, err)
}

func TestCheckWalletExistingAccountSkipsKYC(t *testing.T) {
	env := newTestEnv(t)
	ctx := retailerCtx("R1")
	env.backend.reply("POST", "/dmt/check-remitter", map[string]any{"AccountExists": 1})

	_, err := env.svc.ReportLocation(ctx, fix(19.07, 72.87))
	require.NoError(t, err)
	v, err := env.svc.CheckWallet(ctx, "9876543210")
	require.NoError(t, err)

	assert.Equal(t, flow.StepBeneficiary, v.Step)
	calls := env.backend.callsTo("POST", "/dmt/check-remitter")
	require.Len(t, calls, 1)
	var body map[string]any
	require.NoError(t, json.Unmarshal(calls[0].Body, &body))
	assert.Equal(t, "9876543210", body["mobile_number"])
	assert.Equal(t, 19.07, body["latitude"])

	ev := requireAudit(t, env, ActionWalletCheck, models.OutcomeSuccess)
	assert.NotContains(t, ev.Subject, "9876543210")
}

func TestCheckWalletRejectsBadMobileWithoutCalling(t *testing.T) {
	env := newTestEnv(t)
	ctx := retailerCtx("R1")
	_, err := env.svc.ReportLocation(ctx, fix(19.07, 72.87))
	require.NoError(t, err)

	for _, mobile := range []string{"", "98765", "98765432101", "98765abcde"} {
		_, err := env.svc.CheckWallet(ctx, mobile)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), mobile)
	}
	assert.Empty(t, env.backend.callsTo("POST", "/dmt/check-remitter"))
}

func TestCheckWalletFailureKeepsStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := retailerCtx("R1")
	env.backend.fail("POST", "/dmt/check-remitter", apperr.Transport(500, errors.New("boom")))
	_, err := env.svc.ReportLocation(ctx, fix(19.07, 72.87))
	require.NoError(t, err)

	_, err = env.svc.CheckWallet(ctx, "9876543210")
	require.Error(t, err)

	v, err := env.svc.OnboardingState(ctx, flow.Input{})
	require.NoError(t, err)
	assert.Equal(t, flow.StepEnterMobile, v.Step)
	assert.Empty(t, v.Mobile)
}

func TestFullOnboarding(t *testing.T) {
	env := newTestEnv(t)
	ctx := retailerCtx("R1")
	toAadhaarStep(t, env, ctx)

	v, err := env.svc.SetAadhaar(ctx, "123456789012")
	require.NoError(t, err)
	assert.Equal(t, "XXXX-XXXX-9012", v.Aadhaar)
	assert.False(t, v.CanCreateWallet)

	_, err = env.svc.CreateWallet(ctx)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "no capture yet")

	v, err = env.svc.CaptureBiometric(ctx, "mantra")
	require.NoError(t, err)
	assert.True(t, v.Captured)
	assert.Equal(t, "mantra", v.CaptureDevice)
	assert.True(t, v.CanCreateWallet)

	env.backend.reply("POST", "/dmt/create-wallet", map[string]string{"ekyc_id": "EK-1"})
	v, err = env.svc.CreateWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, flow.StepOtpVerify, v.Step)
	assert.Equal(t, "EK-1", v.EkycID)

	var created map[string]any
	require.NoError(t, json.Unmarshal(env.backend.callsTo("POST", "/dmt/create-wallet")[0].Body, &created))
	assert.Equal(t, "123456789012", created["aadhaar_number"])
	assert.Equal(t, "<PidData/>", created["pid_data"])

	_, err = env.svc.VerifyWallet(ctx, "12")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, env.backend.callsTo("POST", "/dmt/verify-wallet"))

	env.backend.fail("POST", "/dmt/verify-wallet", apperr.Business("Invalid OTP"))
	_, err = env.svc.VerifyWallet(ctx, "123456")
	assert.Equal(t, apperr.KindBusiness, apperr.KindOf(err))
	v, err = env.svc.OnboardingState(ctx, flow.Input{})
	require.NoError(t, err)
	assert.Equal(t, flow.StepOtpVerify, v.Step)
	assert.True(t, v.Captured, "a failed verify keeps the capture")

	env.backend.reply("POST", "/dmt/verify-wallet", nil)
	v, err = env.svc.VerifyWallet(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, flow.StepSuccess, v.Step)

	requireAudit(t, env, ActionWalletCreate, models.OutcomeSuccess)
	requireAudit(t, env, ActionWalletVerify, models.OutcomeFailure)
	requireAudit(t, env, ActionWalletVerify, models.OutcomeSuccess)
}

func TestCaptureRequiresAadhaar(t *testing.T) {
	env := newTestEnv(t)
	ctx := retailerCtx("R1")
	toAadhaarStep(t, env, ctx)

	_, err := env.svc.CaptureBiometric(ctx, "mantra")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Zero(t, env.rd.calls)
}

func TestCaptureErrorsAreDistinctAndKeepStep(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		message string
	}{
		{"missing root", &rdservice.ResponseError{Reason: "PidData not found"}, "invalid_response", "Invalid response - PidData not found"},
		{"driver down", rdservice.ErrDeviceUnavailable, "device_unavailable", ""},
		{"device error", &rdservice.DeviceError{Code: "720", Info: "Device not ready"}, "capture_failed", "Capture failed: Device not ready (error code 720)"},
		{"unknown device", rdservice.ErrUnknownDevice, "unknown_device", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := retailerCtx("R1")
			toAadhaarStep(t, env, ctx)
			_, err := env.svc.SetAadhaar(ctx, "123456789012")
			require.NoError(t, err)

			env.rd.err = tt.err
			_, err = env.svc.CaptureBiometric(ctx, "mantra")
			require.Error(t, err)
			e := apperr.As(err)
			assert.Equal(t, tt.code, e.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, e.Message)
			}

			v, err := env.svc.OnboardingState(ctx, flow.Input{})
			require.NoError(t, err)
			assert.Equal(t, flow.StepAadhaarBiometric, v.Step)
			assert.False(t, v.Captured)
		})
	}
}

func TestBackDiscardsCapture(t *testing.T) {
	env := newTestEnv(t)
	ctx := retailerCtx("R1")
	toAadhaarStep(t, env, ctx)
	_, err := env.svc.SetAadhaar(ctx, "123456789012")
	require.NoError(t, err)
	_, err = env.svc.CaptureBiometric(ctx, "morpho")
	require.NoError(t, err)

	v, err := env.svc.OnboardingBack(ctx)
	require.NoError(t, err)
	assert.Equal(t, flow.StepEnterMobile, v.Step)
	assert.Equal(t, "9876543210", v.Mobile)
	assert.False(t, v.Captured)

	_, err = env.svc.OnboardingBack(ctx)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestOnboardingIsPerRetailer(t *testing.T) {
	env := newTestEnv(t)
	toAadhaarStep(t, env, retailerCtx("R1"))

	v, err := env.svc.OnboardingState(retailerCtx("R2"), flow.Input{})
	require.NoError(t, err)
	assert.Equal(t, flow.StepEnterMobile, v.Step)

	v, err = env.svc.ResetOnboarding(retailerCtx("R1"))
	require.NoError(t, err)
	assert.Equal(t, flow.StepEnterMobile, v.Step)
	v, err = env.svc.OnboardingState(retailerCtx("R1"), flow.Input{})
	require.NoError(t, err)
	assert.Equal(t, flow.StepEnterMobile, v.Step)
}

func TestOnboardingWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.OnboardingState(context.Background(), flow.Input{})
	assert.Equal(t, apperr.KindSession, apperr.KindOf(err))
}

func TestConcurrentCreateWalletCallsBackendOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := retailerCtx("R1")
	toAadhaarStep(t, env, ctx)
	_, err := env.svc.SetAadhaar(ctx, "123456789012")
	require.NoError(t, err)
	_, err = env.svc.CaptureBiometric(ctx, "mantra")
	require.NoError(t, err)

	env.useLossyFlows(20 * time.Millisecond)
	env.backend.reply("POST", "/dmt/create-wallet", map[string]string{"ekyc_id": "EK-1"})

	errs := concurrently(2, func() error {
		_, err := env.svc.CreateWallet(ctx)
		return err
	})

	assert.Len(t, env.backend.callsTo("POST", "/dmt/create-wallet"), 1)
	assert.NotEqual(t, errs[0] == nil, errs[1] == nil, "exactly one create wins")
}

func TestSubmitCaptureAttachesBrowserPID(t *testing.T) {
	env := newTestEnv(t)
	ctx := retailerCtx("R1")
	toAadhaarStep(t, env, ctx)
	_, err := env.svc.SetAadhaar(ctx, "123456789012")
	require.NoError(t, err)

	_, err = env.svc.SubmitCapture(ctx, "mantra", "  ")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	v, err := env.svc.SubmitCapture(ctx, "mantra", "<PidData><Resp errCode=\"0\"/></PidData>")
	require.NoError(t, err)
	assert.True(t, v.Captured)
	assert.Zero(t, env.rd.calls)
	assert.Equal(t, []string{"<PidData><Resp errCode=\"0\"/></PidData>"}, env.rd.relayed)
}

func TestSubmitCaptureRejectsInvalidPID(t *testing.T) {
	env := newTestEnv(t)
	ctx := retailerCtx("R1")
	toAadhaarStep(t, env, ctx)
	_, err := env.svc.SetAadhaar(ctx, "123456789012")
	require.NoError(t, err)

	env.rd.err = &rdservice.ResponseError{Reason: "PidData not found"}
	_, err = env.svc.SubmitCapture(ctx, "mantra", "<Other/>")
	assert.Equal(t, "invalid_response", apperr.As(err).Code)

	v, err := env.svc.OnboardingState(ctx, flow.Input{})
	require.NoError(t, err)
	assert.Equal(t, flow.StepAadhaarBiometric, v.Step)
	assert.False(t, v.Captured)
}

func TestSubmitCaptureRequiresAadhaar(t *testing.T) {
	env := newTestEnv(t)
	ctx := retailerCtx("R1")
	toAadhaarStep(t, env, ctx)

	_, err := env.svc.SubmitCapture(ctx, "mantra", "<PidData/>")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, env.rd.relayed)
}

func TestCaptureSetup(t *testing.T) {
	env := newTestEnv(t)

	setup, err := env.svc.CaptureSetup(retailerCtx("R1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"mantra", "morpho"}, setup.Devices)
	assert.Contains(t, setup.PidOptions, "PidOptions")

	_, err = env.svc.CaptureSetup(context.Background())
	assert.Equal(t, apperr.KindSession, apperr.KindOf(err))
}

func TestOnboardingStateGatesUnsubmittedInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := retailerCtx("R1")

	v, err := env.svc.OnboardingState(ctx, flow.Input{Mobile: "9876543210"})
	require.NoError(t, err)
	assert.False(t, v.CanCheckWallet)

	_, err = env.svc.ReportLocation(ctx, fix(19.07, 72.87))
	require.NoError(t, err)
	v, err = env.svc.OnboardingState(ctx, flow.Input{Mobile: "9876543210"})
	require.NoError(t, err)
	assert.True(t, v.CanCheckWallet)
	assert.False(t, v.CanVerify)
}
