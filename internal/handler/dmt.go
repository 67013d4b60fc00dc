package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/paybazaar/retailer-portal/internal/flow"
	"github.com/paybazaar/retailer-portal/internal/integrations/geo"
)

// OnboardingState returns the DMT onboarding flow. Optional mobile and otp
// query parameters evaluate the action gates against unsubmitted input.
func (h *Handler) OnboardingState(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := h.svc.OnboardingState(r.Context(), flow.Input{
		Mobile: strings.TrimSpace(q.Get("mobile")),
		OTP:    strings.TrimSpace(q.Get("otp")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}

// ReportLocation accepts the browser's position or its error code
func (h *Handler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	var report geo.Report
	if err := decode(r, &report); err != nil {
		h.fail(w, r, err)
		return
	}
	report.ClientIP = clientIP(r)

	v, err := h.svc.ReportLocation(r.Context(), report)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}

// CheckWallet checks the remitter's mobile with the backend
func (h *Handler) CheckWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mobile string `json:"mobile_number"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.svc.CheckWallet(r.Context(), strings.TrimSpace(req.Mobile))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}

// SetAadhaar records the remitter's Aadhaar number
func (h *Handler) SetAadhaar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Aadhaar string `json:"aadhaar_number"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.svc.SetAadhaar(r.Context(), strings.ReplaceAll(req.Aadhaar, " ", ""))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}

// CaptureBiometric captures a fingerprint from the device in the path
func (h *Handler) CaptureBiometric(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.CaptureBiometric(r.Context(), mux.Vars(r)["device"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}

// SubmitCapture accepts PidData the browser captured from its own driver
func (h *Handler) SubmitCapture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Device  string `json:"device"`
		PidData string `json:"pid_data"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.svc.SubmitCapture(r.Context(), strings.TrimSpace(req.Device), req.PidData)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}

// CaptureSetup lists devices and the PID options for browser-side capture
func (h *Handler) CaptureSetup(w http.ResponseWriter, r *http.Request) {
	setup, err := h.svc.CaptureSetup(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, setup)
}

// DeviceStatus reports whether the device driver is ready
func (h *Handler) DeviceStatus(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.DeviceStatus(r.Context(), mux.Vars(r)["device"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, info)
}

// CreateWallet submits the KYC payload
func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.CreateWallet(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}

// VerifyWallet confirms the wallet with the remitter's OTP
func (h *Handler) VerifyWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OTP string `json:"otp"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.svc.VerifyWallet(r.Context(), strings.TrimSpace(req.OTP))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}

// OnboardingBack steps back one screen
func (h *Handler) OnboardingBack(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.OnboardingBack(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}

// ResetOnboarding starts over
func (h *Handler) ResetOnboarding(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.ResetOnboarding(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
