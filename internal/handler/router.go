package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/middleware"
	"github.com/paybazaar/retailer-portal/internal/respond"
)

// NewRouter mounts the gateway routes. Everything under /api requires a
// portal session.
func NewRouter(h *Handler, log *logrus.Logger, now func() time.Time) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Access(log), middleware.Recover(log))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, "ok", nil)
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(log, now))

	// DMT wallet onboarding
	api.HandleFunc("/dmt/onboarding", h.OnboardingState).Methods(http.MethodGet)
	api.HandleFunc("/dmt/onboarding", h.ResetOnboarding).Methods(http.MethodDelete)
	api.HandleFunc("/dmt/onboarding/location", h.ReportLocation).Methods(http.MethodPost)
	api.HandleFunc("/dmt/onboarding/check", h.CheckWallet).Methods(http.MethodPost)
	api.HandleFunc("/dmt/onboarding/aadhaar", h.SetAadhaar).Methods(http.MethodPost)
	api.HandleFunc("/dmt/onboarding/capture", h.SubmitCapture).Methods(http.MethodPost)
	api.HandleFunc("/dmt/onboarding/capture/{device}", h.CaptureBiometric).Methods(http.MethodPost)
	api.HandleFunc("/dmt/onboarding/create", h.CreateWallet).Methods(http.MethodPost)
	api.HandleFunc("/dmt/onboarding/verify", h.VerifyWallet).Methods(http.MethodPost)
	api.HandleFunc("/dmt/onboarding/back", h.OnboardingBack).Methods(http.MethodPost)
	api.HandleFunc("/devices", h.CaptureSetup).Methods(http.MethodGet)
	api.HandleFunc("/devices/{device}", h.DeviceStatus).Methods(http.MethodGet)

	// Settlement
	api.HandleFunc("/settlement/beneficiaries", h.ListBeneficiaries).Methods(http.MethodGet)
	api.HandleFunc("/settlement/beneficiaries", h.AddBeneficiary).Methods(http.MethodPost)
	api.HandleFunc("/settlement/beneficiaries/{id}", h.DeleteBeneficiary).Methods(http.MethodDelete)
	api.HandleFunc("/settlement/beneficiaries/{id}/verify", h.VerifyBeneficiary).Methods(http.MethodPost)
	api.HandleFunc("/settlement/pay", h.PayDialogState).Methods(http.MethodGet)
	api.HandleFunc("/settlement/pay", h.OpenPayDialog).Methods(http.MethodPost)
	api.HandleFunc("/settlement/pay", h.DismissPayDialog).Methods(http.MethodDelete)
	api.HandleFunc("/settlement/pay/details", h.SubmitPayDetails).Methods(http.MethodPost)
	api.HandleFunc("/settlement/pay/back", h.PayBackToDetails).Methods(http.MethodPost)
	api.HandleFunc("/settlement/pay/mpin", h.SubmitPayout).Methods(http.MethodPost)

	// Recharge and bills
	api.HandleFunc("/recharge/reference", h.RechargeReference).Methods(http.MethodGet)
	api.HandleFunc("/recharge/plans", h.Plans).Methods(http.MethodGet)
	api.HandleFunc("/recharge", h.Recharge).Methods(http.MethodPost)
	api.HandleFunc("/dth/operators", h.DTHOperators).Methods(http.MethodGet)
	api.HandleFunc("/dth/recharge", h.DTHRecharge).Methods(http.MethodPost)
	api.HandleFunc("/bbps/billers", h.Billers).Methods(http.MethodGet)
	api.HandleFunc("/bbps/fetch", h.FetchBill).Methods(http.MethodPost)
	api.HandleFunc("/bbps/pay", h.PayBill).Methods(http.MethodPost)

	// Reports
	api.HandleFunc("/reports", h.ReportKinds).Methods(http.MethodGet)
	api.HandleFunc("/reports/{kind}", h.ListReport).Methods(http.MethodGet)
	api.HandleFunc("/reports/{kind}/export", h.ExportReport).Methods(http.MethodGet)
	api.HandleFunc("/reports/{kind}/live", h.LiveReport).Methods(http.MethodGet)
	api.HandleFunc("/reports/{kind}/{id}", h.Transaction).Methods(http.MethodGet)
	api.HandleFunc("/reports/{kind}/{id}/receipt", h.Receipt).Methods(http.MethodGet)

	// Account and support
	api.HandleFunc("/wallet", h.WalletBalance).Methods(http.MethodGet)
	api.HandleFunc("/commission", h.Commission).Methods(http.MethodGet)
	api.HandleFunc("/profile", h.Profile).Methods(http.MethodGet)
	api.HandleFunc("/profile", h.UpdateProfile).Methods(http.MethodPut)
	api.HandleFunc("/activity", h.RecentActivity).Methods(http.MethodGet)
	api.HandleFunc("/tickets", h.ListTickets).Methods(http.MethodGet)
	api.HandleFunc("/tickets", h.CreateTicket).Methods(http.MethodPost)
	api.HandleFunc("/tickets/{id}", h.UpdateTicket).Methods(http.MethodPut)
	api.HandleFunc("/fund-requests", h.ListFundRequests).Methods(http.MethodGet)
	api.HandleFunc("/fund-requests", h.CreateFundRequest).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		respond.Error(w, req, log, apperr.NotFound("Not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		respond.Reject(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})
	return r
}
