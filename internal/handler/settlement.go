package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/respond"
	"github.com/paybazaar/retailer-portal/internal/service"
	"github.com/paybazaar/retailer-portal/internal/utils"
)

// ListBeneficiaries lists payees for ?mobile_number=
func (h *Handler) ListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListBeneficiaries(r.Context(), r.URL.Query().Get("mobile_number"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, list)
}

// AddBeneficiary registers a payee
func (h *Handler) AddBeneficiary(w http.ResponseWriter, r *http.Request) {
	var in service.NewBeneficiary
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.svc.AddBeneficiary(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, list)
}

// DeleteBeneficiary removes a payee
func (h *Handler) DeleteBeneficiary(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBeneficiary(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, nil)
}

// VerifyBeneficiary verifies a payee's account
func (h *Handler) VerifyBeneficiary(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.VerifyBeneficiary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, b)
}

// PayDialogState returns the pay dialog
func (h *Handler) PayDialogState(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.PayDialogState(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}

// OpenPayDialog starts a payment to a beneficiary
func (h *Handler) OpenPayDialog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mobile        string `json:"mobile_number"`
		BeneficiaryID string `json:"beneficiary_id"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.svc.OpenPayDialog(r.Context(), req.Mobile, req.BeneficiaryID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}

// SubmitPayDetails sets transfer mode and amount
func (h *Handler) SubmitPayDetails(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode   models.TransferMode `json:"transfer_mode"`
		Amount decimal.Decimal     `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.svc.SubmitPayDetails(r.Context(), req.Mode, req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}

// SubmitPayout authorizes the payout with the MPIN. The MPIN is kept as raw
// body bytes so it can be wiped after the call.
func (h *Handler) SubmitPayout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MPIN json.RawMessage `json:"mpin"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	defer utils.Zero(req.MPIN)

	res, err := h.svc.SubmitPayout(r.Context(), bytes.Trim(req.MPIN, `"`))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Payout successful", res)
}

// PayBackToDetails returns to the details step
func (h *Handler) PayBackToDetails(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.PayBackToDetails(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}

// DismissPayDialog closes the dialog
func (h *Handler) DismissPayDialog(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.DismissPayDialog(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, v)
}
