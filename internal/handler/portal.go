package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/paybazaar/retailer-portal/internal/respond"
	"github.com/paybazaar/retailer-portal/internal/service"
)

// RechargeReference returns prepaid operators and circles
func (h *Handler) RechargeReference(w http.ResponseWriter, r *http.Request) {
	ref, err := h.svc.RechargeReference(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, ref)
}

// Plans lists plans for ?operator=&circle=
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	plans, err := h.svc.Plans(r.Context(), q.Get("operator"), q.Get("circle"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, plans)
}

// Recharge submits a prepaid recharge
func (h *Handler) Recharge(w http.ResponseWriter, r *http.Request) {
	var in service.RechargeInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.Recharge(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res.Message, res)
}

// DTHOperators lists DTH operators
func (h *Handler) DTHOperators(w http.ResponseWriter, r *http.Request) {
	ops, err := h.svc.DTHOperators(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, ops)
}

// DTHRecharge submits a DTH recharge
func (h *Handler) DTHRecharge(w http.ResponseWriter, r *http.Request) {
	var in service.DTHInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.DTHRecharge(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res.Message, res)
}

// Billers lists electricity billers
func (h *Handler) Billers(w http.ResponseWriter, r *http.Request) {
	billers, err := h.svc.Billers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, billers)
}

// FetchBill looks up an outstanding bill
func (h *Handler) FetchBill(w http.ResponseWriter, r *http.Request) {
	var q service.BillQuery
	if err := decode(r, &q); err != nil {
		h.fail(w, r, err)
		return
	}
	bill, err := h.svc.FetchBill(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, bill)
}

// PayBill pays a fetched bill
func (h *Handler) PayBill(w http.ResponseWriter, r *http.Request) {
	var p service.BillPayment
	if err := decode(r, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.PayBill(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res.Message, res)
}

func (h *Handler) WalletBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.svc.WalletBalance(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, bal)
}

func (h *Handler) Commission(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Commission(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, c)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Profile(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, p)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileUpdate
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.UpdateProfile(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Profile updated", p)
}

// ListTickets returns support tickets
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.svc.ListTickets(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, tickets)
}

// CreateTicket raises a support ticket
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var in service.TicketInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	t, err := h.svc.CreateTicket(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "Ticket created", t)
}

// UpdateTicket edits an open ticket
func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	var in service.TicketInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	t, err := h.svc.UpdateTicket(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Ticket updated", t)
}

// ListFundRequests returns fund requests filtered by ?search=
func (h *Handler) ListFundRequests(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListFundRequests(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, list)
}

// CreateFundRequest submits a wallet top-up request
func (h *Handler) CreateFundRequest(w http.ResponseWriter, r *http.Request) {
	var in service.FundRequestInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	fr, err := h.svc.CreateFundRequest(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "Fund request submitted", fr)
}
