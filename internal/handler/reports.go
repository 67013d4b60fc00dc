package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/paybazaar/retailer-portal/internal/receipt"
	"github.com/paybazaar/retailer-portal/internal/report"
	"github.com/paybazaar/retailer-portal/internal/respond"
)

// ListReport returns a filtered page of the {kind} ledger
func (h *Handler) ListReport(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r.URL.Query().Get)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := h.svc.ListReport(r.Context(), mux.Vars(r)["kind"], q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, page)
}

// ExportReport downloads the filtered ledger as a spreadsheet
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r.URL.Query().Get)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	exp, err := h.svc.ExportReport(r.Context(), mux.Vars(r)["kind"], q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("X-Export-Rows", strconv.Itoa(exp.Rows))
	respond.File(w, report.ContentType, exp.Filename, exp.Data)
}

// Transaction returns one ledger row
func (h *Handler) Transaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	txn, _, err := h.svc.Transaction(r.Context(), vars["kind"], vars["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, txn)
}

// Receipt downloads a PDF receipt for one ledger row
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rc, err := h.svc.Receipt(r.Context(), vars["kind"], vars["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.File(w, receipt.ContentType, rc.Filename, rc.Data)
}

// ReportKinds lists the available ledgers
func (h *Handler) ReportKinds(w http.ResponseWriter, r *http.Request) {
	type kind struct {
		Kind     string   `json:"kind"`
		Title    string   `json:"title"`
		Statuses []string `json:"statuses"`
	}
	var out []kind
	for _, k := range report.Kinds() {
		def, _ := report.Lookup(k)
		out = append(out, kind{Kind: def.Kind, Title: def.Title, Statuses: def.Statuses})
	}
	h.ok(w, out)
}

// RecentActivity lists the retailer's latest audited actions
func (h *Handler) RecentActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	events, err := h.svc.RecentActivity(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, events)
}
