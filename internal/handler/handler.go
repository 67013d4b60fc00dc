package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/report"
	"github.com/paybazaar/retailer-portal/internal/respond"
	"github.com/paybazaar/retailer-portal/internal/service"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

var errBadBody = apperr.Validation("invalid_body", "Invalid request body")

// decode reads a JSON request body into dst
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("empty_body", "Request body is required")
		}
		return apperr.Wrap(errBadBody, err)
	}
	return nil
}

func (h *Handler) ok(w http.ResponseWriter, data any) {
	respond.JSON(w, http.StatusOK, "", data)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	respond.Error(w, r, h.log, err)
}

// parseQuery reads the shared report filters from query parameters
func (h *Handler) parseQuery(get func(string) string) (report.Query, error) {
	rng, err := report.ParseDateRange(get("start_date"), get("end_date"), h.svc.Config().Timezone)
	if err != nil {
		return report.Query{}, err
	}
	q := report.Query{Range: rng, Status: get("status"), Search: get("search")}
	if q.Limit, err = intParam(get("limit"), "limit"); err != nil {
		return report.Query{}, err
	}
	if q.Offset, err = intParam(get("offset"), "offset"); err != nil {
		return report.Query{}, err
	}
	return q, nil
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.Validation("invalid_"+name, "Invalid "+name)
	}
	return n, nil
}
