package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/models"
)

const (
	// DefaultLimit is the page size when the caller does not ask for one
	DefaultLimit = 50
	// MaxLimit caps the page size a caller may ask for
	MaxLimit = 500
)

// Fetcher is the backend read surface a report needs
type Fetcher interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Query holds the filters of one report request
type Query struct {
	Range  DateRange
	Status string
	Search string
	Limit  int
	Offset int
}

// Page is one filtered page of a report. Total is the backend's count for
// the query; Filtered counts the rows left on this page after local refinement.
type Page struct {
	Kind     string               `json:"kind"`
	Rows     []models.Transaction `json:"rows"`
	Total    int                  `json:"total"`
	Filtered int                  `json:"filtered"`
	Amount   decimal.Decimal      `json:"amount"`
}

// Report runs filtered queries for one configured kind
type Report struct {
	def   Definition
	fetch Fetcher
	loc   *time.Location
	now   func() time.Time
	log   *logrus.Logger
}

// New returns the report for kind, or a not found error for an unknown kind
func New(kind string, fetch Fetcher, loc *time.Location, log *logrus.Logger) (*Report, error) {
	def, ok := Lookup(kind)
	if !ok {
		return nil, apperr.NotFound(fmt.Sprintf("Unknown report %q", kind))
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Report{def: def, fetch: fetch, loc: loc, now: time.Now, log: log}, nil
}

// Definition returns the report's configuration
func (r *Report) Definition() Definition {
	return r.def
}

// List validates q, fetches one page from the backend and refines it locally
func (r *Report) List(ctx context.Context, q Query) (*Page, error) {
	if err := r.validate(&q); err != nil {
		return nil, err
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	return r.load(ctx, q)
}

// Export fetches up to limit rows matching q and writes them as a spreadsheet
func (r *Report) Export(ctx context.Context, q Query, limit int) (*Export, error) {
	if err := r.validate(&q); err != nil {
		return nil, err
	}
	q.Limit = limit
	q.Offset = 0

	page, err := r.load(ctx, q)
	if err != nil {
		return nil, err
	}
	exp, err := WriteXLSX(r.def, page.Rows, r.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s export: %w", r.def.Kind, err)
	}
	exp.Filename = fmt.Sprintf("%s_report_%s.xlsx", r.def.Kind, Today(r.now(), r.loc).Format(DateLayout))

	r.log.WithFields(logrus.Fields{
		"report": r.def.Kind,
		"rows":   exp.Rows,
	}).Info("Report exported")
	return exp, nil
}

func (r *Report) validate(q *Query) error {
	if err := q.Range.Validate(Today(r.now(), r.loc)); err != nil {
		return err
	}
	q.Status = strings.ToUpper(strings.TrimSpace(q.Status))
	if !r.def.AllowsStatus(q.Status) {
		return apperr.Validation("invalid_status", fmt.Sprintf("Invalid status %q", q.Status))
	}
	q.Search = strings.TrimSpace(q.Search)
	if q.Offset < 0 {
		return apperr.Validation("invalid_offset", "Offset cannot be negative")
	}
	return nil
}

func (r *Report) load(ctx context.Context, q Query) (*Page, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	start, end := q.Range.Params()
	if start != "" {
		params.Set("start_date", start)
	}
	if end != "" {
		params.Set("end_date", end)
	}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}

	var raw json.RawMessage
	if err := r.fetch.Get(ctx, r.def.Path, params, &raw); err != nil {
		return nil, err
	}
	rows, total, err := decodeRows(raw)
	if err != nil {
		return nil, apperr.Transport(0, err)
	}

	txns := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		txns = append(txns, toTransaction(row, r.def.Fields, r.loc))
	}
	refined := Refine(txns, q, r.def, r.loc)
	if len(refined) != len(txns) {
		r.log.WithFields(logrus.Fields{
			"report":   r.def.Kind,
			"fetched":  len(txns),
			"filtered": len(refined),
		}).Debug("Backend ignored some report filters")
	}

	return &Page{
		Kind:     r.def.Kind,
		Rows:     refined,
		Total:    total,
		Filtered: len(refined),
		Amount:   SumAmount(refined),
	}, nil
}

// Refine keeps the rows that satisfy the date range, status and search of q
func Refine(rows []models.Transaction, q Query, def Definition, loc *time.Location) []models.Transaction {
	out := make([]models.Transaction, 0, len(rows))
	for _, t := range rows {
		if !q.Range.IsZero() && !t.CreatedAt.IsZero() && !q.Range.Contains(t.CreatedAt, loc) {
			continue
		}
		if q.Status != "" && !strings.EqualFold(t.Status, q.Status) {
			continue
		}
		if q.Search != "" && !MatchesSearch(t, q.Search, def.SearchKeys) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// MatchesSearch reports whether any searchable field contains term, ignoring case
func MatchesSearch(t models.Transaction, term string, keys []string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, k := range keys {
		var v string
		switch k {
		case "id":
			v = t.ID
		case "reference":
			v = t.Reference
		case "operator":
			v = t.Operator
		case "bank":
			v = t.Bank
		case "status":
			v = t.Status
		default:
			v = t.Extra[k]
		}
		if v != "" && strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// SumAmount totals the Amount column
func SumAmount(rows []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range rows {
		total = total.Add(t.Amount)
	}
	return total
}

// Get fetches a single row by id
func (r *Report) Get(ctx context.Context, id string) (models.Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return models.Transaction{}, apperr.Validation("id_required", "Transaction id is required")
	}
	var raw json.RawMessage
	if err := r.fetch.Get(ctx, r.def.Path+"/"+url.PathEscape(id), nil, &raw); err != nil {
		return models.Transaction{}, err
	}
	row, err := decodeRow(raw)
	if err != nil {
		return models.Transaction{}, apperr.Transport(0, err)
	}
	if row == nil {
		return models.Transaction{}, apperr.NotFound("Transaction not found")
	}
	return toTransaction(row, r.def.Fields, r.loc), nil
}
