package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paybazaar/retailer-portal/internal/models"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	DateLayout,
}

// listPayload is the backend's paged list shape. Some endpoints return the
// bare array instead; decodeRows accepts both.
type listPayload struct {
	Rows  []map[string]any `json:"rows"`
	Total int              `json:"total"`
}

func decodeRows(raw json.RawMessage) ([]map[string]any, int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, 0, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if raw[0] == '[' {
		var rows []map[string]any
		if err := dec.Decode(&rows); err != nil {
			return nil, 0, fmt.Errorf("failed to decode rows: %w", err)
		}
		return rows, len(rows), nil
	}

	var page listPayload
	if err := dec.Decode(&page); err != nil {
		return nil, 0, fmt.Errorf("failed to decode page: %w", err)
	}
	total := page.Total
	if total < len(page.Rows) {
		total = len(page.Rows)
	}
	return page.Rows, total, nil
}

// toTransaction maps one backend row through the definition's field keys.
// Keys not consumed by a canonical field are kept in Extra.
func toTransaction(row map[string]any, f Fields, loc *time.Location) models.Transaction {
	used := map[string]bool{}
	str := func(key string) string {
		if key == "" {
			return ""
		}
		used[key] = true
		return stringify(row[key])
	}
	dec := func(key string) decimal.Decimal {
		s := str(key)
		if s == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		return d
	}

	t := models.Transaction{
		ID:            str(f.ID),
		Reference:     str(f.Reference),
		Operator:      str(f.Operator),
		Bank:          str(f.Bank),
		Amount:        dec(f.Amount),
		BeforeBalance: dec(f.BeforeBalance),
		AfterBalance:  dec(f.AfterBalance),
		Commission:    dec(f.Commission),
		Status:        strings.ToUpper(str(f.Status)),
		CreatedAt:     parseTimestamp(str(f.CreatedAt), loc),
	}

	for k, v := range row {
		if used[k] || v == nil {
			continue
		}
		if t.Extra == nil {
			t.Extra = map[string]string{}
		}
		t.Extra[k] = stringify(v)
	}
	return t
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func parseTimestamp(s string, loc *time.Location) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func decodeRow(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var row map[string]any
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("failed to decode row: %w", err)
	}
	return row, nil
}
