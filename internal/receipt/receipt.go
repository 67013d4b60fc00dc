// Package receipt renders ledger rows as printable PDF receipts.
package receipt

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/report"
)

// ContentType is the MIME type of a rendered receipt
const ContentType = "application/pdf"

const brand = "PayBazaar"

// Shop identifies the retailer printed in the receipt header
type Shop struct {
	Name    string
	Address string
	Mobile  string
}

// Receipt is a rendered PDF
type Receipt struct {
	Filename string
	Data     []byte
}

// Render lays out one transaction. Extra backend fields are printed after
// the standard ones in key order so the output is stable.
func Render(def report.Definition, txn models.Transaction, shop Shop, loc *time.Location) (*Receipt, error) {
	if loc == nil {
		loc = time.UTC
	}

	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetTitle(fmt.Sprintf("%s receipt %s", def.Title, txn.ID), true)
	pdf.SetAuthor(brand, true)
	pdf.SetCreationDate(documentDate(txn))
	pdf.SetModificationDate(documentDate(txn))
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, brand, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, def.Title, "", 1, "C", false, 0, "")
	if shop.Name != "" {
		pdf.CellFormat(0, 5, shop.Name, "", 1, "C", false, 0, "")
	}
	if shop.Address != "" {
		pdf.MultiCell(0, 5, shop.Address, "", "C", false)
	}
	pdf.Ln(4)

	rows := [][2]string{
		{"Transaction ID", txn.ID},
		{def.ReferenceLabel, txn.Reference},
	}
	if txn.Operator != "" {
		rows = append(rows, [2]string{"Operator", txn.Operator})
	}
	if txn.Bank != "" {
		rows = append(rows, [2]string{"Bank", txn.Bank})
	}
	rows = append(rows,
		[2]string{"Amount", "Rs. " + txn.Amount.StringFixed(2)},
		[2]string{"Status", txn.Status},
	)
	if !txn.CreatedAt.IsZero() {
		rows = append(rows, [2]string{"Date", txn.CreatedAt.In(loc).Format("02 Jan 2006 15:04")})
	}

	keys := make([]string, 0, len(txn.Extra))
	for k := range txn.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, [2]string{label(k), txn.Extra[k]})
	}

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, r := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 7, tr(r[0]), "B", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 7, tr(r[1]), "B", 1, "L", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(0, 4, "This is a computer generated receipt and does not require a signature.", "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return &Receipt{
		Filename: fmt.Sprintf("%s_receipt_%s.pdf", def.Kind, sanitize(txn.ID)),
		Data:     buf.Bytes(),
	}, nil
}

// documentDate is the transaction time, so reprints carry the original date
func documentDate(txn models.Transaction) time.Time {
	if txn.CreatedAt.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return txn.CreatedAt.UTC()
}

func label(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		if len(w) <= 3 {
			words[i] = strings.ToUpper(w)
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
