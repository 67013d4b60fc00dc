package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/paybazaar/retailer-portal/internal/models"
)

const sheetName = "Sheet1"

// Export is a rendered spreadsheet
type Export struct {
	Filename string
	Data     []byte
	Rows     int
	Amount   decimal.Decimal
}

// ContentType is the MIME type of an exported workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX renders rows as a workbook with a header row and a totals row
func WriteXLSX(def Definition, rows []models.Transaction, loc *time.Location) (*Export, error) {
	f := excelize.NewFile()
	defer f.Close()

	cols := columns(def)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c.title
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		return nil, fmt.Errorf("failed to create amount style: %w", err)
	}

	for i, t := range rows {
		line := make([]any, len(cols))
		for j, c := range cols {
			line[j] = c.value(t, loc)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &line); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	total := SumAmount(rows)
	totals := make([]any, len(cols))
	totals[0] = "Total"
	for j, c := range cols {
		if c.title == "Amount" {
			totals[j] = total.InexactFloat64()
		}
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+2)
	if err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheetName, cell, &totals); err != nil {
		return nil, fmt.Errorf("failed to write totals: %w", err)
	}

	for j, c := range cols {
		if !c.money {
			continue
		}
		top, err := excelize.CoordinatesToCellName(j+1, 2)
		if err != nil {
			return nil, err
		}
		bottom, err := excelize.CoordinatesToCellName(j+1, len(rows)+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheetName, top, bottom, amountStyle); err != nil {
			return nil, fmt.Errorf("failed to style %s: %w", c.title, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return &Export{Data: buf.Bytes(), Rows: len(rows), Amount: total}, nil
}

type column struct {
	title string
	value func(models.Transaction, *time.Location) any
	money bool
}

func text(title string, get func(models.Transaction) string) column {
	return column{title: title, value: func(t models.Transaction, _ *time.Location) any { return get(t) }}
}

// amount columns hold numbers so spreadsheet formulas work on them
func amount(title string, get func(models.Transaction) decimal.Decimal) column {
	return column{
		title: title,
		value: func(t models.Transaction, _ *time.Location) any { return get(t).InexactFloat64() },
		money: true,
	}
}

func columns(def Definition) []column {
	f := def.Fields
	cols := []column{
		text("Transaction ID", func(t models.Transaction) string { return t.ID }),
		text(def.ReferenceLabel, func(t models.Transaction) string { return t.Reference }),
	}
	if f.Operator != "" {
		cols = append(cols, text("Operator", func(t models.Transaction) string { return t.Operator }))
	}
	if f.Bank != "" {
		cols = append(cols, text("Bank", func(t models.Transaction) string { return t.Bank }))
	}
	cols = append(cols, amount("Amount", func(t models.Transaction) decimal.Decimal { return t.Amount }))
	if f.BeforeBalance != "" {
		cols = append(cols, amount("Before Balance", func(t models.Transaction) decimal.Decimal { return t.BeforeBalance }))
	}
	if f.AfterBalance != "" {
		cols = append(cols, amount("After Balance", func(t models.Transaction) decimal.Decimal { return t.AfterBalance }))
	}
	if f.Commission != "" {
		cols = append(cols, amount("Commission", func(t models.Transaction) decimal.Decimal { return t.Commission }))
	}
	cols = append(cols,
		text("Status", func(t models.Transaction) string { return t.Status }),
		column{title: "Date", value: func(t models.Transaction, loc *time.Location) any {
			if t.CreatedAt.IsZero() {
				return ""
			}
			return t.CreatedAt.In(loc).Format("2006-01-02 15:04:05")
		}},
	)
	return cols
}
