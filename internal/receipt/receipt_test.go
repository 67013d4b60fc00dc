package receipt

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/report"
)

func sampleTxn() models.Transaction {
	return models.Transaction{
		ID:        "RC/1001",
		Reference: "9876543210",
		Operator:  "Jio",
		Amount:    decimal.RequireFromString("299"),
		Status:    "SUCCESS",
		CreatedAt: time.Date(2025, 6, 10, 4, 30, 0, 0, time.UTC),
		Extra:     map[string]string{"operator_transaction_id": "OP77"},
	}
}

func TestRenderProducesPDF(t *testing.T) {
	def, ok := report.Lookup("recharge")
	require.True(t, ok)

	r, err := Render(def, sampleTxn(), Shop{Name: "Sharma Mobile Store"}, time.UTC)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(r.Data, []byte("%PDF-")))
	assert.Equal(t, "recharge_receipt_RC_1001.pdf", r.Filename)
}

func TestRenderWithoutOptionalFields(t *testing.T) {
	def, _ := report.Lookup("fund-requests")
	txn := models.Transaction{ID: "77", Reference: "UTR123456", Amount: decimal.NewFromInt(5000), Status: "PENDING"}

	r, err := Render(def, txn, Shop{}, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(r.Data, []byte("%PDF-")))
	assert.Equal(t, "fund-requests_receipt_77.pdf", r.Filename)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Operator Transaction ID", label("operator_transaction_id"))
	assert.Equal(t, "UTR", label("utr"))
}
