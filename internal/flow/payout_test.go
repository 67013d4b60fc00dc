package flow

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/models"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		amount string
		want   error
	}{
		{"1", nil},
		{"200000", nil},
		{"199999.99", nil},
		{"200000.01", ErrAmountTooHigh},
		{"250000", ErrAmountTooHigh},
		{"0", ErrInvalidAmount},
		{"-10", ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func dialogAtMPIN(t *testing.T) *PayDialog {
	t.Helper()
	d := NewPayDialog()
	require.NoError(t, d.Open("BEN1"))
	require.NoError(t, d.SubmitDetails(models.ModeIMPS, decimal.NewFromInt(5000)))
	require.Equal(t, DialogMPIN, d.State())
	return d
}

func TestAmountTooHighNeverReachesMPIN(t *testing.T) {
	d := NewPayDialog()
	require.NoError(t, d.Open("BEN1"))

	err := d.SubmitDetails(models.ModeNEFT, decimal.NewFromInt(250000))
	assert.ErrorIs(t, err, ErrAmountTooHigh)
	assert.Equal(t, "Amount Too High", apperr.As(err).Message)
	assert.Equal(t, DialogDetails, d.State())
}

func TestSubmitDetailsRejectsMode(t *testing.T) {
	d := NewPayDialog()
	require.NoError(t, d.Open("BEN1"))
	assert.ErrorIs(t, d.SubmitDetails("RTGS", decimal.NewFromInt(10)), ErrInvalidMode)
	assert.Equal(t, DialogDetails, d.State())
}

func TestMPINMustBeFourDigits(t *testing.T) {
	for _, mpin := range []string{"", "1", "123", "12345", "12a4", "12 4"} {
		d := dialogAtMPIN(t)
		assert.ErrorIs(t, d.BeginSubmit([]byte(mpin)), ErrInvalidMPIN, "mpin=%q", mpin)
		assert.Equal(t, DialogMPIN, d.State(), "bad MPIN must re-prompt")
	}

	d := dialogAtMPIN(t)
	require.NoError(t, d.BeginSubmit([]byte("0000")))
	assert.Equal(t, DialogSubmitting, d.State())
}

func TestInFlightBlocksDismissAndReopen(t *testing.T) {
	d := dialogAtMPIN(t)
	require.NoError(t, d.BeginSubmit([]byte("1234")))

	assert.ErrorIs(t, d.Dismiss(), ErrPayoutInFlight)
	assert.ErrorIs(t, d.Open("BEN2"), ErrPayoutInFlight)
	assert.ErrorIs(t, d.BackToDetails(), ErrPayoutInFlight)
	assert.Equal(t, DialogSubmitting, d.State())
}

func TestResolve(t *testing.T) {
	d := dialogAtMPIN(t)
	require.NoError(t, d.BeginSubmit([]byte("1234")))
	require.NoError(t, d.Resolve(false))
	assert.Equal(t, DialogMPIN, d.State())
	assert.Equal(t, "5000", d.Amount().String(), "failure keeps the details")

	require.NoError(t, d.BeginSubmit([]byte("1234")))
	require.NoError(t, d.Resolve(true))
	assert.Equal(t, DialogClosed, d.State())
	assert.Empty(t, d.BeneficiaryID())
}

func TestBackToDetailsAndDismiss(t *testing.T) {
	d := dialogAtMPIN(t)
	require.NoError(t, d.BackToDetails())
	assert.Equal(t, DialogDetails, d.State())
	require.NoError(t, d.Dismiss())
	assert.Equal(t, DialogClosed, d.State())
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(d.SubmitDetails(models.ModeIMPS, decimal.NewFromInt(1))))
}

func TestPayDialogJSON(t *testing.T) {
	d := dialogAtMPIN(t)
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"mpin":`)

	var back PayDialog
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, DialogMPIN, back.State())
	assert.Equal(t, models.ModeIMPS, back.Mode())
	assert.True(t, back.Amount().Equal(decimal.NewFromInt(5000)))

	assert.Error(t, json.Unmarshal([]byte(`{"state":"mpin"}`), &back))
	assert.Error(t, json.Unmarshal([]byte(`{"state":"limbo","beneficiary_id":"B"}`), &back))
}
