package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paybazaar/retailer-portal/internal/apperr"
)

func TestMasking(t *testing.T) {
	assert.Equal(t, "XXXX-XXXX-9012", MaskAadhaar("123456789012"))
	assert.Equal(t, "XXXXXXXX4321", MaskAccount("123456784321"))
	assert.Equal(t, "XXXXXXX210", MaskMobile("9876543210"))
	assert.Equal(t, "XXX", MaskAccount("123"))
	assert.Equal(t, "", MaskMobile(""))
}

func TestSealMPINRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)

	sealed, err := SealMPIN([]byte("1234"), key, "RT1:BEN9")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "1234")

	plain, err := OpenMPIN(sealed, key, "RT1:BEN9")
	require.NoError(t, err)
	assert.Equal(t, "1234", string(plain))

	_, err = OpenMPIN(sealed, key, "RT1:BEN10")
	assert.Error(t, err, "sealed MPIN must not open for another payout")
}

func TestSealMPINRejectsBadKey(t *testing.T) {
	_, err := SealMPIN([]byte("1234"), []byte("short"), "")
	assert.Error(t, err)
}

func TestZero(t *testing.T) {
	b := []byte("1234")
	Zero(b)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)
}

func TestDigits(t *testing.T) {
	assert.True(t, IsExactDigits("9876543210", 10))
	assert.False(t, IsExactDigits("987654321", 10))
	assert.False(t, IsExactDigits("98765432a0", 10))
	assert.False(t, IsExactDigits("+987654321", 10))
	assert.False(t, IsDigits(""))
	assert.False(t, IsDigits("١٢٣")) // Arabic-Indic digits
}

type mobileForm struct {
	Mobile string `json:"mobile" validate:"required,len=10,digits"`
	OTP    string `json:"otp" validate:"omitempty,min=4,digits"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(mobileForm{Mobile: "9876543210"}))
	assert.NoError(t, ValidateStruct(mobileForm{Mobile: "9876543210", OTP: "123456"}))

	err := ValidateStruct(mobileForm{Mobile: "98765-4321"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Mobile must contain digits only")

	err = ValidateStruct(mobileForm{Mobile: "98765", OTP: "12"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Mobile must be 10 characters")
	assert.Contains(t, err.Error(), "OTP must be at least 4")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
