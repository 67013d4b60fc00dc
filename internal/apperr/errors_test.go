package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errAmountTooHigh = Validation("amount_too_high", "Amount Too High")

func TestIsMatchesKindAndCode(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", Validation("amount_too_high", "Amount Too High"))

	assert.True(t, errors.Is(wrapped, errAmountTooHigh))
	assert.False(t, errors.Is(wrapped, Validation("invalid_amount", "Invalid Amount")))
	assert.False(t, errors.Is(wrapped, Conflict("amount_too_high", "x")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("x", "x"), http.StatusBadRequest},
		{"business", Business(""), http.StatusUnprocessableEntity},
		{"session", Session("expired", nil), http.StatusUnauthorized},
		{"transport 500", Transport(500, nil), http.StatusBadGateway},
		{"transport 401", Transport(401, nil), http.StatusUnauthorized},
		{"not found", NotFound("x"), http.StatusNotFound},
		{"conflict", Conflict("x", "x"), http.StatusConflict},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestTransportMessages(t *testing.T) {
	seen := map[string]bool{}
	for _, status := range []int{401, 402, 403, 500, 0} {
		msg := TransportMessage(status)
		assert.NotEmpty(t, msg)
		assert.False(t, seen[msg], "status %d reuses message %q", status, msg)
		seen[msg] = true
	}
	assert.Equal(t, TransportMessage(0), TransportMessage(http.StatusBadGateway))
}

func TestBusinessFallbackMessage(t *testing.T) {
	assert.NotEmpty(t, Business("").Message)
	assert.Equal(t, "Insufficient balance", Business("Insufficient balance").Message)
}

func TestForcesLogout(t *testing.T) {
	assert.True(t, ForcesLogout(Session("expired", nil)))
	assert.True(t, ForcesLogout(fmt.Errorf("list: %w", Transport(401, nil))))
	assert.False(t, ForcesLogout(Transport(403, nil)))
	assert.False(t, ForcesLogout(errors.New("boom")))
}

func TestWrapKeepsClassification(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(Transport(0, nil), cause)

	assert.Equal(t, KindTransport, KindOf(err))
	assert.ErrorIs(t, err, cause)
}
