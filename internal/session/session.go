package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/models"
)

// ErrExpired is returned for a well-formed token whose exp has passed
var ErrExpired = errors.New("session expired")

type contextKey struct{}

// portalClaims is the payload the backend puts into the portal token.
// The signature is verified by the backend on every call, not here.
type portalClaims struct {
	UserID  string `json:"user_id"`
	AdminID string `json:"admin_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Decode reads the token payload and rejects tokens that are malformed or
// expired at now. The subject is used when user_id is absent.
func Decode(token string, now time.Time) (models.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Session{}, apperr.Session("Please log in to continue.", errors.New("missing token"))
	}

	claims := &portalClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return models.Session{}, apperr.Session("Invalid session. Please log in again.", fmt.Errorf("parse token: %w", err))
	}

	s := models.Session{
		UserID:  claims.UserID,
		AdminID: claims.AdminID,
		Role:    claims.Role,
		Token:   token,
	}
	if s.UserID == "" {
		s.UserID = claims.Subject
	}
	if s.UserID == "" {
		return models.Session{}, apperr.Session("Invalid session. Please log in again.", errors.New("token has no user id"))
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}

	if s.Expired(now) {
		return models.Session{}, apperr.Session("Your session has expired. Please log in again.", ErrExpired)
	}
	return s, nil
}

// FromBearer extracts the token from an Authorization header value
func FromBearer(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// WithSession stores the session in ctx
func WithSession(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by the auth middleware
func FromContext(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(contextKey{}).(models.Session)
	return s, ok
}

// MustFromContext is FromContext for code paths behind the auth middleware
func MustFromContext(ctx context.Context) (models.Session, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return models.Session{}, apperr.Session("Please log in to continue.", errors.New("no session in context"))
	}
	return s, nil
}
