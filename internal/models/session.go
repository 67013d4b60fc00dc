package models

import "time"

// Session represents the authenticated retailer decoded from the portal token
type Session struct {
	UserID    string    `json:"user_id"`
	AdminID   string    `json:"admin_id"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"-"` // Forwarded to the backend, never serialized
}

// Expired reports whether the session is no longer usable at now
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
