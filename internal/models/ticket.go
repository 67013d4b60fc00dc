package models

import "time"

// Ticket represents a support ticket. Cleared tickets are read-only.
type Ticket struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Cleared     bool      `json:"cleared"`
	CreatedAt   time.Time `json:"created_at"`
}
