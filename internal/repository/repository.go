package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/paybazaar/retailer-portal/internal/models"
)

// Repository provides audit log operations on Postgres
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

//go:embed schema.sql
var schema string

// EnsureSchema creates the audit tables if they are missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// RecordAudit stores an audit event
func (r *Repository) RecordAudit(ctx context.Context, event *models.AuditEvent) error {
	query := `
		INSERT INTO portal.audit_events (retailer_id, action, subject, outcome, detail, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		event.RetailerID, event.Action, event.Subject, event.Outcome, event.Detail, event.RequestID).
		Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// ListAudit returns a retailer's most recent audit events, newest first
func (r *Repository) ListAudit(ctx context.Context, retailerID string, limit int) ([]models.AuditEvent, error) {
	query := `
		SELECT id, retailer_id, action, subject, outcome, detail, request_id, created_at
		FROM portal.audit_events
		WHERE retailer_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, retailerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		if err := rows.Scan(&e.ID, &e.RetailerID, &e.Action, &e.Subject, &e.Outcome, &e.Detail, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return events, nil
}
