package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/utils"
)

// TicketInput is the create/edit ticket form
type TicketInput struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description" validate:"required,max=2000"`
}

// FundRequestInput is a wallet top-up request
type FundRequestInput struct {
	Amount    decimal.Decimal `json:"amount"`
	BankName  string          `json:"bank_name" validate:"required"`
	UTRNumber string          `json:"utr_number" validate:"required,min=6,max=30"`
	Remarks   string          `json:"remarks" validate:"max=500"`
}

var errTicketCleared = apperr.Conflict("ticket_cleared", "Cleared tickets cannot be edited")

// ListTickets returns the retailer's support tickets
func (s *Service) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	var out []models.Ticket
	if err := s.backend.Get(ctx, "/tickets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTicket raises a support ticket
func (s *Service) CreateTicket(ctx context.Context, in TicketInput) (*models.Ticket, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	var out models.Ticket
	if err := s.backend.Post(ctx, "/tickets", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTicket edits a ticket that has not been cleared yet
func (s *Service) UpdateTicket(ctx context.Context, id string, in TicketInput) (*models.Ticket, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	path := "/tickets/" + url.PathEscape(id)

	var current models.Ticket
	if err := s.backend.Get(ctx, path, nil, &current); err != nil {
		return nil, err
	}
	if current.Cleared {
		return nil, errTicketCleared
	}

	var out models.Ticket
	if err := s.backend.Put(ctx, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListFundRequests returns the retailer's fund requests, searched locally
// over the fetched page
func (s *Service) ListFundRequests(ctx context.Context, search string) ([]models.FundRequest, error) {
	var all []models.FundRequest
	if err := s.backend.Get(ctx, "/fund-requests", nil, &all); err != nil {
		return nil, err
	}
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return all, nil
	}
	out := make([]models.FundRequest, 0, len(all))
	for _, fr := range all {
		if matchesFundRequest(fr, term) {
			out = append(out, fr)
		}
	}
	return out, nil
}

func matchesFundRequest(fr models.FundRequest, term string) bool {
	for _, v := range []string{fr.ID, fr.UTRNumber, fr.BankName, fr.Status, fr.Remarks, fr.AdminRemarks, fr.Amount.String()} {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// CreateFundRequest raises a wallet top-up request
func (s *Service) CreateFundRequest(ctx context.Context, in FundRequestInput) (*models.FundRequest, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, errInvalidAmount
	}
	var out models.FundRequest
	if err := s.backend.Post(ctx, "/fund-requests", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
