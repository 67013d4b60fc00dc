package service

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/utils"
)

// RechargeInput is a prepaid mobile recharge
type RechargeInput struct {
	MobileNumber string          `json:"mobile_number" validate:"required,len=10,digits"`
	OperatorCode string          `json:"operator_code" validate:"required"`
	CircleCode   string          `json:"circle_code" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	PlanID       string          `json:"plan_id,omitempty"`
}

// DTHInput is a DTH subscription recharge
type DTHInput struct {
	CustomerID   string          `json:"customer_id" validate:"required,min=4,max=20"`
	OperatorCode string          `json:"operator_code" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
}

var errInvalidAmount = apperr.Validation("invalid_amount", "Invalid Amount")

// RechargeReference fetches prepaid operators and circles together. If
// either request fails the whole call fails.
func (s *Service) RechargeReference(ctx context.Context) (*models.RechargeReference, error) {
	ref := &models.RechargeReference{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.backend.Get(gctx, "/recharge/operators", url.Values{"kind": {"prepaid"}}, &ref.Operators)
	})
	g.Go(func() error {
		return s.backend.Get(gctx, "/recharge/circles", nil, &ref.Circles)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ref, nil
}

// DTHOperators lists DTH operators
func (s *Service) DTHOperators(ctx context.Context) ([]models.Operator, error) {
	var out []models.Operator
	if err := s.backend.Get(ctx, "/recharge/operators", url.Values{"kind": {"dth"}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Plans lists recharge plans for an operator in a circle
func (s *Service) Plans(ctx context.Context, operator, circle string) ([]models.Plan, error) {
	if operator == "" || circle == "" {
		return nil, apperr.Validation("plan_filter_required", "Select operator and circle")
	}
	var out []models.Plan
	q := url.Values{"operator_code": {operator}, "circle_code": {circle}}
	if err := s.backend.Get(ctx, "/recharge/plans", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Recharge performs a prepaid mobile recharge
func (s *Service) Recharge(ctx context.Context, in RechargeInput) (*models.TransactionResult, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, errInvalidAmount
	}
	var out models.TransactionResult
	if err := s.backend.Post(ctx, "/recharge", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DTHRecharge performs a DTH recharge
func (s *Service) DTHRecharge(ctx context.Context, in DTHInput) (*models.TransactionResult, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, errInvalidAmount
	}
	var out models.TransactionResult
	if err := s.backend.Post(ctx, "/dth/recharge", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
