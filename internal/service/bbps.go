package service

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/utils"
)

// BillQuery identifies a consumer's bill with a biller
type BillQuery struct {
	BillerID       string `json:"biller_id" validate:"required"`
	ConsumerNumber string `json:"consumer_number" validate:"required,max=30"`
}

// BillPayment pays a previously fetched bill
type BillPayment struct {
	BillerID       string          `json:"biller_id" validate:"required"`
	ConsumerNumber string          `json:"consumer_number" validate:"required,max=30"`
	FetchRef       string          `json:"fetch_ref" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	MobileNumber   string          `json:"mobile_number" validate:"omitempty,len=10,digits"`
}

// Billers lists electricity billers
func (s *Service) Billers(ctx context.Context) ([]models.Biller, error) {
	var out []models.Biller
	if err := s.backend.Get(ctx, "/bbps/billers", url.Values{"category": {"electricity"}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchBill asks the biller for the consumer's outstanding bill
func (s *Service) FetchBill(ctx context.Context, q BillQuery) (*models.Bill, error) {
	if err := utils.ValidateStruct(q); err != nil {
		return nil, err
	}
	var out models.Bill
	if err := s.backend.Post(ctx, "/bbps/fetch-bill", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PayBill pays a fetched bill
func (s *Service) PayBill(ctx context.Context, p BillPayment) (*models.TransactionResult, error) {
	if err := utils.ValidateStruct(p); err != nil {
		return nil, err
	}
	if !p.Amount.IsPositive() {
		return nil, errInvalidAmount
	}
	var out models.TransactionResult
	if err := s.backend.Post(ctx, "/bbps/pay", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
