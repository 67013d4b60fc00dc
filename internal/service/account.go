package service

import (
	"context"

	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/utils"
)

// ProfileUpdate is the editable part of the retailer profile
type ProfileUpdate struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	ShopName string `json:"shop_name" validate:"max=100"`
	Address  string `json:"address" validate:"max=300"`
}

// WalletBalance returns the retailer's wallet balances
func (s *Service) WalletBalance(ctx context.Context) (*models.WalletBalance, error) {
	var out models.WalletBalance
	if err := s.backend.Get(ctx, "/wallet/balance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Commission returns the retailer's earned commission
func (s *Service) Commission(ctx context.Context) (*models.CommissionSummary, error) {
	var out models.CommissionSummary
	if err := s.backend.Get(ctx, "/wallet/commission", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the retailer's profile
func (s *Service) Profile(ctx context.Context) (*models.Profile, error) {
	var out models.Profile
	if err := s.backend.Get(ctx, "/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile saves profile edits and returns the stored profile
func (s *Service) UpdateProfile(ctx context.Context, in ProfileUpdate) (*models.Profile, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	var out models.Profile
	if err := s.backend.Put(ctx, "/profile", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
