package service

import (
	"context"

	"github.com/paybazaar/retailer-portal/internal/logging"
	"github.com/paybazaar/retailer-portal/internal/metrics"
	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/receipt"
	"github.com/paybazaar/retailer-portal/internal/report"
)

// Report returns the configured report for kind
func (s *Service) Report(kind string) (*report.Report, error) {
	return report.New(kind, s.backend, s.config.Timezone, s.log)
}

// ListReport returns one filtered page of a ledger
func (s *Service) ListReport(ctx context.Context, kind string, q report.Query) (*report.Page, error) {
	if _, err := retailer(ctx); err != nil {
		return nil, err
	}
	r, err := s.Report(kind)
	if err != nil {
		return nil, err
	}
	return r.List(ctx, q)
}

// ExportReport writes every row matching q, up to the export limit, to a spreadsheet
func (s *Service) ExportReport(ctx context.Context, kind string, q report.Query) (*report.Export, error) {
	if _, err := retailer(ctx); err != nil {
		return nil, err
	}
	r, err := s.Report(kind)
	if err != nil {
		return nil, err
	}
	exp, err := r.Export(ctx, q, s.config.ExportLimit)
	if err != nil {
		return nil, err
	}
	metrics.Exports.WithLabelValues(kind).Inc()
	return exp, nil
}

// Transaction fetches one ledger row
func (s *Service) Transaction(ctx context.Context, kind, id string) (models.Transaction, report.Definition, error) {
	if _, err := retailer(ctx); err != nil {
		return models.Transaction{}, report.Definition{}, err
	}
	r, err := s.Report(kind)
	if err != nil {
		return models.Transaction{}, report.Definition{}, err
	}
	txn, err := r.Get(ctx, id)
	return txn, r.Definition(), err
}

// Receipt renders one ledger row as a PDF with the retailer's shop header
func (s *Service) Receipt(ctx context.Context, kind, id string) (*receipt.Receipt, error) {
	txn, def, err := s.Transaction(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	var shop receipt.Shop
	if p, err := s.Profile(ctx); err != nil {
		logging.Entry(ctx, s.log).Warnf("Receipt without shop header: %v", err)
	} else {
		shop = receipt.Shop{Name: p.ShopName, Address: p.Address, Mobile: p.MobileNumber}
	}
	return receipt.Render(def, txn, shop, s.config.Timezone)
}
