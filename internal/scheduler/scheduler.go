// Package scheduler runs the gateway's periodic jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/paybazaar/retailer-portal/internal/config"
	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/report"
	"github.com/paybazaar/retailer-portal/internal/session"
	"github.com/paybazaar/retailer-portal/internal/utils/email"
)

const (
	summaryKind    = "settlement"
	summaryTimeout = 5 * time.Minute

	// ServiceUserID identifies scheduled calls in audit and backend logs
	ServiceUserID = "ledger-summary"
)

// Exporter produces a report spreadsheet
type Exporter interface {
	ExportReport(ctx context.Context, kind string, q report.Query) (*report.Export, error)
}

// Mailer delivers the summary
type Mailer interface {
	SendLedgerSummary(to []string, summary email.LedgerSummary) error
}

// Scheduler owns the cron runner
type Scheduler struct {
	cron     *cron.Cron
	exporter Exporter
	mailer   Mailer
	cfg      *config.Config
	log      *logrus.Logger
	now      func() time.Time
}

// New builds a scheduler in the configured timezone. Jobs never overlap and
// a panicking job is logged rather than killing the process.
func New(exporter Exporter, mailer Mailer, cfg *config.Config, log *logrus.Logger) *Scheduler {
	logger := cron.PrintfLogger(log)
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Timezone),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		exporter: exporter,
		mailer:   mailer,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Start registers the jobs and starts the runner. With no SUMMARY_CRON it does nothing.
func (s *Scheduler) Start() error {
	if s.cfg.SummaryCron == "" {
		s.log.Info("Ledger summary disabled")
		return nil
	}
	if s.cfg.BackendServiceToken == "" || len(s.cfg.SummaryRecipients) == 0 {
		return errors.New("ledger summary needs BACKEND_SERVICE_TOKEN and SUMMARY_RECIPIENTS")
	}
	if _, err := s.cron.AddFunc(s.cfg.SummaryCron, s.runSummary); err != nil {
		return fmt.Errorf("invalid SUMMARY_CRON %q: %w", s.cfg.SummaryCron, err)
	}
	s.cron.Start()
	s.log.Infof("Ledger summary scheduled: %s", s.cfg.SummaryCron)
	return nil
}

// Stop stops the runner; the returned context is done once running jobs finish
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runSummary() {
	ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
	defer cancel()
	if err := s.SendDailySummary(ctx); err != nil {
		s.log.Errorf("Ledger summary failed: %v", err)
	}
}

// SendDailySummary exports yesterday's settlement ledger under the service
// token and mails it to the summary recipients.
func (s *Scheduler) SendDailySummary(ctx context.Context) error {
	ctx = session.WithSession(ctx, models.Session{
		UserID: ServiceUserID,
		Role:   "service",
		Token:  s.cfg.BackendServiceToken,
	})

	day := report.Today(s.now(), s.cfg.Timezone).AddDate(0, 0, -1)
	exp, err := s.exporter.ExportReport(ctx, summaryKind, report.Query{
		Range: report.DateRange{Start: day, End: day},
	})
	if err != nil {
		return fmt.Errorf("export %s: %w", summaryKind, err)
	}

	def, _ := report.Lookup(summaryKind)
	summary := email.LedgerSummary{
		Report: def.Title,
		Day:    day,
		Rows:   exp.Rows,
		Amount: exp.Amount,
		Attachment: &email.Attachment{
			Filename:    exp.Filename,
			ContentType: report.ContentType,
			Data:        exp.Data,
		},
	}
	if err := s.mailer.SendLedgerSummary(s.cfg.SummaryRecipients, summary); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"report": summaryKind,
		"day":    day.Format(report.DateLayout),
		"rows":   exp.Rows,
	}).Info("Ledger summary sent")
	return nil
}
