package email

import (
	"bytes"
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/paybazaar/retailer-portal/internal/config"
)

// Attachment is a file sent along with a message
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// LedgerSummary is the content of the daily ledger e-mail
type LedgerSummary struct {
	Report     string
	Day        time.Time
	Rows       int
	Amount     decimal.Decimal
	Attachment *Attachment
}

type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   sendFunc
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendLedgerSummary mails a day's ledger totals with the export attached
func (s *Sender) SendLedgerSummary(to []string, summary LedgerSummary) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients for %s summary", summary.Report)
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = to
	day := summary.Day.Format("02 Jan 2006")
	e.Subject = fmt.Sprintf("%s for %s", summary.Report, day)

	// Format email body
	body := "Hello,\n\n"
	if summary.Rows == 0 {
		body += fmt.Sprintf("There were no transactions in the %s on %s.\n", summary.Report, day)
	} else {
		body += fmt.Sprintf(
			"The %s for %s has %d transaction(s) totalling Rs. %s.\n"+
				"The full ledger is attached.\n",
			summary.Report, day, summary.Rows, summary.Amount.StringFixed(2),
		)
	}
	body += "\nRegards,\nPayBazaar"
	e.Text = []byte(body)

	if a := summary.Attachment; a != nil && summary.Rows > 0 {
		if _, err := e.Attach(bytes.NewReader(a.Data), a.Filename, a.ContentType); err != nil {
			return fmt.Errorf("failed to attach %s: %w", a.Filename, err)
		}
	}

	// Send email
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send %s to %v: %v", e.Subject, to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %v: %s", to, e.Subject)
	return nil
}
