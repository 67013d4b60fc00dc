package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paybazaar/retailer-portal/internal/config"
	"github.com/paybazaar/retailer-portal/internal/logging"
	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/report"
	"github.com/paybazaar/retailer-portal/internal/session"
	"github.com/paybazaar/retailer-portal/internal/utils/email"
)

type fakeExporter struct {
	kind string
	q    report.Query
	sess models.Session
	err  error
}

func (f *fakeExporter) ExportReport(ctx context.Context, kind string, q report.Query) (*report.Export, error) {
	f.kind, f.q = kind, q
	f.sess, _ = session.FromContext(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return &report.Export{
		Filename: "settlement_report_2026-10-15.xlsx",
		Data:     []byte("PK"),
		Rows:     2,
		Amount:   decimal.RequireFromString("1250.25"),
	}, nil
}

type fakeMailer struct {
	to      []string
	summary email.LedgerSummary
	calls   int
}

func (f *fakeMailer) SendLedgerSummary(to []string, s email.LedgerSummary) error {
	f.calls++
	f.to, f.summary = to, s
	return nil
}

var ist = time.FixedZone("IST", 5*3600+1800)

func testConfig() *config.Config {
	return &config.Config{
		Timezone:            ist,
		BackendServiceToken: "svc-token",
		SummaryCron:         "30 6 * * *",
		SummaryRecipients:   []string{"ops@paybazaar.in"},
	}
}

func TestSendDailySummaryExportsYesterday(t *testing.T) {
	exp, mail := &fakeExporter{}, &fakeMailer{}
	s := New(exp, mail, testConfig(), logging.Discard())
	// 01:00 IST on the 15th; UTC would make yesterday the 13th.
	s.now = func() time.Time { return time.Date(2026, 10, 14, 19, 30, 0, 0, time.UTC) }

	require.NoError(t, s.SendDailySummary(context.Background()))

	assert.Equal(t, "settlement", exp.kind)
	assert.Equal(t, "2026-10-14", exp.q.Range.Start.Format(report.DateLayout))
	assert.Equal(t, exp.q.Range.Start, exp.q.Range.End)
	assert.Equal(t, "svc-token", exp.sess.Token)
	assert.Equal(t, ServiceUserID, exp.sess.UserID)

	assert.Equal(t, []string{"ops@paybazaar.in"}, mail.to)
	assert.Equal(t, "Settlement Report", mail.summary.Report)
	assert.Equal(t, 2, mail.summary.Rows)
	require.NotNil(t, mail.summary.Attachment)
	assert.Equal(t, report.ContentType, mail.summary.Attachment.ContentType)
}

func TestSendDailySummaryStopsOnExportFailure(t *testing.T) {
	exp, mail := &fakeExporter{err: errors.New("backend down")}, &fakeMailer{}
	s := New(exp, mail, testConfig(), logging.Discard())

	assert.Error(t, s.SendDailySummary(context.Background()))
	assert.Zero(t, mail.calls)
}

func TestStart(t *testing.T) {
	t.Run("disabled without a schedule", func(t *testing.T) {
		cfg := testConfig()
		cfg.SummaryCron = ""
		s := New(&fakeExporter{}, &fakeMailer{}, cfg, logging.Discard())
		require.NoError(t, s.Start())
		assert.Empty(t, s.cron.Entries())
	})

	t.Run("rejects a bad schedule", func(t *testing.T) {
		cfg := testConfig()
		cfg.SummaryCron = "every morning"
		s := New(&fakeExporter{}, &fakeMailer{}, cfg, logging.Discard())
		assert.Error(t, s.Start())
	})

	t.Run("needs a service token", func(t *testing.T) {
		cfg := testConfig()
		cfg.BackendServiceToken = ""
		s := New(&fakeExporter{}, &fakeMailer{}, cfg, logging.Discard())
		assert.Error(t, s.Start())
	})

	t.Run("registers the summary", func(t *testing.T) {
		s := New(&fakeExporter{}, &fakeMailer{}, testConfig(), logging.Discard())
		require.NoError(t, s.Start())
		<-s.Stop().Done()
		assert.Len(t, s.cron.Entries(), 1)
	})
}
