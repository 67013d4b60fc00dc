package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/config"
	"github.com/paybazaar/retailer-portal/internal/integrations/geo"
	"github.com/paybazaar/retailer-portal/internal/integrations/rdservice"
	"github.com/paybazaar/retailer-portal/internal/logging"
	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/session"
)

// Backend is the PayBazaar REST API as seen by the services
type Backend interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// Capturer talks to the retailer's biometric RD-service driver
type Capturer interface {
	Capture(ctx context.Context, device rdservice.Device) (models.BiometricCapture, error)
	DeviceInfo(ctx context.Context, device rdservice.Device) (models.DeviceInfo, error)
	Normalize(device rdservice.Device, raw []byte) (models.BiometricCapture, error)
	Devices() []rdservice.Device
	PidOptions() (string, error)
}

// FlowStore persists per-retailer flow snapshots
type FlowStore interface {
	Load(ctx context.Context, kind, retailerID string, out any) (bool, error)
	Save(ctx context.Context, kind, retailerID string, v any) error
	Delete(ctx context.Context, kind, retailerID string) error
	// Claim takes the retailer's exclusive lock on kind. It reports false
	// while another request holds it.
	Claim(ctx context.Context, kind, retailerID string, ttl time.Duration) (release func(), ok bool, err error)
}

// AuditLog records money- and identity-affecting actions
type AuditLog interface {
	RecordAudit(ctx context.Context, event *models.AuditEvent) error
	ListAudit(ctx context.Context, retailerID string, limit int) ([]models.AuditEvent, error)
}

// Service handles business logic
type Service struct {
	backend Backend
	rd      Capturer
	locator geo.Locator
	flows   FlowStore
	audit   AuditLog
	log     *logrus.Logger
	config  *config.Config
	now     func() time.Time
}

// NewService initializes a new service
func NewService(backend Backend, rd Capturer, locator geo.Locator, flows FlowStore, audit AuditLog, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		backend: backend,
		rd:      rd,
		locator: locator,
		flows:   flows,
		audit:   audit,
		log:     log,
		config:  cfg,
		now:     time.Now,
	}
}

// Config returns the service configuration
func (s *Service) Config() *config.Config {
	return s.config
}

// retailer returns the id of the signed-in retailer
func retailer(ctx context.Context) (string, error) {
	sess, err := session.MustFromContext(ctx)
	if err != nil {
		return "", err
	}
	if sess.UserID == "" {
		return "", apperr.Session("Please log in to continue.", errors.New("session without user id"))
	}
	return sess.UserID, nil
}

// minClaimTTL bounds how long a crashed request can block its retailer
const minClaimTTL = time.Minute

var errFlowBusy = apperr.Conflict("request_in_progress", "Another request is already in progress. Please wait")

// claim serialises mutating steps of one retailer's flow. busy is returned
// when another step holds the flow. The claim outlives the backend timeout
// so it cannot expire under a call still in flight.
func (s *Service) claim(ctx context.Context, kind, retailerID string, busy error) (func(), error) {
	release, ok, err := s.flows.Claim(ctx, kind, retailerID, s.claimTTL())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, busy
	}
	return release, nil
}

func (s *Service) claimTTL() time.Duration {
	ttl := s.config.BackendTimeout + 30*time.Second
	if ttl < minClaimTTL {
		ttl = minClaimTTL
	}
	return ttl
}

// record writes an audit event. Audit failures are logged, never returned:
// the action they describe has already happened upstream.
func (s *Service) record(ctx context.Context, retailerID, action, subject string, err error) {
	event := &models.AuditEvent{
		RetailerID: retailerID,
		Action:     action,
		Subject:    subject,
		Outcome:    models.OutcomeSuccess,
		RequestID:  logging.RequestID(ctx),
	}
	if err != nil {
		event.Outcome = models.OutcomeFailure
		event.Detail = apperr.As(err).Message
	}
	// The request may already be cancelled; the audit row must still land.
	if auditErr := s.audit.RecordAudit(context.WithoutCancel(ctx), event); auditErr != nil {
		logging.Entry(ctx, s.log).WithFields(logrus.Fields{
			"retailer_id": retailerID,
			"action":      action,
		}).Errorf("Failed to record audit event: %v", auditErr)
	}
}

// RecentActivity lists the retailer's latest audited actions
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	id, err := retailer(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.audit.ListAudit(ctx, id, limit)
}

// flag decodes the backend's loose booleans: true, 1, "1", "true", "yes"
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case bool:
		*f = flag(x)
	case float64:
		*f = x != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "yes", "y":
			*f = true
		default:
			*f = false
		}
	case nil:
		*f = false
	default:
		return fmt.Errorf("unexpected flag value %s", string(b))
	}
	return nil
}

// captureError classifies RD-service failures. Each one gets its own message.
func captureError(err error) error {
	var devErr *rdservice.DeviceError
	var respErr *rdservice.ResponseError
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, rdservice.ErrUnknownDevice):
		return apperr.Validation("unknown_device", "Select a supported biometric device")
	case errors.Is(err, rdservice.ErrDeviceUnavailable):
		return &apperr.Error{
			Kind:    apperr.KindTransport,
			Code:    "device_unavailable",
			Message: "Biometric device service is not running. Start the RD service and retry.",
			Err:     err,
		}
	case errors.As(err, &respErr):
		return &apperr.Error{Kind: apperr.KindTransport, Code: "invalid_response", Message: respErr.Error(), Err: err}
	case errors.As(err, &devErr):
		return &apperr.Error{Kind: apperr.KindBusiness, Code: "capture_failed", Message: devErr.Error(), Err: err}
	default:
		return err
	}
}

// locateError classifies geolocation failures by reason
func locateError(err error) error {
	var le *geo.LocateError
	if errors.As(err, &le) {
		return apperr.Wrap(apperr.Validation("location_"+string(le.Reason), geo.Message(le.Reason)), err)
	}
	return err
}
