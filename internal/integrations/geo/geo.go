// Package geo resolves the retailer's position for transactions that must
// be geo-tagged. The browser's own fix is preferred; the client IP is a
// fallback only when the browser reported nothing at all.
package geo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/paybazaar/retailer-portal/internal/models"
)

// Reason classifies why a position could not be obtained
type Reason string

const (
	ReasonPermissionDenied    Reason = "permission_denied"
	ReasonPositionUnavailable Reason = "position_unavailable"
	ReasonTimeout             Reason = "timeout"
	ReasonUnknown             Reason = "unknown"
)

// W3C GeolocationPositionError codes as reported by the browser
const (
	codePermissionDenied    = 1
	codePositionUnavailable = 2
	codeTimeout             = 3
)

// LocateError is a classified geolocation failure
type LocateError struct {
	Reason Reason
	Err    error
}

func (e *LocateError) Error() string {
	return Message(e.Reason)
}

func (e *LocateError) Unwrap() error { return e.Err }

// Message is the retailer-facing text for a reason
func Message(r Reason) string {
	switch r {
	case ReasonPermissionDenied:
		return "Location permission denied. Please allow location access and retry."
	case ReasonPositionUnavailable:
		return "Location information is unavailable. Please retry."
	case ReasonTimeout:
		return "Location request timed out. Please retry."
	default:
		return "An unknown error occurred while getting location."
	}
}

// Report is what the browser sent back from its one-shot position query.
// Either a fix (Latitude/Longitude) or an ErrorCode is set; a zero Report
// means the browser reported nothing.
type Report struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
	ErrorCode int      `json:"error_code"`
	ClientIP  string   `json:"-"`
}

// Empty reports whether the browser sent neither a fix nor an error
func (r Report) Empty() bool {
	return r.Latitude == nil && r.Longitude == nil && r.ErrorCode == 0
}

// Locator resolves a position for one request
type Locator interface {
	Locate(ctx context.Context, r Report) (models.Location, error)
}

// ReportedLocator classifies a browser report without any lookup
type ReportedLocator struct{}

// Locate returns the browser's fix or its classified error
func (ReportedLocator) Locate(_ context.Context, r Report) (models.Location, error) {
	if r.ErrorCode != 0 {
		return models.Location{}, &LocateError{Reason: classify(r.ErrorCode)}
	}
	if r.Latitude == nil || r.Longitude == nil {
		return models.Location{}, &LocateError{Reason: ReasonPositionUnavailable, Err: errors.New("incomplete position")}
	}
	lat, lng := *r.Latitude, *r.Longitude
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return models.Location{}, &LocateError{Reason: ReasonPositionUnavailable, Err: fmt.Errorf("out of range position %f,%f", lat, lng)}
	}
	return models.Location{Latitude: lat, Longitude: lng, Accuracy: r.Accuracy, Source: "browser"}, nil
}

func classify(code int) Reason {
	switch code {
	case codePermissionDenied:
		return ReasonPermissionDenied
	case codePositionUnavailable:
		return ReasonPositionUnavailable
	case codeTimeout:
		return ReasonTimeout
	default:
		return ReasonUnknown
	}
}

// cityLookup is the subset of *geoip2.Reader used here
type cityLookup interface {
	City(ip net.IP) (*geoip2.City, error)
}

// GeoIPLocator resolves the client IP against a MaxMind City database
type GeoIPLocator struct {
	db      cityLookup
	closer  func() error
	timeout time.Duration
}

// NewGeoIPLocator opens the database at path
func NewGeoIPLocator(path string, timeout time.Duration) (*GeoIPLocator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &GeoIPLocator{db: db, closer: db.Close, timeout: timeout}, nil
}

// Close releases the database
func (g *GeoIPLocator) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

// Locate looks up r.ClientIP under the locator's deadline
func (g *GeoIPLocator) Locate(ctx context.Context, r Report) (models.Location, error) {
	ip := net.ParseIP(r.ClientIP)
	if ip == nil {
		return models.Location{}, &LocateError{Reason: ReasonPositionUnavailable, Err: fmt.Errorf("invalid client ip %q", r.ClientIP)}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		rec *geoip2.City
		err error
	}
	done := make(chan result, 1)
	go func() {
		rec, err := g.db.City(ip)
		done <- result{rec, err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.Location{}, &LocateError{Reason: ReasonTimeout, Err: ctx.Err()}
		}
		return models.Location{}, &LocateError{Reason: ReasonUnknown, Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			return models.Location{}, &LocateError{Reason: ReasonUnknown, Err: res.err}
		}
		loc := res.rec.Location
		if loc.Latitude == 0 && loc.Longitude == 0 {
			return models.Location{}, &LocateError{Reason: ReasonPositionUnavailable, Err: errors.New("ip not in database")}
		}
		return models.Location{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Accuracy:  float64(loc.AccuracyRadius) * 1000,
			Source:    "geoip",
		}, nil
	}
}

// ChainLocator prefers the browser report and falls back to Fallback only
// when the browser sent nothing. An explicit browser error is final.
type ChainLocator struct {
	Fallback Locator
}

// Locate implements Locator
func (c ChainLocator) Locate(ctx context.Context, r Report) (models.Location, error) {
	if !r.Empty() || c.Fallback == nil {
		return ReportedLocator{}.Locate(ctx, r)
	}
	return c.Fallback.Locate(ctx, r)
}
