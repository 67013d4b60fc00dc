package rdservice

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/paybazaar/retailer-portal/internal/config"
	"github.com/paybazaar/retailer-portal/internal/metrics"
	"github.com/paybazaar/retailer-portal/internal/models"
)

// Device selects an RD-service driver profile
type Device string

const (
	DeviceMantra Device = "mantra"
	DeviceMorpho Device = "morpho"
)

const (
	methodCapture    = "CAPTURE"
	methodDeviceInfo = "DEVICEINFO"
	captureTimeoutMS = "10000"
)

var (
	// ErrDeviceUnavailable means the local driver could not be reached
	ErrDeviceUnavailable = errors.New("biometric device service is not running")
	// ErrInvalidResponse matches every *ResponseError
	ErrInvalidResponse = errors.New("invalid RD service response")
	// ErrUnknownDevice is returned for a device name with no profile
	ErrUnknownDevice = errors.New("unknown biometric device")
)

// ResponseError reports a structurally invalid driver response
type ResponseError struct {
	Reason string
}

func (e *ResponseError) Error() string { return "Invalid response - " + e.Reason }

func (e *ResponseError) Is(target error) bool { return target == ErrInvalidResponse }

// DeviceError is a capture failure reported by the device itself (non-zero errCode)
type DeviceError struct {
	Code string
	Info string
}

func (e *DeviceError) Error() string {
	if e.Info == "" {
		return fmt.Sprintf("Capture failed (error code %s)", e.Code)
	}
	return fmt.Sprintf("Capture failed: %s (error code %s)", e.Info, e.Code)
}

// Client handles integration with the retailer's local RD-service driver
type Client struct {
	profiles map[Device]string
	wadh     string
	secure   *http.Client
	loopback *http.Client // Driver endpoints use self-signed certificates
	log      *logrus.Logger
}

// NewClient initializes a new RD-service client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		profiles: map[Device]string{
			DeviceMantra: cfg.RDMantraURL,
			DeviceMorpho: cfg.RDMorphoURL,
		},
		wadh:   cfg.RDWadh,
		secure: &http.Client{Timeout: cfg.RDTimeout},
		loopback: &http.Client{
			Timeout: cfg.RDTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // loopback driver only
			},
		},
		log: log,
	}
}

// Devices lists the supported device profiles
func (c *Client) Devices() []Device {
	return []Device{DeviceMantra, DeviceMorpho}
}

// PidOptions returns the capture options document. Browsers that talk to
// their own driver send it as the CAPTURE body.
func (c *Client) PidOptions() (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0"`)

	pidOptions := doc.CreateElement("PidOptions")
	pidOptions.CreateAttr("ver", "1.0")

	opts := pidOptions.CreateElement("Opts")
	opts.CreateAttr("fCount", "1")
	opts.CreateAttr("fType", "2")
	opts.CreateAttr("iCount", "0")
	opts.CreateAttr("pCount", "0")
	opts.CreateAttr("format", "0")
	opts.CreateAttr("pidVer", "2.0")
	opts.CreateAttr("timeout", captureTimeoutMS)
	opts.CreateAttr("posh", "UNKNOWN")
	opts.CreateAttr("env", "P")
	opts.CreateAttr("wadh", c.wadh)

	pidOptions.CreateElement("CustOpts")

	return doc.WriteToString()
}

// sendRequest sends an RD-service request with the driver's custom verb
func (c *Client) sendRequest(ctx context.Context, method, endpoint, body string) ([]byte, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid device url: %w", err)
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("Accept", "text/xml")

	client := c.secure
	if isLoopback(u.Hostname()) {
		client = c.loopback
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("capture cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrDeviceUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrDeviceUnavailable, err)
	}

	c.log.Debugf("RD service %s response: %d bytes", method, len(raw))
	return raw, nil
}

// Capture triggers a fingerprint capture on the selected device and returns
// the normalized PID block
func (c *Client) Capture(ctx context.Context, device Device) (models.BiometricCapture, error) {
	endpoint, ok := c.profiles[device]
	if !ok {
		return models.BiometricCapture{}, fmt.Errorf("%w: %q", ErrUnknownDevice, device)
	}

	options, err := c.PidOptions()
	if err != nil {
		return models.BiometricCapture{}, fmt.Errorf("failed to build PID options: %w", err)
	}

	raw, err := c.sendRequest(ctx, methodCapture, endpoint, options)
	if err != nil {
		metrics.RDCaptures.WithLabelValues(string(device), "unavailable").Inc()
		return models.BiometricCapture{}, err
	}
	return c.Normalize(device, raw)
}

// Normalize turns a driver's PidData document into a capture for device,
// whether the gateway captured it or the retailer's browser relayed it.
func (c *Client) Normalize(device Device, raw []byte) (models.BiometricCapture, error) {
	if _, ok := c.profiles[device]; !ok {
		return models.BiometricCapture{}, fmt.Errorf("%w: %q", ErrUnknownDevice, device)
	}

	capture, err := ParseCapture(raw)
	if err != nil {
		outcome := "invalid"
		var devErr *DeviceError
		if errors.As(err, &devErr) {
			outcome = "device_error"
		}
		metrics.RDCaptures.WithLabelValues(string(device), outcome).Inc()
		c.log.WithField("device", device).Warnf("Biometric capture rejected: %v", err)
		return models.BiometricCapture{}, err
	}

	capture.Device = string(device)
	capture.CapturedAt = time.Now().UTC()
	metrics.RDCaptures.WithLabelValues(string(device), "ok").Inc()
	c.log.WithFields(logrus.Fields{"device": device, "dp_id": capture.DeviceInfo.DPID}).Info("Biometric captured")
	return capture, nil
}

// DeviceInfo asks the driver which device is attached
func (c *Client) DeviceInfo(ctx context.Context, device Device) (models.DeviceInfo, error) {
	endpoint, ok := c.profiles[device]
	if !ok {
		return models.DeviceInfo{}, fmt.Errorf("%w: %q", ErrUnknownDevice, device)
	}

	raw, err := c.sendRequest(ctx, methodDeviceInfo, endpoint, "")
	if err != nil {
		return models.DeviceInfo{}, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return models.DeviceInfo{}, &ResponseError{Reason: "malformed XML"}
	}
	el := doc.FindElement("//DeviceInfo")
	if el == nil {
		return models.DeviceInfo{}, &ResponseError{Reason: "DeviceInfo not found"}
	}
	return deviceInfo(el), nil
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
