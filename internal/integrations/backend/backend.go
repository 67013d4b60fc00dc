package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/config"
	"github.com/paybazaar/retailer-portal/internal/metrics"
	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/session"
)

const maxBodyBytes = 32 << 20

// Client handles calls to the PayBazaar backend REST API. Every call carries
// the bearer token of the session found in the request context.
type Client struct {
	baseURL string
	client  *http.Client
	log     *logrus.Logger
	now     func() time.Time
}

// NewClient initializes a new backend client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		baseURL: cfg.BackendURL,
		client: &http.Client{
			Timeout: cfg.BackendTimeout,
		},
		log: log,
		now: time.Now,
	}
}

// Get issues a GET and decodes the envelope data into out
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST with a JSON body and decodes the envelope data into out
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Put issues a PUT with a JSON body and decodes the envelope data into out
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete issues a DELETE and decodes the envelope data into out
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	sess, err := session.MustFromContext(ctx)
	if err != nil {
		return err
	}
	// Tokens can expire between the middleware check and a long-running call.
	if sess.Expired(c.now()) {
		return apperr.Session("Your session has expired. Please log in again.", session.ErrExpired)
	}

	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := c.now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.BackendCalls.WithLabelValues(method, "transport").Inc()
		if errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		c.log.WithFields(logrus.Fields{"method": method, "path": path}).Warnf("Backend request failed: %v", err)
		return apperr.Transport(0, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.BackendCalls.WithLabelValues(method, "transport").Inc()
		return apperr.Transport(0, fmt.Errorf("failed to read response: %w", err))
	}

	c.log.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": c.now().Sub(start).Milliseconds(),
	}).Debug("Backend call")

	var env models.Envelope[json.RawMessage]
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// A 4xx carrying the backend's own message is a business rejection
		// (wrong OTP, duplicate beneficiary); everything else is transport.
		if decodeErr == nil && env.Message != "" && isClientRejection(resp.StatusCode) {
			metrics.BackendCalls.WithLabelValues(method, "business").Inc()
			return apperr.Business(env.Message)
		}
		metrics.BackendCalls.WithLabelValues(method, "transport").Inc()
		return apperr.Transport(resp.StatusCode, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	if decodeErr != nil {
		metrics.BackendCalls.WithLabelValues(method, "transport").Inc()
		return apperr.Transport(resp.StatusCode, fmt.Errorf("failed to decode envelope: %w", decodeErr))
	}
	if !env.OK() {
		metrics.BackendCalls.WithLabelValues(method, "business").Inc()
		return apperr.Business(env.Message)
	}

	metrics.BackendCalls.WithLabelValues(method, "ok").Inc()
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperr.Transport(resp.StatusCode, fmt.Errorf("failed to decode data: %w", err))
	}
	return nil
}

func isClientRejection(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}
