// Package collector talks to the dashboard REST API that owns alert rule
// configuration and the latest device readings.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sensordash/alertd/internal/conf"
	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/errors"
	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/sensor"
)

const (
	defaultTimeout = 10 * time.Second
	// maxBodySize caps how much of a response is read.
	maxBodySize = 4 << 20

	// The breaker opens after this many consecutive failures and lets one
	// probe through after breakerCooldown.
	breakerFailures = 3
	breakerCooldown = 30 * time.Second
)

// envelope is the response wrapper used by every dashboard endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client fetches rules and readings over HTTP. Calls share a circuit
// breaker so an unreachable dashboard is not hammered on every poll.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     logger.Logger
	now     func() time.Time
}

// NewClient creates a client. httpClient may be nil.
func NewClient(settings conf.CollectorSettings, httpClient *http.Client, log logger.Logger) *Client {
	timeout := settings.Timeout.Std()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	log = log.Module("collector")

	c := &Client{
		baseURL: strings.TrimRight(settings.BaseURL, "/"),
		token:   settings.Token,
		http:    httpClient,
		log:     log,
		now:     time.Now,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "collector",
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	})
	return c
}

// GetAlertRules returns the rules configured for a device.
func (c *Client) GetAlertRules(ctx context.Context, deviceID string) ([]entities.AlertRule, error) {
	env, err := c.get(ctx, "/api/mqtt/alerts/"+url.PathEscape(deviceID))
	if err != nil {
		return nil, err
	}
	if env == nil || !env.Success {
		// A device without configuration has no rules.
		return nil, nil
	}

	var rules []entities.AlertRule
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &rules); err != nil {
			return nil, errors.Newf("failed to decode alert rules: %w", err).
				Component("collector").
				Category(errors.CategoryValidation).
				Context("device_id", deviceID).
				Build()
		}
	}
	for i := range rules {
		if rules[i].DeviceID == "" {
			rules[i].DeviceID = deviceID
		}
	}
	return rules, nil
}

// GetLatestReading returns the newest reading of a device, or nil when the
// device has not reported yet.
func (c *Client) GetLatestReading(ctx context.Context, deviceID string) (*sensor.Reading, error) {
	env, err := c.get(ctx, "/api/sensors/"+url.PathEscape(deviceID))
	if err != nil {
		return nil, err
	}
	if env == nil || !env.Success || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}

	reading, err := sensor.DecodeJSON(env.Data, c.now())
	if err != nil {
		return nil, err
	}
	if reading.DeviceID == "" {
		reading.DeviceID = deviceID
	}
	return reading, nil
}

// get performs a GET through the breaker. A nil envelope means the resource
// does not exist (404 or 204), which is not a failure.
func (c *Client) get(ctx context.Context, path string) (*envelope, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.do(ctx, path)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.Newf("collector unavailable: %w", err).
				Component("collector").
				Category(errors.CategoryNetwork).
				Context("path", path).
				Build()
		}
		return nil, err
	}
	env, _ := result.(*envelope)
	return env, nil
}

func (c *Client) do(ctx context.Context, path string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, errors.Newf("failed to build request: %w", err).
			Component("collector").
			Category(errors.CategoryConfiguration).
			Build()
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Newf("request to %s failed: %w", path, err).
			Component("collector").
			Category(errors.CategoryNetwork).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("collector request",
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, errors.Newf("unexpected status %d from %s", resp.StatusCode, path).
			Component("collector").
			Category(errors.CategoryNetwork).
			Context("status", resp.StatusCode).
			Context("body", strings.TrimSpace(string(snippet))).
			Build()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Newf("failed to read response from %s: %w", path, err).
			Component("collector").
			Category(errors.CategoryNetwork).
			Build()
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.New(fmt.Errorf("invalid response envelope from %s: %w", path, err)).
			Component("collector").
			Category(errors.CategoryValidation).
			Build()
	}
	return &env, nil
}
