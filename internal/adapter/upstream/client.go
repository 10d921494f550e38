// Package upstream is the HTTP client shared by every third-party API adapter.
//
// Each adapter owns one Client: a resty client bounded by the configured
// timeout, guarded by a circuit breaker, and instrumented with the provider
// duration histogram. Failures come back as *Failure so adapters can map them
// onto their own error types without inspecting transport details.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

const maxLoggedBody = 512

// Config configures one upstream Client.
type Config struct {
	Name            string // breaker name, metrics label and log field
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures int // consecutive failures before the breaker opens
	BreakerCooldown time.Duration
	Headers         map[string]string
	Metrics         *observability.Metrics
	Logger          *slog.Logger
}

// Failure describes why a request produced no usable body.
type Failure struct {
	Kind   domain.FailureKind
	Status int
	Err    error
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s (status %d): %v", f.Kind, f.Status, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Client performs JSON requests against a single upstream API.
type Client struct {
	name    string
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	failures := cfg.BreakerFailures
	if failures <= 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	for k, v := range cfg.Headers {
		hc.SetHeader(k, v)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		// Client errors mean the request was wrong, not that the API is down.
		IsSuccessful: func(err error) bool {
			var f *Failure
			if errors.As(err, &f) && f.Kind == domain.KindStatus {
				return f.Status < 500 && f.Status != http.StatusTooManyRequests
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "provider", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		name:    cfg.Name,
		http:    hc,
		breaker: breaker,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// GetJSON issues a GET to path with query parameters and decodes the JSON
// response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query map[string]string, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// PostJSON issues a POST with a JSON body. out may be nil when the response
// body is not needed.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out any) error {
	start := time.Now()
	res, err := c.breaker.Execute(func() (interface{}, error) {
		req := c.http.R().SetContext(ctx)
		if query != nil {
			req.SetQueryParams(query)
		}
		if body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return nil, &Failure{Kind: domain.ClassifyTransport(err), Err: err}
		}
		if !resp.IsSuccess() {
			c.logger.Warn("upstream returned error status",
				"provider", c.name,
				"path", path,
				"status", resp.StatusCode(),
				"body", truncate(resp.String(), maxLoggedBody),
			)
			return nil, &Failure{
				Kind:   domain.KindStatus,
				Status: resp.StatusCode(),
				Err:    fmt.Errorf("unexpected status %d", resp.StatusCode()),
			}
		}
		return resp.Body(), nil
	})
	c.observe(start)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &Failure{Kind: domain.KindCircuitOpen, Err: err}
		}
		var f *Failure
		if errors.As(err, &f) {
			return f
		}
		return &Failure{Kind: domain.ClassifyTransport(err), Err: err}
	}

	if out == nil {
		return nil
	}
	raw, _ := res.([]byte)
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn("malformed upstream response",
			"provider", c.name,
			"path", path,
			"error", err,
			"body", truncate(string(raw), maxLoggedBody),
		)
		return &Failure{Kind: domain.KindMalformed, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) observe(start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ProviderDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
}

// ProviderError converts a request error into a *domain.ProviderError for
// provider, preserving kind and HTTP status.
func ProviderError(provider domain.Source, err error) *domain.ProviderError {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	var f *Failure
	if errors.As(err, &f) {
		return &domain.ProviderError{Provider: provider, Kind: f.Kind, Status: f.Status, Err: f.Err}
	}
	return domain.Unavailable(provider, domain.ClassifyTransport(err), err)
}

// LookupError converts a request error into a *domain.LookupError.
func LookupError(method, query string, err error) *domain.LookupError {
	var le *domain.LookupError
	if errors.As(err, &le) {
		return le
	}
	le = &domain.LookupError{Method: method, Query: query, Kind: domain.ClassifyTransport(err), Err: err}
	var f *Failure
	if errors.As(err, &f) {
		le.Kind = f.Kind
		le.Err = f.Err
		if f.Status != 0 {
			le.Status = http.StatusText(f.Status)
		}
	}
	return le
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
