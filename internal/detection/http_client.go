package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"photodock/internal/config"
	"photodock/internal/services"
)

// HTTPDoer describes the HTTP client used by the detection service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient posts images to the detection service at {baseURL}/detect.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
	limiter *rate.Limiter
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPDoer replaces the underlying HTTP client.
func WithHTTPDoer(doer HTTPDoer) Option {
	return func(c *HTTPClient) {
		if doer != nil {
			c.client = doer
		}
	}
}

// WithRateLimit throttles requests to limit per second with the given burst.
// A non-positive limit disables throttling.
func WithRateLimit(limit float64, burst int) Option {
	return func(c *HTTPClient) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(limit), max(burst, 1))
	}
}

// NewHTTPClient constructs a detection client.
func NewHTTPClient(baseURL, apiKey string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig returns the configured detector, or nil when detection is
// disabled.
func NewFromConfig(cfg *config.Config) Detector {
	if cfg == nil || !cfg.Detection.Enabled || strings.TrimSpace(cfg.Detection.URL) == "" {
		return nil
	}
	return NewHTTPClient(cfg.Detection.URL, cfg.Detection.APIKey,
		WithHTTPDoer(&http.Client{Timeout: cfg.DetectionTimeout()}),
		WithRateLimit(cfg.Detection.RateLimit, cfg.Detection.RateBurst),
	)
}

type detectResponse struct {
	Detections []Detection `json:"detections"`
}

// Detect submits image and returns every detection the service reports.
func (c *HTTPClient) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	if c == nil || c.baseURL == "" {
		return nil, services.Wrap(services.ErrDetectionUnavailable, "detection", "detect", "service not configured", nil)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, services.Wrap(services.ErrDetectionUnavailable, "detection", "rate limit", "", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("build detection request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(image))
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrDetectionUnavailable, "detection", "detect", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, services.Wrap(services.ErrDetectionUnavailable, "detection", "detect", fmt.Sprintf("service returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrValidation, "detection", "detect",
			fmt.Sprintf("service rejected image with %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var payload detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrDetectionUnavailable, "detection", "decode response", "", err)
	}
	return payload.Detections, nil
}

// Ping checks that the service answers on {baseURL}/health.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrDetectionUnavailable, "detection", "ping", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrDetectionUnavailable, "detection", "ping", fmt.Sprintf("health returned %d", resp.StatusCode), nil)
	}
	return nil
}
