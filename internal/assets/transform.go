package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"photodock/internal/config"
	"photodock/internal/media"
	"photodock/internal/services"
)

// maxTransformResponse caps the body read from the background service.
const maxTransformResponse = 64 << 20

// Transformer removes photo backgrounds.
type Transformer interface {
	RemoveBackground(ctx context.Context, content []byte, contentType string) ([]byte, string, error)
}

// HTTPDoer describes the HTTP client used by HTTPTransformer.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPTransformer posts the image to a background-removal endpoint and
// expects the processed image (normally PNG) in the response body.
type HTTPTransformer struct {
	url    string
	apiKey string
	client HTTPDoer
}

// NewHTTPTransformer constructs a transformer. A nil client uses an
// http.Client with timeout.
func NewHTTPTransformer(endpoint, apiKey string, timeout time.Duration, client HTTPDoer) *HTTPTransformer {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPTransformer{url: strings.TrimSpace(endpoint), apiKey: strings.TrimSpace(apiKey), client: client}
}

// NewTransformerFromConfig returns the configured transformer, or nil when no
// background service is configured.
func NewTransformerFromConfig(cfg *config.Config) Transformer {
	if cfg == nil || strings.TrimSpace(cfg.Background.URL) == "" {
		return nil
	}
	return NewHTTPTransformer(cfg.Background.URL, cfg.Background.APIKey, cfg.BackgroundTimeout(), nil)
}

// RemoveBackground returns the processed image and its content type.
func (t *HTTPTransformer) RemoveBackground(ctx context.Context, content []byte, contentType string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(content))
	if err != nil {
		return nil, "", fmt.Errorf("build background request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "image/png")
	if t.apiKey != "" {
		req.Header.Set("X-Api-Key", t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "background", "remove", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", services.Wrap(services.ErrTransient, "background", "remove", fmt.Sprintf("service returned %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTransformResponse))
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "background", "remove", "read response", err)
	}
	if len(body) == 0 {
		return nil, "", services.Wrap(services.ErrTransient, "background", "remove", "empty response", nil)
	}
	outType := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	if !strings.HasPrefix(outType, "image/") {
		outType = http.DetectContentType(body)
	}
	if !strings.HasPrefix(outType, "image/") {
		outType = media.ContentTypePNG
	}
	return body, outType, nil
}
