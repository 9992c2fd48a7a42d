// Package api is the typed HTTP client of the Finova REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/yelinaung/finova-bot/internal/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000"

const (
	pathPrefix         = "/api/v1"
	defaultTimeout     = 10 * time.Second
	instrumentationLib = "gitlab.com/yelinaung/finova-bot/internal/api"
)

// Client talks to the Finova backend. It holds no state beyond configuration.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewClient creates a backend client. The transport is instrumented with
// OpenTelemetry; without a configured provider that is a no-op.
func NewClient(baseURL string, timeout time.Duration) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL: trimmed,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: logger.Component("api"),
	}

	meter := otel.Meter(instrumentationLib)
	var err error
	c.requests, err = meter.Int64Counter("finova.api.requests",
		metric.WithDescription("Backend requests by path and status"))
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to create request counter")
	}
	c.duration, err = meter.Float64Histogram("finova.api.duration",
		metric.WithDescription("Backend request duration"),
		metric.WithUnit("s"))
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to create duration histogram")
	}

	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type requestOptions struct {
	method  string
	body    any
	token   string
	headers map[string]string
}

// request performs one backend call and decodes the JSON response into out.
// A 204 leaves out untouched. Non-success statuses become *Error; transport
// failures become *NetworkError.
func (c *Client) request(ctx context.Context, path string, opts requestOptions, out any) error {
	method := opts.method
	if method == "" {
		method = http.MethodGet
	}

	headers := make(http.Header, len(opts.headers)+4)
	for k, v := range opts.headers {
		headers.Set(k, v)
	}

	var payload io.Reader
	switch body := opts.body.(type) {
	case nil:
	case *MultipartBody:
		payload = body.reader()
		headers.Set("Content-Type", body.ContentType())
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(encoded)
		headers.Set("Content-Type", "application/json")
	}

	if opts.token != "" {
		headers.Set("Authorization", "Bearer "+opts.token)
	}
	headers.Set("Accept", "application/json")
	if headers.Get("X-Request-ID") == "" {
		headers.Set("X-Request-ID", uuid.NewString())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+pathPrefix+path, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = headers

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.record(ctx, method, path, 0, elapsed)
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("Backend unreachable")
		return &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.record(ctx, method, path, resp.StatusCode, elapsed)
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", elapsed).
		Str("request_id", headers.Get("X-Request-ID")).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := parseErrorDetail(resp.Body)
		if message == "" {
			message = DefaultErrorMessage
		}
		return &Error{Status: resp.StatusCode, Message: message}
	}

	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) record(ctx context.Context, method, path string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("finova.resource", resourceOf(path)),
		attribute.Int("http.status_code", status),
	)
	if c.requests != nil {
		c.requests.Add(ctx, 1, attrs)
	}
	if c.duration != nil {
		c.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

// resourceOf keeps metric cardinality low by dropping ids from the path.
func resourceOf(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 {
		return path
	}
	if len(parts) > 1 && parts[0] == "auth" {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// parseErrorDetail extracts the "detail" string of an error body, if any.
func parseErrorDetail(body io.Reader) string {
	var data struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(body).Decode(&data); err != nil {
		return ""
	}
	// detail may also be a list or object (field errors); only strings are shown.
	var detail string
	if err := json.Unmarshal(data.Detail, &detail); err != nil {
		return ""
	}
	return strings.TrimSpace(detail)
}
