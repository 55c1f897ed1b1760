// Package apiclient sends authenticated requests to the admin backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/jrsteele09/bizadmin/internal/metrics"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// APIPrefix is prepended to every backend path.
const APIPrefix = "/api/v1"

const (
	defaultTimeout        = 15 * time.Second
	defaultConnectTimeout = 5 * time.Second
	defaultTLSTimeout     = 5 * time.Second
	tracerName            = "github.com/jrsteele09/bizadmin/apiclient"
)

// TokenProvider yields the bearer token for the current session at send time.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Client is the authenticated backend client. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
	timeout    time.Duration
	log        zerolog.Logger
	tracer     trace.Tracer
	metrics    *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request deadline after which a request fails with a Timeout error.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithTokens(tp TokenProvider) Option {
	return func(c *Client) { c.tokens = tp }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for the backend at baseURL (scheme and host, no /api/v1).
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: defaultHTTPClient(),
		timeout:    defaultTimeout,
		log:        zerolog.Nop(),
		tracer:     otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func defaultHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: defaultConnectTimeout}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: defaultTLSTimeout,
		},
	}
}

// request describes one call. bearer overrides the session token; anonymous suppresses it.
type request struct {
	method    string
	path      string
	query     url.Values
	body      any
	bearer    string
	anonymous bool
}

// Do sends method path with the session's bearer token and decodes a 2xx JSON body into out.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.do(ctx, request{method: method, path: path, query: query, body: body}, out)
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	resource := resourceOf(r.path)
	ctx, span := c.tracer.Start(ctx, r.method+" "+resource, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + APIPrefix + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var bodyReader io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return errors.Wrapf(err, "encode %s body", resource)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, r.method, endpoint, bodyReader)
	if err != nil {
		return errors.Wrapf(err, "build %s request", resource)
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// The token is read last so a request built before a refresh still carries the new token.
	if bearer := c.bearer(reqCtx, r); bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	span.SetAttributes(
		attribute.String("http.method", r.method),
		attribute.String("http.url", endpoint),
		attribute.String("request.id", requestID),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErr := transportError(ctx, reqCtx, err)
		c.finish(span, r.method, resource, string(apiErr.Kind), start, apiErr)
		c.log.Debug().Str("request_id", requestID).Str("method", r.method).Str("path", r.path).Err(apiErr).Msg("api request failed")
		return apiErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr := transportError(ctx, reqCtx, err)
		c.finish(span, r.method, resource, string(apiErr.Kind), start, apiErr)
		return apiErr
	}

	status := strconv.Itoa(resp.StatusCode)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.log.Debug().Str("request_id", requestID).Str("method", r.method).Str("path", r.path).
		Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &errors.APIError{Kind: errors.APIStatus, Status: resp.StatusCode, Message: errorMessage(data)}
		c.finish(span, r.method, resource, status, start, apiErr)
		return apiErr
	}
	c.finish(span, r.method, resource, status, start, nil)

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(errors.ErrBadPayload, "decode %s response: %v", resource, err)
	}
	return nil
}

func (c *Client) bearer(ctx context.Context, r request) string {
	if r.anonymous {
		return ""
	}
	if r.bearer != "" {
		return r.bearer
	}
	if c.tokens == nil {
		return ""
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		// No usable session: the backend decides whether the call needs one.
		c.log.Debug().Err(err).Msg("sending request without credentials")
		return ""
	}
	return token
}

func (c *Client) finish(span trace.Span, method, resource, status string, start time.Time, err error) {
	c.metrics.ObserveRequest(method, resource, status, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// transportError classifies a failed round trip. Only the client's own deadline is a Timeout;
// a caller cancelling ctx is reported as a network error carrying ctx.Err().
func transportError(parent, reqCtx context.Context, err error) *errors.APIError {
	if parent.Err() == nil && reqCtx.Err() == context.DeadlineExceeded {
		return &errors.APIError{Kind: errors.Timeout, Err: context.DeadlineExceeded}
	}
	if parent.Err() != nil {
		return &errors.APIError{Kind: errors.NetworkError, Err: parent.Err()}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &errors.APIError{Kind: errors.Timeout, Err: err}
	}
	return &errors.APIError{Kind: errors.NetworkError, Err: err}
}

// errorMessage pulls a human readable message out of an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		var s string
		if json.Unmarshal(payload.Error, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// resourceOf returns the first path segment, used as a low-cardinality label.
func resourceOf(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		if trimmed[:i] == "auth" {
			return trimmed
		}
		return trimmed[:i]
	}
	return trimmed
}
