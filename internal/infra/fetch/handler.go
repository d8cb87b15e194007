// Package fetch executes HTTP requests with bounded automatic retries and
// normalizes every failure into an *apperror.AppError.
//
// Callers see either the decoded payload or exactly one terminal AppError;
// individual failed attempts are never surfaced.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"google.golang.org/grpc/status"

	"github.com/vietddude/retryfetch/internal/core/apperror"
	"github.com/vietddude/retryfetch/internal/core/clock"
	"github.com/vietddude/retryfetch/internal/errlog"
	"github.com/vietddude/retryfetch/internal/metrics"
)

const (
	// DefaultTimeout bounds a single attempt. Expiry is a transport failure.
	DefaultTimeout = 10 * time.Second

	maxErrorBodyBytes = 64 << 10

	unknownErrorBody = "Unknown error"
	networkErrorMsg  = "Network error"
)

// Doer sends one HTTP request. *http.Client satisfies it. An error that
// carries a gRPC status is classified by that status.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request carries the opaque transport options of a call.
type Request struct {
	Method string
	Header http.Header
	Body   []byte
}

// Response is a successful (2xx) reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

// Handler runs requests through the retry loop.
type Handler struct {
	client Doer
	logger *errlog.Logger
	clock  clock.Clock
	jitter clock.Jitter
	config RetryConfig
	log    *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

func WithDoer(d Doer) Option {
	return func(h *Handler) { h.client = d }
}

// WithTimeout replaces the client with one whose attempts time out after d.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.client = newHTTPClient(d) }
}

func WithClock(c clock.Clock) Option {
	return func(h *Handler) { h.clock = c }
}

func WithJitter(j clock.Jitter) Option {
	return func(h *Handler) { h.jitter = j }
}

func WithConfig(c RetryConfig) Option {
	return func(h *Handler) { h.config = c }
}

func WithSlog(log *slog.Logger) Option {
	return func(h *Handler) { h.log = log }
}

// New creates a Handler that reports terminal failures to logger.
func New(logger *errlog.Logger, opts ...Option) *Handler {
	h := &Handler{
		client: newHTTPClient(DefaultTimeout),
		logger: logger,
		clock:  clock.Real{},
		jitter: clock.RandomJitter,
		config: DefaultRetryConfig,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = errlog.New(nil, errlog.WithClock(h.clock))
	}
	return h
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Logger returns the error logger terminal failures are reported to.
func (h *Handler) Logger() *errlog.Logger {
	return h.logger
}

// Do runs the retry loop and returns the raw successful response. The
// returned error is always an *apperror.AppError.
func (h *Handler) Do(ctx context.Context, target string, req Request, overrides ...RetryOption) (*Response, error) {
	cfg := h.config.with(overrides)
	host := hostLabel(target)

	var lastErr *apperror.AppError
	attempts := 0

loop:
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		attempts++
		resp, appErr, transportFailure := h.attempt(ctx, target, req, attempt)
		if appErr == nil {
			metrics.FetchAttemptsTotal.WithLabelValues(host, "success").Inc()
			resp.Attempts = attempts
			return resp, nil
		}
		lastErr = appErr

		if transportFailure {
			metrics.FetchAttemptsTotal.WithLabelValues(host, "transport_error").Inc()
		} else {
			metrics.FetchAttemptsTotal.WithLabelValues(host, "http_error").Inc()
		}

		if ctx.Err() != nil {
			break
		}
		isLast := attempt == cfg.MaxRetries
		if isLast || !(transportFailure || cfg.isRetryable(appErr.StatusCode())) {
			break
		}

		delay := calculateBackoff(attempt, cfg, h.jitter)
		metrics.FetchRetriesTotal.WithLabelValues(host, appErr.Kind().String()).Inc()
		metrics.BackoffSeconds.Observe(delay.Seconds())
		h.log.Debug("Retrying request",
			"url", target,
			"attempt", attempt,
			"status", appErr.StatusCode(),
			"delay", delay,
		)

		select {
		case <-ctx.Done():
			lastErr = h.newError(0, ctx.Err().Error(), target, attempt)
			break loop
		case <-h.clock.After(delay):
		}
	}

	if lastErr == nil {
		lastErr = apperror.NewWithClock(h.clock, 500, "request failed without a recorded error", map[string]any{
			"url": target,
		})
	}

	metrics.FetchFailuresTotal.WithLabelValues(host, lastErr.Kind().String()).Inc()
	h.logger.Log(ctx, lastErr, map[string]any{
		"url":       target,
		"attempts":  cfg.MaxRetries + 1,
		"attempted": attempts,
	})
	return nil, lastErr
}

// attempt issues one request. transportFailure reports that no response
// was received.
func (h *Handler) attempt(
	ctx context.Context,
	target string,
	req Request,
	attempt int,
) (resp *Response, appErr *apperror.AppError, transportFailure bool) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		// Nothing was sent and nothing will change on retry.
		return nil, h.newError(0, fmt.Sprintf("create request: %v", err), target, attempt), false
	}
	for k, v := range req.Header {
		httpReq.Header[k] = append([]string(nil), v...)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		// A gateway Doer may answer with a gRPC status. It is classified like
		// the HTTP status it maps to, not as a lost response.
		if st, ok := status.FromError(err); ok {
			return nil, apperror.FromStatusWithClock(h.clock, st, map[string]any{
				"url":     target,
				"attempt": attempt,
			}), false
		}
		msg := networkErrorMsg
		if err.Error() != "" {
			msg = err.Error()
		}
		return nil, h.newError(0, msg, target, attempt), true
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, h.newError(0, fmt.Sprintf("read response: %v", err), target, attempt), true
		}
		return &Response{
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header.Clone(),
			Body:       data,
		}, nil, false
	}

	text := unknownErrorBody
	if data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBodyBytes)); err == nil {
		text = string(data)
	}
	return nil, h.newError(httpResp.StatusCode, text, target, attempt), false
}

// HandleError logs err with no extra context and returns it. Non-AppError
// values are normalized to a status-500 AppError first.
func (h *Handler) HandleError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.NewWithClock(h.clock, 500, err.Error(), nil)
	}
	h.logger.Log(ctx, appErr, nil)
	return appErr
}

func (h *Handler) newError(statusCode int, message, target string, attempt int) *apperror.AppError {
	return apperror.NewWithClock(h.clock, statusCode, message, map[string]any{
		"url":     target,
		"attempt": attempt,
	})
}

// FetchJSON runs the request with retries and decodes a successful body
// into T. A body that fails to decode is a terminal AppError carrying the
// response status.
func FetchJSON[T any](ctx context.Context, h *Handler, target string, req Request, overrides ...RetryOption) (T, error) {
	var out T
	resp, err := h.Do(ctx, target, req, overrides...)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(resp.Body, &out); err != nil {
		var zero T
		appErr := h.newError(resp.StatusCode, fmt.Sprintf("decode response: %v", err), target, resp.Attempts-1)
		metrics.FetchFailuresTotal.WithLabelValues(hostLabel(target), appErr.Kind().String()).Inc()
		h.logger.Log(ctx, appErr, map[string]any{
			"url":       target,
			"attempts":  h.config.with(overrides).MaxRetries + 1,
			"attempted": resp.Attempts,
		})
		return zero, appErr
	}
	return out, nil
}

// PostJSON marshals payload as the request body and calls FetchJSON.
func PostJSON[T any](ctx context.Context, h *Handler, target string, payload any, overrides ...RetryOption) (T, error) {
	var zero T
	body, err := json.Marshal(payload)
	if err != nil {
		return zero, h.HandleError(ctx, apperror.NewWithClock(h.clock, 400, fmt.Sprintf("encode request: %v", err), map[string]any{
			"url": target,
		}))
	}
	return FetchJSON[T](ctx, h, target, Request{Method: http.MethodPost, Body: body}, overrides...)
}

func hostLabel(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Host
}
