// Package httpx holds the HTTP plumbing shared by REST-backed adapters:
// a RoundTripper that authenticates requests and turns auth and throttling
// responses into domain errors, plus retry classification.
package httpx

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pai/internal/domain"
	"pai/internal/retry"
)

// DefaultTimeout bounds a single request
const DefaultTimeout = 30 * time.Second

// Transport decorates requests with credentials and maps 401, 403 and 429
// responses to AuthenticationFailed and RateLimited errors
type Transport struct {
	Base    http.RoundTripper
	Domain  domain.Domain
	Adapter string
	// Token is sent as "Authorization: Bearer <token>" when set
	Token string
	// AuthHost restricts the token to one host so redirects to signed
	// download URLs go out without it
	AuthHost string
	// Header is added to every request
	Header http.Header
	Logger *slog.Logger

	now func() time.Time
}

// NewClient returns a client using t with the given timeout
func NewClient(t *Transport, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Transport: t, Timeout: timeout}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, values := range t.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if t.Token != "" && (t.AuthHost == "" || req.URL.Host == t.AuthHost) {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.logger().Debug("http request",
		"method", req.Method,
		"url", req.URL.Redacted(),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if mapped := t.statusError(resp); mapped != nil {
		drain(resp.Body)
		return nil, mapped
	}
	return resp, nil
}

func (t *Transport) statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return domain.RateLimited(t.Domain, t.Adapter, t.retryAfter(resp.Header))
	case http.StatusForbidden:
		// GitHub reports exhausted quotas as 403 with a zero remaining count
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return domain.RateLimited(t.Domain, t.Adapter, t.retryAfter(resp.Header))
		}
		return domain.AuthenticationFailed(t.Domain, t.Adapter, fmt.Errorf("%s", resp.Status))
	case http.StatusUnauthorized:
		return domain.AuthenticationFailed(t.Domain, t.Adapter, fmt.Errorf("%s", resp.Status))
	}
	return nil
}

// retryAfter reads Retry-After (seconds or HTTP date) or X-RateLimit-Reset
// (unix seconds); zero when absent
func (t *Transport) retryAfter(h http.Header) time.Duration {
	now := time.Now()
	if t.now != nil {
		now = t.now()
	}
	if d := ParseRetryAfter(h.Get("Retry-After"), now); d > 0 {
		return d
	}
	if reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		if d := time.Unix(reset, 0).Sub(now); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}

func (t *Transport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

// ParseRetryAfter parses a Retry-After value given as delay seconds or an
// HTTP date. Returns zero when empty, invalid or in the past.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}

// StatusError is returned for non-2xx responses the transport lets through
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Body)
}

// CheckResponse returns a *StatusError for non-2xx responses, capturing
// the start of the body
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{
		Code:   resp.StatusCode,
		Status: resp.Status,
		Body:   strings.TrimSpace(string(body)),
	}
}

// Retryable reports whether err is worth retrying: network failures and
// 5xx responses. Rate limits are surfaced to the caller instead.
func Retryable(err error) bool {
	if !retry.Transient(err) {
		return false
	}
	if domain.KindOf(err) == domain.KindRateLimited {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// RetryOptions are the defaults adapters use for HTTP calls
func RetryOptions(logger *slog.Logger) retry.Options {
	return retry.Options{
		Retryable: Retryable,
		MaxDelay:  5 * time.Second,
		Notify: func(err error, delay time.Duration) {
			if logger != nil {
				logger.Debug("retrying request", "error", err, "delay", delay)
			}
		},
	}
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
