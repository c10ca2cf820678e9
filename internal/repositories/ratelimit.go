package repositories

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"indiana/internal/helpers"
)

// ErrRateLimited is returned when a request is still throttled after its one retry
var ErrRateLimited = errors.New("rate limit exceeded")

// Kinds of throttling signal
const (
	PrimaryRateLimit   = "primary"
	SecondaryRateLimit = "secondary"
)

// secondaryDefaultWait applies when a secondary limit names no wait time
const secondaryDefaultWait = 60 * time.Second

// RateLimitError describes a request that hit the rate limit twice in a row
type RateLimitError struct {
	Kind   string
	Method string
	URL    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s %s: %s rate limit hit again after retry", e.Method, e.URL, e.Kind)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RateLimitTransport retries a request exactly once when the server signals a
// primary or secondary rate limit. A second consecutive signal becomes a
// *RateLimitError.
type RateLimitTransport struct {
	Base    http.RoundTripper
	MaxWait time.Duration

	// Sleep and Now are replaced in tests
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// NewRateLimitTransport wraps base with the rate-limit guard
func NewRateLimitTransport(base http.RoundTripper, maxWait time.Duration) *RateLimitTransport {
	return &RateLimitTransport{
		Base:    base,
		MaxWait: maxWait,
		Sleep:   sleepContext,
		Now:     time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RoundTrip implements http.RoundTripper
func (t *RateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	kind, wait := t.classify(resp)
	if kind == "" {
		return resp, nil
	}
	discard(resp)

	retry, err := rewind(req)
	if err != nil {
		return nil, err
	}

	wait = t.capWait(wait)
	helpers.PrintWarning("Hit %s rate limit on %s %s, retrying once in %s", kind, req.Method, req.URL.Path, wait)

	if err := t.sleep(req.Context(), wait); err != nil {
		return nil, err
	}

	resp, err = t.base().RoundTrip(retry)
	if err != nil {
		return nil, err
	}

	if kind, _ := t.classify(resp); kind != "" {
		discard(resp)
		return nil, &RateLimitError{Kind: kind, Method: req.Method, URL: req.URL.String()}
	}

	return resp, nil
}

func (t *RateLimitTransport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *RateLimitTransport) sleep(ctx context.Context, d time.Duration) error {
	if t.Sleep == nil {
		return sleepContext(ctx, d)
	}
	return t.Sleep(ctx, d)
}

func (t *RateLimitTransport) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

func (t *RateLimitTransport) capWait(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if t.MaxWait > 0 && d > t.MaxWait {
		return t.MaxWait
	}
	return d
}

// classify reports which rate limit resp signals, if any, and how long to wait
func (t *RateLimitTransport) classify(resp *http.Response) (string, time.Duration) {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return "", 0
	}

	if resp.Header.Get("X-RateLimit-Remaining") == "0" {
		var wait time.Duration
		if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
			wait = time.Unix(reset, 0).Sub(t.now())
		}
		return PrimaryRateLimit, wait
	}

	if v := resp.Header.Get("Retry-After"); v != "" {
		wait := secondaryDefaultWait
		if secs, err := strconv.Atoi(v); err == nil {
			wait = time.Duration(secs) * time.Second
		}
		return SecondaryRateLimit, wait
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	if strings.Contains(strings.ToLower(string(body)), "secondary rate limit") || resp.StatusCode == http.StatusTooManyRequests {
		return SecondaryRateLimit, secondaryDefaultWait
	}

	return "", 0
}

// rewind returns a copy of req whose body can be sent again
func rewind(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return retry, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("cannot retry %s %s: request body is not replayable", req.Method, req.URL)
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body: %w", err)
	}
	retry.Body = body
	return retry, nil
}

func discard(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
