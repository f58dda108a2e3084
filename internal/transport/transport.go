// Package transport sends HTTP requests through a rate limiter, retrying
// transient failures with capped exponential backoff.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"jobpulse-engine/internal/logging"
	"jobpulse-engine/internal/ratelimit"
)

const maxErrBody = 256

type Config struct {
	Timeout    time.Duration // per attempt, body read included
	MaxRetries int           // attempts after the first
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
	}
}

// Response is a completed exchange. The body is already read and closed.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Transport struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	cfg     Config
	gate    *semaphore.Weighted
	jitter  func(time.Duration) time.Duration
	log     *logging.Logger
}

type Option func(*Transport)

func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.client = c }
}

func WithLogger(l *logging.Logger) Option {
	return func(t *Transport) { t.log = l.Named("transport") }
}

// WithJitter replaces the random extra delay added to each backoff.
// f receives the capped delay and returns the amount to add.
func WithJitter(f func(time.Duration) time.Duration) Option {
	return func(t *Transport) { t.jitter = f }
}

func New(limiter *ratelimit.Limiter, cfg Config, opts ...Option) *Transport {
	t := &Transport{
		client:  &http.Client{},
		limiter: limiter,
		cfg:     cfg,
		gate:    semaphore.NewWeighted(1),
		jitter:  halfJitter,
		log:     logging.NewNop(),
	}
	for _, o := range opts {
		o(t)
	}
	if t.limiter == nil {
		t.limiter = ratelimit.New(0)
	}
	if t.cfg.MaxRetries < 0 {
		t.cfg.MaxRetries = 0
	}
	return t
}

// Send performs req, retrying transient failures up to MaxRetries times.
// Terminal failures return immediately: *StatusError for 4xx,
// ErrMalformedRequest, or ctx.Err() when the caller gives up.
func (t *Transport) Send(ctx context.Context, req *http.Request) (*Response, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		resp, err := t.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var te *Error
		if !errors.As(err, &te) {
			return nil, err
		}
		if attempt > t.cfg.MaxRetries {
			t.log.Warn("retries exhausted", "url", req.URL.Redacted(), "attempts", attempt, "err", err)
			return nil, &ExhaustedError{Attempts: attempt, Last: err}
		}

		delay := t.backoff(attempt, te.RetryAfter)
		t.log.Warn("transient failure, backing off",
			"url", req.URL.Redacted(), "attempt", attempt, "delay", delay, "err", err)

		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (t *Transport) attempt(ctx context.Context, req *http.Request) (*Response, error) {
	if err := t.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("transport: rate limit: %w", err)
	}
	if err := t.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer t.gate.Release(1)

	actx := ctx
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	r := req.Clone(actx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
		}
		r.Body = body
	}

	resp, err := t.client.Do(r)
	if err != nil {
		return nil, &Error{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Err: err}
	}

	switch code := resp.StatusCode; {
	case code == http.StatusTooManyRequests:
		return nil, &Error{StatusCode: code, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case code >= 500:
		return nil, &Error{StatusCode: code}
	case code >= 400:
		return nil, &StatusError{StatusCode: code, Body: snippet(body)}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

const maxDelayCeiling = time.Duration(math.MaxInt64 / 2)

// backoff returns the wait before retry n (1-based). A zero MaxDelay
// leaves the doubling uncapped.
func (t *Transport) backoff(n int, retryAfter time.Duration) time.Duration {
	d := t.cfg.BaseDelay
	for i := 1; i < n; i++ {
		if t.cfg.MaxDelay > 0 && d >= t.cfg.MaxDelay {
			break
		}
		// uncapped: stop before d plus its jitter could overflow
		if d > maxDelayCeiling/2 {
			d = maxDelayCeiling
			break
		}
		d *= 2
	}
	if t.cfg.MaxDelay > 0 && d > t.cfg.MaxDelay {
		d = t.cfg.MaxDelay
	}
	d += t.jitter(d)

	if retryAfter > d {
		d = retryAfter
		if t.cfg.MaxDelay > 0 && d > t.cfg.MaxDelay {
			d = t.cfg.MaxDelay
		}
	}
	return d
}

func halfJitter(d time.Duration) time.Duration {
	if d < 2 {
		return 0
	}
	return rand.N(d / 2)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

func checkRequest(req *http.Request) error {
	if req == nil || req.URL == nil {
		return fmt.Errorf("%w: nil request", ErrMalformedRequest)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrMalformedRequest, req.URL.Scheme)
	}
	if req.URL.Host == "" {
		return fmt.Errorf("%w: missing host", ErrMalformedRequest)
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return fmt.Errorf("%w: body cannot be replayed", ErrMalformedRequest)
	}
	return nil
}

// parseRetryAfter understands the delta-seconds form and HTTP dates.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrBody {
		s = s[:maxErrBody]
	}
	return s
}
