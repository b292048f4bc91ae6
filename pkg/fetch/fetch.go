// Package fetch performs HTTP GETs with bounded exponential-backoff retry.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultAttempts is the total number of tries, including the first.
	DefaultAttempts = 3
	// DefaultBackoff is the wait after the first failed attempt.
	DefaultBackoff = 500 * time.Millisecond
)

// ErrFetchExhausted is matched by every error returned after all attempts
// have failed.
var ErrFetchExhausted = errors.New("fetch attempts exhausted")

// ExhaustedError carries the last failure of an exhausted fetch.
type ExhaustedError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("fetch %s: %d attempts failed: %v", e.URL, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() []error { return []error{ErrFetchExhausted, e.Err} }

// StatusError reports a non-success HTTP response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP %d", e.StatusCode) }

type options struct {
	attempts int
	backoff  time.Duration
	client   *http.Client
	notify   backoff.Notify
	timer    backoff.Timer
}

// Option configures a fetch.
type Option func(*options)

// WithAttempts sets the total attempt count. Values below 1 are ignored.
func WithAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// WithBackoff sets the base wait; attempt i waits base*2^i. Non-positive
// values are ignored.
func WithBackoff(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.backoff = d
		}
	}
}

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithNotify registers a callback invoked before each wait with the failure
// and the wait duration.
func WithNotify(fn func(err error, wait time.Duration)) Option {
	return func(o *options) { o.notify = fn }
}

// WithTimer replaces the wait timer.
func WithTimer(t backoff.Timer) Option {
	return func(o *options) { o.timer = t }
}

// Raw fetches url and returns the response body. Network errors, non-2xx
// statuses and body read errors are retried.
func Raw(ctx context.Context, url string, opts ...Option) ([]byte, error) {
	return retry(ctx, url, opts, func(body []byte) error { return nil })
}

// JSON fetches url and decodes the body into T. A body that fails to decode
// counts as a failed attempt.
func JSON[T any](ctx context.Context, url string, opts ...Option) (T, error) {
	var out T
	_, err := retry(ctx, url, opts, func(body []byte) error {
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return fmt.Errorf("decode %s: %w", url, err)
		}
		out = v
		return nil
	})
	return out, err
}

func retry(ctx context.Context, url string, opts []Option, accept func([]byte) error) ([]byte, error) {
	o := options{
		attempts: DefaultAttempts,
		backoff:  DefaultBackoff,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(&o)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = o.backoff
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	exp.MaxInterval = maxWait(o.backoff, o.attempts)
	exp.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(o.attempts-1)), ctx)

	var (
		body  []byte
		tries int
	)
	op := func() error {
		tries++
		b, err := get(ctx, o.client, url)
		if err != nil {
			return err
		}
		if err := accept(b); err != nil {
			return err
		}
		body = b
		return nil
	}

	err := backoff.RetryNotifyWithTimer(op, policy, o.notify, o.timer)
	if err == nil {
		return body, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return nil, &ExhaustedError{URL: url, Attempts: tries, Err: err}
}

// maxWait returns base*2^(attempts-1), saturating at the largest Duration.
func maxWait(base time.Duration, attempts int) time.Duration {
	d := base
	for i := 1; i < attempts; i++ {
		if d > math.MaxInt64/2 {
			return math.MaxInt64
		}
		d *= 2
	}
	return d
}

func get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}
