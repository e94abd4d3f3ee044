package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"
)

// retryPolicy is the backoff shared by every runtime: exponential from base,
// capped at maxDelay, with jitter. A server-provided Retry-After wins.
type retryPolicy struct {
	attempts int
	base     time.Duration
	maxDelay time.Duration
}

// errRetry marks an attempt as retryable. wait overrides the computed backoff.
type errRetry struct {
	err  error
	wait time.Duration
}

func (e *errRetry) Error() string { return e.err.Error() }
func (e *errRetry) Unwrap() error { return e.err }

func retryable(err error, wait time.Duration) error { return &errRetry{err: err, wait: wait} }

// run calls fn until it succeeds, returns a non-retryable error, or attempts
// run out. Sleeps between attempts honor ctx.
func (p retryPolicy) run(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.attempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := p.base
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(attempt)
		if err == nil {
			return nil
		}
		var re *errRetry
		if !errors.As(err, &re) {
			return err
		}
		last = re.err
		if attempt == attempts {
			break
		}
		wait := re.wait
		if wait <= 0 {
			wait = withJitter(backoff)
			if p.maxDelay > 0 && wait > p.maxDelay {
				wait = p.maxDelay
			}
			backoff *= 2
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
	return last
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// retryableStatus reports 429 and 5xx.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// parseRetryAfter interprets a Retry-After header as seconds or an HTTP date.
func parseRetryAfter(v string) (time.Duration, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return time.Duration(s) * time.Second, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// withJitter returns d with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	out := time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
	if out <= 0 {
		return d
	}
	return out
}
