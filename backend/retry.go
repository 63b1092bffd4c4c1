package backend

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryConfig bounds how often a failed query is sent again
type RetryConfig struct {
	// MaxAttempts counts the first request
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// wait is the pause after a failed attempt. The delay doubles per attempt
// with up to half of it as jitter, capped at MaxDelay. A longer Retry-After
// from the server replaces it.
func (c RetryConfig) wait(attempt int, err error) time.Duration {
	delay := c.InitialDelay
	for i := 1; i < attempt && delay < c.MaxDelay; i++ {
		delay *= 2
	}
	delay = min(delay, c.MaxDelay)

	var limited interface{ RetryAfter() time.Duration }
	if errors.As(err, &limited) && limited.RetryAfter() > delay {
		return min(limited.RetryAfter(), c.MaxDelay)
	}
	return delay/2 + time.Duration(rand.Int63n(int64(delay/2)+1)) // #nosec G404 -- jitter only
}

type retryResult struct {
	attempts int
	elapsed  time.Duration
	err      error
}

// permanentError ends the retry loop. query unwraps it before returning.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

// retry runs op until it succeeds, fails permanently, ctx ends or the
// attempts run out.
func retry(ctx context.Context, cfg RetryConfig, op func() error) retryResult {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = max(10*time.Second, cfg.InitialDelay)
	}

	start := time.Now()
	var res retryResult
	for res.attempts < cfg.MaxAttempts {
		if err := ctx.Err(); err != nil {
			res.err = err
			break
		}
		res.attempts++
		res.err = op()

		var perm *permanentError
		if res.err == nil || errors.As(res.err, &perm) || res.attempts == cfg.MaxAttempts {
			break
		}

		timer := time.NewTimer(cfg.wait(res.attempts, res.err))
		select {
		case <-ctx.Done():
			timer.Stop()
			res.err = ctx.Err()
			res.elapsed = time.Since(start)
			return res
		case <-timer.C:
		}
	}
	res.elapsed = time.Since(start)
	return res
}
