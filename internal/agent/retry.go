package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// errorClass classifies an API failure for retry purposes, mirroring the
// teacher's internal/ai/retry.go classifyError without the circuit
// breaker (loop/repetition detection already lives in
// internal/controller's circuitBreaker; this is purely network/API retry).
type errorClass int

const (
	classTransient errorClass = iota
	classQuota
	classFatal
)

func classify(err error) errorClass {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return classQuota
		case apiErr.StatusCode >= 500:
			return classTransient
		default:
			return classFatal
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		return classQuota
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"), strings.Contains(msg, "503"), strings.Contains(msg, "timeout"), strings.Contains(msg, "connection"):
		return classTransient
	default:
		return classFatal
	}
}

// RetryConfig bounds how hard withRetry tries before giving up.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig matches the teacher's DefaultRetryConfig defaults
// for the transient-error path (internal/ai/retry.go), minus the
// quota-specific long-wait branch, which this agent surfaces as an error
// instead of blocking a controller step for minutes.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// withRetry runs fn, retrying transient and quota failures with
// exponential backoff up to cfg.MaxRetries. Fatal (4xx, non-quota) errors
// return immediately.
func withRetry(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) error {
	backoff := cfg.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if classify(err) == classFatal {
			return err
		}
		if attempt == cfg.MaxRetries {
			break
		}
		select {
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
			if backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
		case <-ctx.Done():
			return fmt.Errorf("agent: retry canceled: %w", ctx.Err())
		}
	}

	return fmt.Errorf("agent: failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}
