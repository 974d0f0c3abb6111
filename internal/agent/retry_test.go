package agent

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestClassifyTransientOnServerError(t *testing.T) {
	err := errors.New("request failed: 503 service unavailable")
	if got := classify(err); got != classTransient {
		t.Errorf("classify(503) = %v, want classTransient", got)
	}
}

func TestClassifyQuotaOnRateLimit(t *testing.T) {
	err := errors.New("429 rate limit exceeded")
	if got := classify(err); got != classQuota {
		t.Errorf("classify(429) = %v, want classQuota", got)
	}
}

func TestClassifyFatalOnUnrecognizedError(t *testing.T) {
	err := errors.New("invalid request: missing field")
	if got := classify(err); got != classFatal {
		t.Errorf("classify(unrecognized) = %v, want classFatal", got)
	}
}

func TestClassifyAPIErrorStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   errorClass
	}{
		{http.StatusTooManyRequests, classQuota},
		{http.StatusInternalServerError, classTransient},
		{http.StatusBadGateway, classTransient},
		{http.StatusBadRequest, classFatal},
		{http.StatusUnauthorized, classFatal},
	}
	for _, tt := range tests {
		apiErr := &anthropic.Error{StatusCode: tt.status}
		if got := classify(apiErr); got != tt.want {
			t.Errorf("classify(status %d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), DefaultRetryConfig(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetryStopsImmediatelyOnFatalError(t *testing.T) {
	calls := 0
	fatalErr := errors.New("invalid request")
	err := withRetry(context.Background(), DefaultRetryConfig(), func(ctx context.Context) error {
		calls++
		return fatalErr
	})
	if !errors.Is(err, fatalErr) {
		t.Fatalf("withRetry err = %v, want %v", err, fatalErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (fatal errors must not retry)", calls)
	}
}

func TestWithRetryExhaustsTransientRetries(t *testing.T) {
	calls := 0
	transientErr := errors.New("503 service unavailable")
	cfg := RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	err := withRetry(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return transientErr
	})
	if err == nil {
		t.Fatal("expected withRetry to fail after exhausting retries")
	}
	if calls != cfg.MaxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, cfg.MaxRetries+1)
	}
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	cfg := RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	err := withRetry(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{
		MaxRetries:        5,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
	}
	calls := 0
	cancel()
	err := withRetry(ctx, cfg, func(ctx context.Context) error {
		calls++
		return errors.New("connection reset")
	})
	if err == nil {
		t.Fatal("expected withRetry to return an error when the context is already canceled")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (first attempt runs before the cancellation check)", calls)
	}
}
