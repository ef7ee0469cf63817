// Package genai retry policy: bounded exponential backoff on rate limits.
package genai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/promptsmith/PromptStudio/internal/models"
	"google.golang.org/api/googleapi"
)

// Default retry configuration.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
)

// Operation is one retryable unit of work returning raw model text.
type Operation func(ctx context.Context) (string, error)

// RetryPolicy wraps operations with bounded exponential backoff on
// rate-limit errors. It is the uniform chokepoint: every external AI call
// in the system passes through it exactly once.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy creates a policy with the default attempt and delay budget.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		sleep:       sleepContext,
	}
}

// Do runs the operation, retrying rate-limited failures with the delay
// doubling after each attempt. Non-retryable errors, and the final error
// once attempts are exhausted, propagate unchanged.
func (p *RetryPolicy) Do(ctx context.Context, op Operation) (string, error) {
	delay := p.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !IsRateLimited(err) {
			slog.Debug("RetryPolicy.Do: non-retryable error", "attempt", attempt, "error", err)
			return "", err
		}
		if attempt == p.MaxAttempts {
			break
		}
		slog.Warn("RetryPolicy.Do: rate limited, backing off", "attempt", attempt, "delay", delay, "error", err)
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return "", sleepErr
		}
		delay *= 2
	}
	slog.Error("RetryPolicy.Do: attempts exhausted", "maxAttempts", p.MaxAttempts, "error", lastErr)
	return "", lastErr
}

// sleepContext waits for the delay or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRateLimited classifies an error as a rate-limit/quota failure. Checks,
// in priority order: HTTP status, provider status code, nested provider
// error objects, and finally message substrings.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var provErr *models.ProviderError
	if errors.As(err, &provErr) {
		if provErr.Status == 429 {
			return true
		}
		if provErr.Code == "RESOURCE_EXHAUSTED" {
			return true
		}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
		return true
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == 429 {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota")
}
