package fetch

import (
	"math"
	"slices"
	"time"

	"github.com/vietddude/retryfetch/internal/core/apperror"
	"github.com/vietddude/retryfetch/internal/core/clock"
)

// maxJitter bounds the random term added to every backoff.
const maxJitter = time.Second

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	RetryableStatuses []int
}

// DefaultRetryConfig provides the documented defaults.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:        3,
	BaseDelay:         1 * time.Second,
	MaxDelay:          30 * time.Second,
	RetryableStatuses: apperror.DefaultRetryableStatuses,
}

// RetryOption overrides a single RetryConfig field for one call.
type RetryOption func(*RetryConfig)

// MaxRetries sets how many retries follow the first attempt.
func MaxRetries(n int) RetryOption {
	return func(c *RetryConfig) { c.MaxRetries = max(n, 0) }
}

// BaseDelay sets the initial backoff.
func BaseDelay(d time.Duration) RetryOption {
	return func(c *RetryConfig) { c.BaseDelay = max(d, 0) }
}

// MaxDelay caps every individual backoff.
func MaxDelay(d time.Duration) RetryOption {
	return func(c *RetryConfig) { c.MaxDelay = max(d, 0) }
}

// RetryableStatuses replaces the set of HTTP statuses that trigger a retry.
func RetryableStatuses(codes ...int) RetryOption {
	return func(c *RetryConfig) { c.RetryableStatuses = slices.Clone(codes) }
}

func (c RetryConfig) with(overrides []RetryOption) RetryConfig {
	c.RetryableStatuses = slices.Clone(c.RetryableStatuses)
	for _, o := range overrides {
		o(&c)
	}
	return c
}

func (c RetryConfig) isRetryable(statusCode int) bool {
	return slices.Contains(c.RetryableStatuses, statusCode)
}

// calculateBackoff returns min(base*2^attempt + jitter, maxDelay).
func calculateBackoff(attempt int, config RetryConfig, jitter clock.Jitter) time.Duration {
	delay := float64(config.BaseDelay)*math.Pow(2, float64(attempt)) + float64(jitter(maxJitter))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
