package resilience

import (
	"strings"
	"time"
)

// RetryConfig holds configuration for retry logic
type RetryConfig struct {
	MaxAttempts       int           // Maximum number of attempts
	InitialBackoff    time.Duration // Initial backoff duration
	MaxBackoff        time.Duration // Maximum backoff duration
	BackoffMultiplier float64       // Multiplier for exponential backoff
	Jitter            bool          // Whether to add jitter to backoff
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// RetryableFunc is a function that can be retried
type RetryableFunc func() error

// IsRetryableError checks if an error is retryable
type IsRetryableError func(error) bool

// Retry executes a function with retry logic
func Retry(fn RetryableFunc, config *RetryConfig, isRetryable IsRetryableError) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if isRetryable != nil && !isRetryable(err) {
			return err // Non-retryable error
		}

		// Don't sleep after the last attempt
		if attempt < config.MaxAttempts-1 {
			sleepDuration := backoff

			// Add jitter if enabled (up to 25% of backoff)
			if config.Jitter {
				sleepDuration += time.Duration(float64(sleepDuration) * 0.25 * 0.5)
			}

			if sleepDuration > config.MaxBackoff {
				sleepDuration = config.MaxBackoff
			}

			time.Sleep(sleepDuration)

			backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	return lastErr
}

// IsRetryableNetworkError checks if an error is a retryable network error
func IsRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	// Connection errors
	if containsAny(errStr, []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"network is unreachable",
		"no route to host",
		"unavailable",
	}) {
		return true
	}

	// Timeout errors
	if containsAny(errStr, []string{
		"deadline exceeded",
		"timeout",
		"i/o timeout",
	}) {
		return true
	}

	// Resource exhaustion (may be temporary)
	if containsAny(errStr, []string{
		"resource exhausted",
		"too many connections",
		"rate limit",
	}) {
		return true
	}

	return false
}

func containsAny(s string, substrings []string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
