package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestRetry_Success(t *testing.T) {
	attempts := 0
	err := Retry(func() error {
		attempts++
		return nil
	}, DefaultRetryConfig(), nil)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetry_FailureThenSuccess(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            false,
	}

	attempts := 0
	err := Retry(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, config, nil)

	if err != nil {
		t.Errorf("Expected no error after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetry_MaxAttempts(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:       2,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            false,
	}

	attempts := 0
	err := Retry(func() error {
		attempts++
		return errors.New("persistent error")
	}, config, nil)

	if err == nil {
		t.Error("Expected error after max attempts")
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestRetry_NonRetryableError(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            false,
	}

	attempts := 0
	err := Retry(func() error {
		attempts++
		return errors.New("bad request")
	}, config, IsRetryableNetworkError)

	if err == nil {
		t.Error("Expected error for non-retryable failure")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for non-retryable error, got %d", attempts)
	}
}

func TestIsRetryableNetworkError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"connection refused", errors.New("connection refused"), true},
		{"connection reset", errors.New("connection reset"), true},
		{"unavailable", errors.New("unavailable"), true},
		{"deadline exceeded", errors.New("deadline exceeded"), true},
		{"timeout", errors.New("dial tcp: i/o timeout"), true},
		{"resource exhausted", errors.New("resource exhausted"), true},
		{"rate limit", errors.New("rate limit"), true},
		{"mixed case", errors.New("Connection Refused"), true},
		{"other error", errors.New("other error"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsRetryableNetworkError(tt.err)
			if result != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}
		})
	}
}
