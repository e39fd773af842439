package taskmanager

import (
	"context"
	"strings"
	"time"

	"github.com/googleapis/gax-go/v2"

	apperrors "github.com/enriqueman/articlecrew/internal/errors"
	"github.com/enriqueman/articlecrew/internal/logger"
)

// RetryPolicy defines how a failed task handler is retried
type RetryPolicy struct {
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor" json:"backoff_factor"`

	// Retryable classifies errors; nil uses IsRetryableError.
	Retryable func(error) bool `yaml:"-" json:"-"`
}

// NewDefaultRetryPolicy creates a retry policy with sensible defaults
func NewDefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// NoRetry runs a task exactly once.
func NoRetry() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1}
}

func (p *RetryPolicy) attempts() int {
	if p == nil || p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p *RetryPolicy) backoff() *gax.Backoff {
	bo := &gax.Backoff{
		Initial:    p.InitialBackoff,
		Max:        p.MaxBackoff,
		Multiplier: p.BackoffFactor,
	}
	if bo.Multiplier < 1 {
		bo.Multiplier = 1
	}
	return bo
}

func (p *RetryPolicy) retryable(err error) bool {
	if p != nil && p.Retryable != nil {
		return p.Retryable(err)
	}
	return IsRetryableError(err)
}

// IsRetryableError reports whether a handler error is worth another attempt.
// Structured pipeline errors carry their own classification; anything else is
// retried unless it looks permanent.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if apperrors.GetErrorCode(err) != "UNKNOWN" {
		return apperrors.IsRetryableError(err)
	}

	msg := strings.ToLower(err.Error())
	for _, permanent := range []string{
		"not found",
		"permission denied",
		"invalid api key",
		"invalid configuration",
		"context canceled",
	} {
		if strings.Contains(msg, permanent) {
			return false
		}
	}
	return true
}

// runWithRetry invokes fn until it succeeds, the policy is exhausted, the
// error is permanent or ctx ends. It returns the attempt count used.
func runWithRetry(ctx context.Context, taskID string, policy *RetryPolicy, fn func(attempt int) error) (int, error) {
	maxAttempts := policy.attempts()
	var bo *gax.Backoff
	if maxAttempts > 1 {
		bo = policy.backoff()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			if attempt > 1 {
				logger.Op.WithFields(map[string]interface{}{
					"task":     taskID,
					"attempts": attempt,
				}).Info("Task succeeded after retry")
			}
			return attempt, nil
		}

		if attempt == maxAttempts || !policy.retryable(lastErr) || ctx.Err() != nil {
			return attempt, lastErr
		}

		pause := bo.Pause()
		logger.Op.WithFields(map[string]interface{}{
			"task":    taskID,
			"attempt": attempt,
			"backoff": pause.String(),
			"error":   lastErr.Error(),
		}).Warn("Task failed, retrying after backoff")

		if err := gax.Sleep(ctx, pause); err != nil {
			return attempt, lastErr
		}
	}

	return maxAttempts, lastErr
}
