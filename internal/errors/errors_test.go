package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineError_Error(t *testing.T) {
	err := NewTaskFailedError("analysis", 2, fmt.Errorf("boom"))

	msg := err.Error()
	assert.Contains(t, msg, "TASK-001: Task 'analysis' failed")
	assert.Contains(t, msg, "attempts: 2")
	assert.Contains(t, msg, "Underlying error: boom")
}

func TestNewTaskFailedError_Timeout(t *testing.T) {
	err := NewTaskFailedError("research", 1, fmt.Errorf("calling model: %w", context.DeadlineExceeded))
	assert.Equal(t, CodeTaskTimeout, err.Code)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewLLMRequestError_Classification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		retryable bool
	}{
		{"auth", fmt.Errorf("401 Unauthorized"), CodeLLMAuth, false},
		{"rate limit", fmt.Errorf("429 Too Many Requests"), CodeLLMRateLimit, true},
		{"overloaded", fmt.Errorf("529 overloaded_error"), CodeLLMRateLimit, true},
		{"generic", fmt.Errorf("connection reset"), CodeLLMRequest, true},
		{"invalid request", fmt.Errorf("invalid_request_error: max_tokens too large"), CodeLLMInvalidRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewLLMRequestError("anthropic", "claude", tt.err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.retryable, IsRetryableError(err))
			assert.Equal(t, "LLM-"+tt.code, GetErrorCode(err))
		})
	}
}

func TestNewLLMStatusError_Classification(t *testing.T) {
	tests := []struct {
		status    int
		code      string
		retryable bool
	}{
		{400, CodeLLMInvalidRequest, false},
		{404, CodeLLMInvalidRequest, false},
		{422, CodeLLMInvalidRequest, false},
		{401, CodeLLMAuth, false},
		{403, CodeLLMAuth, false},
		{408, CodeLLMRequest, true},
		{429, CodeLLMRateLimit, true},
		{529, CodeLLMRateLimit, true},
		{500, CodeLLMRequest, true},
		{503, CodeLLMRequest, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := NewLLMStatusError("anthropic", "m", tt.status, fmt.Errorf("status %d", tt.status))
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.retryable, IsRetryableError(err))
			assert.Equal(t, tt.status, err.Context["status"])
		})
	}
}

func TestIsRetryableError_Wrapped(t *testing.T) {
	base := NewLLMRequestError("gemini", "gemini-2.0-flash", fmt.Errorf("429"))
	wrapped := fmt.Errorf("task research: %w", base)
	assert.True(t, IsRetryableError(wrapped))

	assert.False(t, IsRetryableError(NewMissingAPIKeyError("anthropic", "ANTHROPIC_API_KEY")))
	assert.False(t, IsRetryableError(fmt.Errorf("plain")))
}

func TestFormatForCLI(t *testing.T) {
	err := NewMissingAPIKeyError("anthropic", "ANTHROPIC_API_KEY")
	out := FormatForCLI(err)

	assert.Contains(t, out, "CONFIGURATION Error [CONFIGURATION-001]")
	assert.Contains(t, out, "env: ANTHROPIC_API_KEY")
	assert.Contains(t, out, "How to resolve:")
	assert.True(t, IsUserError(err))
	assert.Equal(t, "WARNING", GetErrorSeverity(err))

	plain := FormatForCLI(fmt.Errorf("plain failure"))
	assert.Equal(t, "\nError: plain failure\n", plain)
}

func TestDisplayErrorSummary(t *testing.T) {
	long := fmt.Errorf("%0120d", 0)
	summary := DisplayErrorSummary(long)
	require.Len(t, summary, 100)
	assert.True(t, ShouldDisplayTroubleshooting(NewGraphValidationError("cycle", nil)))
	assert.Equal(t, "VALIDATION-002: cycle", DisplayErrorSummary(NewGraphValidationError("cycle", nil)))
}
