package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common error codes
const (
	// LLM backend error codes
	CodeLLMRequest     = "001"
	CodeLLMAuth        = "002"
	CodeLLMRateLimit   = "003"
	CodeLLMEmptyOutput = "004"

	// CodeLLMInvalidRequest is a request the backend rejects on its merits
	// (malformed input, unknown model). Repeating it cannot succeed.
	CodeLLMInvalidRequest = "005"

	// Validation error codes
	CodeValidationInput = "001"
	CodeValidationGraph = "002"

	// Configuration error codes
	CodeConfigMissingKey = "001"
	CodeConfigInvalid    = "002"

	// Task error codes
	CodeTaskFailed  = "001"
	CodeTaskTimeout = "002"

	// Checkpoint error codes
	CodeCheckpointOpen  = "001"
	CodeCheckpointWrite = "002"
	CodeCheckpointRead  = "003"
)

// NewMissingAPIKeyError creates an error for a backend whose credentials are not set
func NewMissingAPIKeyError(provider, envVar string) *PipelineError {
	return NewConfigurationError(CodeConfigMissingKey,
		fmt.Sprintf("No API key configured for provider '%s'", provider),
		"LLM client setup").
		WithContext("provider", provider).
		WithContext("env", envVar).
		WithTroubleshooting(
			fmt.Sprintf("Export %s with a valid key", envVar),
			"Or set api_key under llm in the config file",
			"Use --provider static --dry-run to exercise the pipeline offline",
		)
}

// NewLLMRequestError creates an error for a failed generation call
func NewLLMRequestError(provider, model string, originalErr error) *PipelineError {
	return NewLLMStatusError(provider, model, 0, originalErr)
}

// NewLLMStatusError creates an error for a failed generation call whose HTTP
// status is known. A zero status falls back to inspecting the error text.
func NewLLMStatusError(provider, model string, status int, originalErr error) *PipelineError {
	errMsg := "LLM request failed"
	if originalErr != nil {
		errMsg = fmt.Sprintf("LLM request failed: %v", originalErr)
	}

	code := CodeLLMRequest
	switch {
	case status == 401 || status == 403:
		code = CodeLLMAuth
	case status == 429 || status == 529:
		code = CodeLLMRateLimit
	case status == 408 || status == 409:
	case status >= 400 && status < 500:
		code = CodeLLMInvalidRequest
	case status != 0:
	case originalErr != nil:
		errStr := strings.ToLower(originalErr.Error())
		switch {
		case strings.Contains(errStr, "401") || strings.Contains(errStr, "403") ||
			strings.Contains(errStr, "api key") || strings.Contains(errStr, "unauthorized"):
			code = CodeLLMAuth
		case strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") ||
			strings.Contains(errStr, "overloaded") || strings.Contains(errStr, "resource exhausted"):
			code = CodeLLMRateLimit
		case strings.Contains(errStr, "invalid_request") || strings.Contains(errStr, "invalid argument") ||
			strings.Contains(errStr, "not_found"):
			code = CodeLLMInvalidRequest
		}
	}

	err := NewLLMError(code, errMsg, "Text generation").
		WithContext("provider", provider).
		WithContext("model", model).
		WithOriginalError(originalErr)
	if status != 0 {
		err = err.WithContext("status", status)
	}

	switch code {
	case CodeLLMAuth:
		err = err.WithTroubleshooting(
			"Verify the API key for the selected provider is valid",
			"Check that the key has access to the requested model",
		)
	case CodeLLMInvalidRequest:
		err = err.WithTroubleshooting(
			"Check the model name passed with --model or llm.model",
			"Lower llm.max_tokens if it exceeds the model limit",
		)
	case CodeLLMRateLimit:
		err = err.WithTroubleshooting(
			"Lower llm.requests_per_second in the config file",
			"Run with --parallel 1 to reduce concurrent requests",
			"Resume the run later with --resume",
		)
	default:
		err = err.WithTroubleshooting(
			"Check your internet connection and the provider status page",
			"Try the operation again after a brief delay",
			"Resume the run with --resume to keep completed sections",
		)
	}

	return err
}

// NewTaskFailedError creates an error for a task whose handler returned an error
func NewTaskFailedError(taskID string, attempts int, originalErr error) *PipelineError {
	code := CodeTaskFailed
	if errors.Is(originalErr, context.DeadlineExceeded) {
		code = CodeTaskTimeout
	}
	return NewTaskError(code,
		fmt.Sprintf("Task '%s' failed", taskID),
		"Task execution").
		WithContext("task", taskID).
		WithContext("attempts", attempts).
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Check the operational logs (--verbose) for the failing request",
			"Increase --task-timeout if the model is slow",
			"Resume the run with --resume to skip completed tasks",
		)
}

// NewGraphValidationError creates an error for an invalid task graph
func NewGraphValidationError(message string, originalErr error) *PipelineError {
	return NewValidationError(CodeValidationGraph, message, "Workflow build").
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Every dependency must name a declared task",
			"Dependencies must not form a cycle",
		)
}

// NewValidationFailedError creates an error for input validation failures
func NewValidationFailedError(field, value, operation string) *PipelineError {
	return NewValidationError(CodeValidationInput,
		fmt.Sprintf("Invalid value for %s: '%s'", field, value),
		operation).
		WithContext("field", field).
		WithContext("value", value).
		WithTroubleshooting(
			"Check the command syntax and parameter values",
			"Use --help to see available options and examples",
		)
}

// IsRetryableError determines if an error is retryable
func IsRetryableError(err error) bool {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		switch pErr.Category {
		case ErrorCategoryNetwork:
			return true
		case ErrorCategoryLLM:
			return pErr.Code == CodeLLMRateLimit || pErr.Code == CodeLLMRequest || pErr.Code == CodeLLMEmptyOutput
		case ErrorCategoryConfiguration, ErrorCategoryValidation:
			return false
		}
		if pErr.OriginalError != nil {
			errStr := strings.ToLower(pErr.OriginalError.Error())
			return strings.Contains(errStr, "timeout") ||
				strings.Contains(errStr, "unavailable") ||
				strings.Contains(errStr, "503") ||
				strings.Contains(errStr, "502")
		}
	}
	return false
}

// GetErrorSeverity returns the severity level of an error
func GetErrorSeverity(err error) string {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		switch pErr.Category {
		case ErrorCategoryValidation, ErrorCategoryConfiguration:
			return "WARNING"
		case ErrorCategoryTask, ErrorCategoryLLM:
			return "CRITICAL"
		default:
			return "ERROR"
		}
	}
	return "ERROR"
}
