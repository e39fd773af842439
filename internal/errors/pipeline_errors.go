package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the category of error
type ErrorCategory string

const (
	// ErrorCategoryLLM represents failures returned by a text-generation backend
	ErrorCategoryLLM ErrorCategory = "LLM"
	// ErrorCategoryValidation represents validation errors
	ErrorCategoryValidation ErrorCategory = "VALIDATION"
	// ErrorCategoryConfiguration represents configuration errors
	ErrorCategoryConfiguration ErrorCategory = "CONFIGURATION"
	// ErrorCategoryTask represents task execution errors
	ErrorCategoryTask ErrorCategory = "TASK"
	// ErrorCategoryCache represents result cache errors
	ErrorCategoryCache ErrorCategory = "CACHE"
	// ErrorCategoryCheckpoint represents checkpoint store errors
	ErrorCategoryCheckpoint ErrorCategory = "CHECKPOINT"
	// ErrorCategoryTool represents agent tool errors
	ErrorCategoryTool ErrorCategory = "TOOL"
	// ErrorCategoryNetwork represents network connectivity errors
	ErrorCategoryNetwork ErrorCategory = "NETWORK"
)

// PipelineError represents a structured error with context and troubleshooting information
type PipelineError struct {
	Category        ErrorCategory
	Code            string
	Message         string
	Operation       string
	Context         map[string]interface{}
	Troubleshooting []string
	OriginalError   error
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s-%s: %s", e.Category, e.Code, e.Message))

	if e.Operation != "" {
		sb.WriteString(fmt.Sprintf("\nOperation: %s", e.Operation))
	}

	if len(e.Context) > 0 {
		sb.WriteString("\nContext:")
		for _, key := range sortedKeys(e.Context) {
			sb.WriteString(fmt.Sprintf("\n  %s: %v", key, e.Context[key]))
		}
	}

	if len(e.Troubleshooting) > 0 {
		sb.WriteString("\nTroubleshooting:")
		for i, step := range e.Troubleshooting {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}

	if e.OriginalError != nil {
		sb.WriteString(fmt.Sprintf("\nUnderlying error: %v", e.OriginalError))
	}

	return sb.String()
}

// Unwrap returns the original error for error chain compatibility
func (e *PipelineError) Unwrap() error {
	return e.OriginalError
}

// NewPipelineError creates a new pipeline error with the specified parameters
func NewPipelineError(category ErrorCategory, code, message, operation string) *PipelineError {
	return &PipelineError{
		Category:        category,
		Code:            code,
		Message:         message,
		Operation:       operation,
		Context:         make(map[string]interface{}),
		Troubleshooting: []string{},
	}
}

// WithContext adds context information to the error
func (e *PipelineError) WithContext(key string, value interface{}) *PipelineError {
	e.Context[key] = value
	return e
}

// WithTroubleshooting adds troubleshooting steps to the error
func (e *PipelineError) WithTroubleshooting(steps ...string) *PipelineError {
	e.Troubleshooting = append(e.Troubleshooting, steps...)
	return e
}

// WithOriginalError adds the original error to the pipeline error
func (e *PipelineError) WithOriginalError(err error) *PipelineError {
	e.OriginalError = err
	return e
}

// NewLLMError creates a new text-generation backend error
func NewLLMError(code, message, operation string) *PipelineError {
	return NewPipelineError(ErrorCategoryLLM, code, message, operation)
}

// NewValidationError creates a new validation error
func NewValidationError(code, message, operation string) *PipelineError {
	return NewPipelineError(ErrorCategoryValidation, code, message, operation)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(code, message, operation string) *PipelineError {
	return NewPipelineError(ErrorCategoryConfiguration, code, message, operation)
}

// NewTaskError creates a new task execution error
func NewTaskError(code, message, operation string) *PipelineError {
	return NewPipelineError(ErrorCategoryTask, code, message, operation)
}

// NewCheckpointError creates a new checkpoint store error
func NewCheckpointError(code, message, operation string) *PipelineError {
	return NewPipelineError(ErrorCategoryCheckpoint, code, message, operation)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
