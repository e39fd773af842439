package errors

import (
	"errors"
	"fmt"
	"strings"
)

// DisplayError formats an error for user-friendly display
func DisplayError(err error) string {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return pErr.Error()
	}

	return fmt.Sprintf("Error: %v", err)
}

// DisplayErrorSummary provides a brief summary of the error for logs
func DisplayErrorSummary(err error) string {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return fmt.Sprintf("%s-%s: %s", pErr.Category, pErr.Code, pErr.Message)
	}

	errStr := err.Error()
	if len(errStr) > 100 {
		return errStr[:97] + "..."
	}
	return errStr
}

// ShouldDisplayTroubleshooting determines if troubleshooting info should be shown
func ShouldDisplayTroubleshooting(err error) bool {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return len(pErr.Troubleshooting) > 0
	}
	return false
}

// FormatForCLI formats an error for command-line display with proper spacing
func FormatForCLI(err error) string {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		var sb strings.Builder

		sb.WriteString(fmt.Sprintf("\n%s Error [%s-%s]\n",
			string(pErr.Category), pErr.Category, pErr.Code))
		sb.WriteString(fmt.Sprintf("  %s\n", pErr.Message))

		if pErr.Operation != "" {
			sb.WriteString(fmt.Sprintf("\nFailed Operation: %s\n", pErr.Operation))
		}

		if len(pErr.Context) > 0 {
			sb.WriteString("\nDetails:\n")
			for _, key := range sortedKeys(pErr.Context) {
				sb.WriteString(fmt.Sprintf("  %s: %v\n", key, pErr.Context[key]))
			}
		}

		if len(pErr.Troubleshooting) > 0 {
			sb.WriteString("\nHow to resolve:\n")
			for i, step := range pErr.Troubleshooting {
				sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, step))
			}
		}

		// Original error (for debugging)
		if pErr.OriginalError != nil {
			sb.WriteString(fmt.Sprintf("\nTechnical details: %v\n", pErr.OriginalError))
		}

		return sb.String()
	}

	return fmt.Sprintf("\nError: %v\n", err)
}

// IsUserError determines if an error is due to user input/configuration
func IsUserError(err error) bool {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return pErr.Category == ErrorCategoryValidation ||
			pErr.Category == ErrorCategoryConfiguration
	}
	return false
}

// GetErrorCode extracts the error code for reporting
func GetErrorCode(err error) string {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return fmt.Sprintf("%s-%s", pErr.Category, pErr.Code)
	}
	return "UNKNOWN"
}
