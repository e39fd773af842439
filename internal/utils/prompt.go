package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PromptForConfirmation asks a yes/no question on out and reads the answer
// from in. With autoApprove it returns true without asking.
func PromptForConfirmation(in io.Reader, out io.Writer, autoApprove bool, action, details string) (bool, error) {
	if autoApprove {
		return true, nil
	}

	fmt.Fprintf(out, "\nAbout to %s\n  %s\nContinue? (yes/no): ", action, details)

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return false, fmt.Errorf("failed to read user confirmation: %w", err)
	}

	input = strings.ToLower(strings.TrimSpace(input))
	return input == "yes" || input == "y", nil
}
