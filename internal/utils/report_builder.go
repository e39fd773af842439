package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ReportBuilder provides a fluent interface for building plain-text reports
// such as the status and health output.
type ReportBuilder struct {
	lines     []string
	separator string
	width     int
	keyWidth  int
}

// NewReportBuilder creates a new report builder
func NewReportBuilder() *ReportBuilder {
	return &ReportBuilder{
		separator: "=",
		width:     48,
		keyWidth:  18,
	}
}

// WithWidth sets the separator width
func (rb *ReportBuilder) WithWidth(width int) *ReportBuilder {
	rb.width = width
	return rb
}

// Header adds a title underlined with the separator.
func (rb *ReportBuilder) Header(text string) *ReportBuilder {
	rb.lines = append(rb.lines, text, strings.Repeat(rb.separator, rb.width))
	return rb
}

// Section adds a blank line and a section title.
func (rb *ReportBuilder) Section(title string) *ReportBuilder {
	rb.lines = append(rb.lines, "", title)
	return rb
}

func (rb *ReportBuilder) AddLine(text string) *ReportBuilder {
	rb.lines = append(rb.lines, text)
	return rb
}

func (rb *ReportBuilder) AddBullet(text string) *ReportBuilder {
	rb.lines = append(rb.lines, "  • "+text)
	return rb
}

func (rb *ReportBuilder) AddNumbered(number int, text string) *ReportBuilder {
	rb.lines = append(rb.lines, fmt.Sprintf("  %d. %s", number, text))
	return rb
}

// AddKeyValue adds an aligned "key: value" line.
func (rb *ReportBuilder) AddKeyValue(key string, value interface{}) *ReportBuilder {
	pad := rb.keyWidth - utf8.RuneCountInString(key)
	if pad < 1 {
		pad = 1
	}
	rb.lines = append(rb.lines, fmt.Sprintf("  %s:%s%v", key, strings.Repeat(" ", pad), value))
	return rb
}

// AddCheck adds a key with a ✓ or ✗ mark.
func (rb *ReportBuilder) AddCheck(key string, ok bool) *ReportBuilder {
	mark := "✗"
	if ok {
		mark = "✓"
	}
	return rb.AddKeyValue(key, mark)
}

// Build returns the built report as a string
func (rb *ReportBuilder) Build() string {
	return strings.Join(rb.lines, "\n") + "\n"
}
