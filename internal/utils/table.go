package utils

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// TableFormatter renders rows as a box-drawn table for CLI output.
type TableFormatter struct {
	headers  []string
	rows     [][]string
	widths   []int
	maxWidth int
}

// NewTableFormatter creates a table with the given headers
func NewTableFormatter(headers ...string) *TableFormatter {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	return &TableFormatter{headers: headers, widths: widths}
}

// WithMaxColumnWidth truncates cells longer than n runes. Zero disables it.
func (t *TableFormatter) WithMaxColumnWidth(n int) *TableFormatter {
	t.maxWidth = n
	return t
}

// AddRow adds a row. Missing cells are left blank and extra cells dropped.
func (t *TableFormatter) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	for i, cell := range row {
		cell = strings.ReplaceAll(cell, "\n", " ")
		if t.maxWidth > 0 && utf8.RuneCountInString(cell) > t.maxWidth {
			cell = string([]rune(cell)[:t.maxWidth-1]) + "…"
		}
		row[i] = cell
		if n := utf8.RuneCountInString(cell); n > t.widths[i] {
			t.widths[i] = n
		}
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *TableFormatter) Len() int { return len(t.rows) }

// String returns the formatted table
func (t *TableFormatter) String() string {
	var sb strings.Builder

	t.writeBorder(&sb, "┌", "┬", "┐")
	t.writeRow(&sb, t.headers)
	t.writeBorder(&sb, "├", "┼", "┤")
	for _, row := range t.rows {
		t.writeRow(&sb, row)
	}
	t.writeBorder(&sb, "└", "┴", "┘")

	return sb.String()
}

// Render writes the table to w.
func (t *TableFormatter) Render(w io.Writer) error {
	_, err := io.WriteString(w, t.String())
	return err
}

func (t *TableFormatter) writeRow(sb *strings.Builder, cells []string) {
	sb.WriteString("│")
	for i, cell := range cells {
		pad := t.widths[i] - utf8.RuneCountInString(cell)
		if pad < 0 {
			pad = 0
		}
		fmt.Fprintf(sb, " %s%s │", cell, strings.Repeat(" ", pad))
	}
	sb.WriteString("\n")
}

func (t *TableFormatter) writeBorder(sb *strings.Builder, left, middle, right string) {
	sb.WriteString(left)
	for i, w := range t.widths {
		sb.WriteString(strings.Repeat("─", w+2))
		if i < len(t.widths)-1 {
			sb.WriteString(middle)
		}
	}
	sb.WriteString(right)
	sb.WriteString("\n")
}
