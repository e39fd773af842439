package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableFormatter(t *testing.T) {
	table := NewTableFormatter("ID", "Title")
	table.AddRow("discusion", "Discusión")
	table.AddRow("research")

	out := table.String()
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "│ ID        │ Title     │", lines[1])
	assert.Equal(t, "│ discusion │ Discusión │", lines[3])
	assert.Equal(t, "│ research  │           │", lines[4])
	assert.Equal(t, 2, table.Len())

	var buf bytes.Buffer
	require.NoError(t, table.Render(&buf))
	assert.Equal(t, out, buf.String())
}

func TestTableFormatter_Truncates(t *testing.T) {
	table := NewTableFormatter("Description").WithMaxColumnWidth(6)
	table.AddRow("line one\nline two")

	out := table.String()
	assert.Contains(t, out, "│ line …      │")
	assert.NotContains(t, out, "two")
}

func TestReportBuilder(t *testing.T) {
	out := NewReportBuilder().
		WithWidth(5).
		Header("Crew").
		AddKeyValue("Agents", 8).
		AddCheck("Cache", true).
		AddCheck("Store", false).
		Section("Sections").
		AddNumbered(1, "desarrollo").
		AddBullet("web_search").
		Build()

	assert.Equal(t, strings.Join([]string{
		"Crew",
		"=====",
		"  Agents:            8",
		"  Cache:             ✓",
		"  Store:             ✗",
		"",
		"Sections",
		"  1. desarrollo",
		"  • web_search",
	}, "\n")+"\n", out)
}

func TestPromptForConfirmation(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		autoApprove bool
		want        bool
		wantErr     bool
	}{
		{name: "auto approve", autoApprove: true, want: true},
		{name: "yes", input: "yes\n", want: true},
		{name: "short yes without newline", input: "Y", want: true},
		{name: "no", input: "no\n", want: false},
		{name: "empty input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := PromptForConfirmation(strings.NewReader(tt.input), &out, tt.autoApprove, "overwrite article.md", "the file exists")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.autoApprove {
				assert.Empty(t, out.String())
			} else {
				assert.Contains(t, out.String(), "overwrite article.md")
			}
		})
	}
}

func TestBoxRender(t *testing.T) {
	out := NewBox(SuccessMessage, "Article ready").
		WithWidth(60).
		AddKeyValue("Sections", 6).
		AddBullet("article.md").
		Render()

	assert.Contains(t, out, "Article ready")
	assert.Contains(t, out, "6")
	assert.Contains(t, out, "• article.md")
	assert.Contains(t, out, "╭")
}

func TestWarning(t *testing.T) {
	out := Warning("Aborted", "Output file left untouched: article.md")

	assert.Contains(t, out, "Aborted")
	assert.Contains(t, out, "article.md")
	assert.Contains(t, out, warningPrefix)
}
