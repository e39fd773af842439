package agent

import (
	"github.com/enriqueman/articlecrew/internal/llm"
	"github.com/enriqueman/articlecrew/internal/taskmanager"
)

// FitContext trims upstream context to budget tokens. Sections are consumed
// oldest first: whole sections are dropped while that is enough, and the
// section that straddles the limit loses text from its front.
func FitContext(tok *llm.Tokenizer, upstream string, budget int) string {
	total := tok.Count(upstream)
	if total <= budget {
		return upstream
	}

	sections := taskmanager.ParseSections(upstream)
	overflow := total - budget

	for len(sections) > 0 && overflow > 0 {
		first := sections[0]
		n := tok.Count(taskmanager.FormatSections(sections[:1]))
		keep := tok.Count(first.Text) - overflow
		if n <= overflow || keep <= 0 {
			sections = sections[1:]
			overflow -= n
			continue
		}
		sections[0].Text = "[...] " + tok.TruncateFront(first.Text, keep)
		break
	}

	return taskmanager.FormatSections(sections)
}
