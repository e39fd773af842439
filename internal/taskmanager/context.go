package taskmanager

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// SharedContext allows tasks to share data. Task outputs are kept apart from
// arbitrary values so they can be checkpointed and forwarded as context.
type SharedContext struct {
	mu      sync.RWMutex
	data    map[string]interface{}
	outputs map[string]string
}

// NewSharedContext creates a new SharedContext.
func NewSharedContext() *SharedContext {
	return &SharedContext{
		data:    make(map[string]interface{}),
		outputs: make(map[string]string),
	}
}

// Set adds or updates a value in the context.
func (sc *SharedContext) Set(key string, value interface{}) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.data[key] = value
}

// Get retrieves a value from the context.
func (sc *SharedContext) Get(key string) (interface{}, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	val, ok := sc.data[key]
	return val, ok
}

// GetString retrieves a string value, returning "" when absent or not a string.
func (sc *SharedContext) GetString(key string) string {
	v, _ := sc.Get(key)
	s, _ := v.(string)
	return s
}

// SetOutput records the text produced by a task.
func (sc *SharedContext) SetOutput(taskID, output string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.outputs[taskID] = output
}

// Output returns the text produced by a task.
func (sc *SharedContext) Output(taskID string) (string, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	out, ok := sc.outputs[taskID]
	return out, ok
}

// Outputs returns a copy of all recorded task outputs.
func (sc *SharedContext) Outputs() map[string]string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	out := make(map[string]string, len(sc.outputs))
	for k, v := range sc.outputs {
		out[k] = v
	}
	return out
}

// ContextFor concatenates the outputs of the given predecessors in order,
// each under a header naming the task that produced it.
func (sc *SharedContext) ContextFor(deps []string) string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	sections := make([]Section, 0, len(deps))
	for _, dep := range deps {
		out, ok := sc.outputs[dep]
		if !ok {
			continue
		}
		sections = append(sections, Section{ID: dep, Text: strings.TrimSpace(out)})
	}
	return FormatSections(sections)
}

const sectionPrefix = "### Output of "

// Section is one predecessor output inside a ContextFor block.
type Section struct {
	ID   string
	Text string
}

// FormatSections renders sections the way ContextFor does. A section with
// no ID is written as bare text.
func FormatSections(sections []Section) string {
	var sb strings.Builder
	for i, s := range sections {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if s.ID != "" {
			fmt.Fprintf(&sb, "%s%s (%d bytes)\n\n", sectionPrefix, s.ID, len(s.Text))
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// ParseSections splits a ContextFor block back into its sections. The byte
// count in each header bounds the section, so header-like lines inside an
// output stay part of that output. Text that is not a ContextFor block comes
// back as a single section without an ID.
func ParseSections(s string) []Section {
	if s == "" {
		return nil
	}

	var sections []Section
	rest := s
	for {
		id, body, n, ok := cutSectionHeader(rest)
		if !ok || n > len(body) {
			return []Section{{Text: s}}
		}
		sections = append(sections, Section{ID: id, Text: body[:n]})

		rest = body[n:]
		if rest == "" {
			return sections
		}
		if !strings.HasPrefix(rest, "\n\n") {
			return []Section{{Text: s}}
		}
		rest = rest[2:]
	}
}

// cutSectionHeader reads "### Output of <id> (<n> bytes)\n\n" off the front of s.
func cutSectionHeader(s string) (id, body string, n int, ok bool) {
	if !strings.HasPrefix(s, sectionPrefix) {
		return "", "", 0, false
	}
	line, body, found := strings.Cut(s[len(sectionPrefix):], "\n\n")
	if !found {
		return "", "", 0, false
	}
	line, found = strings.CutSuffix(line, " bytes)")
	if !found {
		return "", "", 0, false
	}
	open := strings.LastIndex(line, " (")
	if open <= 0 {
		return "", "", 0, false
	}
	n, err := strconv.Atoi(line[open+2:])
	if err != nil || n < 0 {
		return "", "", 0, false
	}
	return line[:open], body, n, true
}
