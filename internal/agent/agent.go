// Package agent binds a role, a goal and a backstory to an LLM client and
// turns task instructions plus upstream context into a generation request.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/enriqueman/articlecrew/internal/llm"
	"github.com/enriqueman/articlecrew/internal/logger"
)

// DefaultContextBudget is the token allowance for upstream context.
const DefaultContextBudget = 12000

// Tool is something an agent runs before prompting the model. Its output is
// added to the prompt.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, input string) (string, error)
}

// Agent is a role-bound executor.
type Agent struct {
	Name      string
	Role      string
	Goal      string
	Backstory string

	// Model overrides; zero values use the client defaults.
	Model       string
	Temperature float64
	MaxTokens   int

	Tools []Tool

	Client        llm.Client
	Tokenizer     *llm.Tokenizer
	ContextBudget int
}

// TaskSpec is the instruction an agent performs.
type TaskSpec struct {
	ID             string
	Description    string
	ExpectedOutput string
	// ToolInput is passed to every tool; empty uses the description.
	ToolInput string
}

// Output is the result of Perform.
type Output struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	ToolsUsed    []string
	Duration     time.Duration
}

// SystemPrompt describes who the agent is.
func (a *Agent) SystemPrompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s.", a.Role)
	if a.Goal != "" {
		fmt.Fprintf(&sb, "\n\nGoal: %s", a.Goal)
	}
	if a.Backstory != "" {
		fmt.Fprintf(&sb, "\n\nBackground: %s", a.Backstory)
	}
	return sb.String()
}

// UserPrompt assembles the task instruction, tool results and upstream context.
func (a *Agent) UserPrompt(spec TaskSpec, toolResults []string, upstream string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task:\n%s", strings.TrimSpace(spec.Description))
	if spec.ExpectedOutput != "" {
		fmt.Fprintf(&sb, "\n\nExpected output:\n%s", strings.TrimSpace(spec.ExpectedOutput))
	}
	if len(toolResults) > 0 {
		fmt.Fprintf(&sb, "\n\nTool results:\n%s", strings.Join(toolResults, "\n\n"))
	}
	if upstream != "" {
		fmt.Fprintf(&sb, "\n\nContext from previous tasks:\n%s", upstream)
	}
	return sb.String()
}

// Perform runs the agent's tools, then asks the model to complete spec.
func (a *Agent) Perform(ctx context.Context, spec TaskSpec, upstream string) (*Output, error) {
	if a.Client == nil {
		return nil, fmt.Errorf("agent %s has no LLM client", a.Name)
	}
	start := time.Now()

	toolResults, used := a.runTools(ctx, spec)
	upstream = a.fitContext(spec.ID, upstream)

	resp, err := a.Client.Generate(ctx, llm.Request{
		System:      a.SystemPrompt(),
		Prompt:      a.UserPrompt(spec, toolResults, upstream),
		Model:       a.Model,
		Temperature: a.Temperature,
		MaxTokens:   a.MaxTokens,
		Label:       spec.ID,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		Text:         resp.Text,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		ToolsUsed:    used,
		Duration:     time.Since(start),
	}, nil
}

// runTools runs every tool; a failing tool is logged and left out.
func (a *Agent) runTools(ctx context.Context, spec TaskSpec) ([]string, []string) {
	input := spec.ToolInput
	if input == "" {
		input = spec.Description
	}

	var results, used []string
	for _, tool := range a.Tools {
		out, err := tool.Run(ctx, input)
		if err != nil {
			logger.Op.WithFields(map[string]interface{}{
				"agent": a.Name,
				"tool":  tool.Name(),
				"task":  spec.ID,
				"error": err.Error(),
			}).Warn("Tool failed, continuing without its output")
			continue
		}
		results = append(results, fmt.Sprintf("[%s]\n%s", tool.Name(), strings.TrimSpace(out)))
		used = append(used, tool.Name())
	}
	return results, used
}

func (a *Agent) fitContext(taskID, upstream string) string {
	if upstream == "" || a.Tokenizer == nil {
		return upstream
	}
	budget := a.ContextBudget
	if budget <= 0 {
		budget = DefaultContextBudget
	}

	fitted := FitContext(a.Tokenizer, upstream, budget)
	if fitted != upstream {
		logger.Op.WithFields(map[string]interface{}{
			"agent":  a.Name,
			"task":   taskID,
			"budget": budget,
		}).Info("Upstream context truncated to fit token budget")
	}
	return fitted
}
