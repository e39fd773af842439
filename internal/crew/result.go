package crew

import (
	"fmt"
	"strings"
	"time"

	"github.com/enriqueman/articlecrew/internal/config"
	"github.com/enriqueman/articlecrew/internal/taskmanager"
)

// Result is the outcome of a crew run.
type Result struct {
	RunID    string            `json:"run_id,omitempty"`
	Topic    string            `json:"topic"`
	Sections map[string]string `json:"sections"`
	Article  string            `json:"article"`
	Tasks    []TaskSummary     `json:"tasks"`
	Stats    Stats             `json:"stats"`
	Success  bool              `json:"success"`
	Error    string            `json:"error,omitempty"`

	report *taskmanager.Report
}

// TaskSummary is the final state of one task.
type TaskSummary struct {
	ID       string        `json:"id"`
	Agent    string        `json:"agent"`
	Status   string        `json:"status"`
	Attempts int           `json:"attempts"`
	Cached   bool          `json:"cached"`
	Duration time.Duration `json:"duration"`
}

// Stats aggregates a run.
type Stats struct {
	Tasks        int           `json:"tasks"`
	Completed    int           `json:"completed"`
	Cached       int           `json:"cached"`
	Resumed      int           `json:"resumed"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Duration     time.Duration `json:"duration"`
}

func (c *Crew) buildResult(topic, runID string, shared *taskmanager.SharedContext, report *taskmanager.Report, stats *runStats, runErr error) *Result {
	result := &Result{
		RunID:    runID,
		Topic:    topic,
		Sections: shared.Outputs(),
		Success:  runErr == nil,
		report:   report,
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()

	result.Stats = Stats{
		Tasks:        len(c.tasks),
		Cached:       len(stats.cached),
		InputTokens:  stats.inputTokens,
		OutputTokens: stats.outputTokens,
	}

	if report != nil {
		result.Stats.Completed = report.Count(taskmanager.StatusCompleted)
		result.Stats.Resumed = report.Count(taskmanager.StatusResumed)
		result.Stats.Skipped = report.Count(taskmanager.StatusSkipped)
		result.Stats.Failed = report.Count(taskmanager.StatusFailed)
		result.Stats.Duration = report.Duration

		for _, id := range report.Order {
			r := report.Results[id]
			agentName := ""
			for _, def := range c.tasks {
				if def.ID == id {
					agentName = def.Agent
				}
			}
			result.Tasks = append(result.Tasks, TaskSummary{
				ID:       id,
				Agent:    agentName,
				Status:   r.Status.String(),
				Attempts: r.Attempts,
				Cached:   stats.cached[id],
				Duration: r.Duration,
			})
		}
	}

	result.Article = AssembleArticle(topic, c.tasks, result.Sections)
	return result
}

// Graph renders the task graph in Graphviz DOT. With a result the nodes
// carry the status each task ended in.
func (c *Crew) Graph(result *Result) (string, error) {
	topic := config.DefaultTopic
	var report *taskmanager.Report
	if result != nil {
		topic, report = result.Topic, result.report
	}
	wf, err := c.workflow(topic, newRunStats())
	if err != nil {
		return "", err
	}
	return wf.DOT(report)
}

// AssembleArticle joins the titled sections in ArticleSections order under a
// title heading. Missing sections are left out.
func AssembleArticle(topic string, tasks []TaskDef, sections map[string]string) string {
	titles := make(map[string]string, len(tasks))
	for _, def := range tasks {
		if def.Title != "" {
			titles[def.ID] = def.Title
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", topic)
	for _, id := range ArticleSections {
		title, ok := titles[id]
		if !ok {
			continue
		}
		body := strings.TrimSpace(stripHeading(sections[id], title))
		if body == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n## %s\n\n%s\n", title, body)
	}
	return sb.String()
}

// stripHeading drops a leading Markdown heading that repeats the section title.
func stripHeading(text, title string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "#") {
		return text
	}
	line, rest, _ := strings.Cut(trimmed, "\n")
	if strings.EqualFold(strings.TrimSpace(strings.TrimLeft(line, "#")), title) {
		return rest
	}
	return text
}
