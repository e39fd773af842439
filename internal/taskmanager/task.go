package taskmanager

import (
	"context"
	"time"
)

// TaskFunc is the function signature for a task's execution logic. The
// returned text is recorded as the task's output in the shared context.
type TaskFunc func(ctx context.Context, task *Task, sharedCtx *SharedContext) (string, error)

// Task represents a single unit of work in a workflow.
type Task struct {
	ID             string
	Description    string
	ExpectedOutput string
	Agent          string
	Handler        TaskFunc
	DependsOn      []string // IDs of tasks this task depends on

	// Timeout and Retry override the workflow defaults when set.
	Timeout time.Duration
	Retry   *RetryPolicy
}

// Status represents the execution status of a task
type Status int

const (
	// StatusPending indicates the task is waiting to be executed
	StatusPending Status = iota
	// StatusRunning indicates the task is currently being executed
	StatusRunning
	// StatusCompleted indicates the task produced its output
	StatusCompleted
	// StatusFailed indicates the task returned an error
	StatusFailed
	// StatusSkipped indicates the task never ran because the run aborted
	StatusSkipped
	// StatusResumed indicates the output was already present before the run
	StatusResumed
)

// String returns a string representation of the Status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusResumed:
		return "resumed"
	default:
		return "unknown"
	}
}

// TaskResult contains the result of a single task execution
type TaskResult struct {
	TaskID    string
	Status    Status
	Attempts  int
	Output    string
	Error     error
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Done reports whether the task has an output available to dependents.
func (r *TaskResult) Done() bool {
	return r.Status == StatusCompleted || r.Status == StatusResumed
}
