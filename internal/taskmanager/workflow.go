package taskmanager

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/enriqueman/articlecrew/internal/errors"
	"github.com/enriqueman/articlecrew/internal/logger"
)

// Workflow represents a collection of tasks and their dependencies.
type Workflow struct {
	ID    string
	Tasks map[string]*Task

	// order is the declaration order, used to break ties deterministically.
	order []string
}

// Observer receives task lifecycle notifications. Calls for a single task are
// ordered; calls for different tasks may be concurrent in parallel mode.
type Observer interface {
	OnTaskStart(task *Task, attempt int)
	OnTaskComplete(task *Task, result *TaskResult)
	OnTaskSkip(task *Task, result *TaskResult)
}

// ExecuteOptions tunes a workflow run.
type ExecuteOptions struct {
	// MaxParallel > 1 lets independent tasks of the same level run together.
	MaxParallel int
	// TaskTimeout bounds each handler attempt when the task sets none.
	TaskTimeout time.Duration
	// Retry applies when the task sets none. Nil means a single attempt.
	Retry     *RetryPolicy
	Observers []Observer
}

// Report summarises a workflow run.
type Report struct {
	WorkflowID string
	Order      []string
	Results    map[string]*TaskResult
	Duration   time.Duration
	Success    bool
	Error      error
}

// Count returns how many tasks ended with the given status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Order returns the execution order without running anything.
func (w *Workflow) Order() ([]string, error) {
	if err := w.validateDependencies(); err != nil {
		return nil, err
	}
	return w.createDAG().TopologicalSort()
}

// Levels returns the groups of mutually independent tasks.
func (w *Workflow) Levels() ([][]string, error) {
	if err := w.validateDependencies(); err != nil {
		return nil, err
	}
	return w.createDAG().Levels()
}

// Run executes the workflow. Tasks whose output is already present in
// sharedCtx are treated as resumed and not executed again. The first task
// failure aborts the run: tasks that have not started are reported as skipped.
func (w *Workflow) Run(ctx context.Context, sharedCtx *SharedContext, opts ExecuteOptions) (*Report, error) {
	start := time.Now()
	report := &Report{
		WorkflowID: w.ID,
		Results:    make(map[string]*TaskResult, len(w.Tasks)),
	}

	if err := w.validateDependencies(); err != nil {
		return w.finish(report, start, err)
	}

	order, err := w.Order()
	if err != nil {
		return w.finish(report, start, fmt.Errorf("failed to determine execution order: %w", err))
	}
	report.Order = order

	for _, id := range order {
		report.Results[id] = &TaskResult{TaskID: id, Status: StatusPending}
	}

	if opts.MaxParallel > 1 {
		levels, err := w.Levels()
		if err != nil {
			return w.finish(report, start, err)
		}
		err = w.runLevels(ctx, sharedCtx, opts, levels, report)
		return w.finish(report, start, err)
	}

	for _, id := range order {
		if err := ctx.Err(); err != nil {
			w.skipPending(report, opts, "run cancelled")
			return w.finish(report, start, err)
		}
		if err := w.runTask(ctx, sharedCtx, opts, w.Tasks[id], report.Results[id]); err != nil {
			w.skipPending(report, opts, fmt.Sprintf("task %s failed", id))
			return w.finish(report, start, err)
		}
	}

	return w.finish(report, start, nil)
}

func (w *Workflow) runLevels(ctx context.Context, sharedCtx *SharedContext, opts ExecuteOptions, levels [][]string, report *Report) error {
	for i, level := range levels {
		if err := ctx.Err(); err != nil {
			w.skipPending(report, opts, "run cancelled")
			return err
		}

		logger.Op.WithFields(map[string]interface{}{
			"workflow": w.ID,
			"level":    i,
			"tasks":    level,
		}).Debug("Starting workflow level")

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.MaxParallel)
		for _, id := range level {
			task, result := w.Tasks[id], report.Results[id]
			g.Go(func() error {
				// A queued task whose group already failed stays pending.
				if gctx.Err() != nil {
					return nil
				}
				return w.runTask(gctx, sharedCtx, opts, task, result)
			})
		}

		if err := g.Wait(); err != nil {
			w.skipPending(report, opts, "an earlier task failed")
			return err
		}
		if err := ctx.Err(); err != nil {
			w.skipPending(report, opts, "run cancelled")
			return err
		}
	}
	return nil
}

// runTask executes one task with timeout and retry, recording into result.
func (w *Workflow) runTask(ctx context.Context, sharedCtx *SharedContext, opts ExecuteOptions, task *Task, result *TaskResult) error {
	if out, ok := sharedCtx.Output(task.ID); ok {
		now := time.Now()
		result.Status = StatusResumed
		result.Output = out
		result.StartTime, result.EndTime = now, now
		for _, o := range opts.Observers {
			o.OnTaskSkip(task, result)
		}
		return nil
	}

	timeout := task.Timeout
	if timeout == 0 {
		timeout = opts.TaskTimeout
	}
	policy := task.Retry
	if policy == nil {
		policy = opts.Retry
	}

	result.Status = StatusRunning
	result.StartTime = time.Now()

	var output string
	attempts, err := runWithRetry(ctx, task.ID, policy, func(attempt int) error {
		for _, o := range opts.Observers {
			o.OnTaskStart(task, attempt)
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		defer cancel()

		out, err := task.Handler(attemptCtx, task, sharedCtx)
		if err != nil {
			return err
		}
		output = out
		return nil
	})

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Attempts = attempts

	if err != nil {
		result.Status = StatusFailed
		result.Error = apperrors.NewTaskFailedError(task.ID, attempts, err)
	} else {
		result.Status = StatusCompleted
		result.Output = output
		sharedCtx.SetOutput(task.ID, output)
	}

	for _, o := range opts.Observers {
		o.OnTaskComplete(task, result)
	}

	return result.Error
}

func (w *Workflow) skipPending(report *Report, opts ExecuteOptions, reason string) {
	for _, id := range report.Order {
		result := report.Results[id]
		if result.Status != StatusPending {
			continue
		}
		result.Status = StatusSkipped
		result.Error = fmt.Errorf("not run: %s", reason)
		for _, o := range opts.Observers {
			o.OnTaskSkip(w.Tasks[id], result)
		}
	}
}

func (w *Workflow) finish(report *Report, start time.Time, err error) (*Report, error) {
	report.Duration = time.Since(start)
	report.Error = err
	report.Success = err == nil
	return report, err
}

// validateDependencies ensures all dependencies reference existing tasks
func (w *Workflow) validateDependencies() error {
	for _, id := range w.taskOrder() {
		task := w.Tasks[id]
		for _, depID := range task.DependsOn {
			if _, exists := w.Tasks[depID]; !exists {
				return apperrors.NewGraphValidationError(
					fmt.Sprintf("task %s depends on non-existent task %s", task.ID, depID), nil)
			}
		}
	}
	return nil
}

// taskOrder returns declared order, falling back to sorted IDs for
// workflows assembled by hand.
func (w *Workflow) taskOrder() []string {
	if len(w.order) == len(w.Tasks) {
		return w.order
	}
	ids := make([]string, 0, len(w.Tasks))
	for id := range w.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// createDAG creates a DAG from the workflow's current state
func (w *Workflow) createDAG() *DAG {
	dag := NewDAG()
	ids := w.taskOrder()

	for _, id := range ids {
		dag.AddNode(id)
	}

	for _, id := range ids {
		for _, depID := range w.Tasks[id].DependsOn {
			dag.AddEdge(id, depID)
		}
	}

	return dag
}
