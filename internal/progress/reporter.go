package progress

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/enriqueman/articlecrew/internal/logger"
	"github.com/enriqueman/articlecrew/internal/taskmanager"
)

// Phase is the stage a section is in.
type Phase string

const (
	PhasePending  Phase = "Pending"
	PhaseDrafting Phase = "Drafting"
	PhaseDone     Phase = "Done"
	PhaseFailed   Phase = "Failed"
	PhaseSkipped  Phase = "Skipped"
	PhaseResumed  Phase = "Resumed"
	PhaseRetrying Phase = "Retrying"
)

// Info is a snapshot of run progress.
type Info struct {
	TotalTasks        int
	CompletedTasks    int
	FailedTasks       int
	RunningTasks      []string
	ElapsedTime       time.Duration
	EstimatedTimeLeft time.Duration
	Sections          map[string]SectionProgress
}

// SectionProgress tracks one task.
type SectionProgress struct {
	TaskID   string
	Agent    string
	Phase    Phase
	Attempt  int
	Duration time.Duration
}

// Reporter follows a workflow as an observer and prints per-section status
// lines through the user logger.
type Reporter struct {
	mu        sync.Mutex
	startTime time.Time
	total     int
	sections  map[string]*SectionProgress
	order     []string
	finished  int
	failed    int
}

// NewReporter creates a reporter for a run of total tasks.
func NewReporter(total int) *Reporter {
	return &Reporter{
		startTime: time.Now(),
		total:     total,
		sections:  make(map[string]*SectionProgress),
	}
}

func (r *Reporter) section(task *taskmanager.Task) *SectionProgress {
	s, ok := r.sections[task.ID]
	if !ok {
		s = &SectionProgress{TaskID: task.ID, Agent: task.Agent, Phase: PhasePending}
		r.sections[task.ID] = s
		r.order = append(r.order, task.ID)
	}
	return s
}

func (r *Reporter) OnTaskStart(task *taskmanager.Task, attempt int) {
	r.mu.Lock()
	s := r.section(task)
	s.Attempt = attempt
	if attempt > 1 {
		s.Phase = PhaseRetrying
	} else {
		s.Phase = PhaseDrafting
	}
	done := r.finished
	r.mu.Unlock()

	if attempt > 1 {
		logger.User.Warnf("Retrying %s (attempt %d)", task.ID, attempt)
		return
	}
	logger.User.Sectionf("[%d/%d] %s: drafting with %s", done+1, r.total, task.ID, task.Agent)
}

func (r *Reporter) OnTaskComplete(task *taskmanager.Task, result *taskmanager.TaskResult) {
	r.mu.Lock()
	s := r.section(task)
	s.Duration = result.Duration
	r.finished++
	if result.Status == taskmanager.StatusCompleted {
		s.Phase = PhaseDone
	} else {
		s.Phase = PhaseFailed
		r.failed++
	}
	r.mu.Unlock()

	if result.Status == taskmanager.StatusCompleted {
		logger.User.Successf("%s finished in %s", task.ID, FormatDuration(result.Duration))
		return
	}
	logger.User.Errorf("%s failed after %d attempt(s)", task.ID, result.Attempts)
}

func (r *Reporter) OnTaskSkip(task *taskmanager.Task, result *taskmanager.TaskResult) {
	r.mu.Lock()
	s := r.section(task)
	r.finished++
	if result.Status == taskmanager.StatusResumed {
		s.Phase = PhaseResumed
	} else {
		s.Phase = PhaseSkipped
	}
	r.mu.Unlock()

	if result.Status == taskmanager.StatusResumed {
		logger.User.Resumef("%s restored from checkpoint", task.ID)
		return
	}
	logger.User.Skipf("%s skipped", task.ID)
}

// Snapshot returns the current progress.
func (r *Reporter) Snapshot() Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := Info{
		TotalTasks:  r.total,
		FailedTasks: r.failed,
		ElapsedTime: time.Since(r.startTime),
		Sections:    make(map[string]SectionProgress, len(r.sections)),
	}
	for _, id := range r.order {
		s := r.sections[id]
		info.Sections[id] = *s
		switch s.Phase {
		case PhaseDone, PhaseResumed:
			info.CompletedTasks++
		case PhaseDrafting, PhaseRetrying:
			info.RunningTasks = append(info.RunningTasks, id)
		}
	}
	sort.Strings(info.RunningTasks)
	info.EstimatedTimeLeft = CalculateETA(info.CompletedTasks, info.TotalTasks, info.ElapsedTime)
	return info
}

// Report formats a progress snapshot on one or two lines.
func Report(info Info) string {
	var sb strings.Builder

	percentage := 0.0
	if info.TotalTasks > 0 {
		percentage = float64(info.CompletedTasks) / float64(info.TotalTasks) * 100
	}

	sb.WriteString(fmt.Sprintf("Progress: %d/%d sections completed (%.1f%%)",
		info.CompletedTasks, info.TotalTasks, percentage))
	if info.FailedTasks > 0 {
		sb.WriteString(fmt.Sprintf(", %d failed", info.FailedTasks))
	}
	sb.WriteString(fmt.Sprintf(" | Elapsed: %s", FormatDuration(info.ElapsedTime)))
	if info.EstimatedTimeLeft > 0 {
		sb.WriteString(fmt.Sprintf(" | ETA: %s", FormatDuration(info.EstimatedTimeLeft)))
	}

	if len(info.RunningTasks) > 0 {
		sb.WriteString(fmt.Sprintf("\n   Current: %s", strings.Join(info.RunningTasks, ", ")))
	}

	return sb.String()
}

// CalculateETA estimates time remaining based on current progress
func CalculateETA(completed, total int, elapsed time.Duration) time.Duration {
	if completed <= 0 || total <= 0 || completed >= total {
		return 0
	}

	averageTimePerTask := elapsed / time.Duration(completed)
	remainingTasks := total - completed
	return averageTimePerTask * time.Duration(remainingTasks)
}

// FormatDuration formats a duration in a user-friendly way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
