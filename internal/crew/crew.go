// Package crew wires agents, tasks, the result cache and the checkpoint store
// into the article pipeline.
package crew

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/enriqueman/articlecrew/internal/agent"
	"github.com/enriqueman/articlecrew/internal/cache"
	"github.com/enriqueman/articlecrew/internal/checkpoint"
	"github.com/enriqueman/articlecrew/internal/config"
	apperrors "github.com/enriqueman/articlecrew/internal/errors"
	"github.com/enriqueman/articlecrew/internal/llm"
	"github.com/enriqueman/articlecrew/internal/logger"
	"github.com/enriqueman/articlecrew/internal/taskmanager"
)

// Process is how tasks are scheduled.
type Process string

const (
	ProcessSequential Process = "sequential"
	ProcessParallel   Process = "parallel"
)

// Options configures a Crew. Only Client is required.
type Options struct {
	Client      llm.Client
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int

	Tokenizer     *llm.Tokenizer
	ContextBudget int
	// SearchTool is attached to agents that use search; nil disables it.
	SearchTool agent.Tool

	Cache cache.Cache
	Store *checkpoint.Store

	MaxParallel int
	TaskTimeout time.Duration
	Retry       *taskmanager.RetryPolicy
	Observers   []taskmanager.Observer

	// Agents and Tasks default to the article pipeline.
	Agents []AgentDef
	Tasks  []TaskDef
}

// Crew runs a fixed set of tasks with a fixed set of agents.
type Crew struct {
	opts       Options
	agents     map[string]*agent.Agent
	agentOrder []string
	tasks      []TaskDef
}

// New builds a crew and checks that every task has an agent.
func New(opts Options) (*Crew, error) {
	if opts.Client == nil {
		return nil, apperrors.NewConfigurationError(apperrors.CodeConfigInvalid,
			"Crew requires an LLM client", "Crew setup")
	}
	if len(opts.Agents) == 0 {
		opts.Agents = ArticleAgents
	}
	if len(opts.Tasks) == 0 {
		opts.Tasks = ArticleTasks
	}

	c := &Crew{
		opts:   opts,
		agents: make(map[string]*agent.Agent, len(opts.Agents)),
		tasks:  opts.Tasks,
	}

	for _, def := range opts.Agents {
		a := &agent.Agent{
			Name:          def.Name,
			Role:          def.Role,
			Goal:          def.Goal,
			Backstory:     def.Backstory,
			Model:         opts.Model,
			Temperature:   opts.Temperature,
			MaxTokens:     opts.MaxTokens,
			Client:        opts.Client,
			Tokenizer:     opts.Tokenizer,
			ContextBudget: opts.ContextBudget,
		}
		if def.UsesSearch && opts.SearchTool != nil {
			a.Tools = append(a.Tools, opts.SearchTool)
		}
		c.agents[def.Name] = a
		c.agentOrder = append(c.agentOrder, def.Name)
	}

	for _, def := range c.tasks {
		if _, ok := c.agents[def.Agent]; !ok {
			return nil, apperrors.NewGraphValidationError(
				fmt.Sprintf("task '%s' uses unknown agent '%s'", def.ID, def.Agent), nil)
		}
	}

	return c, nil
}

// Process reports whether independent tasks run concurrently.
func (c *Crew) Process() Process {
	if c.opts.MaxParallel > 1 {
		return ProcessParallel
	}
	return ProcessSequential
}

// Plan is the execution plan of the crew.
type Plan struct {
	Order  []string   `json:"order"`
	Levels [][]string `json:"levels"`
	Tasks  []TaskDef  `json:"tasks"`
}

// Plan returns the execution order and concurrency levels without running.
func (c *Crew) Plan() (*Plan, error) {
	wf, err := c.workflow(config.DefaultTopic, newRunStats())
	if err != nil {
		return nil, err
	}
	order, err := wf.Order()
	if err != nil {
		return nil, err
	}
	levels, err := wf.Levels()
	if err != nil {
		return nil, err
	}
	return &Plan{Order: order, Levels: levels, Tasks: c.tasks}, nil
}

// Run generates an article on topic. A blank topic uses the default. When a
// store is configured the run is checkpointed and can be resumed. The result
// is returned even when the run fails, carrying whatever was produced.
func (c *Crew) Run(ctx context.Context, topic string) (*Result, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = config.DefaultTopic
	}

	var runID string
	if c.opts.Store != nil {
		id, err := c.opts.Store.CreateRun(ctx, topic, c.opts.Client.Name())
		if err != nil {
			return nil, err
		}
		runID = id
	}

	return c.execute(ctx, topic, runID, nil)
}

// Resume continues a checkpointed run, skipping tasks whose output was saved.
func (c *Crew) Resume(ctx context.Context, runID string) (*Result, error) {
	if c.opts.Store == nil {
		return nil, apperrors.NewConfigurationError(apperrors.CodeConfigInvalid,
			"Resuming requires the checkpoint store", "Resume run").
			WithTroubleshooting("Enable the store in the config file or pass --store")
	}

	run, err := c.opts.Store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	outputs, err := c.opts.Store.LoadOutputs(ctx, runID)
	if err != nil {
		return nil, err
	}

	logger.User.Resumef("Resuming run %s (%d of %d sections saved)", runID, len(outputs), len(c.tasks))
	return c.execute(ctx, run.Topic, runID, outputs)
}

func (c *Crew) execute(ctx context.Context, topic, runID string, saved map[string]string) (*Result, error) {
	stats := newRunStats()
	wf, err := c.workflow(topic, stats)
	if err != nil {
		return nil, err
	}

	shared := taskmanager.NewSharedContext()
	shared.Set("topic", topic)
	for id, out := range saved {
		if _, ok := wf.Tasks[id]; ok {
			shared.SetOutput(id, out)
		}
	}

	observers := append([]taskmanager.Observer(nil), c.opts.Observers...)
	if c.opts.Store != nil && runID != "" {
		observers = append(observers, &checkpointObserver{ctx: ctx, store: c.opts.Store, runID: runID})
	}

	logger.User.Starting(fmt.Sprintf("Generating article on %q (%d tasks, %s)", topic, len(c.tasks), c.Process()))
	logger.Op.WithFields(map[string]interface{}{
		"run_id":   runID,
		"provider": c.opts.Client.Name(),
		"parallel": c.opts.MaxParallel,
		"resumed":  len(saved),
	}).Info("Pipeline run started")

	report, runErr := wf.Run(ctx, shared, taskmanager.ExecuteOptions{
		MaxParallel: c.opts.MaxParallel,
		TaskTimeout: c.opts.TaskTimeout,
		Retry:       c.opts.Retry,
		Observers:   observers,
	})

	result := c.buildResult(topic, runID, shared, report, stats, runErr)
	c.finishRun(ctx, runID, runErr)

	logger.Op.WithFields(map[string]interface{}{
		"run_id":        runID,
		"success":       result.Success,
		"completed":     result.Stats.Completed,
		"cached":        result.Stats.Cached,
		"input_tokens":  result.Stats.InputTokens,
		"output_tokens": result.Stats.OutputTokens,
		"duration":      result.Stats.Duration.String(),
	}).Info("Pipeline run finished")

	return result, runErr
}

func (c *Crew) finishRun(ctx context.Context, runID string, runErr error) {
	if c.opts.Store == nil || runID == "" {
		return
	}
	status, msg := checkpoint.StatusCompleted, ""
	if runErr != nil {
		status, msg = checkpoint.StatusFailed, apperrors.DisplayErrorSummary(runErr)
	}
	if err := c.opts.Store.MarkRun(context.WithoutCancel(ctx), runID, status, msg); err != nil {
		logger.Op.WithFields(map[string]interface{}{
			"run_id": runID,
			"error":  err.Error(),
		}).Warn("Failed to record run status")
	}
}

// workflow builds the task graph for topic.
func (c *Crew) workflow(topic string, stats *runStats) (*taskmanager.Workflow, error) {
	wb := taskmanager.NewWorkflowBuilder("article")
	for _, def := range c.tasks {
		wb.AddTask(&taskmanager.Task{
			ID:             def.ID,
			Description:    renderDescription(def.Description, topic),
			ExpectedOutput: def.ExpectedOutput,
			Agent:          def.Agent,
			DependsOn:      def.DependsOn,
			Handler:        c.handler(def, topic, stats),
		})
	}
	return wb.Build()
}

// handler performs one task with its agent, consulting the cache first.
func (c *Crew) handler(def TaskDef, topic string, stats *runStats) taskmanager.TaskFunc {
	a := c.agents[def.Agent]
	spec := agent.TaskSpec{
		ID:             def.ID,
		Description:    renderDescription(def.Description, topic),
		ExpectedOutput: def.ExpectedOutput,
		ToolInput:      topic,
	}

	return func(ctx context.Context, task *taskmanager.Task, shared *taskmanager.SharedContext) (string, error) {
		upstream := make([]string, 0, len(task.DependsOn))
		for _, dep := range task.DependsOn {
			out, _ := shared.Output(dep)
			upstream = append(upstream, out)
		}
		key := cache.Key(cache.KeyInput{
			TaskID:         def.ID,
			Agent:          a.Name,
			Model:          c.modelLabel(),
			Description:    spec.Description,
			ExpectedOutput: spec.ExpectedOutput,
			Upstream:       upstream,
		})

		if out, ok := c.cached(ctx, key, def.ID); ok {
			stats.markCached(def.ID)
			return out, nil
		}

		out, err := a.Perform(ctx, spec, shared.ContextFor(task.DependsOn))
		if err != nil {
			return "", err
		}
		stats.addUsage(out)

		if c.opts.Cache != nil {
			if err := c.opts.Cache.Set(ctx, key, out.Text); err != nil {
				logger.Op.WithFields(map[string]interface{}{
					"task":  def.ID,
					"error": err.Error(),
				}).Warn("Failed to cache task output")
			}
		}
		return out.Text, nil
	}
}

func (c *Crew) cached(ctx context.Context, key, taskID string) (string, bool) {
	if c.opts.Cache == nil {
		return "", false
	}
	out, ok, err := c.opts.Cache.Get(ctx, key)
	if err != nil {
		logger.Op.WithFields(map[string]interface{}{
			"task":  taskID,
			"error": err.Error(),
		}).Warn("Cache lookup failed, generating instead")
		return "", false
	}
	if ok {
		logger.User.Cachedf("%s served from cache", taskID)
	}
	return out, ok
}

func (c *Crew) modelLabel() string {
	return c.opts.Client.Name() + ":" + c.opts.Model
}

func renderDescription(desc, topic string) string {
	if strings.Contains(desc, "%[1]s") {
		return fmt.Sprintf(desc, topic)
	}
	return desc
}

// checkpointObserver saves each completed output as soon as it exists.
type checkpointObserver struct {
	ctx   context.Context
	store *checkpoint.Store
	runID string
}

func (o *checkpointObserver) OnTaskStart(*taskmanager.Task, int) {}

func (o *checkpointObserver) OnTaskSkip(*taskmanager.Task, *taskmanager.TaskResult) {}

func (o *checkpointObserver) OnTaskComplete(task *taskmanager.Task, result *taskmanager.TaskResult) {
	if result.Status != taskmanager.StatusCompleted {
		return
	}
	if err := o.store.SaveOutput(context.WithoutCancel(o.ctx), o.runID, task.ID, result.Output); err != nil {
		logger.Op.WithFields(map[string]interface{}{
			"run_id": o.runID,
			"task":   task.ID,
			"error":  err.Error(),
		}).Warn("Failed to checkpoint task output")
	}
}

// runStats collects counters the workflow report does not carry.
type runStats struct {
	mu           sync.Mutex
	cached       map[string]bool
	inputTokens  int
	outputTokens int
}

func newRunStats() *runStats {
	return &runStats{cached: make(map[string]bool)}
}

func (s *runStats) markCached(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached[taskID] = true
}

func (s *runStats) addUsage(out *agent.Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputTokens += out.InputTokens
	s.outputTokens += out.OutputTokens
}
