package taskmanager

import (
	"fmt"

	apperrors "github.com/enriqueman/articlecrew/internal/errors"
)

// WorkflowBuilder is a builder for creating Workflow instances with validation
type WorkflowBuilder struct {
	workflowID   string
	tasks        map[string]*Task
	order        []string
	dependencies map[string][]string // taskID -> list of dependency IDs
	errs         []error
}

// NewWorkflowBuilder creates a new WorkflowBuilder with the given workflow ID
func NewWorkflowBuilder(id string) *WorkflowBuilder {
	return &WorkflowBuilder{
		workflowID:   id,
		tasks:        make(map[string]*Task),
		dependencies: make(map[string][]string),
	}
}

// AddTask adds a task to the workflow being built. Dependencies already set
// on the task are kept; a repeated ID is reported by Build.
func (wb *WorkflowBuilder) AddTask(task *Task) *WorkflowBuilder {
	if task == nil || task.ID == "" {
		wb.errs = append(wb.errs, fmt.Errorf("task must have a non-empty ID"))
		return wb
	}
	if _, exists := wb.tasks[task.ID]; exists {
		wb.errs = append(wb.errs, fmt.Errorf("duplicate task ID '%s'", task.ID))
		return wb
	}
	if task.Handler == nil {
		wb.errs = append(wb.errs, fmt.Errorf("task '%s' has no handler", task.ID))
	}

	wb.tasks[task.ID] = task
	wb.order = append(wb.order, task.ID)
	for _, dep := range task.DependsOn {
		wb.addDependency(task.ID, dep)
	}
	return wb
}

// AddDependency defines a dependency between two tasks
func (wb *WorkflowBuilder) AddDependency(taskID string, dependencyID string) *WorkflowBuilder {
	wb.addDependency(taskID, dependencyID)
	return wb
}

func (wb *WorkflowBuilder) addDependency(taskID, dependencyID string) {
	for _, existing := range wb.dependencies[taskID] {
		if existing == dependencyID {
			return
		}
	}
	wb.dependencies[taskID] = append(wb.dependencies[taskID], dependencyID)
}

// Build validates and constructs the final Workflow object
func (wb *WorkflowBuilder) Build() (*Workflow, error) {
	if err := wb.validate(); err != nil {
		return nil, err
	}

	dag := wb.createDAG()
	if _, err := dag.TopologicalSort(); err != nil {
		return nil, apperrors.NewGraphValidationError("invalid workflow structure", err)
	}

	tasks := make(map[string]*Task, len(wb.tasks))
	for _, id := range wb.order {
		task := *wb.tasks[id]
		task.DependsOn = append([]string(nil), wb.dependencies[id]...)
		tasks[id] = &task
	}

	return &Workflow{
		ID:    wb.workflowID,
		Tasks: tasks,
		order: append([]string(nil), wb.order...),
	}, nil
}

// ShowOrder returns the planned execution order without building the full Workflow
func (wb *WorkflowBuilder) ShowOrder() ([]string, error) {
	if err := wb.validate(); err != nil {
		return nil, err
	}
	return wb.createDAG().TopologicalSort()
}

// Levels returns the planned concurrency levels without building the Workflow.
func (wb *WorkflowBuilder) Levels() ([][]string, error) {
	if err := wb.validate(); err != nil {
		return nil, err
	}
	return wb.createDAG().Levels()
}

func (wb *WorkflowBuilder) validate() error {
	if len(wb.errs) > 0 {
		return apperrors.NewGraphValidationError(wb.errs[0].Error(), nil)
	}
	return wb.validateDependencies()
}

// validateDependencies ensures all dependencies reference existing tasks
func (wb *WorkflowBuilder) validateDependencies() error {
	for _, taskID := range wb.order {
		for _, depID := range wb.dependencies[taskID] {
			if _, exists := wb.tasks[depID]; !exists {
				return apperrors.NewGraphValidationError(
					fmt.Sprintf("task '%s' depends on non-existent task '%s'", taskID, depID), nil)
			}
		}
	}
	for taskID := range wb.dependencies {
		if _, exists := wb.tasks[taskID]; !exists {
			return apperrors.NewGraphValidationError(
				fmt.Sprintf("dependency declared for unknown task '%s'", taskID), nil)
		}
	}
	return nil
}

// createDAG creates a DAG from the builder's current state
func (wb *WorkflowBuilder) createDAG() *DAG {
	dag := NewDAG()

	for _, taskID := range wb.order {
		dag.AddNode(taskID)
	}

	for _, taskID := range wb.order {
		for _, depID := range wb.dependencies[taskID] {
			dag.AddEdge(taskID, depID)
		}
	}

	return dag
}
