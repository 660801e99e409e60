package models

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/stepflow/pkg/variables"
)

// ExecutionContext is the mutable bag threaded through one run: the variable
// store, correlation info, lifecycle callbacks and the runner seam nested
// executors (group, external_automation) dispatch through. It is owned by
// exactly one execution.
type ExecutionContext struct {
	ID           string    `json:"id"`
	AutomationID string    `json:"automation_id"`
	UserID       string    `json:"user_id,omitempty"`
	StartedAt    time.Time `json:"started_at"`

	// Depth counts nested external-automation hops, guarding against
	// unbounded recursive self-reference.
	Depth int `json:"depth,omitempty"`

	Vars   *variables.Store `json:"-"`
	Logger *slog.Logger     `json:"-"`
	Runner StepRunner       `json:"-"`

	OnStepStart    func(index int, step StepDefinition)       `json:"-"`
	OnStepComplete func(index int, result ExecutionResult)    `json:"-"`
	OnStepError    func(index int, errorMessage string)       `json:"-"`
}

// StepRunner executes a single step through the engine's full per-step
// pipeline (validation, security screening, interpolation, dispatch). Group
// sub-execution goes through this seam instead of talking to executors
// directly.
type StepRunner interface {
	RunStep(ctx context.Context, step StepDefinition, execCtx *ExecutionContext) ExecutionResult
	SupportsStepType(stepType string) bool
}

// Fork returns an isolated copy for a parallel branch: forked variable scope,
// no lifecycle callbacks (those are indexed against the top-level step list).
func (c *ExecutionContext) Fork() *ExecutionContext {
	forked := &ExecutionContext{
		ID:           c.ID,
		AutomationID: c.AutomationID,
		UserID:       c.UserID,
		StartedAt:    c.StartedAt,
		Depth:        c.Depth,
		Logger:       c.Logger,
		Runner:       c.Runner,
	}

	if c.Vars != nil {
		forked.Vars = c.Vars.Fork()
	}

	return forked
}

// RunOptions carries the caller-supplied parts of an execution context.
type RunOptions struct {
	UserID string

	// Depth is the nesting level for runs started by external_automation.
	Depth int

	OnStepStart    func(index int, step StepDefinition)
	OnStepComplete func(index int, result ExecutionResult)
	OnStepError    func(index int, errorMessage string)
}

// ExecutionResult is the structured outcome of one execute call, produced
// once at the automation level and once per executor invocation. Never
// mutated after return.
type ExecutionResult struct {
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	ErrorKind      ErrorKind `json:"error_kind,omitempty"`
	ExecutionTime  int64     `json:"execution_time_ms"`
	StepsCompleted int       `json:"steps_completed"`
	TotalSteps     int       `json:"total_steps"`
	FailedStep     *int      `json:"failed_step,omitempty"`
	Output         any       `json:"output,omitempty"`
}
