// Package externalautomation provides the external_automation step executor:
// run another automation by id or name through a fresh runner instance.
//
// This is the one place recursion is load-bearing, so nesting depth is
// capped; an automation that reaches itself again keeps gaining depth until
// the guard trips.
package externalautomation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/variables"
)

const (
	defaultTimeout = 60 * time.Second
	maxTimeout     = 300 * time.Second

	// MaxDepth caps nested external-automation hops.
	MaxDepth = 5
)

var (
	// ErrReferenceMissing is returned when neither automation_id nor
	// automation_name is configured.
	ErrReferenceMissing = errors.New("missing 'automation_id' or 'automation_name' in configuration")

	// ErrFetcherUnavailable is returned when no AutomationFetcher was wired
	// in.
	ErrFetcherUnavailable = errors.New("automation fetcher not available")

	// ErrRunnerUnavailable is returned when no runner factory was wired in.
	ErrRunnerUnavailable = errors.New("runner factory not available")

	// ErrDepthExceeded is returned when nesting goes past MaxDepth.
	ErrDepthExceeded = errors.New("maximum automation nesting depth exceeded")
)

// Executor runs one nested automation.
type Executor struct {
	AutomationID      string
	AutomationName    string
	WaitForCompletion bool
	Timeout           time.Duration
	OutputVariable    string

	fetcher       protocol.AutomationFetcher
	runnerFactory protocol.RunnerFactory
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any, fetcher protocol.AutomationFetcher, runnerFactory protocol.RunnerFactory) (*Executor, error) {
	automationID, _ := config["automation_id"].(string)
	automationName, _ := config["automation_name"].(string)

	if automationID == "" && automationName == "" {
		return nil, ErrReferenceMissing
	}

	waitForCompletion := true
	if wait, ok := config["wait_for_completion"].(bool); ok {
		waitForCompletion = wait
	}

	timeout := defaultTimeout

	if seconds, ok := config["timeout_seconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
		if timeout > maxTimeout {
			timeout = maxTimeout
		}
	}

	outputVariable, _ := config["output_variable"].(string)

	return &Executor{
		AutomationID:      automationID,
		AutomationName:    automationName,
		WaitForCompletion: waitForCompletion,
		Timeout:           timeout,
		OutputVariable:    outputVariable,
		fetcher:           fetcher,
		runnerFactory:     runnerFactory,
	}, nil
}

// Execute resolves the target definition and runs it on a fresh runner. With
// wait_for_completion the nested run races a timer; without it the run is
// detached and the step reports only that it started.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	if e.fetcher == nil {
		return nil, ErrFetcherUnavailable
	}

	if e.runnerFactory == nil {
		return nil, ErrRunnerUnavailable
	}

	if execCtx.Depth >= MaxDepth {
		return nil, fmt.Errorf("depth %d: %w", execCtx.Depth, ErrDepthExceeded)
	}

	logger = logger.With("module", "external_automation_executor")

	definition, err := e.resolve(ctx)
	if err != nil {
		return nil, err
	}

	inputs := execCtx.Vars.All()
	options := models.RunOptions{
		UserID: execCtx.UserID,
		Depth:  execCtx.Depth + 1,
	}

	runner := e.runnerFactory()

	if !e.WaitForCompletion {
		// Detached: side effects continue, the parent does not observe them.
		go func() {
			detachedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), maxTimeout)
			defer cancel()

			runner.Execute(detachedCtx, definition, inputs, options)
		}()

		logger.DebugContext(ctx, "Nested automation started asynchronously", "automation_id", definition.ID)

		return map[string]any{"automation_id": definition.ID, "started": true, "waited": false}, nil
	}

	done := make(chan models.ExecutionResult, 1)

	go func() {
		done <- runner.Execute(ctx, definition, inputs, options)
	}()

	timer := time.NewTimer(e.Timeout)
	defer timer.Stop()

	var result models.ExecutionResult

	select {
	case result = <-done:
	case <-timer.C:
		// The nested run keeps going; only the wait gives up.
		return nil, fmt.Errorf("nested automation %s after %v: %w", definition.ID, e.Timeout, protocol.ErrTimeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("nested automation interrupted: %w", ctx.Err())
	}

	if e.OutputVariable != "" {
		err = execCtx.Vars.Set(ctx, e.OutputVariable, result.Output, variables.SourceAutomation, variables.ScopeExecution)
		if err != nil {
			return nil, fmt.Errorf("failed to store nested result: %w", err)
		}
	}

	if !result.Success {
		return nil, fmt.Errorf("nested automation %s failed: %s", definition.ID, result.Error)
	}

	logger.DebugContext(ctx, "Nested automation completed", "automation_id", definition.ID,
		"steps_completed", result.StepsCompleted)

	return map[string]any{
		"automation_id":   definition.ID,
		"success":         result.Success,
		"steps_completed": result.StepsCompleted,
		"output":          result.Output,
	}, nil
}

func (e *Executor) resolve(ctx context.Context) (*models.AutomationDefinition, error) {
	if e.AutomationID != "" {
		definition, err := e.fetcher.AutomationByID(ctx, e.AutomationID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch automation %q: %w", e.AutomationID, err)
		}

		return definition, nil
	}

	definition, err := e.fetcher.AutomationByName(ctx, e.AutomationName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch automation named %q: %w", e.AutomationName, err)
	}

	return definition, nil
}

// Factory creates external_automation executors.
type Factory struct {
	fetcher       protocol.AutomationFetcher
	runnerFactory protocol.RunnerFactory
}

// NewFactory returns an external_automation executor factory bound to the
// given fetcher and runner factory.
func NewFactory(fetcher protocol.AutomationFetcher, runnerFactory protocol.RunnerFactory) *Factory {
	return &Factory{fetcher: fetcher, runnerFactory: runnerFactory}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config, f.fetcher, f.runnerFactory)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeExternalAutomation
}
