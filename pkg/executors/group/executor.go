// Package group provides the group step executor: nested sub-steps executed
// sequentially, in parallel or conditionally. Sub-steps go through the
// engine's full per-step pipeline via the StepRunner seam, so they get the
// same validation, security screening and interpolation as top-level steps.
package group

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/variables"
)

// Sub-execution modes.
const (
	ModeSequential  = "sequential"
	ModeParallel    = "parallel"
	ModeConditional = "conditional"
)

var (
	// ErrStepsMissing is returned when the config carries no sub-steps.
	ErrStepsMissing = errors.New("missing 'steps' in configuration")

	// ErrUnsupportedMode is returned for a mode outside the supported set.
	ErrUnsupportedMode = errors.New("unsupported group mode")

	// ErrRunnerUnavailable is returned when the execution context carries no
	// step runner to dispatch sub-steps through.
	ErrRunnerUnavailable = errors.New("step runner not available in execution context")
)

// Condition gates sub-steps in conditional mode.
type Condition struct {
	Predicate string
	Variable  string
}

// Executor runs one group of sub-steps.
type Executor struct {
	Steps           []models.StepDefinition
	Mode            string
	ContinueOnError bool
	Condition       Condition
}

// subResult pairs a sub-step with its outcome for the aggregated output.
type subResult struct {
	StepID  string                 `json:"step_id"`
	Skipped bool                   `json:"skipped,omitempty"`
	Result  models.ExecutionResult `json:"result"`
}

// NewExecutor builds the executor from a config. Sub-step configs stay
// uninterpolated here; each sub-step is interpolated at its own dispatch time
// so sequential writes remain visible to later siblings.
func NewExecutor(config map[string]any) (*Executor, error) {
	rawSteps, _ := config["steps"].([]any)
	if len(rawSteps) == 0 {
		return nil, ErrStepsMissing
	}

	steps := make([]models.StepDefinition, 0, len(rawSteps))

	for index, raw := range rawSteps {
		stepMap, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("step %d is not an object: %w", index, ErrStepsMissing)
		}

		steps = append(steps, decodeStep(stepMap))
	}

	mode, _ := config["mode"].(string)
	if mode == "" {
		mode = ModeSequential
	}

	if mode != ModeSequential && mode != ModeParallel && mode != ModeConditional {
		return nil, fmt.Errorf("%q: %w", mode, ErrUnsupportedMode)
	}

	continueOnError, _ := config["continue_on_error"].(bool)

	var condition Condition

	if rawCondition, ok := config["condition"].(map[string]any); ok {
		condition.Predicate, _ = rawCondition["predicate"].(string)
		condition.Variable, _ = rawCondition["variable"].(string)
	}

	if condition.Predicate == "" {
		condition.Predicate = "all"
	}

	return &Executor{
		Steps:           steps,
		Mode:            mode,
		ContinueOnError: continueOnError,
		Condition:       condition,
	}, nil
}

func decodeStep(stepMap map[string]any) models.StepDefinition {
	step := models.StepDefinition{Enabled: true}

	step.ID, _ = stepMap["id"].(string)
	step.Type, _ = stepMap["type"].(string)
	step.Title, _ = stepMap["title"].(string)

	if enabled, ok := stepMap["enabled"].(bool); ok {
		step.Enabled = enabled
	}

	step.Config, _ = stepMap["config"].(map[string]any)

	return step
}

// Execute dispatches the sub-steps per mode and aggregates their results. The
// group succeeds with zero failures, or with continue_on_error and at least
// one success.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	if execCtx.Runner == nil {
		return nil, ErrRunnerUnavailable
	}

	logger = logger.With("module", "group_executor", "mode", e.Mode, "steps", len(e.Steps))
	logger.DebugContext(ctx, "Group execution started")

	var results []subResult

	switch e.Mode {
	case ModeParallel:
		results = e.runParallel(ctx, execCtx)
	case ModeConditional:
		results = e.runConditional(ctx, execCtx)
	default:
		results = e.runSequential(ctx, execCtx)
	}

	succeeded, failed, skipped := tally(results)

	success := failed == 0
	if !success && e.ContinueOnError && succeeded > 0 {
		success = true
	}

	output := map[string]any{
		"mode":      e.Mode,
		"results":   results,
		"succeeded": succeeded,
		"failed":    failed,
		"skipped":   skipped,
	}

	if !success {
		messages := make([]string, 0, failed)

		for _, sub := range results {
			if !sub.Skipped && !sub.Result.Success {
				messages = append(messages, fmt.Sprintf("%s: %s", sub.StepID, sub.Result.Error))
			}
		}

		return output, fmt.Errorf("group failed: %s", strings.Join(messages, "; "))
	}

	logger.DebugContext(ctx, "Group execution completed", "succeeded", succeeded, "failed", failed, "skipped", skipped)

	return output, nil
}

func (e *Executor) runSequential(ctx context.Context, execCtx *models.ExecutionContext) []subResult {
	results := make([]subResult, 0, len(e.Steps))

	for _, step := range e.Steps {
		if !step.Enabled || !execCtx.Runner.SupportsStepType(step.Type) {
			results = append(results, subResult{StepID: step.ID, Skipped: true})

			continue
		}

		result := execCtx.Runner.RunStep(ctx, step, execCtx)
		results = append(results, subResult{StepID: step.ID, Result: result})

		if !result.Success && !e.ContinueOnError {
			break
		}
	}

	return results
}

// runParallel fans out one goroutine per branch with an isolated variable
// fork, waits for all and merges the forks back last-writer-wins. A failing
// branch never cancels its siblings.
func (e *Executor) runParallel(ctx context.Context, execCtx *models.ExecutionContext) []subResult {
	results := make([]subResult, len(e.Steps))
	forks := make([]*models.ExecutionContext, len(e.Steps))

	var wg sync.WaitGroup

	for index, step := range e.Steps {
		if !step.Enabled || !execCtx.Runner.SupportsStepType(step.Type) {
			results[index] = subResult{StepID: step.ID, Skipped: true}

			continue
		}

		branch := execCtx.Fork()
		forks[index] = branch

		wg.Add(1)

		go func(index int, step models.StepDefinition, branch *models.ExecutionContext) {
			defer wg.Done()

			results[index] = subResult{
				StepID: step.ID,
				Result: execCtx.Runner.RunStep(ctx, step, branch),
			}
		}(index, step, branch)
	}

	wg.Wait()

	for _, branch := range forks {
		if branch != nil && execCtx.Vars != nil {
			execCtx.Vars.MergeFrom(branch.Vars)
		}
	}

	return results
}

// runConditional gates each sub-step on an aggregate over the prior
// sub-results: all / any / none over prior successes, or custom truthiness of
// a named variable. Skipped priors count neither way.
func (e *Executor) runConditional(ctx context.Context, execCtx *models.ExecutionContext) []subResult {
	results := make([]subResult, 0, len(e.Steps))

	for _, step := range e.Steps {
		eligible := e.eligible(ctx, execCtx, results)

		if !eligible || !step.Enabled || !execCtx.Runner.SupportsStepType(step.Type) {
			results = append(results, subResult{StepID: step.ID, Skipped: true})

			continue
		}

		result := execCtx.Runner.RunStep(ctx, step, execCtx)
		results = append(results, subResult{StepID: step.ID, Result: result})
	}

	return results
}

func (e *Executor) eligible(ctx context.Context, execCtx *models.ExecutionContext, prior []subResult) bool {
	switch e.Condition.Predicate {
	case "any":
		for _, sub := range prior {
			if !sub.Skipped && sub.Result.Success {
				return true
			}
		}

		return false
	case "none":
		for _, sub := range prior {
			if !sub.Skipped && sub.Result.Success {
				return false
			}
		}

		return true
	case "custom":
		if execCtx.Vars == nil {
			return false
		}

		stored, ok := execCtx.Vars.Get(ctx, e.Condition.Variable)
		if !ok {
			return false
		}

		return truthy(stored.Value)
	default: // all
		for _, sub := range prior {
			if !sub.Skipped && !sub.Result.Success {
				return false
			}
		}

		return true
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		lowered := strings.ToLower(strings.TrimSpace(v))

		return lowered != "" && lowered != "false" && lowered != "0"
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return variables.Stringify(v) != ""
	}
}

func tally(results []subResult) (succeeded, failed, skipped int) {
	for _, sub := range results {
		switch {
		case sub.Skipped:
			skipped++
		case sub.Result.Success:
			succeeded++
		default:
			failed++
		}
	}

	return succeeded, failed, skipped
}

// Factory creates group executors.
type Factory struct{}

// NewFactory returns the group executor factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeGroup
}
