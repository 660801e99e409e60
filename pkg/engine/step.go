package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/otelhelper"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/registry"
)

// stepRunner exposes the engine's per-step pipeline through the
// models.StepRunner seam so group and nested executors dispatch sub-steps with
// the same validation, screening and interpolation as top-level steps.
type stepRunner struct {
	engine *Engine
}

func (r *stepRunner) RunStep(ctx context.Context, step models.StepDefinition, execCtx *models.ExecutionContext) models.ExecutionResult {
	return r.engine.runStep(ctx, -1, step, execCtx)
}

func (r *stepRunner) SupportsStepType(stepType string) bool {
	return r.engine.registry.IsStepTypeSupported(stepType)
}

// runStep takes one step through Pending, Validating, SecurityScreening,
// Interpolating and Dispatching. It is total: executor errors and panics come
// back as failed results, never propagate.
func (e *Engine) runStep(ctx context.Context, index int, step models.StepDefinition, execCtx *models.ExecutionContext) models.ExecutionResult {
	started := time.Now()
	logger := execCtx.Logger
	if logger == nil {
		logger = e.logger
	}
	logger = logger.With("step_id", step.ID, "step_type", step.Type)

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "step.execute",
			attribute.String(otelhelper.StepIDKey, step.ID),
			attribute.String(otelhelper.StepTypeKey, step.Type),
			attribute.Int(otelhelper.StepIndexKey, index))
		defer span.End()
	}

	if e.validator.Supports(step.Type) {
		if issues := e.validator.Validate(step.Type, step.Config); len(issues) > 0 {
			return models.Failure(models.ErrorKindValidation,
				fmt.Sprintf("%s: %s", issues[0].Field, issues[0].Message))
		}
	}

	verdict := e.gate.ValidateStep(step)
	if !verdict.IsValid {
		return models.Failure(models.ErrorKindSecurity, verdict.Errors[0])
	}

	if e.gate.RequiresConfirmation(step.Type) {
		title := step.Title
		if title == "" {
			title = step.Type
		}

		approved, err := e.gate.ShowSecurityWarning(ctx,
			"Confirm step: "+title,
			fmt.Sprintf("This automation wants to run a %s step.", step.Type),
			verdict.Warnings)
		if err != nil {
			return models.Failure(models.ErrorKindSecurity, err.Error())
		}

		if !approved {
			logger.InfoContext(ctx, "Step declined by user")

			return models.Failure(models.ErrorKindCancelled,
				fmt.Sprintf("user declined step %q", step.ID))
		}
	}

	config := execCtx.Vars.InterpolateConfig(ctx, step.Config)

	// Nested step definitions are interpolated at their own dispatch time;
	// a sequential sibling's write must stay visible to later sub-steps.
	if step.Type == models.StepTypeGroup {
		if rawSteps, ok := step.Config["steps"]; ok {
			config["steps"] = rawSteps
		}
	}

	executor, err := e.registry.CreateExecutor(step.Type, config)
	if err != nil {
		if errors.Is(err, registry.ErrExecutorNotRegistered) {
			return models.Failure(models.ErrorKindValidation, err.Error())
		}

		return models.Failure(models.ErrorKindValidation,
			fmt.Sprintf("invalid configuration: %s", err.Error()))
	}

	output, err := dispatch(ctx, executor, execCtx, logger)
	duration := time.Since(started).Milliseconds()

	if err != nil {
		logger.WarnContext(ctx, "Step failed", "error", err, "duration_ms", duration)

		result := models.Failure(classify(ctx, err), err.Error())
		result.ExecutionTime = duration

		otelhelper.RecordFailure(trace.SpanFromContext(ctx), string(result.ErrorKind), result.Error)

		return result
	}

	logger.DebugContext(ctx, "Step completed", "duration_ms", duration)

	return models.StepSuccess(output, duration)
}

// dispatch invokes the executor, converting a panic into an error at the step
// boundary.
func dispatch(ctx context.Context, executor protocol.Executor, execCtx *models.ExecutionContext, logger *slog.Logger) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = fmt.Errorf("executor panicked: %v", r)
		}
	}()

	return executor.Execute(ctx, execCtx, logger)
}

// classify maps an executor error to an error kind via sentinel matching.
func classify(ctx context.Context, err error) models.ErrorKind {
	switch {
	case errors.Is(err, protocol.ErrInteractionCancelled):
		return models.ErrorKindCancelled
	case errors.Is(err, protocol.ErrTimeout):
		return models.ErrorKindTimeout
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
		return models.ErrorKindCancelled
	default:
		return models.ErrorKindExecution
	}
}
