// Package engine drives automation execution: the run-level state machine,
// the per-step pipeline (validate, screen, confirm, interpolate, dispatch)
// and result aggregation. One engine instance runs one automation at a time;
// concurrency across automations takes separate instances.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/stepflow/pkg/eventbus"
	"github.com/dukex/stepflow/pkg/events"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/otelhelper"
	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/dukex/stepflow/pkg/registry"
	"github.com/dukex/stepflow/pkg/security"
	"github.com/dukex/stepflow/pkg/validation"
	"github.com/dukex/stepflow/pkg/variables"
)

// auditTimeout bounds the fire-and-forget audit write after a run finishes.
const auditTimeout = 5 * time.Second

// ErrEngineBusy is returned through the busy result when Execute is called
// while a run is already in flight.
var ErrEngineBusy = errors.New("engine already has an execution in flight")

// Engine orchestrates one automation run at a time.
type Engine struct {
	logger    *slog.Logger
	registry  *registry.Registry
	validator *validation.StepValidator
	gate      *security.Gate

	globals   variables.GlobalStore
	publisher eventbus.EventPublisher
	auditLog  persistence.ExecutionLog
	tracer    trace.Tracer

	executing atomic.Bool
	cancelled atomic.Bool

	cancelMu     sync.Mutex
	cancelReason string
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithGlobalStore attaches a backend for global-scoped variables.
func WithGlobalStore(globals variables.GlobalStore) Option {
	return func(e *Engine) { e.globals = globals }
}

// WithEventPublisher attaches a lifecycle event publisher.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) { e.publisher = publisher }
}

// WithExecutionLog attaches the audit trail.
func WithExecutionLog(auditLog persistence.ExecutionLog) Option {
	return func(e *Engine) { e.auditLog = auditLog }
}

// WithTracer attaches distributed tracing.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// New creates an engine over the given registry, validator and gate.
func New(logger *slog.Logger, reg *registry.Registry, validator *validation.StepValidator, gate *security.Gate, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		logger:    logger.With("module", "engine"),
		registry:  reg,
		validator: validator,
		gate:      gate,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Cancel requests a cooperative stop. It takes effect at the next step
// boundary; an in-flight executor call runs to completion.
func (e *Engine) Cancel(reason string) {
	e.cancelMu.Lock()
	e.cancelReason = reason
	e.cancelMu.Unlock()

	e.cancelled.Store(true)

	e.logger.Info("Execution cancellation requested", "reason", reason)
}

func (e *Engine) cancellationReason() string {
	e.cancelMu.Lock()
	defer e.cancelMu.Unlock()

	if e.cancelReason == "" {
		return "cancelled by caller"
	}

	return e.cancelReason
}

// Execute runs the whole automation and always returns a structured result.
// Concurrent calls on one instance fail fast with a busy result.
func (e *Engine) Execute(ctx context.Context, definition *models.AutomationDefinition, inputs map[string]any, options models.RunOptions) models.ExecutionResult {
	started := time.Now()

	if !e.executing.CompareAndSwap(false, true) {
		return models.Failure(models.ErrorKindBusy, ErrEngineBusy.Error())
	}

	defer e.executing.Store(false)
	e.cancelled.Store(false)

	executionID := "exec-" + uuid.New().String()[:8]
	totalSteps := definition.EnabledStepCount()

	logger := e.logger.With("automation_id", definition.ID, "execution_id", executionID)

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "automation.execute",
			attribute.String(otelhelper.AutomationIDKey, definition.ID),
			attribute.String(otelhelper.ExecutionIDKey, executionID))
		defer span.End()
	}

	fail := func(kind models.ErrorKind, message string) models.ExecutionResult {
		result := models.Failure(kind, message)
		result.ExecutionTime = time.Since(started).Milliseconds()
		result.TotalSteps = totalSteps

		return result
	}

	result := e.run(ctx, logger, definition, inputs, options, executionID, totalSteps, started, fail)

	if !result.Success {
		otelhelper.RecordFailure(trace.SpanFromContext(ctx), string(result.ErrorKind), result.Error)
	}

	e.record(ctx, definition, executionID, options.UserID, started, result)
	e.publishTerminal(ctx, definition.ID, executionID, result)

	return result
}

// run holds everything between the busy gate and the terminal bookkeeping so
// panic recovery and teardown cover exactly the executing region.
func (e *Engine) run(ctx context.Context, logger *slog.Logger, definition *models.AutomationDefinition, inputs map[string]any, options models.RunOptions, executionID string, totalSteps int, started time.Time, fail func(models.ErrorKind, string) models.ExecutionResult) (result models.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Execution panicked", "panic", r)
			result = fail(models.ErrorKindInternal, fmt.Sprintf("internal error: %v", r))
		}
	}()

	logger.Info("Starting automation execution", "total_steps", totalSteps)

	if err := definition.CheckShape(); err != nil {
		return fail(models.ErrorKindValidation, err.Error())
	}

	if messages := e.validateSteps(definition); len(messages) > 0 {
		return fail(models.ErrorKindValidation, strings.Join(messages, "; "))
	}

	verdict := e.gate.ValidateAutomation(definition)
	if !verdict.IsValid {
		return fail(models.ErrorKindSecurity, strings.Join(verdict.Errors, "; "))
	}

	store := variables.NewStore(logger, e.globals)
	store.InitializeExecution(ctx, inputs, definition.Variables)

	// Teardown on every exit path, including panics. A leaked execution
	// scope would bleed into the next run on this instance.
	defer store.ClearExecutionScope()

	execCtx := &models.ExecutionContext{
		ID:             executionID,
		AutomationID:   definition.ID,
		UserID:         options.UserID,
		StartedAt:      started,
		Depth:          options.Depth,
		Vars:           store,
		Logger:         logger,
		OnStepStart:    options.OnStepStart,
		OnStepComplete: options.OnStepComplete,
		OnStepError:    options.OnStepError,
	}
	execCtx.Runner = &stepRunner{engine: e}

	e.publish(ctx, definition.ID, events.ExecutionStarted{
		BaseEvent:       events.NewBaseEvent(events.ExecutionStartedEvent, definition.ID, executionID),
		AutomationTitle: definition.Title,
		TotalSteps:      totalSteps,
		Inputs:          inputs,
		Initiator:       options.UserID,
	})

	stepsCompleted := 0
	stepResults := make(map[string]any, len(definition.Steps))

	for index, step := range definition.Steps {
		if e.cancelled.Load() {
			result := fail(models.ErrorKindCancelled, e.cancellationReason())
			result.StepsCompleted = stepsCompleted

			return result
		}

		if err := ctx.Err(); err != nil {
			result := fail(models.ErrorKindCancelled, err.Error())
			result.StepsCompleted = stepsCompleted

			return result
		}

		if !step.Enabled {
			logger.Debug("Step is disabled, skipping", "step_id", step.ID, "step_index", index)
			e.publishStepSkipped(ctx, definition.ID, executionID, index, step, "disabled")

			continue
		}

		if execCtx.OnStepStart != nil {
			execCtx.OnStepStart(index, step)
		}

		e.publish(ctx, definition.ID, events.StepStarted{
			BaseEvent: events.NewBaseEvent(events.StepStartedEvent, definition.ID, executionID),
			StepID:    step.ID,
			StepType:  step.Type,
			StepIndex: index,
		})

		stepResult := e.runStep(ctx, index, step, execCtx)

		if !stepResult.Success {
			if execCtx.OnStepError != nil {
				execCtx.OnStepError(index, stepResult.Error)
			}

			e.publish(ctx, definition.ID, events.StepFailed{
				BaseEvent: events.NewBaseEvent(events.StepFailedEvent, definition.ID, executionID),
				StepID:    step.ID,
				StepType:  step.Type,
				StepIndex: index,
				Error:     stepResult.Error,
				ErrorKind: string(stepResult.ErrorKind),
			})

			failedStep := index
			result := fail(stepResult.ErrorKind, fmt.Sprintf("step %q failed: %s", step.ID, stepResult.Error))
			result.StepsCompleted = stepsCompleted
			result.FailedStep = &failedStep

			return result
		}

		stepsCompleted++
		stepResults[step.ID] = stepResult.Output

		if execCtx.OnStepComplete != nil {
			execCtx.OnStepComplete(index, stepResult)
		}

		e.publish(ctx, definition.ID, events.StepCompleted{
			BaseEvent:  events.NewBaseEvent(events.StepCompletedEvent, definition.ID, executionID),
			StepID:     step.ID,
			StepType:   step.Type,
			StepIndex:  index,
			DurationMs: stepResult.ExecutionTime,
			Output:     stepResult.Output,
		})
	}

	logger.Info("Automation execution completed", "steps_completed", stepsCompleted)

	// Snapshot before the deferred teardown wipes the scope.
	return models.ExecutionResult{
		Success:        true,
		ExecutionTime:  time.Since(started).Milliseconds(),
		StepsCompleted: stepsCompleted,
		TotalSteps:     totalSteps,
		Output: map[string]any{
			"variables":    store.All(),
			"step_results": stepResults,
		},
	}
}

// validateSteps screens every enabled step's type and config before any
// executor runs. Types the schema validator does not know but the registry
// supports skip schema validation (custom registrations).
func (e *Engine) validateSteps(definition *models.AutomationDefinition) []string {
	var messages []string

	for _, step := range definition.Steps {
		if !step.Enabled {
			continue
		}

		if !e.registry.IsStepTypeSupported(step.Type) {
			messages = append(messages, fmt.Sprintf("step %q: unknown step type %q", step.ID, step.Type))

			continue
		}

		if !e.validator.Supports(step.Type) {
			continue
		}

		for _, issue := range e.validator.Validate(step.Type, step.Config) {
			messages = append(messages, fmt.Sprintf("step %q: %s: %s", step.ID, issue.Field, issue.Message))
		}
	}

	return messages
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.Warn("Failed to publish lifecycle event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) publishStepSkipped(ctx context.Context, automationID, executionID string, index int, step models.StepDefinition, reason string) {
	e.publish(ctx, automationID, events.StepSkipped{
		BaseEvent: events.NewBaseEvent(events.StepSkippedEvent, automationID, executionID),
		StepID:    step.ID,
		StepType:  step.Type,
		StepIndex: index,
		Reason:    reason,
	})
}

func (e *Engine) publishTerminal(ctx context.Context, automationID, executionID string, result models.ExecutionResult) {
	switch {
	case result.Success:
		finalVariables, _ := outputVariables(result.Output)

		e.publish(ctx, automationID, events.ExecutionCompleted{
			BaseEvent:      events.NewBaseEvent(events.ExecutionCompletedEvent, automationID, executionID),
			DurationMs:     result.ExecutionTime,
			StepsCompleted: result.StepsCompleted,
			FinalVariables: finalVariables,
		})
	case result.ErrorKind == models.ErrorKindCancelled:
		e.publish(ctx, automationID, events.ExecutionCancelled{
			BaseEvent:      events.NewBaseEvent(events.ExecutionCancelledEvent, automationID, executionID),
			DurationMs:     result.ExecutionTime,
			Reason:         result.Error,
			StepsCompleted: result.StepsCompleted,
		})
	default:
		e.publish(ctx, automationID, events.ExecutionFailed{
			BaseEvent:      events.NewBaseEvent(events.ExecutionFailedEvent, automationID, executionID),
			DurationMs:     result.ExecutionTime,
			Error:          result.Error,
			ErrorKind:      string(result.ErrorKind),
			StepsCompleted: result.StepsCompleted,
			FailedStep:     result.FailedStep,
		})
	}
}

func outputVariables(output any) (map[string]any, bool) {
	payload, ok := output.(map[string]any)
	if !ok {
		return nil, false
	}

	finalVariables, ok := payload["variables"].(map[string]any)

	return finalVariables, ok
}

// record appends the audit entry without blocking the caller; the run is
// already over when this fires.
func (e *Engine) record(ctx context.Context, definition *models.AutomationDefinition, executionID, userID string, started time.Time, result models.ExecutionResult) {
	if e.auditLog == nil {
		return
	}

	record := &persistence.ExecutionRecord{
		ID:             executionID,
		AutomationID:   definition.ID,
		UserID:         userID,
		Success:        result.Success,
		Error:          result.Error,
		ErrorKind:      string(result.ErrorKind),
		StartedAt:      started.UTC(),
		FinishedAt:     time.Now().UTC(),
		DurationMs:     result.ExecutionTime,
		StepsCompleted: result.StepsCompleted,
		TotalSteps:     result.TotalSteps,
		FailedStep:     result.FailedStep,
	}

	go func() {
		auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
		defer cancel()

		if err := e.auditLog.AppendExecution(auditCtx, record); err != nil {
			e.logger.Warn("Failed to append execution record", "execution_id", executionID, "error", err)
		}
	}()
}
