package engine

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/stepflow/pkg/eventbus"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/registry"
	"github.com/dukex/stepflow/pkg/security"
	"github.com/dukex/stepflow/pkg/validation"
)

// decliningInteraction answers Cancel to every confirmation.
type decliningInteraction struct{}

func (decliningInteraction) Confirm(_ context.Context, _, _ string, _ []string) (string, error) {
	return "Cancel", nil
}

func (decliningInteraction) PromptForText(_ context.Context, _, _, _ string) (string, error) {
	return "", protocol.ErrInteractionCancelled
}

// collectingPublisher records every published event type.
type collectingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *collectingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, string(event.GetType()))

	return nil
}

func (p *collectingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.events...)
}

// recordingLog captures the audit record written after a run.
type recordingLog struct {
	records chan *persistence.ExecutionRecord
}

func newRecordingLog() *recordingLog {
	return &recordingLog{records: make(chan *persistence.ExecutionRecord, 1)}
}

func (l *recordingLog) AppendExecution(_ context.Context, record *persistence.ExecutionRecord) error {
	l.records <- record

	return nil
}

func (l *recordingLog) ExecutionsByAutomation(_ context.Context, _ string, _ int) ([]*persistence.ExecutionRecord, error) {
	return nil, nil
}

// mapGlobals is an in-memory stand-in for the global variable backend.
type mapGlobals struct {
	mu     sync.Mutex
	values map[string]any
}

func newMapGlobals() *mapGlobals {
	return &mapGlobals{values: make(map[string]any)}
}

func (g *mapGlobals) Get(_ context.Context, name string) (any, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	value, ok := g.values[name]

	return value, ok, nil
}

func (g *mapGlobals) Set(_ context.Context, name string, value any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.values[name] = value

	return nil
}

// panicFactory registers a step type whose executor always panics.
type panicFactory struct{}

func (panicFactory) ID() string { return "explode" }

func (panicFactory) Create(_ map[string]any) (protocol.Executor, error) {
	return panicExecutor{}, nil
}

type panicExecutor struct{}

func (panicExecutor) Execute(_ context.Context, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
	panic("kaboom")
}

func newTestEngine(t *testing.T, interaction protocol.UserInteraction, opts ...Option) *Engine {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	stepValidator, err := validation.NewStepValidator()
	require.NoError(t, err)

	gate := security.NewGate(logger, interaction)

	reg := registry.NewRegistry(logger)
	registry.RegisterBuiltins(reg, registry.BuiltinDeps{Interaction: interaction})
	reg.RegisterExecutor(panicFactory{})

	return New(logger, reg, stepValidator, gate, opts...)
}

func step(id, stepType string, config map[string]any) models.StepDefinition {
	return models.StepDefinition{ID: id, Type: stepType, Enabled: true, Config: config}
}

func TestEngine_ExecuteSuccess(t *testing.T) {
	engine := newTestEngine(t, nil)

	definition := &models.AutomationDefinition{
		ID:    "auto-1",
		Title: "Pipeline",
		Steps: []models.StepDefinition{
			step("set", "variable", map[string]any{"name": "x", "value": "20"}),
			step("calc", "math", map[string]any{
				"operation": "add", "operand_a": "{{x}}", "operand_b": 22,
				"output_variable": "total",
			}),
		},
	}

	result := engine.Execute(context.Background(), definition, nil, models.RunOptions{})

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, 2, result.StepsCompleted)
	assert.Equal(t, 2, result.TotalSteps)
	assert.Nil(t, result.FailedStep)

	output, ok := result.Output.(map[string]any)
	require.True(t, ok)

	finalVariables, ok := output["variables"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 42.0, finalVariables["total"], 1e-9)

	stepResults, ok := output["step_results"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, stepResults, "set")
	assert.Contains(t, stepResults, "calc")
}

func TestEngine_VariableMathConditionChain(t *testing.T) {
	engine := newTestEngine(t, nil)

	definition := &models.AutomationDefinition{
		ID: "auto-chain",
		Steps: []models.StepDefinition{
			step("set", "variable", map[string]any{"name": "x", "value": "10"}),
			step("calc", "math", map[string]any{
				"operation": "multiply", "operand_a": "{{x}}", "operand_b": 5,
				"output_variable": "y",
			}),
			step("check", "condition", map[string]any{
				"variable": "y", "operator": "greater", "value": 40,
			}),
		},
	}

	result := engine.Execute(context.Background(), definition, nil, models.RunOptions{})

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, 3, result.StepsCompleted)

	output, ok := result.Output.(map[string]any)
	require.True(t, ok)

	finalVariables, ok := output["variables"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 50.0, finalVariables["y"], 1e-9)
	assert.Equal(t, true, finalVariables["conditionMet"])
}

func TestEngine_GlobalStoreBacksVariables(t *testing.T) {
	globals := newMapGlobals()
	globals.values["rate"] = float64(4)

	engine := newTestEngine(t, nil, WithGlobalStore(globals))

	definition := &models.AutomationDefinition{
		ID: "auto-globals",
		Steps: []models.StepDefinition{
			step("calc", "math", map[string]any{
				"operation": "multiply", "operand_a": "{{rate}}", "operand_b": 10,
				"output_variable": "total",
			}),
			step("save", "variable", map[string]any{
				"name": "rate", "value": "9", "scope": "global",
			}),
		},
	}

	result := engine.Execute(context.Background(), definition, nil, models.RunOptions{})

	require.True(t, result.Success, "error: %s", result.Error)

	output, ok := result.Output.(map[string]any)
	require.True(t, ok)

	finalVariables, ok := output["variables"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 40.0, finalVariables["total"], 1e-9)

	stored, found, err := globals.Get(context.Background(), "rate")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "9", stored)
}

func TestEngine_ExecutionScopeShadowsGlobal(t *testing.T) {
	globals := newMapGlobals()
	globals.values["rate"] = float64(4)

	engine := newTestEngine(t, nil, WithGlobalStore(globals))

	definition := &models.AutomationDefinition{
		ID: "auto-shadow",
		Steps: []models.StepDefinition{
			step("calc", "math", map[string]any{
				"operation": "multiply", "operand_a": "{{rate}}", "operand_b": 10,
				"output_variable": "total",
			}),
		},
	}

	result := engine.Execute(context.Background(), definition, map[string]any{"rate": 5}, models.RunOptions{})

	require.True(t, result.Success, "error: %s", result.Error)

	output, ok := result.Output.(map[string]any)
	require.True(t, ok)

	finalVariables, ok := output["variables"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 50.0, finalVariables["total"], 1e-9)
}

func TestEngine_InputsSeedVariables(t *testing.T) {
	engine := newTestEngine(t, nil)

	definition := &models.AutomationDefinition{
		ID: "auto-inputs",
		Steps: []models.StepDefinition{
			step("calc", "math", map[string]any{
				"operation": "multiply", "operand_a": "{{factor}}", "operand_b": 3,
			}),
		},
	}

	result := engine.Execute(context.Background(), definition, map[string]any{"factor": 7}, models.RunOptions{})

	require.True(t, result.Success, "error: %s", result.Error)

	output := result.Output.(map[string]any)
	finalVariables := output["variables"].(map[string]any)
	assert.InDelta(t, 21.0, finalVariables["mathResult"], 1e-9)
}

func TestEngine_DisabledStepsAreSkipped(t *testing.T) {
	engine := newTestEngine(t, nil)

	disabled := models.StepDefinition{
		ID: "off", Type: "variable", Enabled: false,
		Config: map[string]any{"name": "off", "value": 1},
	}

	definition := &models.AutomationDefinition{
		ID: "auto-disabled",
		Steps: []models.StepDefinition{
			disabled,
			step("on", "variable", map[string]any{"name": "on", "value": 1}),
		},
	}

	result := engine.Execute(context.Background(), definition, nil, models.RunOptions{})

	require.True(t, result.Success)
	assert.Equal(t, 1, result.StepsCompleted)
	assert.Equal(t, 1, result.TotalSteps)

	output := result.Output.(map[string]any)
	finalVariables := output["variables"].(map[string]any)
	assert.NotContains(t, finalVariables, "off")
	assert.Contains(t, finalVariables, "on")
}

func TestEngine_FailFastRecordsFailedStep(t *testing.T) {
	engine := newTestEngine(t, nil)

	definition := &models.AutomationDefinition{
		ID: "auto-fail",
		Steps: []models.StepDefinition{
			step("ok", "variable", map[string]any{"name": "a", "value": 1}),
			step("boom", "math", map[string]any{
				"operation": "divide", "operand_a": 1, "operand_b": "{{zero}}",
			}),
			step("never", "variable", map[string]any{"name": "b", "value": 2}),
		},
	}

	// zero is undefined, so operand_b stays "{{zero}}" and the division fails.
	result := engine.Execute(context.Background(), definition, nil, models.RunOptions{})

	require.False(t, result.Success)
	assert.Equal(t, models.ErrorKindExecution, result.ErrorKind)
	assert.Equal(t, 1, result.StepsCompleted)
	require.NotNil(t, result.FailedStep)
	assert.Equal(t, 1, *result.FailedStep)
}

func TestEngine_ValidationFailureBeforeAnyStep(t *testing.T) {
	engine := newTestEngine(t, nil)

	definition := &models.AutomationDefinition{
		ID: "auto-invalid",
		Steps: []models.StepDefinition{
			step("bad", "teleport", map[string]any{}),
		},
	}

	result := engine.Execute(context.Background(), definition, nil, models.RunOptions{})

	require.False(t, result.Success)
	assert.Equal(t, models.ErrorKindValidation, result.ErrorKind)
	assert.Equal(t, 0, result.StepsCompleted)
	assert.Nil(t, result.FailedStep)
}

func TestEngine_EmptyDefinitionIsRejected(t *testing.T) {
	engine := newTestEngine(t, nil)

	result := engine.Execute(context.Background(), &models.AutomationDefinition{ID: "empty"}, nil, models.RunOptions{})

	require.False(t, result.Success)
	assert.Equal(t, models.ErrorKindValidation, result.ErrorKind)
}

func TestEngine_DuplicateStepIDsAreRejected(t *testing.T) {
	engine := newTestEngine(t, nil)

	definition := &models.AutomationDefinition{
		ID: "auto-dup",
		Steps: []models.StepDefinition{
			step("twin", "variable", map[string]any{"name": "a", "value": 1}),
			step("twin", "variable", map[string]any{"name": "b", "value": 2}),
		},
	}

	result := engine.Execute(context.Background(), definition, nil, models.RunOptions{})

	require.False(t, result.Success)
	assert.Equal(t, models.ErrorKindValidation, result.ErrorKind)
}

func TestEngine_SingleFlight(t *testing.T) {
	engine := newTestEngine(t, nil)

	definition := &models.AutomationDefinition{
		ID: "auto-slow",
		Steps: []models.StepDefinition{
			step("wait", "delay", map[string]any{"seconds": 0.5}),
		},
	}

	results := make(chan models.ExecutionResult, 1)

	go func() {
		results <- engine.Execute(context.Background(), definition, nil, models.RunOptions{})
	}()

	time.Sleep(100 * time.Millisecond)

	busy := engine.Execute(context.Background(), definition, nil, models.RunOptions{})
	require.False(t, busy.Success)
	assert.Equal(t, models.ErrorKindBusy, busy.ErrorKind)

	first := <-results
	assert.True(t, first.Success)
}

func TestEngine_CancelStopsAtStepBoundary(t *testing.T) {
	engine := newTestEngine(t, nil)

	definition := &models.AutomationDefinition{
		ID: "auto-cancel",
		Steps: []models.StepDefinition{
			step("first", "variable", map[string]any{"name": "a", "value": 1}),
			step("second", "variable", map[string]any{"name": "b", "value": 2}),
		},
	}

	options := models.RunOptions{
		OnStepStart: func(index int, _ models.StepDefinition) {
			if index == 0 {
				engine.Cancel("user pressed stop")
			}
		},
	}

	result := engine.Execute(context.Background(), definition, nil, options)

	require.False(t, result.Success)
	assert.Equal(t, models.ErrorKindCancelled, result.ErrorKind)
	assert.Equal(t, "user pressed stop", result.Error)
	assert.Equal(t, 1, result.StepsCompleted)
}

func TestEngine_ContextCancellation(t *testing.T) {
	engine := newTestEngine(t, nil)

	definition := &models.AutomationDefinition{
		ID: "auto-ctx",
		Steps: []models.StepDefinition{
			step("a", "variable", map[string]any{"name": "a", "value": 1}),
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := engine.Execute(ctx, definition, nil, models.RunOptions{})

	require.False(t, result.Success)
	assert.Equal(t, models.ErrorKindCancelled, result.ErrorKind)
	assert.Equal(t, 0, result.StepsCompleted)
}

func TestEngine_DeclinedConfirmationCancels(t *testing.T) {
	engine := newTestEngine(t, decliningInteraction{})

	definition := &models.AutomationDefinition{
		ID: "auto-confirm",
		Steps: []models.StepDefinition{
			step("share", "share_text", map[string]any{"text": "hello"}),
		},
	}

	result := engine.Execute(context.Background(), definition, nil, models.RunOptions{})

	require.False(t, result.Success)
	assert.Equal(t, models.ErrorKindCancelled, result.ErrorKind)
	assert.Contains(t, result.Error, "declined")
}

func TestEngine_ExecutorPanicBecomesStepFailure(t *testing.T) {
	engine := newTestEngine(t, nil)

	definition := &models.AutomationDefinition{
		ID: "auto-panic",
		Steps: []models.StepDefinition{
			step("bomb", "explode", nil),
		},
	}

	result := engine.Execute(context.Background(), definition, nil, models.RunOptions{})

	require.False(t, result.Success)
	assert.Equal(t, models.ErrorKindExecution, result.ErrorKind)
	assert.Contains(t, result.Error, "panicked")
	require.NotNil(t, result.FailedStep)
	assert.Equal(t, 0, *result.FailedStep)
}

func TestEngine_ExecutionScopeIsTornDownBetweenRuns(t *testing.T) {
	engine := newTestEngine(t, nil)

	first := &models.AutomationDefinition{
		ID: "auto-one",
		Steps: []models.StepDefinition{
			step("set", "variable", map[string]any{"name": "leak", "value": "secret"}),
		},
	}
	require.True(t, engine.Execute(context.Background(), first, nil, models.RunOptions{}).Success)

	second := &models.AutomationDefinition{
		ID: "auto-two",
		Steps: []models.StepDefinition{
			step("probe", "get_variable", map[string]any{"name": "leak", "default": "clean"}),
		},
	}

	result := engine.Execute(context.Background(), second, nil, models.RunOptions{})
	require.True(t, result.Success)

	output := result.Output.(map[string]any)
	finalVariables := output["variables"].(map[string]any)
	assert.Equal(t, "clean", finalVariables["leak"])
}

func TestEngine_GroupSequentialSeesSiblingWrites(t *testing.T) {
	engine := newTestEngine(t, nil)

	definition := &models.AutomationDefinition{
		ID: "auto-group",
		Steps: []models.StepDefinition{
			step("grouped", "group", map[string]any{
				"steps": []any{
					map[string]any{
						"id": "set", "type": "variable", "enabled": true,
						"config": map[string]any{"name": "base", "value": "10"},
					},
					map[string]any{
						"id": "calc", "type": "math", "enabled": true,
						"config": map[string]any{
							"operation": "add", "operand_a": "{{base}}", "operand_b": 5,
							"output_variable": "sum",
						},
					},
				},
			}),
		},
	}

	result := engine.Execute(context.Background(), definition, nil, models.RunOptions{})

	require.True(t, result.Success, "error: %s", result.Error)

	output := result.Output.(map[string]any)
	finalVariables := output["variables"].(map[string]any)
	assert.InDelta(t, 15.0, finalVariables["sum"], 1e-9)
}

func TestEngine_PublishesLifecycleEvents(t *testing.T) {
	publisher := &collectingPublisher{}
	engine := newTestEngine(t, nil, WithEventPublisher(publisher))

	definition := &models.AutomationDefinition{
		ID: "auto-events",
		Steps: []models.StepDefinition{
			step("a", "variable", map[string]any{"name": "a", "value": 1}),
			{ID: "off", Type: "variable", Enabled: false, Config: map[string]any{"name": "x", "value": 1}},
		},
	}

	result := engine.Execute(context.Background(), definition, nil, models.RunOptions{})
	require.True(t, result.Success)

	types := publisher.types()
	assert.Contains(t, types, "execution.started")
	assert.Contains(t, types, "execution.step.started")
	assert.Contains(t, types, "execution.step.completed")
	assert.Contains(t, types, "execution.step.skipped")
	assert.Contains(t, types, "execution.completed")
}

func TestEngine_WritesAuditRecord(t *testing.T) {
	auditLog := newRecordingLog()
	engine := newTestEngine(t, nil, WithExecutionLog(auditLog))

	definition := &models.AutomationDefinition{
		ID: "auto-audit",
		Steps: []models.StepDefinition{
			step("a", "variable", map[string]any{"name": "a", "value": 1}),
		},
	}

	result := engine.Execute(context.Background(), definition, nil, models.RunOptions{UserID: "user-7"})
	require.True(t, result.Success)

	select {
	case record := <-auditLog.records:
		assert.Equal(t, "auto-audit", record.AutomationID)
		assert.Equal(t, "user-7", record.UserID)
		assert.True(t, record.Success)
		assert.Equal(t, 1, record.StepsCompleted)
	case <-time.After(2 * time.Second):
		t.Fatal("audit record was not written")
	}
}
