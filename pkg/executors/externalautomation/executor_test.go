package externalautomation

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/variables"
)

type fakeFetcher struct {
	definitions map[string]*models.AutomationDefinition
}

func (f *fakeFetcher) AutomationByID(_ context.Context, id string) (*models.AutomationDefinition, error) {
	definition, ok := f.definitions[id]
	if !ok {
		return nil, persistence.ErrAutomationNotFound
	}

	return definition, nil
}

func (f *fakeFetcher) AutomationByName(_ context.Context, name string) (*models.AutomationDefinition, error) {
	for _, definition := range f.definitions {
		if definition.Title == name {
			return definition, nil
		}
	}

	return nil, persistence.ErrAutomationNotFound
}

type fakeRunner struct {
	calls  atomic.Int64
	delay  time.Duration
	result models.ExecutionResult
}

func (r *fakeRunner) Execute(ctx context.Context, _ *models.AutomationDefinition, _ map[string]any, _ models.RunOptions) models.ExecutionResult {
	r.calls.Add(1)

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
		}
	}

	return r.result
}

func newTestContext(depth int) *models.ExecutionContext {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	return &models.ExecutionContext{
		ID:     "exec-test",
		Depth:  depth,
		Vars:   variables.NewStore(logger, nil),
		Logger: logger,
	}
}

func testDeps(runner *fakeRunner) (*fakeFetcher, protocol.RunnerFactory) {
	fetcher := &fakeFetcher{definitions: map[string]*models.AutomationDefinition{
		"auto-1": {
			ID:    "auto-1",
			Title: "Nested",
			Steps: []models.StepDefinition{{ID: "s1", Type: "variable", Enabled: true}},
		},
	}}

	return fetcher, func() protocol.AutomationRunner { return runner }
}

func TestNewExecutor_RequiresReference(t *testing.T) {
	_, err := NewExecutor(map[string]any{}, nil, nil)
	require.ErrorIs(t, err, ErrReferenceMissing)
}

func TestExecutor_WaitsForNestedResult(t *testing.T) {
	runner := &fakeRunner{result: models.ExecutionResult{
		Success:        true,
		StepsCompleted: 1,
		Output:         map[string]any{"variables": map[string]any{"x": 1}},
	}}
	fetcher, factory := testDeps(runner)
	execCtx := newTestContext(0)

	executor, err := NewExecutor(map[string]any{
		"automation_id":   "auto-1",
		"output_variable": "nestedResult",
	}, fetcher, factory)
	require.NoError(t, err)

	output, err := executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.NoError(t, err)
	assert.EqualValues(t, 1, runner.calls.Load())

	payload, ok := output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "auto-1", payload["automation_id"])
	assert.Equal(t, true, payload["success"])

	stored, found := execCtx.Vars.Get(context.Background(), "nestedResult")
	require.True(t, found)
	assert.NotNil(t, stored.Value)
}

func TestExecutor_ResolvesByName(t *testing.T) {
	runner := &fakeRunner{result: models.ExecutionResult{Success: true}}
	fetcher, factory := testDeps(runner)
	execCtx := newTestContext(0)

	executor, err := NewExecutor(map[string]any{"automation_name": "Nested"}, fetcher, factory)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.NoError(t, err)
}

func TestExecutor_NestedFailurePropagates(t *testing.T) {
	runner := &fakeRunner{result: models.ExecutionResult{Success: false, Error: "boom"}}
	fetcher, factory := testDeps(runner)
	execCtx := newTestContext(0)

	executor, err := NewExecutor(map[string]any{"automation_id": "auto-1"}, fetcher, factory)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestExecutor_DepthGuard(t *testing.T) {
	runner := &fakeRunner{result: models.ExecutionResult{Success: true}}
	fetcher, factory := testDeps(runner)
	execCtx := newTestContext(MaxDepth)

	executor, err := NewExecutor(map[string]any{"automation_id": "auto-1"}, fetcher, factory)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.ErrorIs(t, err, ErrDepthExceeded)
	assert.EqualValues(t, 0, runner.calls.Load())
}

func TestExecutor_WaitTimeout(t *testing.T) {
	runner := &fakeRunner{delay: 5 * time.Second, result: models.ExecutionResult{Success: true}}
	fetcher, factory := testDeps(runner)
	execCtx := newTestContext(0)

	executor, err := NewExecutor(map[string]any{
		"automation_id":   "auto-1",
		"timeout_seconds": 0.05,
	}, fetcher, factory)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.ErrorIs(t, err, protocol.ErrTimeout)
}

func TestExecutor_AsyncReturnsImmediately(t *testing.T) {
	runner := &fakeRunner{result: models.ExecutionResult{Success: true}}
	fetcher, factory := testDeps(runner)
	execCtx := newTestContext(0)

	executor, err := NewExecutor(map[string]any{
		"automation_id":       "auto-1",
		"wait_for_completion": false,
	}, fetcher, factory)
	require.NoError(t, err)

	output, err := executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.NoError(t, err)

	payload, ok := output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, payload["waited"])
	assert.Equal(t, true, payload["started"])
}

func TestExecutor_MissingAutomation(t *testing.T) {
	runner := &fakeRunner{}
	fetcher, factory := testDeps(runner)
	execCtx := newTestContext(0)

	executor, err := NewExecutor(map[string]any{"automation_id": "ghost"}, fetcher, factory)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.ErrorIs(t, err, persistence.ErrAutomationNotFound)
}

func TestFactory_ID(t *testing.T) {
	assert.Equal(t, models.StepTypeExternalAutomation, NewFactory(nil, nil).ID())
}
