package variable

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/variables"
)

func newTestContext() *models.ExecutionContext {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	return &models.ExecutionContext{
		ID:     "exec-test",
		Vars:   variables.NewStore(logger, nil),
		Logger: logger,
	}
}

func TestExecutor_SetsVariable(t *testing.T) {
	execCtx := newTestContext()

	executor, err := NewExecutor(map[string]any{"name": "greeting", "value": "hello"})
	require.NoError(t, err)

	output, err := executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.NoError(t, err)

	payload, ok := output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "greeting", payload["name"])
	assert.Equal(t, "hello", payload["value"])
	assert.Equal(t, "execution", payload["scope"])

	stored, found := execCtx.Vars.Get(context.Background(), "greeting")
	require.True(t, found)
	assert.Equal(t, "hello", stored.Value)
	assert.Equal(t, variables.SourceAutomation, stored.Source)
}

func TestExecutor_GlobalScope(t *testing.T) {
	execCtx := newTestContext()

	executor, err := NewExecutor(map[string]any{"name": "theme", "value": "dark", "scope": "global"})
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.NoError(t, err)

	stored, found := execCtx.Vars.Get(context.Background(), "theme")
	require.True(t, found)
	assert.Equal(t, variables.ScopeGlobal, stored.Scope)
}

func TestNewExecutor_RequiresName(t *testing.T) {
	_, err := NewExecutor(map[string]any{"value": "x"})
	require.ErrorIs(t, err, ErrNameMissing)
}

func TestFactory_ID(t *testing.T) {
	assert.Equal(t, models.StepTypeVariable, NewFactory().ID())
}
