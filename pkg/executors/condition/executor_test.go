package condition

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

func newTestContext(t *testing.T, vars map[string]any) *models.ExecutionContext {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	store := variables.NewStore(logger, nil)

	for name, value := range vars {
		require.NoError(t, store.Set(context.Background(), name, value, variables.SourceUser, variables.ScopeExecution))
	}

	return &models.ExecutionContext{ID: "exec-test", Vars: store, Logger: logger}
}

func TestExecutor_Operators(t *testing.T) {
	tests := []struct {
		name     string
		vars     map[string]any
		config   map[string]any
		expected bool
	}{
		{
			name:     "equals",
			vars:     map[string]any{"status": "ok"},
			config:   map[string]any{"variable": "status", "operator": "equals", "value": "ok"},
			expected: true,
		},
		{
			name:     "equals across types",
			vars:     map[string]any{"count": 5},
			config:   map[string]any{"variable": "count", "operator": "equals", "value": "5"},
			expected: true,
		},
		{
			name:     "not_equals",
			vars:     map[string]any{"status": "ok"},
			config:   map[string]any{"variable": "status", "operator": "not_equals", "value": "failed"},
			expected: true,
		},
		{
			name:     "contains",
			vars:     map[string]any{"message": "hello world"},
			config:   map[string]any{"variable": "message", "operator": "contains", "value": "world"},
			expected: true,
		},
		{
			name:     "greater",
			vars:     map[string]any{"count": 10},
			config:   map[string]any{"variable": "count", "operator": "greater", "value": 5},
			expected: true,
		},
		{
			name:     "greater with non-numeric operand is false",
			vars:     map[string]any{"count": "many"},
			config:   map[string]any{"variable": "count", "operator": "greater", "value": 5},
			expected: false,
		},
		{
			name:     "less_equal boundary",
			vars:     map[string]any{"count": 5},
			config:   map[string]any{"variable": "count", "operator": "less_equal", "value": 5},
			expected: true,
		},
		{
			name:     "is_empty on missing variable",
			vars:     nil,
			config:   map[string]any{"variable": "missing", "operator": "is_empty"},
			expected: true,
		},
		{
			name:     "is_not_empty",
			vars:     map[string]any{"status": "ok"},
			config:   map[string]any{"variable": "status", "operator": "is_not_empty"},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execCtx := newTestContext(t, tt.vars)

			executor, err := NewExecutor(tt.config)
			require.NoError(t, err)

			output, err := executor.Execute(context.Background(), execCtx, execCtx.Logger)
			require.NoError(t, err)

			payload, ok := output.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.expected, payload["conditionMet"])

			stored, found := execCtx.Vars.Get(context.Background(), "conditionMet")
			require.True(t, found)
			assert.Equal(t, tt.expected, stored.Value)
		})
	}
}

func TestExecutor_UnsupportedOperator(t *testing.T) {
	execCtx := newTestContext(t, map[string]any{"status": "ok"})

	executor, err := NewExecutor(map[string]any{"variable": "status", "operator": "matches"})
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.ErrorIs(t, err, ErrUnsupportedOperator)
}

func TestFactory_ID(t *testing.T) {
	assert.Equal(t, models.StepTypeCondition, NewFactory().ID())
}
