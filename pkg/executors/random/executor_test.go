package random

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
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

func TestExecutor_NumberStaysInRange(t *testing.T) {
	execCtx := newTestContext()

	executor, err := NewExecutor(map[string]any{
		"kind": "number",
		"min":  float64(1),
		"max":  float64(6),
	})
	require.NoError(t, err)

	for range 50 {
		output, err := executor.Execute(context.Background(), execCtx, execCtx.Logger)
		require.NoError(t, err)

		payload, ok := output.(map[string]any)
		require.True(t, ok)

		value, ok := payload["result"].(float64)
		require.True(t, ok)
		assert.GreaterOrEqual(t, value, 1.0)
		assert.LessOrEqual(t, value, 6.0)
		assert.Equal(t, value, float64(int64(value)))
	}
}

func TestExecutor_FractionalBounds(t *testing.T) {
	execCtx := newTestContext()

	executor, err := NewExecutor(map[string]any{"min": 0.5, "max": 1.5})
	require.NoError(t, err)

	output, err := executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.NoError(t, err)

	payload, ok := output.(map[string]any)
	require.True(t, ok)

	value, ok := payload["result"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, value, 0.5)
	assert.LessOrEqual(t, value, 1.5)
}

func TestExecutor_HugeWholeNumberRange(t *testing.T) {
	execCtx := newTestContext()

	executor, err := NewExecutor(map[string]any{
		"kind": "number",
		"min":  float64(0),
		"max":  1e19,
	})
	require.NoError(t, err)

	output, err := executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.NoError(t, err)

	payload, ok := output.(map[string]any)
	require.True(t, ok)

	value, ok := payload["result"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, value, 0.0)
	assert.LessOrEqual(t, value, 1e19)
}

func TestExecutor_UUID(t *testing.T) {
	execCtx := newTestContext()

	executor, err := NewExecutor(map[string]any{
		"kind":            "uuid",
		"output_variable": "requestId",
	})
	require.NoError(t, err)

	output, err := executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.NoError(t, err)

	payload, ok := output.(map[string]any)
	require.True(t, ok)

	raw, ok := payload["result"].(string)
	require.True(t, ok)
	_, err = uuid.Parse(raw)
	require.NoError(t, err)

	stored, found := execCtx.Vars.Get(context.Background(), "requestId")
	require.True(t, found)
	assert.Equal(t, raw, stored.Value)
}

func TestExecutor_Choice(t *testing.T) {
	execCtx := newTestContext()

	executor, err := NewExecutor(map[string]any{
		"kind":    "choice",
		"choices": []any{"red", "green", "blue"},
	})
	require.NoError(t, err)

	output, err := executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.NoError(t, err)

	payload, ok := output.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, []any{"red", "green", "blue"}, payload["result"])
}

func TestExecutor_Failures(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr error
	}{
		{
			name:    "inverted range",
			config:  map[string]any{"kind": "number", "min": float64(10), "max": float64(1)},
			wantErr: ErrInvalidRange,
		},
		{
			name:    "empty choices",
			config:  map[string]any{"kind": "choice"},
			wantErr: ErrNoChoices,
		},
		{
			name:    "unknown kind",
			config:  map[string]any{"kind": "coin"},
			wantErr: ErrUnsupportedKind,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			execCtx := newTestContext()

			executor, err := NewExecutor(tc.config)
			require.NoError(t, err)

			_, err = executor.Execute(context.Background(), execCtx, execCtx.Logger)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestFactory_ID(t *testing.T) {
	assert.Equal(t, models.StepTypeRandom, NewFactory().ID())
}
