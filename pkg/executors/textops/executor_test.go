package textops

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

func TestExecutor_Operations(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		expected any
	}{
		{
			name:     "uppercase",
			config:   map[string]any{"operation": "uppercase", "input": "hello"},
			expected: "HELLO",
		},
		{
			name:     "lowercase",
			config:   map[string]any{"operation": "lowercase", "input": "HeLLo"},
			expected: "hello",
		},
		{
			name:     "trim",
			config:   map[string]any{"operation": "trim", "input": "  padded  "},
			expected: "padded",
		},
		{
			name:     "length counts runes",
			config:   map[string]any{"operation": "length", "input": "héllo"},
			expected: 5,
		},
		{
			name: "replace",
			config: map[string]any{
				"operation": "replace", "input": "a-b-c", "search": "-", "replacement": "+",
			},
			expected: "a+b+c",
		},
		{
			name: "split",
			config: map[string]any{
				"operation": "split", "input": "a,b,c", "separator": ",",
			},
			expected: []any{"a", "b", "c"},
		},
		{
			name: "join",
			config: map[string]any{
				"operation": "join", "parts": []any{"a", "b", "c"}, "separator": "-",
			},
			expected: "a-b-c",
		},
		{
			name: "concat with parts",
			config: map[string]any{
				"operation": "concat", "input": "a", "parts": []any{"b", "c"},
			},
			expected: "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execCtx := newTestContext()

			executor, err := NewExecutor(tt.config)
			require.NoError(t, err)

			output, err := executor.Execute(context.Background(), execCtx, execCtx.Logger)
			require.NoError(t, err)

			payload, ok := output.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.expected, payload["result"])

			stored, found := execCtx.Vars.Get(context.Background(), "textResult")
			require.True(t, found)
			assert.Equal(t, tt.expected, stored.Value)
		})
	}
}

func TestExecutor_Failures(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		expected error
	}{
		{
			name:     "unsupported operation",
			config:   map[string]any{"operation": "reverse", "input": "abc"},
			expected: ErrUnsupportedOperation,
		},
		{
			name:     "split without separator",
			config:   map[string]any{"operation": "split", "input": "abc"},
			expected: ErrInputMissing,
		},
		{
			name:     "join without parts",
			config:   map[string]any{"operation": "join", "separator": ","},
			expected: ErrInputMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execCtx := newTestContext()

			executor, err := NewExecutor(tt.config)
			require.NoError(t, err)

			_, err = executor.Execute(context.Background(), execCtx, execCtx.Logger)
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestFactory_ID(t *testing.T) {
	assert.Equal(t, models.StepTypeText, NewFactory().ID())
}
