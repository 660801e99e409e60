package jsonparser

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

const document = `{"user": {"name": "ada", "tags": ["admin", "ops"]}, "count": 2}`

func newTestContext() *models.ExecutionContext {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	return &models.ExecutionContext{
		ID:     "exec-test",
		Vars:   variables.NewStore(logger, nil),
		Logger: logger,
	}
}

func TestExecutor_ExtractByPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected any
	}{
		{name: "nested object field", path: "user.name", expected: "ada"},
		{name: "array index", path: "user.tags.1", expected: "ops"},
		{name: "top level number", path: "count", expected: float64(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execCtx := newTestContext()

			executor, err := NewExecutor(map[string]any{
				"json": document,
				"path": tt.path,
			})
			require.NoError(t, err)

			output, err := executor.Execute(context.Background(), execCtx, execCtx.Logger)
			require.NoError(t, err)

			payload, ok := output.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.expected, payload["result"])

			stored, found := execCtx.Vars.Get(context.Background(), "jsonResult")
			require.True(t, found)
			assert.Equal(t, tt.expected, stored.Value)
		})
	}
}

func TestExecutor_WholeDocumentWithoutPath(t *testing.T) {
	execCtx := newTestContext()

	executor, err := NewExecutor(map[string]any{"json": `{"a": 1}`})
	require.NoError(t, err)

	output, err := executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.NoError(t, err)

	payload, ok := output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": float64(1)}, payload["result"])
}

func TestExecutor_PathNotFound(t *testing.T) {
	execCtx := newTestContext()

	executor, err := NewExecutor(map[string]any{"json": document, "path": "user.missing"})
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.ErrorIs(t, err, ErrPathNotFound)
}

func TestExecutor_InvalidDocument(t *testing.T) {
	execCtx := newTestContext()

	executor, err := NewExecutor(map[string]any{"json": "{not json"})
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), execCtx, execCtx.Logger)
	require.Error(t, err)
}

func TestNewExecutor_RequiresDocument(t *testing.T) {
	_, err := NewExecutor(map[string]any{})
	require.ErrorIs(t, err, ErrDocumentMissing)
}

func TestFactory_ID(t *testing.T) {
	assert.Equal(t, models.StepTypeJSONParser, NewFactory().ID())
}
