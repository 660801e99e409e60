package httprequest

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/stepflow/pkg/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestNewExecutor_Defaults(t *testing.T) {
	executor, err := NewExecutor(map[string]any{"url": "https://example.com/api"})
	require.NoError(t, err)

	assert.Equal(t, "GET", executor.Method)
	assert.Equal(t, 30*time.Second, executor.Timeout)
	assert.Equal(t, "httpResponse", executor.OutputVariable)
}

func TestNewExecutor_MethodNormalization(t *testing.T) {
	executor, err := NewExecutor(map[string]any{"url": "https://example.com", "method": " post "})
	require.NoError(t, err)
	assert.Equal(t, "POST", executor.Method)
}

func TestNewExecutor_Rejections(t *testing.T) {
	_, err := NewExecutor(map[string]any{})
	require.ErrorIs(t, err, ErrURLMissing)

	_, err = NewExecutor(map[string]any{"url": "https://example.com", "method": "PATCH"})
	require.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestNewExecutor_TimeoutIsCapped(t *testing.T) {
	executor, err := NewExecutor(map[string]any{
		"url":             "https://example.com",
		"timeout_seconds": float64(900),
	})
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, executor.Timeout)
}

func TestExecutor_RejectsPrivateHosts(t *testing.T) {
	tests := []string{
		"http://127.0.0.1/admin",
		"http://localhost:8080",
		"http://10.0.0.5/internal",
		"http://169.254.169.254/latest/meta-data",
		"ftp://example.com/file",
	}

	for _, rawURL := range tests {
		t.Run(rawURL, func(t *testing.T) {
			executor, err := NewExecutor(map[string]any{"url": rawURL})
			require.NoError(t, err)

			_, err = executor.Execute(context.Background(), nil, discardLogger())
			require.ErrorIs(t, err, ErrURLRejected)
		})
	}
}

func TestFactory_ID(t *testing.T) {
	assert.Equal(t, models.StepTypeHTTPRequest, NewFactory().ID())
}
