// Package protocol defines the contracts between the engine and its
// pluggable collaborators: step executors and platform capabilities.
package protocol

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukex/stepflow/pkg/models"
)

// ErrTimeout marks a bounded wait that ran out of budget. Executors wrap it
// so the engine can classify the failure without string matching.
var ErrTimeout = errors.New("operation timed out")

// Executor runs one step type. Instances are created per dispatch from the
// step's already-interpolated config, perform their side effect and return an
// output payload. Failures come back as errors; the engine converts them into
// failed step results.
type Executor interface {
	Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error)
}

// ExecutorFactory builds executors for one step type tag.
type ExecutorFactory interface {
	Create(config map[string]any) (Executor, error)
	ID() string
}
