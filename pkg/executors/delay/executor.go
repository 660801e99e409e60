// Package delay provides the delay step executor. The wait is cooperative:
// cancelling the run interrupts it immediately.
package delay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
)

// maxDelay caps a single delay step. Longer waits belong in a scheduler, not
// inside a run.
const maxDelay = 300 * time.Second

// ErrDelayOutOfRange is returned when seconds is negative or exceeds the cap.
var ErrDelayOutOfRange = errors.New("delay seconds out of range")

// Executor pauses the run.
type Executor struct {
	Duration time.Duration
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any) (*Executor, error) {
	seconds, ok := config["seconds"].(float64)
	if !ok {
		if asInt, okInt := config["seconds"].(int); okInt {
			seconds = float64(asInt)
		}
	}

	duration := time.Duration(seconds * float64(time.Second))
	if duration < 0 || duration > maxDelay {
		return nil, fmt.Errorf("%v: %w", duration, ErrDelayOutOfRange)
	}

	return &Executor{Duration: duration}, nil
}

// Execute sleeps until the duration elapses or the context is done.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger.DebugContext(ctx, "Delaying execution", "module", "delay_executor", "duration", e.Duration)

	timer := time.NewTimer(e.Duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("delay interrupted: %w", ctx.Err())
	case <-timer.C:
	}

	return map[string]any{"delayed_seconds": e.Duration.Seconds()}, nil
}

// Factory creates delay executors.
type Factory struct{}

// NewFactory returns the delay executor factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeDelay
}
