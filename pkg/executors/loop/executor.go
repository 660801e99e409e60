// Package loop provides the loop step executor.
//
// The step currently only primes its counter variable and reports the
// intended iteration count; it does not drive nested steps.
// TODO: iterate nested steps by re-invoking the group sequential mechanism
// once loop bodies carry sub-steps.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/variables"
)

const (
	defaultCounterVariable = "loopCounter"
	maxIterations          = 1000
)

// ErrIterationsOutOfRange is returned when iterations is missing, zero or
// over the cap.
var ErrIterationsOutOfRange = errors.New("iterations out of range")

// Executor primes a loop counter.
type Executor struct {
	Iterations      int
	CounterVariable string
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any) (*Executor, error) {
	iterations := 0

	switch raw := config["iterations"].(type) {
	case float64:
		iterations = int(raw)
	case int:
		iterations = raw
	}

	if iterations < 1 || iterations > maxIterations {
		return nil, fmt.Errorf("%d: %w", iterations, ErrIterationsOutOfRange)
	}

	counterVariable, _ := config["counter_variable"].(string)
	if counterVariable == "" {
		counterVariable = defaultCounterVariable
	}

	return &Executor{Iterations: iterations, CounterVariable: counterVariable}, nil
}

// Execute sets the counter variable to zero and reports the configured
// iteration count.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	err := execCtx.Vars.Set(ctx, e.CounterVariable, 0, variables.SourceAutomation, variables.ScopeExecution)
	if err != nil {
		return nil, fmt.Errorf("failed to prime loop counter: %w", err)
	}

	logger.DebugContext(ctx, "Loop counter primed", "module", "loop_executor",
		"iterations", e.Iterations, "counter", e.CounterVariable)

	return map[string]any{
		"iterations": e.Iterations,
		"counter":    e.CounterVariable,
	}, nil
}

// Factory creates loop executors.
type Factory struct{}

// NewFactory returns the loop executor factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeLoop
}
