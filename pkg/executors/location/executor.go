// Package location provides the location step executor.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/variables"
)

const defaultOutputVariable = "currentLocation"

// ErrProviderUnavailable is returned when no LocationProvider capability was
// wired in.
var ErrProviderUnavailable = errors.New("location capability not available")

// Executor resolves the device position into a variable.
type Executor struct {
	OutputVariable string
	provider       protocol.LocationProvider
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any, provider protocol.LocationProvider) (*Executor, error) {
	outputVariable, _ := config["output_variable"].(string)
	if outputVariable == "" {
		outputVariable = defaultOutputVariable
	}

	return &Executor{OutputVariable: outputVariable, provider: provider}, nil
}

// Execute fetches the current position and stores it as a map.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	if e.provider == nil {
		return nil, ErrProviderUnavailable
	}

	position, err := e.provider.CurrentPosition(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve position: %w", err)
	}

	value := map[string]any{
		"latitude":  position.Latitude,
		"longitude": position.Longitude,
		"accuracy":  position.Accuracy,
	}

	err = execCtx.Vars.Set(ctx, e.OutputVariable, value, variables.SourceAutomation, variables.ScopeExecution)
	if err != nil {
		return nil, fmt.Errorf("failed to store position: %w", err)
	}

	logger.DebugContext(ctx, "Position resolved", "module", "location_executor")

	return map[string]any{"position": value, "variable": e.OutputVariable}, nil
}

// Factory creates location executors.
type Factory struct {
	provider protocol.LocationProvider
}

// NewFactory returns a location executor factory bound to the given provider
// capability.
func NewFactory(provider protocol.LocationProvider) *Factory {
	return &Factory{provider: provider}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config, f.provider)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeLocation
}
