// Package getvariable provides the get_variable step executor: a read with an
// optional fallback, mainly useful to materialize globals into the execution
// scope.
package getvariable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/variables"
)

// ErrNameMissing is returned when the config has no variable name.
var ErrNameMissing = errors.New("missing 'name' in configuration")

// Executor reads one variable.
type Executor struct {
	Name           string
	Default        any
	OutputVariable string
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any) (*Executor, error) {
	name, _ := config["name"].(string)
	if name == "" {
		return nil, ErrNameMissing
	}

	outputVariable, _ := config["output_variable"].(string)
	if outputVariable == "" {
		outputVariable = name
	}

	return &Executor{
		Name:           name,
		Default:        config["default"],
		OutputVariable: outputVariable,
	}, nil
}

// Execute resolves the variable, falling back to the configured default on a
// miss, and stores it under the output variable.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	value := e.Default
	found := false

	if stored, ok := execCtx.Vars.Get(ctx, e.Name); ok {
		value = stored.Value
		found = true
	}

	err := execCtx.Vars.Set(ctx, e.OutputVariable, value, variables.SourceAutomation, variables.ScopeExecution)
	if err != nil {
		return nil, fmt.Errorf("failed to store variable %q: %w", e.OutputVariable, err)
	}

	logger.DebugContext(ctx, "Variable read", "module", "get_variable_executor", "name", e.Name, "found", found)

	return map[string]any{
		"name":  e.Name,
		"value": value,
		"found": found,
	}, nil
}

// Factory creates get_variable executors.
type Factory struct{}

// NewFactory returns the get_variable executor factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeGetVariable
}
