// Package variable provides the variable step executor, which writes a named
// value into the execution's variable store.
package variable

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

// Executor sets one variable.
type Executor struct {
	Name  string
	Value any
	Scope variables.Scope
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any) (*Executor, error) {
	name, _ := config["name"].(string)
	if name == "" {
		return nil, ErrNameMissing
	}

	scope := variables.ScopeExecution
	if scopeTag, _ := config["scope"].(string); scopeTag == string(variables.ScopeGlobal) {
		scope = variables.ScopeGlobal
	}

	return &Executor{
		Name:  name,
		Value: config["value"],
		Scope: scope,
	}, nil
}

// Execute writes the variable.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	err := execCtx.Vars.Set(ctx, e.Name, e.Value, variables.SourceAutomation, e.Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to set variable %q: %w", e.Name, err)
	}

	logger.DebugContext(ctx, "Variable set", "module", "variable_executor", "name", e.Name, "scope", e.Scope)

	return map[string]any{
		"name":  e.Name,
		"value": e.Value,
		"scope": string(e.Scope),
	}, nil
}

// Factory creates variable executors.
type Factory struct{}

// NewFactory returns the variable executor factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeVariable
}
