package protocol

import (
	"context"

	"github.com/dukex/stepflow/pkg/models"
)

// AutomationRunner executes a whole automation definition. The engine
// implements it; Execute is total and returns a structured result, never an
// error.
type AutomationRunner interface {
	Execute(ctx context.Context, definition *models.AutomationDefinition, inputs map[string]any, options models.RunOptions) models.ExecutionResult
}

// RunnerFactory produces a fresh, idle runner. Nested executions (see the
// external_automation executor) must not share the parent's single-flight
// engine instance.
type RunnerFactory func() AutomationRunner
