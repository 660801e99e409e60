// Package textops provides the text step executor: string transformations
// with the result written back into the variable store.
package textops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/variables"
)

const defaultOutputVariable = "textResult"

var (
	// ErrUnsupportedOperation is returned for an operation outside the
	// supported set.
	ErrUnsupportedOperation = errors.New("unsupported text operation")

	// ErrInputMissing is returned when an operation needs an input the config
	// does not carry.
	ErrInputMissing = errors.New("missing text input")
)

// Executor applies one text operation.
type Executor struct {
	Operation      string
	Input          string
	Search         string
	Replacement    string
	Separator      string
	Parts          []string
	OutputVariable string
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any) (*Executor, error) {
	operation, _ := config["operation"].(string)
	input, _ := config["input"].(string)
	search, _ := config["search"].(string)
	replacement, _ := config["replacement"].(string)
	separator, _ := config["separator"].(string)

	var parts []string

	if rawParts, ok := config["parts"].([]any); ok {
		for _, part := range rawParts {
			parts = append(parts, variables.Stringify(part))
		}
	}

	outputVariable, _ := config["output_variable"].(string)
	if outputVariable == "" {
		outputVariable = defaultOutputVariable
	}

	return &Executor{
		Operation:      operation,
		Input:          input,
		Search:         search,
		Replacement:    replacement,
		Separator:      separator,
		Parts:          parts,
		OutputVariable: outputVariable,
	}, nil
}

// Execute runs the transformation and stores the result.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	result, err := e.transform()
	if err != nil {
		return nil, err
	}

	err = execCtx.Vars.Set(ctx, e.OutputVariable, result, variables.SourceAutomation, variables.ScopeExecution)
	if err != nil {
		return nil, fmt.Errorf("failed to store text result: %w", err)
	}

	logger.DebugContext(ctx, "Text operation completed", "module", "text_executor", "operation", e.Operation)

	return map[string]any{
		"operation": e.Operation,
		"result":    result,
		"variable":  e.OutputVariable,
	}, nil
}

func (e *Executor) transform() (any, error) {
	switch e.Operation {
	case "uppercase":
		return strings.ToUpper(e.Input), nil
	case "lowercase":
		return strings.ToLower(e.Input), nil
	case "trim":
		return strings.TrimSpace(e.Input), nil
	case "length":
		return len([]rune(e.Input)), nil
	case "replace":
		return strings.ReplaceAll(e.Input, e.Search, e.Replacement), nil
	case "split":
		if e.Separator == "" {
			return nil, fmt.Errorf("split needs a separator: %w", ErrInputMissing)
		}

		pieces := strings.Split(e.Input, e.Separator)
		out := make([]any, len(pieces))

		for i, piece := range pieces {
			out[i] = piece
		}

		return out, nil
	case "join":
		if len(e.Parts) == 0 {
			return nil, fmt.Errorf("join needs parts: %w", ErrInputMissing)
		}

		return strings.Join(e.Parts, e.Separator), nil
	case "concat":
		if len(e.Parts) > 0 {
			return e.Input + strings.Join(e.Parts, ""), nil
		}

		return e.Input + e.Search, nil
	default:
		return nil, fmt.Errorf("%q: %w", e.Operation, ErrUnsupportedOperation)
	}
}

// Factory creates text executors.
type Factory struct{}

// NewFactory returns the text executor factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeText
}
