// Package random provides the random step executor: numbers, UUIDs and picks
// from a fixed choice list.
package random

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/variables"
)

const defaultOutputVariable = "randomResult"

var (
	// ErrUnsupportedKind is returned for a kind outside number, uuid, choice.
	ErrUnsupportedKind = errors.New("unsupported random kind")

	// ErrInvalidRange is returned when min exceeds max.
	ErrInvalidRange = errors.New("min must not exceed max")

	// ErrNoChoices is returned for kind choice with an empty choice list.
	ErrNoChoices = errors.New("choices must not be empty")
)

// Executor produces one random value.
type Executor struct {
	Kind           string
	Min            float64
	Max            float64
	Choices        []any
	OutputVariable string
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any) (*Executor, error) {
	kind, _ := config["kind"].(string)
	if kind == "" {
		kind = "number"
	}

	min := 0.0
	max := 100.0

	if raw, ok := config["min"].(float64); ok {
		min = raw
	}

	if raw, ok := config["max"].(float64); ok {
		max = raw
	}

	choices, _ := config["choices"].([]any)

	outputVariable, _ := config["output_variable"].(string)
	if outputVariable == "" {
		outputVariable = defaultOutputVariable
	}

	return &Executor{
		Kind:           kind,
		Min:            min,
		Max:            max,
		Choices:        choices,
		OutputVariable: outputVariable,
	}, nil
}

// Execute generates the value and stores it under the output variable.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	value, err := e.generate()
	if err != nil {
		return nil, err
	}

	err = execCtx.Vars.Set(ctx, e.OutputVariable, value, variables.SourceAutomation, variables.ScopeExecution)
	if err != nil {
		return nil, fmt.Errorf("failed to store random result: %w", err)
	}

	logger.DebugContext(ctx, "Random value generated", "module", "random_executor", "kind", e.Kind)

	return map[string]any{
		"kind":     e.Kind,
		"result":   value,
		"variable": e.OutputVariable,
	}, nil
}

func (e *Executor) generate() (any, error) {
	switch e.Kind {
	case "number":
		if e.Min > e.Max {
			return nil, fmt.Errorf("min %v, max %v: %w", e.Min, e.Max, ErrInvalidRange)
		}

		span := e.Max - e.Min

		// Whole-number bounds produce a whole-number result. Spans too wide
		// for the integer generator take the float path instead.
		if e.Min == math.Trunc(e.Min) && e.Max == math.Trunc(e.Max) && span < math.MaxInt64 {
			return e.Min + float64(rand.Int64N(int64(span)+1)), nil
		}

		return e.Min + rand.Float64()*span, nil
	case "uuid":
		return uuid.New().String(), nil
	case "choice":
		if len(e.Choices) == 0 {
			return nil, ErrNoChoices
		}

		return e.Choices[rand.IntN(len(e.Choices))], nil
	default:
		return nil, fmt.Errorf("%q: %w", e.Kind, ErrUnsupportedKind)
	}
}

// Factory creates random executors.
type Factory struct{}

// NewFactory returns the random executor factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeRandom
}
