// Package mathops provides the math step executor: arithmetic over two
// operands with results written back into the variable store.
package mathops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/variables"
)

const defaultOutputVariable = "mathResult"

// resultPrecision suppresses binary floating-point artifacts: every result is
// rounded to 10 decimal places.
const resultPrecision = 1e10

var (
	// ErrDivideByZero is returned for divide or modulo with a zero divisor.
	ErrDivideByZero = errors.New("division by zero")

	// ErrOperandMissing is returned when the operation needs an operand the
	// config does not carry.
	ErrOperandMissing = errors.New("missing operand")

	// ErrUnsupportedOperation is returned for an operation outside the
	// supported set.
	ErrUnsupportedOperation = errors.New("unsupported math operation")

	// ErrNegativeSqrt is returned for sqrt of a negative operand.
	ErrNegativeSqrt = errors.New("square root of negative number")
)

// Executor evaluates one arithmetic operation.
type Executor struct {
	Operation      string
	OperandA       any
	OperandB       any
	OutputVariable string
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any) (*Executor, error) {
	operation, _ := config["operation"].(string)

	outputVariable, _ := config["output_variable"].(string)
	if outputVariable == "" {
		outputVariable = defaultOutputVariable
	}

	return &Executor{
		Operation:      operation,
		OperandA:       config["operand_a"],
		OperandB:       config["operand_b"],
		OutputVariable: outputVariable,
	}, nil
}

// Execute computes the result, rounds it and stores it under the output
// variable.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "math_executor", "operation", e.Operation)

	a, ok := toFloat(e.OperandA)
	if !ok {
		return nil, fmt.Errorf("operand_a %v is not numeric: %w", e.OperandA, ErrOperandMissing)
	}

	result, err := e.compute(a)
	if err != nil {
		return nil, err
	}

	rounded := math.Round(result*resultPrecision) / resultPrecision

	err = execCtx.Vars.Set(ctx, e.OutputVariable, rounded, variables.SourceAutomation, variables.ScopeExecution)
	if err != nil {
		return nil, fmt.Errorf("failed to store math result: %w", err)
	}

	logger.DebugContext(ctx, "Math operation completed", "result", rounded)

	return map[string]any{
		"operation": e.Operation,
		"result":    rounded,
		"variable":  e.OutputVariable,
	}, nil
}

func (e *Executor) compute(a float64) (float64, error) {
	switch e.Operation {
	case "sqrt":
		if a < 0 {
			return 0, ErrNegativeSqrt
		}

		return math.Sqrt(a), nil
	case "abs":
		return math.Abs(a), nil
	case "round":
		return math.Round(a), nil
	case "floor":
		return math.Floor(a), nil
	case "ceil":
		return math.Ceil(a), nil
	}

	b, ok := toFloat(e.OperandB)
	if !ok {
		return 0, fmt.Errorf("operand_b %v is not numeric: %w", e.OperandB, ErrOperandMissing)
	}

	switch e.Operation {
	case "add":
		return a + b, nil
	case "subtract":
		return a - b, nil
	case "multiply":
		return a * b, nil
	case "divide":
		if b == 0 {
			return 0, ErrDivideByZero
		}

		return a / b, nil
	case "modulo":
		if b == 0 {
			return 0, ErrDivideByZero
		}

		return math.Mod(a, b), nil
	case "power":
		return math.Pow(a, b), nil
	case "min":
		return math.Min(a, b), nil
	case "max":
		return math.Max(a, b), nil
	case "random":
		if b < a {
			a, b = b, a
		}

		return a + rand.Float64()*(b-a), nil
	default:
		return 0, fmt.Errorf("%q: %w", e.Operation, ErrUnsupportedOperation)
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}

// Factory creates math executors.
type Factory struct{}

// NewFactory returns the math executor factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeMath
}
