// Package condition provides the condition step executor: a comparator over
// a variable and a literal. The step itself never branches flow; it only
// reports conditionMet for surrounding group wiring to act on.
package condition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/variables"
)

const defaultOutputVariable = "conditionMet"

// ErrUnsupportedOperator is returned for an operator outside the supported
// set.
var ErrUnsupportedOperator = errors.New("unsupported condition operator")

// Executor compares a variable against an expected value.
type Executor struct {
	Variable       string
	Operator       string
	Expected       any
	OutputVariable string
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any) (*Executor, error) {
	variable, _ := config["variable"].(string)
	operator, _ := config["operator"].(string)

	outputVariable, _ := config["output_variable"].(string)
	if outputVariable == "" {
		outputVariable = defaultOutputVariable
	}

	return &Executor{
		Variable:       variable,
		Operator:       operator,
		Expected:       config["value"],
		OutputVariable: outputVariable,
	}, nil
}

// Execute evaluates the comparison and records the boolean outcome.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "condition_executor", "variable", e.Variable, "operator", e.Operator)

	var actual any

	if stored, ok := execCtx.Vars.Get(ctx, e.Variable); ok {
		actual = stored.Value
	}

	met, err := e.evaluate(actual)
	if err != nil {
		return nil, err
	}

	err = execCtx.Vars.Set(ctx, e.OutputVariable, met, variables.SourceAutomation, variables.ScopeExecution)
	if err != nil {
		return nil, fmt.Errorf("failed to store condition result: %w", err)
	}

	logger.DebugContext(ctx, "Condition evaluated", "conditionMet", met)

	return map[string]any{
		"conditionMet": met,
		"variable":     e.Variable,
		"operator":     e.Operator,
		"actual":       actual,
		"expected":     e.Expected,
	}, nil
}

func (e *Executor) evaluate(actual any) (bool, error) {
	actualText := variables.Stringify(actual)
	expectedText := variables.Stringify(e.Expected)

	switch e.Operator {
	case "equals":
		return actualText == expectedText, nil
	case "not_equals":
		return actualText != expectedText, nil
	case "contains":
		return strings.Contains(actualText, expectedText), nil
	case "is_empty":
		return actual == nil || actualText == "", nil
	case "is_not_empty":
		return actual != nil && actualText != "", nil
	case "greater", "less", "greater_equal", "less_equal":
		// Non-numeric operands make the comparison false, never an error.
		actualNum, okA := parseNumber(actualText)
		expectedNum, okB := parseNumber(expectedText)

		if !okA || !okB {
			return false, nil
		}

		switch e.Operator {
		case "greater":
			return actualNum > expectedNum, nil
		case "less":
			return actualNum < expectedNum, nil
		case "greater_equal":
			return actualNum >= expectedNum, nil
		default:
			return actualNum <= expectedNum, nil
		}
	default:
		return false, fmt.Errorf("%q: %w", e.Operator, ErrUnsupportedOperator)
	}
}

func parseNumber(text string) (float64, bool) {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)

	return parsed, err == nil
}

// Factory creates condition executors.
type Factory struct{}

// NewFactory returns the condition executor factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeCondition
}
