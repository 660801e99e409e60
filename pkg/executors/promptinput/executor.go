// Package promptinput provides the prompt_input step executor: ask the user
// for a line of text and store the answer.
package promptinput

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/security"
	"github.com/dukex/stepflow/pkg/variables"
)

const defaultOutputVariable = "userInput"

var (
	// ErrTitleMissing is returned when the config has no title.
	ErrTitleMissing = errors.New("missing 'title' in configuration")

	// ErrInteractionUnavailable is returned when no UserInteraction capability
	// was wired in.
	ErrInteractionUnavailable = errors.New("user interaction capability not available")
)

// Executor asks the user for text.
type Executor struct {
	Title          string
	Message        string
	Default        string
	OutputVariable string
	interaction    protocol.UserInteraction
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any, interaction protocol.UserInteraction) (*Executor, error) {
	title, _ := config["title"].(string)
	if title == "" {
		return nil, ErrTitleMissing
	}

	message, _ := config["message"].(string)
	defaultValue, _ := config["default"].(string)

	outputVariable, _ := config["output_variable"].(string)
	if outputVariable == "" {
		outputVariable = defaultOutputVariable
	}

	return &Executor{
		Title:          title,
		Message:        message,
		Default:        defaultValue,
		OutputVariable: outputVariable,
		interaction:    interaction,
	}, nil
}

// Execute prompts and stores the sanitized answer. A dismissed prompt
// surfaces as protocol.ErrInteractionCancelled.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	if e.interaction == nil {
		return nil, ErrInteractionUnavailable
	}

	answer, err := e.interaction.PromptForText(ctx, e.Title, e.Message, e.Default)
	if err != nil {
		return nil, fmt.Errorf("prompt failed: %w", err)
	}

	sanitized := security.SanitizeTextInput(answer, 0).Sanitized

	err = execCtx.Vars.Set(ctx, e.OutputVariable, sanitized, variables.SourceUser, variables.ScopeExecution)
	if err != nil {
		return nil, fmt.Errorf("failed to store user input: %w", err)
	}

	logger.DebugContext(ctx, "User input collected", "module", "prompt_input_executor", "variable", e.OutputVariable)

	return map[string]any{"value": sanitized, "variable": e.OutputVariable}, nil
}

// Factory creates prompt_input executors.
type Factory struct {
	interaction protocol.UserInteraction
}

// NewFactory returns a prompt_input executor factory bound to the given
// interaction capability.
func NewFactory(interaction protocol.UserInteraction) *Factory {
	return &Factory{interaction: interaction}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config, f.interaction)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypePromptInput
}
