// Package menuselection provides the menu_selection step executor: present a
// fixed option list and store the user's pick.
package menuselection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/variables"
)

const defaultOutputVariable = "menuSelection"

var (
	// ErrOptionsMissing is returned when the config has no options.
	ErrOptionsMissing = errors.New("missing 'options' in configuration")

	// ErrInteractionUnavailable is returned when no UserInteraction capability
	// was wired in.
	ErrInteractionUnavailable = errors.New("user interaction capability not available")
)

// Executor presents a menu.
type Executor struct {
	Title          string
	Options        []string
	OutputVariable string
	interaction    protocol.UserInteraction
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any, interaction protocol.UserInteraction) (*Executor, error) {
	rawOptions, _ := config["options"].([]any)
	if len(rawOptions) == 0 {
		return nil, ErrOptionsMissing
	}

	options := make([]string, 0, len(rawOptions))
	for _, raw := range rawOptions {
		options = append(options, variables.Stringify(raw))
	}

	title, _ := config["title"].(string)
	if title == "" {
		title = "Choose an option"
	}

	outputVariable, _ := config["output_variable"].(string)
	if outputVariable == "" {
		outputVariable = defaultOutputVariable
	}

	return &Executor{
		Title:          title,
		Options:        options,
		OutputVariable: outputVariable,
		interaction:    interaction,
	}, nil
}

// Execute shows the menu and stores the selection. A dismissed menu surfaces
// as protocol.ErrInteractionCancelled.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	if e.interaction == nil {
		return nil, ErrInteractionUnavailable
	}

	selected, err := e.interaction.Confirm(ctx, e.Title, "", e.Options)
	if err != nil {
		return nil, fmt.Errorf("menu selection failed: %w", err)
	}

	err = execCtx.Vars.Set(ctx, e.OutputVariable, selected, variables.SourceUser, variables.ScopeExecution)
	if err != nil {
		return nil, fmt.Errorf("failed to store selection: %w", err)
	}

	logger.DebugContext(ctx, "Menu selection made", "module", "menu_selection_executor", "selected", selected)

	return map[string]any{"selected": selected, "variable": e.OutputVariable}, nil
}

// Factory creates menu_selection executors.
type Factory struct {
	interaction protocol.UserInteraction
}

// NewFactory returns a menu_selection executor factory bound to the given
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
	return models.StepTypeMenuSelection
}
