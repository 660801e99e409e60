// Package clipboard provides the clipboard step executor: read stores the
// current contents into a variable, write replaces them.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/variables"
)

const defaultOutputVariable = "clipboardContent"

var (
	// ErrUnsupportedOperation is returned for anything but read or write.
	ErrUnsupportedOperation = errors.New("unsupported clipboard operation")

	// ErrTextMissing is returned for a write without text.
	ErrTextMissing = errors.New("missing 'text' for clipboard write")

	// ErrClipboardUnavailable is returned when no Clipboard capability was
	// wired in.
	ErrClipboardUnavailable = errors.New("clipboard capability not available")
)

// Executor performs one clipboard operation.
type Executor struct {
	Operation      string
	Text           string
	OutputVariable string
	clipboard      protocol.Clipboard
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any, clipboard protocol.Clipboard) (*Executor, error) {
	operation, _ := config["operation"].(string)
	if operation != "read" && operation != "write" {
		return nil, fmt.Errorf("%q: %w", operation, ErrUnsupportedOperation)
	}

	text, hasText := config["text"].(string)
	if operation == "write" && (!hasText || text == "") {
		return nil, ErrTextMissing
	}

	outputVariable, _ := config["output_variable"].(string)
	if outputVariable == "" {
		outputVariable = defaultOutputVariable
	}

	return &Executor{
		Operation:      operation,
		Text:           text,
		OutputVariable: outputVariable,
		clipboard:      clipboard,
	}, nil
}

// Execute runs the operation. Reads land in the output variable.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	if e.clipboard == nil {
		return nil, ErrClipboardUnavailable
	}

	logger = logger.With("module", "clipboard_executor", "operation", e.Operation)

	if e.Operation == "write" {
		if err := e.clipboard.Write(ctx, e.Text); err != nil {
			return nil, fmt.Errorf("failed to write clipboard: %w", err)
		}

		logger.DebugContext(ctx, "Clipboard written")

		return map[string]any{"operation": "write"}, nil
	}

	content, err := e.clipboard.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read clipboard: %w", err)
	}

	err = execCtx.Vars.Set(ctx, e.OutputVariable, content, variables.SourceAutomation, variables.ScopeExecution)
	if err != nil {
		return nil, fmt.Errorf("failed to store clipboard content: %w", err)
	}

	logger.DebugContext(ctx, "Clipboard read")

	return map[string]any{"operation": "read", "variable": e.OutputVariable}, nil
}

// Factory creates clipboard executors.
type Factory struct {
	clipboard protocol.Clipboard
}

// NewFactory returns a clipboard executor factory bound to the given
// clipboard capability.
func NewFactory(clipboard protocol.Clipboard) *Factory {
	return &Factory{clipboard: clipboard}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config, f.clipboard)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeClipboard
}
