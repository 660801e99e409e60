// Package sharetext provides the share_text step executor.
package sharetext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/security"
)

var (
	// ErrTextMissing is returned when the config has no text.
	ErrTextMissing = errors.New("missing 'text' in configuration")

	// ErrShareSheetUnavailable is returned when no ShareSheet capability was
	// wired in.
	ErrShareSheetUnavailable = errors.New("share sheet capability not available")
)

// Executor presents the share dialog for a piece of text.
type Executor struct {
	Text  string
	Title string
	sheet protocol.ShareSheet
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any, sheet protocol.ShareSheet) (*Executor, error) {
	text, _ := config["text"].(string)
	if text == "" {
		return nil, ErrTextMissing
	}

	title, _ := config["title"].(string)

	return &Executor{Text: text, Title: title, sheet: sheet}, nil
}

// Execute sanitizes the text and presents the share sheet.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	if e.sheet == nil {
		return nil, ErrShareSheetUnavailable
	}

	text := security.SanitizeTextInput(e.Text, 10000).Sanitized
	title := security.SanitizeTextInput(e.Title, 200).Sanitized

	if err := e.sheet.ShareText(ctx, text, title); err != nil {
		return nil, fmt.Errorf("failed to share text: %w", err)
	}

	logger.DebugContext(ctx, "Text shared", "module", "share_text_executor")

	return map[string]any{"shared": true, "title": title}, nil
}

// Factory creates share_text executors.
type Factory struct {
	sheet protocol.ShareSheet
}

// NewFactory returns a share_text executor factory bound to the given share
// sheet capability.
func NewFactory(sheet protocol.ShareSheet) *Factory {
	return &Factory{sheet: sheet}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config, f.sheet)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeShareText
}
