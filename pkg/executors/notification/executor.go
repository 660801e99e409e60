// Package notification provides the notification step executor, backed by a
// platform Notifier capability.
package notification

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
	// ErrTitleMissing is returned when the config has no title.
	ErrTitleMissing = errors.New("missing 'title' in configuration")

	// ErrNotifierUnavailable is returned when no Notifier capability was
	// wired in.
	ErrNotifierUnavailable = errors.New("notifier capability not available")
)

// Executor posts one local notification.
type Executor struct {
	Title    string
	Body     string
	notifier protocol.Notifier
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any, notifier protocol.Notifier) (*Executor, error) {
	title, _ := config["title"].(string)
	if title == "" {
		return nil, ErrTitleMissing
	}

	body, _ := config["body"].(string)

	return &Executor{Title: title, Body: body, notifier: notifier}, nil
}

// Execute sanitizes the texts and hands them to the platform notifier.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	if e.notifier == nil {
		return nil, ErrNotifierUnavailable
	}

	title := security.SanitizeTextInput(e.Title, 200).Sanitized
	body := security.SanitizeTextInput(e.Body, 0).Sanitized

	if err := e.notifier.Notify(ctx, title, body); err != nil {
		return nil, fmt.Errorf("failed to post notification: %w", err)
	}

	logger.DebugContext(ctx, "Notification posted", "module", "notification_executor", "title", title)

	return map[string]any{"title": title, "body": body}, nil
}

// Factory creates notification executors.
type Factory struct {
	notifier protocol.Notifier
}

// NewFactory returns a notification executor factory bound to the given
// notifier capability.
func NewFactory(notifier protocol.Notifier) *Factory {
	return &Factory{notifier: notifier}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config, f.notifier)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeNotification
}
