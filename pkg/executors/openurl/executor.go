// Package openurl provides the open_url step executor.
package openurl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/security"
)

var (
	// ErrURLMissing is returned when the config has no url.
	ErrURLMissing = errors.New("missing 'url' in configuration")

	// ErrURLRejected is returned when the URL fails the security screen.
	ErrURLRejected = errors.New("url rejected by security validation")

	// ErrLauncherUnavailable is returned when no URLLauncher capability was
	// wired in.
	ErrLauncherUnavailable = errors.New("url launcher capability not available")
)

// Executor opens one URL in the platform handler.
type Executor struct {
	URL      string
	launcher protocol.URLLauncher
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any, launcher protocol.URLLauncher) (*Executor, error) {
	rawURL, _ := config["url"].(string)
	if rawURL == "" {
		return nil, ErrURLMissing
	}

	return &Executor{URL: rawURL, launcher: launcher}, nil
}

// Execute screens the URL and hands it to the launcher.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	if e.launcher == nil {
		return nil, ErrLauncherUnavailable
	}

	checked := security.ValidateURL(e.URL)
	if !checked.IsValid {
		return nil, fmt.Errorf("%s: %w", strings.Join(checked.Errors, "; "), ErrURLRejected)
	}

	if err := e.launcher.OpenURL(ctx, checked.Sanitized); err != nil {
		return nil, fmt.Errorf("failed to open url: %w", err)
	}

	logger.DebugContext(ctx, "URL opened", "module", "open_url_executor", "url", checked.Sanitized)

	return map[string]any{"url": checked.Sanitized}, nil
}

// Factory creates open_url executors.
type Factory struct {
	launcher protocol.URLLauncher
}

// NewFactory returns an open_url executor factory bound to the given launcher
// capability.
func NewFactory(launcher protocol.URLLauncher) *Factory {
	return &Factory{launcher: launcher}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config, f.launcher)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeOpenURL
}
