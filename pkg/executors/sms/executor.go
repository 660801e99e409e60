// Package sms provides the sms step executor. It opens the platform message
// composer; the user still presses send.
package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/security"
	"github.com/dukex/stepflow/pkg/variables"
)

var (
	// ErrRecipientsMissing is returned when the config has no recipients.
	ErrRecipientsMissing = errors.New("missing 'recipients' in configuration")

	// ErrBodyMissing is returned when the config has no message body.
	ErrBodyMissing = errors.New("missing 'body' in configuration")

	// ErrComposerUnavailable is returned when no MessageComposer capability
	// was wired in.
	ErrComposerUnavailable = errors.New("message composer capability not available")

	// ErrInvalidRecipient is returned when a recipient fails phone validation.
	ErrInvalidRecipient = errors.New("invalid sms recipient")
)

// Executor composes one SMS.
type Executor struct {
	Recipients []string
	Body       string
	composer   protocol.MessageComposer
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any, composer protocol.MessageComposer) (*Executor, error) {
	rawRecipients, _ := config["recipients"].([]any)
	if len(rawRecipients) == 0 {
		return nil, ErrRecipientsMissing
	}

	recipients := make([]string, 0, len(rawRecipients))
	for _, raw := range rawRecipients {
		recipients = append(recipients, variables.Stringify(raw))
	}

	body, _ := config["body"].(string)
	if strings.TrimSpace(body) == "" {
		return nil, ErrBodyMissing
	}

	return &Executor{Recipients: recipients, Body: body, composer: composer}, nil
}

// Execute validates every recipient, sanitizes the body and opens the
// composer.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	if e.composer == nil {
		return nil, ErrComposerUnavailable
	}

	normalized := make([]string, 0, len(e.Recipients))

	for _, recipient := range e.Recipients {
		checked := security.ValidatePhoneNumber(recipient)
		if !checked.IsValid {
			return nil, fmt.Errorf("%q: %w", recipient, ErrInvalidRecipient)
		}

		normalized = append(normalized, checked.Sanitized)
	}

	body := security.SanitizeTextInput(e.Body, 0).Sanitized

	if err := e.composer.ComposeSMS(ctx, normalized, body); err != nil {
		return nil, fmt.Errorf("failed to compose sms: %w", err)
	}

	logger.DebugContext(ctx, "SMS composed", "module", "sms_executor", "recipients", len(normalized))

	return map[string]any{"recipients": normalized, "body": body}, nil
}

// Factory creates sms executors.
type Factory struct {
	composer protocol.MessageComposer
}

// NewFactory returns an sms executor factory bound to the given composer
// capability.
func NewFactory(composer protocol.MessageComposer) *Factory {
	return &Factory{composer: composer}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config, f.composer)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeSMS
}
