// Package email provides the email step executor. Like sms, it composes; the
// user sends.
package email

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

var (
	// ErrRecipientsMissing is returned when the config has no 'to' list.
	ErrRecipientsMissing = errors.New("missing 'to' in configuration")

	// ErrComposerUnavailable is returned when no MessageComposer capability
	// was wired in.
	ErrComposerUnavailable = errors.New("message composer capability not available")

	// ErrInvalidRecipient is returned when a recipient fails email validation.
	ErrInvalidRecipient = errors.New("invalid email recipient")
)

// Executor composes one email.
type Executor struct {
	To       []string
	Subject  string
	Body     string
	composer protocol.MessageComposer
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any, composer protocol.MessageComposer) (*Executor, error) {
	rawTo, _ := config["to"].([]any)
	if len(rawTo) == 0 {
		return nil, ErrRecipientsMissing
	}

	to := make([]string, 0, len(rawTo))
	for _, raw := range rawTo {
		to = append(to, variables.Stringify(raw))
	}

	subject, _ := config["subject"].(string)
	body, _ := config["body"].(string)

	return &Executor{To: to, Subject: subject, Body: body, composer: composer}, nil
}

// Execute validates every address, sanitizes subject and body and opens the
// composer.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	if e.composer == nil {
		return nil, ErrComposerUnavailable
	}

	validated := make([]string, 0, len(e.To))

	for _, address := range e.To {
		checked := security.ValidateEmailAddress(address)
		if !checked.IsValid {
			return nil, fmt.Errorf("%q: %w", address, ErrInvalidRecipient)
		}

		validated = append(validated, checked.Sanitized)
	}

	subject := security.SanitizeTextInput(e.Subject, 200).Sanitized
	body := security.SanitizeTextInput(e.Body, 10000).Sanitized

	if err := e.composer.ComposeEmail(ctx, validated, subject, body); err != nil {
		return nil, fmt.Errorf("failed to compose email: %w", err)
	}

	logger.DebugContext(ctx, "Email composed", "module", "email_executor", "to", len(validated))

	return map[string]any{"to": validated, "subject": subject}, nil
}

// Factory creates email executors.
type Factory struct {
	composer protocol.MessageComposer
}

// NewFactory returns an email executor factory bound to the given composer
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
	return models.StepTypeEmail
}
