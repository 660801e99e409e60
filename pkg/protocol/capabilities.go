package protocol

import (
	"context"
	"errors"

	"github.com/dukex/stepflow/pkg/models"
)

// ErrInteractionCancelled is returned by user-interaction capabilities when
// the user dismisses a dialog. The engine maps it to a cancellation, not a
// crash.
var ErrInteractionCancelled = errors.New("user cancelled the interaction")

// Notifier posts a local notification.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// MessageComposer opens the platform's SMS/email composer. Sending is the
// user's action; composing is ours.
type MessageComposer interface {
	ComposeSMS(ctx context.Context, recipients []string, body string) error
	ComposeEmail(ctx context.Context, to []string, subject, body string) error
}

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, text string) error
}

// Position is a geolocation fix.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// LocationProvider resolves the device's current position.
type LocationProvider interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// URLLauncher opens a URL in the platform's default handler.
type URLLauncher interface {
	OpenURL(ctx context.Context, url string) error
}

// SpeechSynthesizer speaks text aloud.
type SpeechSynthesizer interface {
	Speak(ctx context.Context, text, language string, rate float64) error
}

// ShareSheet presents the platform share dialog for a piece of text.
type ShareSheet interface {
	ShareText(ctx context.Context, text, title string) error
}

// UserInteraction prompts the user and waits for an answer. Both calls may
// return ErrInteractionCancelled.
type UserInteraction interface {
	Confirm(ctx context.Context, title, message string, options []string) (string, error)
	PromptForText(ctx context.Context, title, message, defaultValue string) (string, error)
}

// AutomationFetcher resolves automation definitions for nested execution.
type AutomationFetcher interface {
	AutomationByID(ctx context.Context, id string) (*models.AutomationDefinition, error)
	AutomationByName(ctx context.Context, name string) (*models.AutomationDefinition, error)
}
