// Package texttospeech provides the text_to_speech step executor.
package texttospeech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/security"
)

const (
	defaultLanguage = "en-US"
	defaultRate     = 1.0
)

var (
	// ErrTextMissing is returned when the config has no text.
	ErrTextMissing = errors.New("missing 'text' in configuration")

	// ErrSynthesizerUnavailable is returned when no SpeechSynthesizer
	// capability was wired in.
	ErrSynthesizerUnavailable = errors.New("speech synthesizer capability not available")
)

// Executor speaks one piece of text.
type Executor struct {
	Text        string
	Language    string
	Rate        float64
	synthesizer protocol.SpeechSynthesizer
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any, synthesizer protocol.SpeechSynthesizer) (*Executor, error) {
	text, _ := config["text"].(string)
	if text == "" {
		return nil, ErrTextMissing
	}

	language, _ := config["language"].(string)
	if language == "" {
		language = defaultLanguage
	}

	rate, ok := config["rate"].(float64)
	if !ok || rate <= 0 {
		rate = defaultRate
	}

	return &Executor{
		Text:        text,
		Language:    language,
		Rate:        rate,
		synthesizer: synthesizer,
	}, nil
}

// Execute sanitizes the text and speaks it.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	if e.synthesizer == nil {
		return nil, ErrSynthesizerUnavailable
	}

	text := security.SanitizeTextInput(e.Text, 5000).Sanitized

	if err := e.synthesizer.Speak(ctx, text, e.Language, e.Rate); err != nil {
		return nil, fmt.Errorf("failed to speak text: %w", err)
	}

	logger.DebugContext(ctx, "Text spoken", "module", "text_to_speech_executor", "language", e.Language)

	return map[string]any{"spoken": true, "language": e.Language, "rate": e.Rate}, nil
}

// Factory creates text_to_speech executors.
type Factory struct {
	synthesizer protocol.SpeechSynthesizer
}

// NewFactory returns a text_to_speech executor factory bound to the given
// synthesizer capability.
func NewFactory(synthesizer protocol.SpeechSynthesizer) *Factory {
	return &Factory{synthesizer: synthesizer}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config, f.synthesizer)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeTextToSpeech
}
