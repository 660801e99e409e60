// Package local provides host-process implementations of the platform
// capabilities: notifications and messages go to the log, the clipboard is an
// in-memory cell, prompts read from standard input. Useful for the CLI and
// for development; a mobile shell supplies real implementations.
package local

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukex/stepflow/pkg/protocol"
)

// Notifier logs notifications instead of posting them.
type Notifier struct {
	logger *slog.Logger
}

func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{logger: logger.With("module", "local_capabilities")}
}

func (n *Notifier) Notify(ctx context.Context, title, body string) error {
	n.logger.InfoContext(ctx, "Notification", "title", title, "body", body)

	return nil
}

// Composer logs composed messages.
type Composer struct {
	logger *slog.Logger
}

func NewComposer(logger *slog.Logger) *Composer {
	return &Composer{logger: logger.With("module", "local_capabilities")}
}

func (c *Composer) ComposeSMS(ctx context.Context, recipients []string, body string) error {
	c.logger.InfoContext(ctx, "SMS composed", "recipients", recipients, "body", body)

	return nil
}

func (c *Composer) ComposeEmail(ctx context.Context, to []string, subject, body string) error {
	c.logger.InfoContext(ctx, "Email composed", "to", to, "subject", subject)

	return nil
}

// Clipboard is an in-memory clipboard cell.
type Clipboard struct {
	mu      sync.Mutex
	content string
}

func NewClipboard() *Clipboard {
	return &Clipboard{}
}

func (c *Clipboard) Read(_ context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.content, nil
}

func (c *Clipboard) Write(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.content = text

	return nil
}

// Launcher logs URLs instead of opening them.
type Launcher struct {
	logger *slog.Logger
}

func NewLauncher(logger *slog.Logger) *Launcher {
	return &Launcher{logger: logger.With("module", "local_capabilities")}
}

func (l *Launcher) OpenURL(ctx context.Context, url string) error {
	l.logger.InfoContext(ctx, "URL opened", "url", url)

	return nil
}

// Speaker logs spoken text.
type Speaker struct {
	logger *slog.Logger
}

func NewSpeaker(logger *slog.Logger) *Speaker {
	return &Speaker{logger: logger.With("module", "local_capabilities")}
}

func (s *Speaker) Speak(ctx context.Context, text, language string, rate float64) error {
	s.logger.InfoContext(ctx, "Speech", "text", text, "language", language, "rate", rate)

	return nil
}

// Sharer logs shared text.
type Sharer struct {
	logger *slog.Logger
}

func NewSharer(logger *slog.Logger) *Sharer {
	return &Sharer{logger: logger.With("module", "local_capabilities")}
}

func (s *Sharer) ShareText(ctx context.Context, text, title string) error {
	s.logger.InfoContext(ctx, "Text shared", "title", title, "text", text)

	return nil
}

// Interaction prompts on an output writer and reads answers from an input
// reader, usually the terminal.
type Interaction struct {
	in  *bufio.Reader
	out io.Writer
}

func NewInteraction(in io.Reader, out io.Writer) *Interaction {
	return &Interaction{in: bufio.NewReader(in), out: out}
}

// Confirm prints the options and reads the user's pick by number. An empty
// line counts as a dismissal.
func (i *Interaction) Confirm(_ context.Context, title, message string, options []string) (string, error) {
	fmt.Fprintf(i.out, "%s\n", title)

	if message != "" {
		fmt.Fprintf(i.out, "%s\n", message)
	}

	for index, option := range options {
		fmt.Fprintf(i.out, "  %d) %s\n", index+1, option)
	}

	fmt.Fprint(i.out, "> ")

	line, err := i.in.ReadString('\n')
	if err != nil {
		return "", protocol.ErrInteractionCancelled
	}

	answer := strings.TrimSpace(line)
	if answer == "" {
		return "", protocol.ErrInteractionCancelled
	}

	for index, option := range options {
		if answer == fmt.Sprintf("%d", index+1) || strings.EqualFold(answer, option) {
			return option, nil
		}
	}

	return "", protocol.ErrInteractionCancelled
}

// PromptForText reads a free-text answer, falling back to the default on an
// empty line.
func (i *Interaction) PromptForText(_ context.Context, title, message, defaultValue string) (string, error) {
	fmt.Fprintf(i.out, "%s\n", title)

	if message != "" {
		fmt.Fprintf(i.out, "%s\n", message)
	}

	if defaultValue != "" {
		fmt.Fprintf(i.out, "[%s] ", defaultValue)
	}

	fmt.Fprint(i.out, "> ")

	line, err := i.in.ReadString('\n')
	if err != nil {
		return "", protocol.ErrInteractionCancelled
	}

	answer := strings.TrimSpace(line)
	if answer == "" {
		return defaultValue, nil
	}

	return answer, nil
}
