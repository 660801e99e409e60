package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
)

// maxStepsPerAutomation bounds definition size before any step runs.
const maxStepsPerAutomation = 100

// Verdict is the outcome of a policy check. Errors block execution; warnings
// surface to the user but let the run proceed.
type Verdict struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Gate screens whole automations and single steps before execution. It is an
// explicitly constructed, injected service so engines stay testable and
// isolated from each other.
type Gate struct {
	logger      *slog.Logger
	interaction protocol.UserInteraction
	confirmable map[string]struct{}
}

// defaultConfirmable lists step types that always require user confirmation
// before their side effect.
var defaultConfirmable = []string{
	models.StepTypeSMS,
	models.StepTypeEmail,
	models.StepTypeShareText,
	models.StepTypeOpenURL,
	models.StepTypeExternalAutomation,
}

// NewGate creates a gate. The interaction surface may be nil for headless
// callers; confirmation-required steps are then approved automatically with
// a log entry.
func NewGate(logger *slog.Logger, interaction protocol.UserInteraction) *Gate {
	if logger == nil {
		logger = slog.Default()
	}

	confirmable := make(map[string]struct{}, len(defaultConfirmable))
	for _, stepType := range defaultConfirmable {
		confirmable[stepType] = struct{}{}
	}

	return &Gate{
		logger:      logger.With("module", "security"),
		interaction: interaction,
		confirmable: confirmable,
	}
}

// ValidateAutomation screens a whole definition before any executor runs.
func (g *Gate) ValidateAutomation(definition *models.AutomationDefinition) Verdict {
	verdict := Verdict{IsValid: true}

	if len(definition.Steps) > maxStepsPerAutomation {
		verdict.IsValid = false
		verdict.Errors = append(verdict.Errors,
			fmt.Sprintf("automation exceeds the maximum of %d steps", maxStepsPerAutomation))
	}

	for _, step := range definition.Steps {
		if !step.Enabled {
			continue
		}

		if g.RequiresConfirmation(step.Type) {
			verdict.Warnings = append(verdict.Warnings,
				fmt.Sprintf("step %q (%s) requires user confirmation", step.ID, step.Type))
		}

		stepVerdict := g.ValidateStep(step)
		if !stepVerdict.IsValid {
			verdict.IsValid = false
			verdict.Errors = append(verdict.Errors, stepVerdict.Errors...)
		}

		verdict.Warnings = append(verdict.Warnings, stepVerdict.Warnings...)
	}

	return verdict
}

// ValidateStep applies per-step policy: external-facing strings go through
// the sanitizers before any URI, SMS or request is built from them.
func (g *Gate) ValidateStep(step models.StepDefinition) Verdict {
	verdict := Verdict{IsValid: true}
	prefix := fmt.Sprintf("step %q: ", step.ID)

	switch step.Type {
	case models.StepTypeWebhook, models.StepTypeHTTPRequest, models.StepTypeOpenURL:
		if rawURL, ok := step.Config["url"].(string); ok && !containsToken(rawURL) {
			merge(&verdict, prefix, ValidateURL(rawURL))
		}

	case models.StepTypeSMS:
		recipients, _ := step.Config["recipients"].([]any)
		for _, recipient := range recipients {
			if phone, ok := recipient.(string); ok && !containsToken(phone) {
				merge(&verdict, prefix, ValidatePhoneNumber(phone))
			}
		}

	case models.StepTypeEmail:
		to, _ := step.Config["to"].([]any)
		for _, recipient := range to {
			if address, ok := recipient.(string); ok && !containsToken(address) {
				merge(&verdict, prefix, ValidateEmailAddress(address))
			}
		}

	case models.StepTypeNotification, models.StepTypeShareText, models.StepTypeTextToSpeech:
		for _, field := range []string{"title", "body", "text"} {
			if text, ok := step.Config[field].(string); ok {
				result := SanitizeTextInput(text, DefaultMaxTextLength)
				for _, warning := range result.Warnings {
					verdict.Warnings = append(verdict.Warnings, prefix+warning)
				}
			}
		}
	}

	return verdict
}

// RequiresConfirmation reports whether the step type always needs an explicit
// user go-ahead.
func (g *Gate) RequiresConfirmation(stepType string) bool {
	_, ok := g.confirmable[stepType]

	return ok
}

// ShowSecurityWarning asks the user to approve a flagged operation. The first
// return is the user's decision; a dismissed dialog counts as "no" without an
// error. Headless gates approve automatically.
func (g *Gate) ShowSecurityWarning(ctx context.Context, title, message string, warnings []string) (bool, error) {
	if g.interaction == nil {
		g.logger.InfoContext(ctx, "No interaction surface configured, auto-approving",
			"title", title, "warnings", warnings)

		return true, nil
	}

	fullMessage := message
	if len(warnings) > 0 {
		fullMessage = message + "\n\n" + strings.Join(warnings, "\n")
	}

	choice, err := g.interaction.Confirm(ctx, title, fullMessage, []string{"Continue", "Cancel"})
	if errors.Is(err, protocol.ErrInteractionCancelled) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}

	return choice == "Continue", nil
}

// containsToken reports whether a config string still holds interpolation
// placeholders; those are re-screened after interpolation at dispatch time.
func containsToken(value string) bool {
	return strings.Contains(value, "{{")
}

func merge(verdict *Verdict, prefix string, result SanitizeResult) {
	if !result.IsValid {
		verdict.IsValid = false
	}

	for _, errMsg := range result.Errors {
		verdict.Errors = append(verdict.Errors, prefix+errMsg)
	}

	for _, warning := range result.Warnings {
		verdict.Warnings = append(verdict.Warnings, prefix+warning)
	}
}
