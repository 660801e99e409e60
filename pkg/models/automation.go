// Package models defines the core domain models for automation execution.
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukex/stepflow/pkg/variables"
)

// Step type tags understood by the built-in executors. The vocabulary is
// closed per engine instance but extensible through registry registration.
const (
	StepTypeNotification       = "notification"
	StepTypeSMS                = "sms"
	StepTypeEmail              = "email"
	StepTypeWebhook            = "webhook"
	StepTypeHTTPRequest        = "http_request"
	StepTypeDelay              = "delay"
	StepTypeVariable           = "variable"
	StepTypeGetVariable        = "get_variable"
	StepTypePromptInput        = "prompt_input"
	StepTypeMenuSelection      = "menu_selection"
	StepTypeLocation           = "location"
	StepTypeCondition          = "condition"
	StepTypeLoop               = "loop"
	StepTypeText               = "text"
	StepTypeMath               = "math"
	StepTypeClipboard          = "clipboard"
	StepTypeGroup              = "group"
	StepTypeRandom             = "random"
	StepTypeJSONParser         = "json_parser"
	StepTypeTextToSpeech       = "text_to_speech"
	StepTypeOpenURL            = "open_url"
	StepTypeShareText          = "share_text"
	StepTypeExternalAutomation = "external_automation"
)

// StepDefinition is one unit of work inside an automation. Config values may
// contain {{variable}} placeholders resolved immediately before dispatch; the
// definition itself is never mutated during a run.
type StepDefinition struct {
	ID      string         `json:"id"      validate:"required"`
	Type    string         `json:"type"    validate:"required"`
	Title   string         `json:"title"`
	Enabled bool           `json:"enabled"`
	Config  map[string]any `json:"config"`
}

// AutomationDefinition is an ordered list of steps authored by a user.
// Execution order is list order; there is no separate dependency graph.
type AutomationDefinition struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Steps       []StepDefinition     `json:"steps"       validate:"required,min=1,dive"`
	Variables   []variables.Variable `json:"variables,omitempty"`
	CreatedAt   time.Time            `json:"created_at,omitzero"`
	UpdatedAt   time.Time            `json:"updated_at,omitzero"`
}

var (
	// ErrNoSteps indicates a definition without any steps.
	ErrNoSteps = errors.New("automation has no steps")

	// ErrDuplicateStepID indicates two steps share an ID, which would make
	// context tracking ambiguous.
	ErrDuplicateStepID = errors.New("duplicate step id")
)

// CheckShape verifies the structural invariants the engine depends on:
// a non-empty step list and unique step IDs.
func (d *AutomationDefinition) CheckShape() error {
	if len(d.Steps) == 0 {
		return ErrNoSteps
	}

	seen := make(map[string]struct{}, len(d.Steps))

	for _, step := range d.Steps {
		if step.ID == "" {
			continue // caught by struct validation
		}

		if _, dup := seen[step.ID]; dup {
			return fmt.Errorf("step %q: %w", step.ID, ErrDuplicateStepID)
		}

		seen[step.ID] = struct{}{}
	}

	return nil
}

// EnabledStepCount returns how many steps would actually run.
func (d *AutomationDefinition) EnabledStepCount() int {
	count := 0

	for _, step := range d.Steps {
		if step.Enabled {
			count++
		}
	}

	return count
}
