// Package web provides the REST API for automation management and execution.
package web

import (
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/variables"
)

// SaveAutomationRequest is the body for creating or replacing an automation.
type SaveAutomationRequest struct {
	ID          string                  `json:"id"`
	Title       string                  `json:"title"       validate:"required,min=3"`
	Description string                  `json:"description"`
	Steps       []models.StepDefinition `json:"steps"       validate:"required,min=1,dive"`
	Variables   []variables.Variable    `json:"variables,omitempty"`
}

// ExecuteRequest is the body for starting an execution.
type ExecuteRequest struct {
	Inputs map[string]any `json:"inputs,omitempty"`
	UserID string         `json:"user_id,omitempty"`
}

// ValidateResponse reports the outcome of a dry validation pass.
type ValidateResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
