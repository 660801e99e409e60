// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/google/uuid"

	"github.com/dukex/stepflow/pkg/models"
)

// CreateTestStep creates a test StepDefinition with default values that can be overridden.
func CreateTestStep(overrides ...func(*models.StepDefinition)) models.StepDefinition {
	step := models.StepDefinition{
		ID:      uuid.New().String(),
		Type:    models.StepTypeVariable,
		Title:   "Test Step",
		Enabled: true,
		Config:  map[string]any{"name": "x", "value": "1"},
	}

	for _, override := range overrides {
		override(&step)
	}

	return step
}

// WithID sets the step ID.
func WithID(id string) func(*models.StepDefinition) {
	return func(s *models.StepDefinition) {
		s.ID = id
	}
}

// WithType sets the step type.
func WithType(stepType string) func(*models.StepDefinition) {
	return func(s *models.StepDefinition) {
		s.Type = stepType
	}
}

// WithTitle sets the step title.
func WithTitle(title string) func(*models.StepDefinition) {
	return func(s *models.StepDefinition) {
		s.Title = title
	}
}

// WithConfig sets the step configuration.
func WithConfig(config map[string]any) func(*models.StepDefinition) {
	return func(s *models.StepDefinition) {
		s.Config = config
	}
}

// WithEnabled sets the step enabled status.
func WithEnabled(enabled bool) func(*models.StepDefinition) {
	return func(s *models.StepDefinition) {
		s.Enabled = enabled
	}
}

// CreateTestAutomation creates a test automation with a single default step.
func CreateTestAutomation(id, title string, steps ...models.StepDefinition) *models.AutomationDefinition {
	if len(steps) == 0 {
		steps = []models.StepDefinition{CreateTestStep(WithID("s1"))}
	}

	return &models.AutomationDefinition{
		ID:          id,
		Title:       title,
		Description: "An automation for testing",
		Steps:       steps,
	}
}
