// Package validation implements per-step-type structural and semantic
// validation of step configuration, run strictly before any execution
// attempt.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError describes one rejected config field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// StepValidator validates step configs against compiled JSON schemas plus a
// small set of semantic rules. Validate is a pure function of
// (stepType, config); it constructs no executor and has no side effects.
type StepValidator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewStepValidator compiles the built-in schemas.
func NewStepValidator() (*StepValidator, error) {
	compiled := make(map[string]*gojsonschema.Schema, len(stepSchemas))

	for stepType, raw := range stepSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for step type %q: %w", stepType, err)
		}

		compiled[stepType] = schema
	}

	return &StepValidator{schemas: compiled}, nil
}

// Validate checks config against the step type's schema and semantic rules.
// An empty slice means the config is acceptable. An unknown step type yields
// a single error naming the type.
func (v *StepValidator) Validate(stepType string, config map[string]any) []ValidationError {
	schema, known := v.schemas[stepType]
	if !known {
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unknown step type %q", stepType),
			Value:   stepType,
		}}
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(config))
	if err != nil {
		return []ValidationError{{
			Field:   "config",
			Message: fmt.Sprintf("config is not a valid document: %v", err),
		}}
	}

	var errs []ValidationError

	for _, schemaErr := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   schemaErr.Field(),
			Message: schemaErr.Description(),
			Value:   schemaErr.Value(),
		})
	}

	errs = append(errs, semanticChecks(stepType, config)...)

	return errs
}

// Supports reports whether the validator knows the step type.
func (v *StepValidator) Supports(stepType string) bool {
	_, ok := v.schemas[stepType]

	return ok
}

// semanticChecks covers rules a JSON schema cannot express.
func semanticChecks(stepType string, config map[string]any) []ValidationError {
	var errs []ValidationError

	switch stepType {
	case "math":
		operation, _ := config["operation"].(string)

		if operation == "divide" || operation == "modulo" {
			if b, ok := toNumber(config["operand_b"]); ok && b == 0 {
				errs = append(errs, ValidationError{
					Field:   "operand_b",
					Message: fmt.Sprintf("%s by zero", operation),
					Value:   config["operand_b"],
				})
			}
		}

	case "clipboard":
		operation, _ := config["operation"].(string)
		text, _ := config["text"].(string)

		if operation == "write" && text == "" {
			errs = append(errs, ValidationError{
				Field:   "text",
				Message: "text is required for clipboard write",
			})
		}

	case "external_automation":
		id, _ := config["automation_id"].(string)
		name, _ := config["automation_name"].(string)

		if id == "" && name == "" {
			errs = append(errs, ValidationError{
				Field:   "automation_id",
				Message: "one of automation_id or automation_name is required",
			})
		}

	case "random":
		kind, _ := config["kind"].(string)

		if kind == "" || kind == "number" {
			minValue, hasMin := toNumber(config["min"])
			maxValue, hasMax := toNumber(config["max"])

			if hasMin && hasMax && minValue > maxValue {
				errs = append(errs, ValidationError{
					Field:   "min",
					Message: "min must not exceed max",
					Value:   config["min"],
				})
			}
		}

		if kind == "choice" {
			if _, ok := config["choices"].([]any); !ok {
				errs = append(errs, ValidationError{
					Field:   "choices",
					Message: "choices are required for choice kind",
				})
			}
		}
	}

	return errs
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
