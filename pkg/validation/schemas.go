package validation

// stepSchemas maps every built-in step type to the JSON schema its config
// must satisfy. Semantic rules a schema cannot express (divide by zero,
// mutually exclusive fields) live in semanticChecks.
var stepSchemas = map[string]map[string]any{
	"notification": {
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string", "minLength": 1},
			"body":  map[string]any{"type": "string"},
		},
		"required": []any{"title"},
	},
	"sms": {
		"type": "object",
		"properties": map[string]any{
			"recipients": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 1,
			},
			"body": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"recipients", "body"},
	},
	"email": {
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 1,
			},
			"subject": map[string]any{"type": "string"},
			"body":    map[string]any{"type": "string"},
		},
		"required": []any{"to"},
	},
	"webhook": {
		"type": "object",
		"properties": map[string]any{
			"url":    map[string]any{"type": "string", "minLength": 1},
			"method": map[string]any{"type": "string", "enum": []any{"GET", "POST", "PUT", "DELETE"}},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"body": map[string]any{"type": "string"},
		},
		"required": []any{"url"},
	},
	"http_request": {
		"type": "object",
		"properties": map[string]any{
			"url":    map[string]any{"type": "string", "minLength": 1},
			"method": map[string]any{"type": "string", "enum": []any{"GET", "POST", "PUT", "DELETE"}},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"body":            map[string]any{"type": "string"},
			"timeout_seconds": map[string]any{"type": "number", "minimum": 1, "maximum": 120},
			"output_variable": map[string]any{"type": "string"},
		},
		"required": []any{"url"},
	},
	"delay": {
		"type": "object",
		"properties": map[string]any{
			"seconds": map[string]any{"type": "number", "minimum": 0, "maximum": 300},
		},
		"required": []any{"seconds"},
	},
	"variable": {
		"type": "object",
		"properties": map[string]any{
			"name":  map[string]any{"type": "string", "minLength": 1},
			"value": map[string]any{},
			"scope": map[string]any{"type": "string", "enum": []any{"execution", "global"}},
		},
		"required": []any{"name", "value"},
	},
	"get_variable": {
		"type": "object",
		"properties": map[string]any{
			"name":            map[string]any{"type": "string", "minLength": 1},
			"default":         map[string]any{},
			"output_variable": map[string]any{"type": "string"},
		},
		"required": []any{"name"},
	},
	"prompt_input": {
		"type": "object",
		"properties": map[string]any{
			"title":           map[string]any{"type": "string", "minLength": 1},
			"message":         map[string]any{"type": "string"},
			"default":         map[string]any{"type": "string"},
			"output_variable": map[string]any{"type": "string"},
		},
		"required": []any{"title"},
	},
	"menu_selection": {
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"options": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 1,
			},
			"output_variable": map[string]any{"type": "string"},
		},
		"required": []any{"options"},
	},
	"location": {
		"type": "object",
		"properties": map[string]any{
			"output_variable": map[string]any{"type": "string"},
		},
	},
	"condition": {
		"type": "object",
		"properties": map[string]any{
			"variable": map[string]any{"type": "string", "minLength": 1},
			"operator": map[string]any{"type": "string", "enum": []any{
				"equals", "not_equals", "contains",
				"greater", "less", "greater_equal", "less_equal",
				"is_empty", "is_not_empty",
			}},
			"value":           map[string]any{},
			"output_variable": map[string]any{"type": "string"},
		},
		"required": []any{"variable", "operator"},
	},
	"loop": {
		"type": "object",
		"properties": map[string]any{
			"iterations":       map[string]any{"type": "integer", "minimum": 1, "maximum": 1000},
			"counter_variable": map[string]any{"type": "string"},
		},
		"required": []any{"iterations"},
	},
	"text": {
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{"type": "string", "enum": []any{
				"uppercase", "lowercase", "trim", "replace", "split", "join", "length", "concat",
			}},
			"input":           map[string]any{"type": "string"},
			"search":          map[string]any{"type": "string"},
			"replacement":     map[string]any{"type": "string"},
			"separator":       map[string]any{"type": "string"},
			"parts":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"output_variable": map[string]any{"type": "string"},
		},
		"required": []any{"operation"},
	},
	"math": {
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{"type": "string", "enum": []any{
				"add", "subtract", "multiply", "divide", "power", "modulo",
				"sqrt", "abs", "round", "floor", "ceil", "min", "max", "random",
			}},
			"operand_a":       map[string]any{"type": []any{"number", "string"}},
			"operand_b":       map[string]any{"type": []any{"number", "string"}},
			"output_variable": map[string]any{"type": "string"},
		},
		"required": []any{"operation", "operand_a"},
	},
	"clipboard": {
		"type": "object",
		"properties": map[string]any{
			"operation":       map[string]any{"type": "string", "enum": []any{"read", "write"}},
			"text":            map[string]any{"type": "string"},
			"output_variable": map[string]any{"type": "string"},
		},
		"required": []any{"operation"},
	},
	"group": {
		"type": "object",
		"properties": map[string]any{
			"steps": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "object"},
			},
			"mode":              map[string]any{"type": "string", "enum": []any{"sequential", "parallel", "conditional"}},
			"continue_on_error": map[string]any{"type": "boolean"},
			"condition": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"predicate": map[string]any{"type": "string", "enum": []any{"all", "any", "none", "custom"}},
					"variable":  map[string]any{"type": "string"},
				},
			},
		},
		"required": []any{"steps"},
	},
	"random": {
		"type": "object",
		"properties": map[string]any{
			"kind":            map[string]any{"type": "string", "enum": []any{"number", "uuid", "choice"}},
			"min":             map[string]any{"type": "number"},
			"max":             map[string]any{"type": "number"},
			"choices":         map[string]any{"type": "array", "minItems": 1},
			"output_variable": map[string]any{"type": "string"},
		},
	},
	"json_parser": {
		"type": "object",
		"properties": map[string]any{
			"json":            map[string]any{"type": "string", "minLength": 1},
			"path":            map[string]any{"type": "string"},
			"output_variable": map[string]any{"type": "string"},
		},
		"required": []any{"json"},
	},
	"text_to_speech": {
		"type": "object",
		"properties": map[string]any{
			"text":     map[string]any{"type": "string", "minLength": 1},
			"language": map[string]any{"type": "string"},
			"rate":     map[string]any{"type": "number", "minimum": 0.1, "maximum": 2},
		},
		"required": []any{"text"},
	},
	"open_url": {
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"url"},
	},
	"share_text": {
		"type": "object",
		"properties": map[string]any{
			"text":  map[string]any{"type": "string", "minLength": 1},
			"title": map[string]any{"type": "string"},
		},
		"required": []any{"text"},
	},
	"external_automation": {
		"type": "object",
		"properties": map[string]any{
			"automation_id":       map[string]any{"type": "string"},
			"automation_name":     map[string]any{"type": "string"},
			"wait_for_completion": map[string]any{"type": "boolean"},
			"timeout_seconds":     map[string]any{"type": "number", "minimum": 1, "maximum": 300},
			"output_variable":     map[string]any{"type": "string"},
		},
	},
}
