package variables

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// tokenPattern matches {{name}} placeholders. Whitespace inside the braces is
// tolerated, nesting is not.
var tokenPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Interpolate replaces every {{name}} token with the stringified variable
// value. Tokens referencing unknown variables are left verbatim; a miss is
// deliberately not an error, only a warning in the log.
func (s *Store) Interpolate(ctx context.Context, input string) string {
	return tokenPattern.ReplaceAllStringFunc(input, func(token string) string {
		name := tokenPattern.FindStringSubmatch(token)[1]

		variable, ok := s.Get(ctx, name)
		if !ok {
			s.logger.WarnContext(ctx, "Interpolation references unknown variable, leaving token unchanged",
				"name", name)

			return token
		}

		return Stringify(variable.Value)
	})
}

// InterpolateConfig returns a deep copy of config with every string value
// interpolated, descending into nested maps and slices. The input is never
// mutated; step definitions stay immutable during execution.
func (s *Store) InterpolateConfig(ctx context.Context, config map[string]any) map[string]any {
	if config == nil {
		return map[string]any{}
	}

	interpolated := make(map[string]any, len(config))
	for key, value := range config {
		interpolated[key] = s.interpolateValue(ctx, value)
	}

	return interpolated
}

func (s *Store) interpolateValue(ctx context.Context, value any) any {
	switch v := value.(type) {
	case string:
		return s.Interpolate(ctx, v)
	case map[string]any:
		return s.InterpolateConfig(ctx, v)
	case []any:
		copied := make([]any, len(v))
		for i, item := range v {
			copied[i] = s.interpolateValue(ctx, item)
		}

		return copied
	default:
		return value
	}
}

// Stringify renders a variable value the way interpolation embeds it into
// text. Floats drop binary artifacts, composites render as JSON.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	}
}
