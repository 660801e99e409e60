package variables

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Interpolate(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "name", "automation", SourceUser, ScopeExecution))
	require.NoError(t, store.Set(ctx, "count", 3, SourceUser, ScopeExecution))
	require.NoError(t, store.Set(ctx, "ratio", 0.5, SourceUser, ScopeExecution))
	require.NoError(t, store.Set(ctx, "active", true, SourceUser, ScopeExecution))

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single token", input: "Hello {{name}}", expected: "Hello automation"},
		{name: "multiple tokens", input: "{{name}} ran {{count}} times", expected: "automation ran 3 times"},
		{name: "whitespace inside braces", input: "{{ name }}", expected: "automation"},
		{name: "float value", input: "ratio={{ratio}}", expected: "ratio=0.5"},
		{name: "bool value", input: "active={{active}}", expected: "active=true"},
		{name: "no tokens", input: "plain text", expected: "plain text"},
		{name: "missing variable stays verbatim", input: "Hello {{missingVar}}", expected: "Hello {{missingVar}}"},
		{name: "mixed hit and miss", input: "{{name}} {{nope}}", expected: "automation {{nope}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, store.Interpolate(ctx, tt.input))
		})
	}
}

func TestStore_InterpolateConfigDeep(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "city", "Lisbon", SourceUser, ScopeExecution))

	config := map[string]any{
		"message": "Weather in {{city}}",
		"nested": map[string]any{
			"destination": "{{city}}",
			"count":       2,
		},
		"list": []any{"{{city}}", 1, true},
	}

	interpolated := store.InterpolateConfig(ctx, config)

	assert.Equal(t, "Weather in Lisbon", interpolated["message"])
	nested := interpolated["nested"].(map[string]any)
	assert.Equal(t, "Lisbon", nested["destination"])
	assert.Equal(t, 2, nested["count"])
	list := interpolated["list"].([]any)
	assert.Equal(t, "Lisbon", list[0])

	// Original config must stay untouched.
	assert.Equal(t, "Weather in {{city}}", config["message"])
	assert.Equal(t, "{{city}}", config["nested"].(map[string]any)["destination"])
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{name: "string", value: "x", expected: "x"},
		{name: "int", value: 42, expected: "42"},
		{name: "float without artifacts", value: 50.0, expected: "50"},
		{name: "bool", value: false, expected: "false"},
		{name: "nil", value: nil, expected: ""},
		{name: "object as json", value: map[string]any{"a": 1}, expected: `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Stringify(tt.value))
		})
	}
}
