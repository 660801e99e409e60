// Package jsonparser provides the json_parser step executor: parse a JSON
// document and optionally extract a value by dot path.
package jsonparser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/variables"
)

const defaultOutputVariable = "jsonResult"

var (
	// ErrDocumentMissing is returned when the config carries no JSON text.
	ErrDocumentMissing = errors.New("missing 'json' in configuration")

	// ErrPathNotFound is returned when the dot path does not resolve.
	ErrPathNotFound = errors.New("path not found in document")
)

// Executor parses a JSON document.
type Executor struct {
	Document       string
	Path           string
	OutputVariable string
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any) (*Executor, error) {
	document, _ := config["json"].(string)
	if document == "" {
		return nil, ErrDocumentMissing
	}

	outputVariable, _ := config["output_variable"].(string)
	if outputVariable == "" {
		outputVariable = defaultOutputVariable
	}

	path, _ := config["path"].(string)

	return &Executor{
		Document:       document,
		Path:           path,
		OutputVariable: outputVariable,
	}, nil
}

// Execute parses the document, resolves the path and stores the value.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	var parsed any

	if err := json.Unmarshal([]byte(e.Document), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON document: %w", err)
	}

	value := parsed

	if e.Path != "" {
		resolved, err := resolvePath(parsed, e.Path)
		if err != nil {
			return nil, err
		}

		value = resolved
	}

	err := execCtx.Vars.Set(ctx, e.OutputVariable, value, variables.SourceAutomation, variables.ScopeExecution)
	if err != nil {
		return nil, fmt.Errorf("failed to store parsed value: %w", err)
	}

	logger.DebugContext(ctx, "JSON parsed", "module", "json_parser_executor", "path", e.Path)

	return map[string]any{
		"path":     e.Path,
		"result":   value,
		"variable": e.OutputVariable,
	}, nil
}

// resolvePath walks a dot-separated path. Numeric segments index into arrays.
func resolvePath(document any, path string) (any, error) {
	current := document

	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[segment]
			if !ok {
				return nil, fmt.Errorf("segment %q: %w", segment, ErrPathNotFound)
			}

			current = value
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, fmt.Errorf("segment %q: %w", segment, ErrPathNotFound)
			}

			current = node[index]
		default:
			return nil, fmt.Errorf("segment %q: %w", segment, ErrPathNotFound)
		}
	}

	return current, nil
}

// Factory creates json_parser executors.
type Factory struct{}

// NewFactory returns the json_parser executor factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeJSONParser
}
