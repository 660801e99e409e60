// Package registry maps step-type tags to executor factories. It is the
// engine's extensibility seam: new step types are added by registration, not
// by touching the orchestrator.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/stepflow/pkg/protocol"
)

// ErrExecutorNotRegistered indicates a step type with no registered factory.
var ErrExecutorNotRegistered = errors.New("executor not registered")

// Registry holds executor factories keyed by step type. Registration may
// happen at any time, so lookups and registration are safe to interleave.
type Registry struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	factories map[string]protocol.ExecutorFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		logger:    logger.With("module", "registry"),
		factories: make(map[string]protocol.ExecutorFactory),
	}
}

// RegisterExecutor adds or replaces the factory for its step type.
func (r *Registry) RegisterExecutor(factory protocol.ExecutorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[factory.ID()] = factory
}

// CreateExecutor builds an executor for the step type from an
// already-interpolated config.
func (r *Registry) CreateExecutor(stepType string, config map[string]any) (protocol.Executor, error) {
	r.mu.RLock()
	factory, ok := r.factories[stepType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("step type %q: %w", stepType, ErrExecutorNotRegistered)
	}

	return factory.Create(config)
}

// IsStepTypeSupported is a pure existence check, used by group sub-execution
// to decide between hard failure and skip.
func (r *Registry) IsStepTypeSupported(stepType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[stepType]

	return ok
}

// StepTypes lists the registered step-type tags.
func (r *Registry) StepTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for stepType := range r.factories {
		types = append(types, stepType)
	}

	return types
}
