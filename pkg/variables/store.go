package variables

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

var (
	// ErrVariableNameEmpty is returned when a variable is set with an empty name.
	ErrVariableNameEmpty = errors.New("variable name must not be empty")

	// ErrVariableNameReserved is returned when a variable name contains
	// interpolation delimiters. `{{` and `}}` are reserved for token syntax.
	ErrVariableNameReserved = errors.New("variable name must not contain '{{' or '}}'")
)

// GlobalStore is the longer-lived scope backend. Implementations outlive a
// single execution (see redisstore).
type GlobalStore interface {
	Get(ctx context.Context, name string) (any, bool, error)
	Set(ctx context.Context, name string, value any) error
}

// Store holds the variables of one execution. Execution-scoped entries take
// precedence over the global backend on lookup. A Store is owned by exactly
// one execution; parallel group branches operate on forks merged back by the
// group executor.
type Store struct {
	mu        sync.RWMutex
	execution map[string]Variable
	global    GlobalStore
	logger    *slog.Logger
}

// NewStore creates an empty store. The global backend is optional.
func NewStore(logger *slog.Logger, global GlobalStore) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		execution: make(map[string]Variable),
		global:    global,
		logger:    logger.With("module", "variables"),
	}
}

// Set inserts or overwrites a variable. Global-scoped writes go to the
// backend as well; backend failures degrade the write to execution scope.
func (s *Store) Set(ctx context.Context, name string, value any, source Source, scope Scope) error {
	if name == "" {
		return ErrVariableNameEmpty
	}

	if strings.Contains(name, "{{") || strings.Contains(name, "}}") {
		return ErrVariableNameReserved
	}

	if scope == "" {
		scope = ScopeExecution
	}

	if scope == ScopeGlobal && s.global != nil {
		err := s.global.Set(ctx, name, value)
		if err != nil {
			s.logger.WarnContext(ctx, "Global variable write failed, keeping execution scope only",
				"name", name, "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.execution[name] = Variable{Name: name, Value: value, Source: source, Scope: scope}

	return nil
}

// Get looks a variable up, execution scope first, then the global backend.
func (s *Store) Get(ctx context.Context, name string) (Variable, bool) {
	s.mu.RLock()
	variable, ok := s.execution[name]
	s.mu.RUnlock()

	if ok {
		return variable, true
	}

	if s.global == nil {
		return Variable{}, false
	}

	value, found, err := s.global.Get(ctx, name)
	if err != nil {
		s.logger.WarnContext(ctx, "Global variable read failed", "name", name, "error", err)

		return Variable{}, false
	}

	if !found {
		return Variable{}, false
	}

	return Variable{Name: name, Value: value, Source: SourceUser, Scope: ScopeGlobal}, true
}

// All returns a snapshot of the execution-scoped variables as a plain map,
// suitable for handing to an executor or for result reporting.
func (s *Store) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]any, len(s.execution))
	for name, variable := range s.execution {
		snapshot[name] = variable.Value
	}

	return snapshot
}

// InitializeExecution resets the execution scope and seeds it with the
// caller's inputs plus any declared defaults. Inputs win over declarations.
func (s *Store) InitializeExecution(ctx context.Context, inputs map[string]any, declared []Variable) {
	s.ClearExecutionScope()

	for _, variable := range declared {
		err := s.Set(ctx, variable.Name, variable.Value, SourceDefault, variable.Scope)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping declared variable", "name", variable.Name, "error", err)
		}
	}

	for name, value := range inputs {
		err := s.Set(ctx, name, value, SourceUser, ScopeExecution)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping input variable", "name", name, "error", err)
		}
	}
}

// ClearExecutionScope drops every execution-scoped variable. The engine calls
// this on every exit path of Execute; a skipped teardown leaks state into the
// next run on a reused engine.
func (s *Store) ClearExecutionScope() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.execution = make(map[string]Variable)
}

// Fork returns an isolated copy of the execution scope sharing the same
// global backend. Parallel group branches each get a fork so sibling writes
// never race on one map.
func (s *Store) Fork() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make(map[string]Variable, len(s.execution))
	for name, variable := range s.execution {
		copied[name] = variable
	}

	return &Store{
		execution: copied,
		global:    s.global,
		logger:    s.logger,
	}
}

// MergeFrom copies the other store's execution scope into this one,
// overwriting on collision. Merge order across parallel branches is
// unspecified; last writer wins per key.
func (s *Store) MergeFrom(other *Store) {
	other.mu.RLock()
	defer other.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	for name, variable := range other.execution {
		s.execution[name] = variable
	}
}
