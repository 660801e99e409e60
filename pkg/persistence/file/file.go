// Package file provides file-based persistence: automations as JSON files,
// execution records under one directory per automation. Good for local use
// and tests; not safe for concurrent writers across processes.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
)

const (
	automationsDir = "automations"
	executionsDir  = "executions"

	dirPerm  = 0o755
	filePerm = 0o644
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root string
}

// NewPersistence creates a file persistence rooted at the given directory. A
// "file://" prefix is tolerated so database URLs can be passed through.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.TrimPrefix(root, "file://")}
}

// Close is a no-op for file persistence.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory is usable, creating it if needed.
func (p *Persistence) HealthCheck(_ context.Context) error {
	return os.MkdirAll(p.root, dirPerm)
}

func (p *Persistence) automationPath(id string) string {
	return filepath.Join(p.root, automationsDir, id+".json")
}

// Automations loads every stored definition, sorted by ID for stable output.
func (p *Persistence) Automations(ctx context.Context) ([]*models.AutomationDefinition, error) {
	dir := filepath.Join(p.root, automationsDir)

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*models.AutomationDefinition{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}

	definitions := make([]*models.AutomationDefinition, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		definition, err := p.AutomationByID(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		definitions = append(definitions, definition)
	}

	sort.Slice(definitions, func(i, j int) bool { return definitions[i].ID < definitions[j].ID })

	return definitions, nil
}

// SaveAutomation writes the definition, stamping timestamps.
func (p *Persistence) SaveAutomation(_ context.Context, definition *models.AutomationDefinition) error {
	if definition.ID == "" {
		return persistence.NewAutomationError("Save", "", persistence.ErrAutomationInvalid)
	}

	now := time.Now().UTC()
	if definition.CreatedAt.IsZero() {
		definition.CreatedAt = now
	}

	definition.UpdatedAt = now

	err := os.MkdirAll(filepath.Join(p.root, automationsDir), dirPerm)
	if err != nil {
		return persistence.NewAutomationError("Save", definition.ID, err)
	}

	payload, err := json.MarshalIndent(definition, "", "  ")
	if err != nil {
		return persistence.NewAutomationError("Save", definition.ID, err)
	}

	err = os.WriteFile(p.automationPath(definition.ID), payload, filePerm)
	if err != nil {
		return persistence.NewAutomationError("Save", definition.ID, err)
	}

	return nil
}

// AutomationByID loads one definition.
func (p *Persistence) AutomationByID(_ context.Context, id string) (*models.AutomationDefinition, error) {
	payload, err := os.ReadFile(p.automationPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewAutomationError("GetByID", id, persistence.ErrAutomationNotFound)
	}

	if err != nil {
		return nil, persistence.NewAutomationError("GetByID", id, err)
	}

	var definition models.AutomationDefinition

	err = json.Unmarshal(payload, &definition)
	if err != nil {
		return nil, persistence.NewAutomationError("GetByID", id, err)
	}

	return &definition, nil
}

// AutomationByName scans for the first definition with a matching title.
func (p *Persistence) AutomationByName(ctx context.Context, name string) (*models.AutomationDefinition, error) {
	definitions, err := p.Automations(ctx)
	if err != nil {
		return nil, err
	}

	for _, definition := range definitions {
		if definition.Title == name {
			return definition, nil
		}
	}

	return nil, persistence.NewAutomationError("GetByName", name, persistence.ErrAutomationNotFound)
}

// DeleteAutomation removes the definition and its execution history.
func (p *Persistence) DeleteAutomation(_ context.Context, id string) error {
	err := os.Remove(p.automationPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewAutomationError("Delete", id, persistence.ErrAutomationNotFound)
	}

	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	_ = os.RemoveAll(filepath.Join(p.root, executionsDir, id))

	return nil
}

// AppendExecution stores one audit record.
func (p *Persistence) AppendExecution(_ context.Context, record *persistence.ExecutionRecord) error {
	dir := filepath.Join(p.root, executionsDir, record.AutomationID)

	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return fmt.Errorf("failed to create execution log directory: %w", err)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode execution record: %w", err)
	}

	// Prefix with the start time so directory order is chronological.
	name := fmt.Sprintf("%d-%s.json", record.StartedAt.UnixNano(), record.ID)

	err = os.WriteFile(filepath.Join(dir, name), payload, filePerm)
	if err != nil {
		return fmt.Errorf("failed to write execution record: %w", err)
	}

	return nil
}

// ExecutionsByAutomation returns the most recent records first.
func (p *Persistence) ExecutionsByAutomation(_ context.Context, automationID string, limit int) ([]*persistence.ExecutionRecord, error) {
	dir := filepath.Join(p.root, executionsDir, automationID)

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*persistence.ExecutionRecord{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list execution records: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	records := make([]*persistence.ExecutionRecord, 0, len(names))

	for _, name := range names {
		payload, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read execution record %s: %w", name, err)
		}

		var record persistence.ExecutionRecord

		err = json.Unmarshal(payload, &record)
		if err != nil {
			return nil, fmt.Errorf("failed to decode execution record %s: %w", name, err)
		}

		records = append(records, &record)
	}

	return records, nil
}
