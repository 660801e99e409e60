// Package persistence provides the storage abstraction for automation
// definitions and the execution audit log.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/stepflow/pkg/models"
)

// ExecutionRecord is one audit-log entry, written after a run finishes on any
// terminal path.
type ExecutionRecord struct {
	ID             string    `json:"id"`
	AutomationID   string    `json:"automation_id"`
	UserID         string    `json:"user_id,omitempty"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	DurationMs     int64     `json:"duration_ms"`
	StepsCompleted int       `json:"steps_completed"`
	TotalSteps     int       `json:"total_steps"`
	FailedStep     *int      `json:"failed_step,omitempty"`
}

// AutomationRepository stores automation definitions. Lookup by name serves
// the external_automation executor; names are not unique, the first match
// wins.
type AutomationRepository interface {
	Automations(ctx context.Context) ([]*models.AutomationDefinition, error)
	SaveAutomation(ctx context.Context, definition *models.AutomationDefinition) error
	AutomationByID(ctx context.Context, id string) (*models.AutomationDefinition, error)
	AutomationByName(ctx context.Context, name string) (*models.AutomationDefinition, error)
	DeleteAutomation(ctx context.Context, id string) error
}

// ExecutionLog is the append-only audit trail.
type ExecutionLog interface {
	AppendExecution(ctx context.Context, record *ExecutionRecord) error
	ExecutionsByAutomation(ctx context.Context, automationID string, limit int) ([]*ExecutionRecord, error)
}

// Persistence is the full storage surface a deployment wires in.
type Persistence interface {
	AutomationRepository
	ExecutionLog

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
