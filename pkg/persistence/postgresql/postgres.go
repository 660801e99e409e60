// Package postgresql provides PostgreSQL-backed persistence for automation
// definitions and the execution audit log.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/dukex/stepflow/pkg/persistence/sqlbase"
)

const defaultExecutionLimit = 50

// Persistence implements persistence.Persistence on PostgreSQL. Definitions
// are stored as JSONB documents with the queried columns lifted out.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence opens the database and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Persistence{db: db, logger: logger.With("module", "postgresql")}

	manager := sqlbase.NewMigrationManager(p.logger, db, migrations)
	if err := manager.RunMigrations(ctx); err != nil {
		return nil, err
	}

	return p, nil
}

// Close releases the connection pool.
func (p *Persistence) Close(_ context.Context) error {
	return p.db.Close()
}

// HealthCheck pings the database.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Automations loads every stored definition ordered by creation time.
func (p *Persistence) Automations(ctx context.Context) ([]*models.AutomationDefinition, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT payload FROM automations ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query automations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var definitions []*models.AutomationDefinition

	for rows.Next() {
		var payload []byte

		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan automation row: %w", err)
		}

		var definition models.AutomationDefinition

		if err := json.Unmarshal(payload, &definition); err != nil {
			return nil, fmt.Errorf("failed to decode automation: %w", err)
		}

		definitions = append(definitions, &definition)
	}

	return definitions, rows.Err()
}

// SaveAutomation upserts the definition, stamping timestamps.
func (p *Persistence) SaveAutomation(ctx context.Context, definition *models.AutomationDefinition) error {
	if definition.ID == "" {
		return persistence.NewAutomationError("Save", "", persistence.ErrAutomationInvalid)
	}

	now := time.Now().UTC()
	if definition.CreatedAt.IsZero() {
		definition.CreatedAt = now
	}

	definition.UpdatedAt = now

	payload, err := json.Marshal(definition)
	if err != nil {
		return persistence.NewAutomationError("Save", definition.ID, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO automations (id, title, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`, definition.ID, definition.Title, payload, definition.CreatedAt, definition.UpdatedAt)
	if err != nil {
		return persistence.NewAutomationError("Save", definition.ID, err)
	}

	return nil
}

// AutomationByID loads one definition.
func (p *Persistence) AutomationByID(ctx context.Context, id string) (*models.AutomationDefinition, error) {
	return p.queryOne(ctx, "GetByID", id,
		"SELECT payload FROM automations WHERE id = $1", id)
}

// AutomationByName returns the oldest definition with a matching title.
func (p *Persistence) AutomationByName(ctx context.Context, name string) (*models.AutomationDefinition, error) {
	return p.queryOne(ctx, "GetByName", name,
		"SELECT payload FROM automations WHERE title = $1 ORDER BY created_at LIMIT 1", name)
}

func (p *Persistence) queryOne(ctx context.Context, op, target, query string, args ...any) (*models.AutomationDefinition, error) {
	var payload []byte

	err := p.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewAutomationError(op, target, persistence.ErrAutomationNotFound)
	}

	if err != nil {
		return nil, persistence.NewAutomationError(op, target, err)
	}

	var definition models.AutomationDefinition

	if err := json.Unmarshal(payload, &definition); err != nil {
		return nil, persistence.NewAutomationError(op, target, err)
	}

	return &definition, nil
}

// DeleteAutomation removes the definition. Execution records cascade.
func (p *Persistence) DeleteAutomation(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, "DELETE FROM automations WHERE id = $1", id)
	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewAutomationError("Delete", id, persistence.ErrAutomationNotFound)
	}

	return nil
}

// AppendExecution stores one audit record.
func (p *Persistence) AppendExecution(ctx context.Context, record *persistence.ExecutionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode execution record: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO execution_log (id, automation_id, started_at, payload)
		VALUES ($1, $2, $3, $4)
	`, record.ID, record.AutomationID, record.StartedAt, payload)
	if err != nil {
		return fmt.Errorf("failed to insert execution record: %w", err)
	}

	return nil
}

// ExecutionsByAutomation returns the most recent records first.
func (p *Persistence) ExecutionsByAutomation(ctx context.Context, automationID string, limit int) ([]*persistence.ExecutionRecord, error) {
	if limit <= 0 {
		limit = defaultExecutionLimit
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT payload FROM execution_log
		WHERE automation_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, automationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*persistence.ExecutionRecord

	for rows.Next() {
		var payload []byte

		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan execution row: %w", err)
		}

		var record persistence.ExecutionRecord

		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("failed to decode execution record: %w", err)
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}
