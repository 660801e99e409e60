package postgresql

// migrations holds the schema by version. Append-only; never edit an applied
// version.
var migrations = map[int]string{
	1: `
		CREATE TABLE IF NOT EXISTS automations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_automations_title ON automations (title);

		CREATE TABLE IF NOT EXISTS execution_log (
			id TEXT PRIMARY KEY,
			automation_id TEXT NOT NULL REFERENCES automations (id) ON DELETE CASCADE,
			started_at TIMESTAMP WITH TIME ZONE NOT NULL,
			payload JSONB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_execution_log_automation
			ON execution_log (automation_id, started_at DESC);
	`,
}
