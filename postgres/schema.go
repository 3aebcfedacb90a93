package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS state_rules (
    id             TEXT PRIMARY KEY,
    exploration_id TEXT NOT NULL,
    state_name     TEXT NOT NULL,
    position       INT NOT NULL,
    description    TEXT NOT NULL,
    rule_name      TEXT NOT NULL DEFAULT '',
    inputs         JSONB NOT NULL DEFAULT '{}',
    feedback       JSONB NOT NULL DEFAULT '[]',
    dest           TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_state_rules_state ON state_rules(exploration_id, state_name, position);
`

// CreateSchema creates the state_rules table if it doesn't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the state_rules table.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS state_rules CASCADE;`)
	return err
}
