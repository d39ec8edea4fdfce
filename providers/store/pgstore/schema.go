package pgstore

import (
	"context"
	"fmt"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    id         UUID PRIMARY KEY,
    title      TEXT NOT NULL,
    problem    TEXT NOT NULL DEFAULT '',
    plan       JSONB NOT NULL,
    inputs     JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// The list view orders by creation time.
const createCreatedIndexSQL = `CREATE INDEX IF NOT EXISTS %s ON %s (created_at DESC)`

// EnsureSchema creates the plans table and its index when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(createTableSQL, s.tableName)); err != nil {
		return fmt.Errorf("pgstore: create table: %w", err)
	}
	if _, err := s.db.Exec(ctx, fmt.Sprintf(createCreatedIndexSQL, s.indexName, s.tableName)); err != nil {
		return fmt.Errorf("pgstore: create created_at index: %w", err)
	}
	return nil
}
