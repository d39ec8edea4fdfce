// Package sqlitestore persists saved plans in a SQLite file through
// database/sql and github.com/mattn/go-sqlite3 (cgo).
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/leofalp/stageflow/internal/utils"
	"github.com/leofalp/stageflow/providers/observability"
	"github.com/leofalp/stageflow/providers/store"
)

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS saved_plans (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	problem    TEXT NOT NULL DEFAULT '',
	plan       TEXT NOT NULL,
	inputs     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_saved_plans_created ON saved_plans (created_at DESC);
`

// Store implements store.Store on SQLite.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.EnsureSchema(context.Background()); err != nil {
		utils.CloseWithLog(db)
		return nil, err
	}
	return s, nil
}

// New wraps an already open database. Call EnsureSchema before use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the table and index when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlitestore: create schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts p. On conflict the stored created_at wins.
func (s *Store) Save(ctx context.Context, p *store.SavedPlan) error {
	store.Prepare(p, time.Now())

	planJSON, err := json.Marshal(p.Plan)
	if err != nil {
		return fmt.Errorf("sqlitestore: encode plan: %w", err)
	}
	inputsJSON, err := json.Marshal(p.Inputs)
	if err != nil {
		return fmt.Errorf("sqlitestore: encode inputs: %w", err)
	}

	const query = `INSERT INTO saved_plans (id, title, problem, plan, inputs, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		problem = excluded.problem,
		plan = excluded.plan,
		inputs = excluded.inputs,
		updated_at = excluded.updated_at
	RETURNING created_at`

	var createdAt string
	err = s.db.QueryRowContext(ctx, query,
		p.ID, p.Title, p.Problem, string(planJSON), string(inputsJSON),
		p.CreatedAt.UTC().Format(timeLayout), p.UpdatedAt.UTC().Format(timeLayout),
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("sqlitestore: save %s: %w", p.ID, err)
	}
	if p.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return fmt.Errorf("sqlitestore: parse created_at: %w", err)
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent("store.save",
			observability.String(observability.AttrStoreBackend, "sqlite"),
			observability.String(observability.AttrStorePlanID, p.ID),
		)
	}
	return nil
}

// Get loads the plan with id.
func (s *Store) Get(ctx context.Context, id string) (*store.SavedPlan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, problem, plan, inputs, created_at, updated_at
		FROM saved_plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: get %s: %w", id, err)
	}
	return p, nil
}

// List loads every plan, newest first.
func (s *Store) List(ctx context.Context) ([]store.SavedPlan, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, problem, plan, inputs, created_at, updated_at
		FROM saved_plans ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list: %w", err)
	}
	defer utils.CloseWithLog(rows)

	plans := []store.SavedPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: list: %w", err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: iterate rows: %w", err)
	}
	return plans, nil
}

// Delete removes the plan with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM saved_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlitestore: delete %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitestore: delete %s: %w", id, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (*store.SavedPlan, error) {
	var (
		p                    store.SavedPlan
		planJSON, inputsJSON string
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Problem, &planJSON, &inputsJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(planJSON), &p.Plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if err := json.Unmarshal([]byte(inputsJSON), &p.Inputs); err != nil {
		return nil, fmt.Errorf("decode inputs: %w", err)
	}
	var err error
	if p.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &p, nil
}
