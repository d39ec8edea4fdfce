package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/leofalp/stageflow/core/dataset"
	"github.com/leofalp/stageflow/core/plan"
	"github.com/leofalp/stageflow/providers/observability"
	"github.com/leofalp/stageflow/providers/store"
)

// defaultTableName is used when WithTableName is not given.
const defaultTableName = "stageflow_plans"

// Querier is the subset of pgx used by Store. *pgxpool.Pool, *pgx.Conn and
// pgx.Tx all satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements store.Store on PostgreSQL. Concurrency is left to the
// pool behind Querier.
type Store struct {
	db        Querier
	tableName string
	indexName string
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTableName overrides the table name. The name is quoted with
// pgx.Identifier because it is interpolated into the SQL text.
func WithTableName(name string) Option {
	return func(s *Store) {
		s.tableName = pgx.Identifier{name}.Sanitize()
		s.indexName = pgx.Identifier{"idx_" + name + "_created"}.Sanitize()
	}
}

// New returns a store writing through db.
func New(db Querier, opts ...Option) *Store {
	s := &Store{
		db:        db,
		tableName: defaultTableName,
		indexName: "idx_" + defaultTableName + "_created",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save upserts p. On conflict the stored created_at wins and is copied back
// into p.
func (s *Store) Save(ctx context.Context, p *store.SavedPlan) error {
	store.Prepare(p, time.Now())

	planJSON, err := json.Marshal(nonNilPlan(p.Plan))
	if err != nil {
		return fmt.Errorf("pgstore: encode plan: %w", err)
	}
	inputsJSON, err := json.Marshal(nonNilInputs(p.Inputs))
	if err != nil {
		return fmt.Errorf("pgstore: encode inputs: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, title, problem, plan, inputs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			problem = EXCLUDED.problem,
			plan = EXCLUDED.plan,
			inputs = EXCLUDED.inputs,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at`, s.tableName)

	var createdAt time.Time
	err = s.db.QueryRow(ctx, query,
		p.ID, p.Title, p.Problem, planJSON, inputsJSON, p.CreatedAt, p.UpdatedAt,
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("pgstore: save %s: %w", p.ID, err)
	}
	p.CreatedAt = createdAt.UTC()

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent("store.save",
			observability.String(observability.AttrStoreBackend, "postgres"),
			observability.String(observability.AttrStorePlanID, p.ID),
		)
	}
	return nil
}

// Get loads the plan with id.
func (s *Store) Get(ctx context.Context, id string) (*store.SavedPlan, error) {
	query := fmt.Sprintf(`SELECT id, title, problem, plan, inputs, created_at, updated_at
		FROM %s WHERE id = $1`, s.tableName)

	p, err := scanPlan(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: get %s: %w", id, err)
	}
	return p, nil
}

// List loads every plan, newest first.
func (s *Store) List(ctx context.Context) ([]store.SavedPlan, error) {
	query := fmt.Sprintf(`SELECT id, title, problem, plan, inputs, created_at, updated_at
		FROM %s ORDER BY created_at DESC, id ASC`, s.tableName)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list: %w", err)
	}
	defer rows.Close()

	plans := []store.SavedPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("pgstore: list: %w", err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: iterate rows: %w", err)
	}
	return plans, nil
}

// Delete removes the plan with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.tableName)
	tag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("pgstore: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// scanPlan reads one row in the column order used by Get and List.
func scanPlan(row pgx.Row) (*store.SavedPlan, error) {
	var (
		p          store.SavedPlan
		planJSON   []byte
		inputsJSON []byte
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Problem, &planJSON, &inputsJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(planJSON, &p.Plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if err := json.Unmarshal(inputsJSON, &p.Inputs); err != nil {
		return nil, fmt.Errorf("decode inputs: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func nonNilPlan(entries []plan.Entry) []plan.Entry {
	if entries == nil {
		return []plan.Entry{}
	}
	return entries
}

func nonNilInputs(entries []dataset.Entry) []dataset.Entry {
	if entries == nil {
		return []dataset.Entry{}
	}
	return entries
}
