package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/stageflow/core/dataset"
	"github.com/leofalp/stageflow/core/plan"
	"github.com/leofalp/stageflow/internal/utils"
)

// ErrNotFound is returned by Get and Delete for an unknown id.
var ErrNotFound = errors.New("stageflow: saved plan not found")

// titleLimit caps the title derived from the problem statement.
const titleLimit = 60

// SavedPlan is one persisted plan.
type SavedPlan struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Problem   string          `json:"problem"`
	Plan      []plan.Entry    `json:"plan"`
	Inputs    []dataset.Entry `json:"inputs"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store persists saved plans. Implementations must be safe for concurrent
// use.
type Store interface {
	// Save inserts or replaces p, keyed by p.ID. It fills in a missing ID,
	// title and CreatedAt and always refreshes UpdatedAt.
	Save(ctx context.Context, p *SavedPlan) error
	// Get returns the plan with id or ErrNotFound.
	Get(ctx context.Context, id string) (*SavedPlan, error)
	// List returns every plan, newest first.
	List(ctx context.Context) ([]SavedPlan, error)
	// Delete removes the plan with id or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// Prepare fills the fields Save is responsible for. Backends call it before
// writing.
func Prepare(p *SavedPlan, now time.Time) {
	now = now.UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if strings.TrimSpace(p.Title) == "" {
		p.Title = DefaultTitle(p.Problem)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// DefaultTitle derives a title from a problem statement.
func DefaultTitle(problem string) string {
	problem = strings.Join(strings.Fields(problem), " ")
	if problem == "" {
		return "Untitled plan"
	}
	return utils.Truncate(problem, titleLimit)
}

// Clone returns a deep copy of p.
func (p SavedPlan) Clone() SavedPlan {
	p.Plan = plan.Clone(p.Plan)
	p.Inputs = append([]dataset.Entry(nil), p.Inputs...)
	return p
}
