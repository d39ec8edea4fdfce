// Package storetest holds the behavior every store.Store backend must show.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/stageflow/core/dataset"
	"github.com/leofalp/stageflow/core/plan"
	"github.com/leofalp/stageflow/providers/store"
)

// Sample returns a plan worth saving.
func Sample(problem string) *store.SavedPlan {
	return &store.SavedPlan{
		Problem: problem,
		Plan: []plan.Entry{
			{NodeID: "researcher", AgentName: "Researcher", SystemInstruction: "Collect facts", InitialTask: "List drivers", Phase: 1, PhaseLabel: "Stage 1"},
			{NodeID: "checker", AgentName: "Checker", SystemInstruction: "Check", InitialTask: "Verify", Phase: 2, PhaseLabel: "Review", GraphIncoming: []string{"researcher"}},
		},
		Inputs: []dataset.Entry{{ID: "input-1", Title: "Metrics", Type: dataset.TypeCSV, Content: "a,b\n1,2"}},
	}
}

// Run exercises newStore, which must return an empty store for each call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("SaveThenGet_RoundTrips", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		saved := Sample("Reduce churn")
		require.NoError(t, s.Save(ctx, saved))
		require.NotEmpty(t, saved.ID)
		assert.Equal(t, "Reduce churn", saved.Title)

		got, err := s.Get(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, saved.ID, got.ID)
		assert.Equal(t, saved.Title, got.Title)
		assert.Equal(t, saved.Problem, got.Problem)
		assert.Equal(t, saved.Plan, got.Plan)
		assert.Equal(t, saved.Inputs, got.Inputs)
		assert.WithinDuration(t, saved.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("Save_ExistingID_Replaces", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		saved := Sample("Reduce churn")
		require.NoError(t, s.Save(ctx, saved))
		created := saved.CreatedAt

		saved.Title = "Renamed"
		saved.Plan = saved.Plan[:1]
		require.NoError(t, s.Save(ctx, saved))

		got, err := s.Get(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.Len(t, got.Plan, 1)
		assert.WithinDuration(t, created, got.CreatedAt, time.Millisecond)

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("List_NewestFirst", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		first := Sample("first")
		first.CreatedAt = time.Now().Add(-time.Hour)
		second := Sample("second")
		require.NoError(t, s.Save(ctx, first))
		require.NoError(t, s.Save(ctx, second))

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.ID, all[0].ID)
		assert.Equal(t, first.ID, all[1].ID)
	})

	t.Run("List_Empty_ReturnsEmpty", func(t *testing.T) {
		all, err := newStore(t).List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("Delete_RemovesAndThenNotFound", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		saved := Sample("Reduce churn")
		require.NoError(t, s.Save(ctx, saved))

		require.NoError(t, s.Delete(ctx, saved.ID))
		_, err := s.Get(ctx, saved.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, saved.ID), store.ErrNotFound)
	})

	t.Run("Get_Unknown_NotFound", func(t *testing.T) {
		_, err := newStore(t).Get(context.Background(), "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
