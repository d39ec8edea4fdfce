package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leofalp/stageflow/core/plan"
)

func TestPrepare_NewPlan_FillsIDTitleAndTimestamps(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	p := &SavedPlan{Problem: "  Reduce\nchurn  in Q3 "}

	Prepare(p, now)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Reduce churn in Q3", p.Title)
	assert.Equal(t, now.UTC(), p.CreatedAt)
	assert.Equal(t, now.UTC(), p.UpdatedAt)
}

func TestPrepare_ExistingPlan_KeepsIDAndCreatedAt(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &SavedPlan{ID: "fixed", Title: "Mine", CreatedAt: created}

	Prepare(p, created.Add(time.Hour))

	assert.Equal(t, "fixed", p.ID)
	assert.Equal(t, "Mine", p.Title)
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, created.Add(time.Hour), p.UpdatedAt)
}

func TestDefaultTitle_LongAndEmpty(t *testing.T) {
	assert.Equal(t, "Untitled plan", DefaultTitle("   "))
	title := DefaultTitle(strings.Repeat("word ", 40))
	assert.Len(t, []rune(title), titleLimit)
	assert.True(t, strings.HasSuffix(title, "..."))
}

func TestSavedPlan_Clone_IsIndependent(t *testing.T) {
	original := SavedPlan{Plan: []plan.Entry{{NodeID: "a", GraphTargets: []string{"b"}}}}
	clone := original.Clone()
	clone.Plan[0].GraphTargets[0] = "changed"
	assert.Equal(t, "b", original.Plan[0].GraphTargets[0])
}
