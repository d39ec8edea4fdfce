package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/stageflow/providers/store"
	"github.com/leofalp/stageflow/providers/store/storetest"
)

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return New() })
}

func TestStore_Get_ReturnsCopy(t *testing.T) {
	s := New()
	saved := storetest.Sample("Reduce churn")
	require.NoError(t, s.Save(context.Background(), saved))

	got, err := s.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	got.Plan[0].AgentName = "mutated"

	again, err := s.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Researcher", again.Plan[0].AgentName)
}
