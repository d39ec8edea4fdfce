package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFromResponse_FencedNearJSON_Parsed checks that a fenced reply with
// single quotes and a trailing comma still yields the intended plan.
func TestFromResponse_FencedNearJSON_Parsed(t *testing.T) {
	text := "Here you go:\n```json\n{'plan': [{'agentName': 'Scout', 'stage': 1}, {'agentName': 'Judge', 'stage': 2, 'dependsOn': 'Scout'},], 'inputs': [{'title': 'Leads', 'type': 'csv', 'sample': 'name,score'}]}\n```"

	result := NewNormalizer(2, 6).FromResponse(text, "Qualify leads")

	require.True(t, result.Parsed)
	require.Len(t, result.Plan, 2)
	assert.Equal(t, "scout", result.Plan[0].NodeID)
	assert.Equal(t, []string{"Scout"}, result.Plan[1].GraphIncoming)
	require.Len(t, result.Inputs, 1)
	assert.Equal(t, "Leads", result.Inputs[0].Title)
}

func TestFromResponse_NoJSON_FallsBack(t *testing.T) {
	result := NewNormalizer(2, 6).FromResponse("I cannot help with that.", "Anything")

	assert.False(t, result.Parsed)
	assert.Equal(t, []string{"planner", "validator"}, nodeIDs(result.Plan))
	assert.Len(t, result.Inputs, 3)
}

func TestParsePayload_ValidObject(t *testing.T) {
	payload := ParsePayload(`{"plan": []}`)
	require.NotNil(t, payload)
	assert.Contains(t, payload, "plan")
}
