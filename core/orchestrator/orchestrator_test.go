package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/stageflow/core/dataset"
	"github.com/leofalp/stageflow/core/plan"
	"github.com/leofalp/stageflow/patterns/staged"
	"github.com/leofalp/stageflow/providers/ai"
)

const architectReply = "```json\n" + `{
  "plan": [
    {"agentName": "Researcher", "systemInstruction": "Collect facts", "initialTask": "List drivers", "stage": 1},
    {"agentName": "Analyst", "systemInstruction": "Find patterns", "initialTask": "Group drivers", "stage": 2},
    {"agentName": "Quality Checker", "systemInstruction": "Check the analysis", "initialTask": "Verify", "stage": 3}
  ],
  "inputs": [{"title": "Churn export", "type": "csv", "sample": "month,churn\nJan,5"}]
}` + "\n```"

// scriptedProvider answers the architect, the agents and the conclusion
// call by looking at the system prompt.
type scriptedProvider struct {
	architect  func(ctx context.Context) (*ai.ChatStream, error)
	agent      func(ctx context.Context, system string) (*ai.ChatStream, error)
	summary    func(ctx context.Context) (*ai.ChatStream, error)
	preflight  error
	mu         sync.Mutex
	userPrompt map[string]string
}

var (
	_ ai.StreamProvider   = (*scriptedProvider)(nil)
	_ ai.PreflightChecker = (*scriptedProvider)(nil)
)

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{
		architect: func(context.Context) (*ai.ChatStream, error) {
			return ai.NewTextStream(architectReply[:40], architectReply[40:]), nil
		},
		agent: func(_ context.Context, system string) (*ai.ChatStream, error) {
			name, _, _ := strings.Cut(system, ".")
			return ai.NewTextStream("done: ", name), nil
		},
		summary: func(context.Context) (*ai.ChatStream, error) {
			return ai.NewTextStream("All good. ", "Next: monitor."), nil
		},
		userPrompt: make(map[string]string),
	}
}

func (p *scriptedProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	system := request.Messages[0].Content
	p.mu.Lock()
	p.userPrompt[system] = request.Messages[1].Content
	p.mu.Unlock()

	switch {
	case strings.HasPrefix(system, "Respond with JSON only"):
		return p.architect(ctx)
	case system == staged.SummaryInstruction:
		return p.summary(ctx)
	default:
		return p.agent(ctx, system)
	}
}

func (p *scriptedProvider) Preflight() error {
	return p.preflight
}

func (p *scriptedProvider) prompt(system string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prompt, ok := p.userPrompt[system]
	return prompt, ok
}

func testData() []dataset.Entry {
	return []dataset.Entry{dataset.NewEntry("Metrics", dataset.TypeText, "churn 5%")}
}

func TestPlan_Success_MovesToDataSelection(t *testing.T) {
	var fragments []string
	orchestrator := New(newScriptedProvider(), WithListener(func(event staged.Event) {
		if event.Type == EventArchitectFragment {
			fragments = append(fragments, event.Fragment)
		}
	}))

	result, err := orchestrator.Plan(context.Background(), "  Reduce churn  ")
	require.NoError(t, err)

	assert.True(t, result.Parsed)
	require.Len(t, result.Plan, 3)
	assert.Equal(t, "researcher", result.Plan[0].NodeID)
	assert.Equal(t, staged.StageDataSelection, orchestrator.Stage())
	assert.Equal(t, "Reduce churn", orchestrator.Snapshot().Problem)
	assert.Equal(t, architectReply, strings.Join(fragments, ""))

	g := orchestrator.Graph()
	assert.Len(t, g.Nodes, 3)
	assert.True(t, g.HasEdge("researcher", "analyst"))
	assert.True(t, g.HasEdge("analyst", "quality-checker"))

	inputs := orchestrator.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, "Churn export", inputs[0].Title)
	assert.Equal(t, dataset.TypeCSV, inputs[0].Type)
}

func TestPlan_ArchitectFails_ReturnsToIdle(t *testing.T) {
	provider := newScriptedProvider()
	provider.architect = func(context.Context) (*ai.ChatStream, error) {
		return nil, errors.New("server error (500)")
	}
	orchestrator := New(provider)

	_, err := orchestrator.Plan(context.Background(), "Reduce churn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "architect call")
	assert.Equal(t, staged.StageIdle, orchestrator.Stage())
	assert.NotEmpty(t, orchestrator.Snapshot().Err)
}

func TestPlan_UnparseableReply_UsesFallbackAgents(t *testing.T) {
	provider := newScriptedProvider()
	provider.architect = func(context.Context) (*ai.ChatStream, error) {
		return ai.NewTextStream("I cannot answer in JSON."), nil
	}
	orchestrator := New(provider)

	result, err := orchestrator.Plan(context.Background(), "Reduce churn")
	require.NoError(t, err)
	assert.False(t, result.Parsed)
	assert.Len(t, result.Plan, plan.DefaultMinAgents)
	assert.Len(t, result.Inputs, 3)
}

func TestPlan_MissingKey_FailsBeforeCalling(t *testing.T) {
	provider := newScriptedProvider()
	provider.preflight = ai.ErrMissingAPIKey
	orchestrator := New(provider)

	_, err := orchestrator.Plan(context.Background(), "Reduce churn")
	assert.ErrorIs(t, err, ai.ErrMissingAPIKey)
	assert.Equal(t, staged.StageIdle, orchestrator.Stage())
	_, called := provider.prompt(ArchitectPrompt(plan.DefaultMinAgents, plan.DefaultMaxAgents))
	assert.False(t, called)
}

func TestPlan_EmptyProblem_ReturnsSentinel(t *testing.T) {
	_, err := New(newScriptedProvider()).Plan(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyProblem)
}

func TestRun_FullCycle_RecordsOutputsAndSummary(t *testing.T) {
	provider := newScriptedProvider()
	var events []staged.EventType
	orchestrator := New(provider, WithListener(func(event staged.Event) {
		if event.Type != EventArchitectFragment && event.Type != staged.EventAgentFragment && event.Type != staged.EventSummaryFragment {
			events = append(events, event.Type)
		}
	}))

	_, err := orchestrator.Plan(context.Background(), "Reduce churn")
	require.NoError(t, err)
	require.NoError(t, orchestrator.SelectData(testData()))
	require.NoError(t, orchestrator.Run(context.Background()))

	snapshot := orchestrator.Snapshot()
	assert.Equal(t, staged.StageIdle, snapshot.Stage)
	require.Len(t, snapshot.Outputs, 3)
	for _, output := range snapshot.Outputs {
		assert.Equal(t, staged.StatusDone, output.Status, output.Name)
	}
	assert.Equal(t, "All good. Next: monitor.", snapshot.Summary)
	assert.Empty(t, snapshot.SummaryErr)

	summaryPrompt, ok := provider.prompt(staged.SummaryInstruction)
	require.True(t, ok)
	assert.Contains(t, summaryPrompt, "1. Researcher: done: Collect facts")
	assert.Contains(t, summaryPrompt, "3. Quality Checker: done: Check the analysis")

	assert.Equal(t, staged.EventRunStart, events[0])
	assert.Equal(t, staged.EventSummaryDone, events[len(events)-1])

	state := orchestrator.NodeState()
	assert.ElementsMatch(t, []string{"researcher", "analyst", "quality-checker"}, state.Completed)
	assert.Empty(t, state.Running)
}

func TestRun_SummaryFails_RunStillSucceeds(t *testing.T) {
	provider := newScriptedProvider()
	provider.summary = func(context.Context) (*ai.ChatStream, error) {
		return nil, errors.New("summary backend down")
	}
	orchestrator := New(provider)

	_, err := orchestrator.Plan(context.Background(), "Reduce churn")
	require.NoError(t, err)
	require.NoError(t, orchestrator.SelectData(testData()))
	require.NoError(t, orchestrator.Run(context.Background()))

	snapshot := orchestrator.Snapshot()
	assert.Contains(t, snapshot.SummaryErr, "summary backend down")
	assert.Empty(t, snapshot.Summary)
	assert.Equal(t, staged.StageIdle, snapshot.Stage)
}

func TestRun_WithSummaryDisabled_SkipsConclusion(t *testing.T) {
	provider := newScriptedProvider()
	orchestrator := New(provider, WithSummary(false))

	_, err := orchestrator.SetPlan("Reduce churn", map[string]any{
		"plan": []any{map[string]any{"agentName": "Solo"}, map[string]any{"agentName": "Duo"}},
	})
	require.NoError(t, err)
	require.NoError(t, orchestrator.SelectData(testData()))
	require.NoError(t, orchestrator.Run(context.Background()))

	_, called := provider.prompt(staged.SummaryInstruction)
	assert.False(t, called)
}

func TestRun_WithoutPlanOrData_ReturnsSentinels(t *testing.T) {
	orchestrator := New(newScriptedProvider())
	assert.ErrorIs(t, orchestrator.Run(context.Background()), staged.ErrEmptyPlan)
	assert.ErrorIs(t, orchestrator.SelectData(testData()), staged.ErrEmptyPlan)
	assert.ErrorIs(t, orchestrator.SelectData(nil), staged.ErrNoData)

	_, err := orchestrator.SetPlan("Reduce churn", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, orchestrator.Run(context.Background()), staged.ErrNoData)
	assert.Equal(t, staged.StageDataSelection, orchestrator.Stage())
}

func TestRun_PreflightFailure_LeavesIdle(t *testing.T) {
	provider := newScriptedProvider()
	orchestrator := New(provider)
	_, err := orchestrator.Plan(context.Background(), "Reduce churn")
	require.NoError(t, err)
	require.NoError(t, orchestrator.SelectData(testData()))

	provider.preflight = ai.ErrMissingAPIKey
	err = orchestrator.Run(context.Background())
	assert.ErrorIs(t, err, ai.ErrMissingAPIKey)

	snapshot := orchestrator.Snapshot()
	assert.Equal(t, staged.StageIdle, snapshot.Stage)
	assert.Empty(t, snapshot.Outputs)
	assert.NotEmpty(t, snapshot.Err)
}

// Cancel tears down a running run; calls that need another stage are
// rejected meanwhile.
func TestRun_Cancel_AbortsAndRejectsTransitions(t *testing.T) {
	provider := newScriptedProvider()
	provider.agent = func(ctx context.Context, _ string) (*ai.ChatStream, error) {
		return ai.NewChatStream(func(yield func(string, error) bool) {
			if !yield("thinking", nil) {
				return
			}
			<-ctx.Done()
			yield("", ctx.Err())
		}), nil
	}
	orchestrator := New(provider)
	_, err := orchestrator.SetPlan("Reduce churn", nil)
	require.NoError(t, err)
	require.NoError(t, orchestrator.SelectData(testData()))

	done := make(chan error, 1)
	go func() { done <- orchestrator.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return len(orchestrator.NodeState().Running) > 0
	}, 2*time.Second, 5*time.Millisecond)

	_, err = orchestrator.Plan(context.Background(), "Other problem")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, orchestrator.SelectData(testData()), ErrInvalidTransition)

	orchestrator.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, staged.ErrRunAborted)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after Cancel")
	}

	snapshot := orchestrator.Snapshot()
	assert.Equal(t, staged.StageIdle, snapshot.Stage)
	require.NotEmpty(t, snapshot.Outputs)
	assert.Equal(t, staged.StatusError, snapshot.Outputs[0].Status)
	assert.Equal(t, "thinking", snapshot.Outputs[0].Text)
}

func TestLoadPlan_ThenRerunFromIdle(t *testing.T) {
	orchestrator := New(newScriptedProvider(), WithSummary(false))
	entries := []plan.Entry{
		{NodeID: "a", AgentName: "A", SystemInstruction: "Do A", InitialTask: "a", Phase: 1, PhaseLabel: "Stage 1"},
		{NodeID: "b", AgentName: "B", SystemInstruction: "Do B", InitialTask: "b", Phase: 2, PhaseLabel: "Stage 2"},
	}
	require.NoError(t, orchestrator.LoadPlan("Reduce churn", entries, nil))
	require.NoError(t, orchestrator.SelectData(testData()))
	require.NoError(t, orchestrator.Run(context.Background()))
	assert.Equal(t, staged.StageIdle, orchestrator.Stage())

	require.NoError(t, orchestrator.SelectData(testData()))
	require.NoError(t, orchestrator.Run(context.Background()))
	assert.Len(t, orchestrator.Snapshot().Outputs, 2)

	assert.ErrorIs(t, orchestrator.LoadPlan("Reduce churn", nil, nil), staged.ErrEmptyPlan)
}

func TestArchitectPrompt_CarriesBounds(t *testing.T) {
	prompt := ArchitectPrompt(2, 6)
	assert.True(t, strings.HasPrefix(prompt, "Respond with JSON only"))
	assert.Contains(t, prompt, `"plan": 2-6 agents`)
	assert.Contains(t, prompt, `"dependsOn"`)
}
