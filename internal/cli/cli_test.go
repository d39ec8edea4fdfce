package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/stageflow/internal/config"
	"github.com/leofalp/stageflow/patterns/graph"
	"github.com/leofalp/stageflow/patterns/staged"
	"github.com/leofalp/stageflow/providers/ai"
	"github.com/leofalp/stageflow/providers/ai/openai"
	"github.com/leofalp/stageflow/providers/ai/retry"
	"github.com/leofalp/stageflow/providers/store"
	"github.com/leofalp/stageflow/providers/store/inmemory"
	"github.com/leofalp/stageflow/providers/store/sqlitestore"
)

const architectReply = `{"plan":[
  {"agentName":"Researcher","systemInstruction":"Collect facts","initialTask":"List drivers","stage":1,"next":["Reviewer"]},
  {"agentName":"Reviewer","systemInstruction":"Audit the findings","initialTask":"Check","stage":2}
],"inputs":[{"title":"Churn","type":"csv","sample":"month,churn\nJan,5"}]}`

type fakeProvider struct{}

func (fakeProvider) StreamMessage(_ context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	system := request.Messages[0].Content
	switch {
	case strings.HasPrefix(system, "Respond with JSON only"):
		return ai.NewTextStream(architectReply), nil
	case system == staged.SummaryInstruction:
		return ai.NewTextStream("Overall fine."), nil
	default:
		name, _, _ := strings.Cut(system, ".")
		return ai.NewTextStream("notes from ", name), nil
	}
}

type harness struct {
	app   *App
	store *inmemory.Store
	out   *bytes.Buffer
	err   *bytes.Buffer
}

func newHarness(t *testing.T, env map[string]string) *harness {
	t.Helper()
	h := &harness{store: inmemory.New(), out: &bytes.Buffer{}, err: &bytes.Buffer{}}
	h.app = &App{
		Out: h.out,
		Err: h.err,
		LookupEnv: func(key string) (string, bool) {
			value, ok := env[key]
			return value, ok
		},
		NewProvider: func(config.Config) ai.StreamProvider { return fakeProvider{} },
		OpenStore: func(context.Context, config.Config) (store.Store, func(), error) {
			return h.store, func() {}, nil
		},
	}
	return h
}

func (h *harness) exec(t *testing.T, args ...string) error {
	t.Helper()
	h.out.Reset()
	h.err.Reset()
	root := NewRootCmd(h.app)
	root.SetArgs(append(args, "--env-file", emptyEnvFile(t)))
	return root.ExecuteContext(context.Background())
}

func emptyEnvFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	return path
}

func writePlan(t *testing.T, h *harness) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, h.exec(t, "plan", "--problem", "Why did churn rise?", "--out", path))
	return path
}

func TestPlanCmd_PrintsDocument(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.exec(t, "plan", "-p", "Why did churn rise?"))

	var doc planDocument
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &doc))
	assert.Equal(t, "Why did churn rise?", doc.Problem)
	require.Len(t, doc.Plan, 2)
	assert.Equal(t, "researcher", doc.Plan[0].NodeID)
	require.Len(t, doc.Inputs, 1)
	require.NotNil(t, doc.Graph)
	assert.True(t, doc.Graph.HasEdge("researcher", "reviewer"))
	assert.Equal(t, graph.KindValidation, doc.Graph.Nodes[1].Kind)
}

func TestPlanCmd_SaveThenList(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.exec(t, "plan", "-p", "Why did churn rise?", "--save", "--title", "Churn Q3"))
	assert.Contains(t, h.err.String(), "saved plan ")

	plans, err := h.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "Churn Q3", plans[0].Title)

	require.NoError(t, h.exec(t, "saved", "list"))
	assert.Contains(t, h.out.String(), "Churn Q3")
	assert.Contains(t, h.out.String(), plans[0].ID)

	require.NoError(t, h.exec(t, "saved", "show", plans[0].ID))
	var doc planDocument
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &doc))
	assert.Equal(t, plans[0].ID, doc.ID)

	require.NoError(t, h.exec(t, "saved", "delete", plans[0].ID))
	err = h.exec(t, "saved", "delete", plans[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunCmd_StreamsStagesAndSummary(t *testing.T) {
	h := newHarness(t, nil)
	planFile := writePlan(t, h)

	dataFile := filepath.Join(t.TempDir(), "churn.csv")
	require.NoError(t, os.WriteFile(dataFile, []byte("month,churn\nJul,9\n"), 0o600))

	require.NoError(t, h.exec(t, "run", "--plan", planFile, "--data", dataFile))

	out := h.out.String()
	assert.Contains(t, out, "== Stage 1 ==")
	assert.Contains(t, out, "[Researcher] notes from Collect facts")
	assert.Contains(t, out, "== Stage 2 ==")
	assert.Contains(t, out, "[Reviewer] notes from Audit the findings")
	assert.Contains(t, out, "== Summary ==\nOverall fine.")
	assert.Less(t, strings.Index(out, "Stage 1"), strings.Index(out, "Stage 2"))
}

func TestRunCmd_SavedPlanJSON(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.exec(t, "plan", "-p", "Why did churn rise?", "--save"))
	plans, err := h.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)

	require.NoError(t, h.exec(t, "run", "--saved", plans[0].ID, "--json", "--no-summary"))

	var snapshot staged.Snapshot
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &snapshot))
	assert.Equal(t, staged.StageIdle, snapshot.Stage)
	require.Len(t, snapshot.Outputs, 2)
	for _, output := range snapshot.Outputs {
		assert.Equal(t, staged.StatusDone, output.Status)
	}
	assert.Empty(t, snapshot.Summary)
	require.Len(t, snapshot.Data, 1, "falls back to the suggested inputs")
	assert.Equal(t, "Churn", snapshot.Data[0].Title)
	assert.Contains(t, snapshot.Context, "[Stage 1 · Researcher]")
}

func TestRunCmd_FreshPlanFromProblem(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.exec(t, "run", "-p", "Why did churn rise?", "--no-summary"))
	assert.Contains(t, h.out.String(), "[Reviewer]")
	assert.NotContains(t, h.out.String(), "Summary")
}

func TestRunCmd_Errors(t *testing.T) {
	h := newHarness(t, nil)

	err := h.exec(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--problem")

	err = h.exec(t, "run", "--saved", "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = h.exec(t, "run", "-p", "x", "--data", filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGraphCmd_Text(t *testing.T) {
	h := newHarness(t, nil)
	planFile := writePlan(t, h)

	require.NoError(t, h.exec(t, "graph", "--plan", planFile, "--text"))
	lines := strings.Split(strings.TrimSpace(h.out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "researcher (process) -> reviewer")
	assert.Contains(t, lines[1], "reviewer (validation)")
}

func TestGraphCmd_RawArchitectFile(t *testing.T) {
	h := newHarness(t, nil)
	path := filepath.Join(t.TempDir(), "raw.json")
	raw := `{"problem":"Churn","plan":[{"agentName":"A","stage":1},{"agentName":"B","stage":2,"dependsOn":["A"]}]}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	require.NoError(t, h.exec(t, "graph", "--plan", path))
	var g graph.Graph
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &g))
	require.Len(t, g.Nodes, 2)
	assert.True(t, g.HasEdge("a", "b"))
}

func TestConfigCmd_FlagsOverrideEnv(t *testing.T) {
	h := newHarness(t, map[string]string{
		config.EnvOpenAIAPIKey: "sk-test-abcd",
		config.EnvMaxAgents:    "4",
	})
	require.NoError(t, h.exec(t, "config", "--max-agents", "5", "--model", "local-model"))

	out := h.out.String()
	assert.Contains(t, out, "maxAgents: 5")
	assert.Contains(t, out, "model: local-model")
	assert.Contains(t, out, "****abcd")
	assert.NotContains(t, out, "sk-test")
}

func TestRoot_InvalidBounds(t *testing.T) {
	h := newHarness(t, nil)
	err := h.exec(t, "config", "--min-agents", "4", "--max-agents", "2")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestNewOpenAIProvider_WrapsRetries(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, &retry.Provider{}, newOpenAIProvider(cfg))

	cfg.MaxRetries = 0
	assert.IsType(t, &openai.Provider{}, newOpenAIProvider(cfg))
}

func TestOpenStore_Backends(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.DatabaseURL = "memory"
	s, release, err := openStore(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &inmemory.Store{}, s)
	release()

	cfg.DatabaseURL = "sqlite://" + filepath.Join(t.TempDir(), "plans.db")
	s, release, err = openStore(ctx, cfg)
	require.NoError(t, err)
	defer release()
	assert.IsType(t, &sqlitestore.Store{}, s)

	saved := &store.SavedPlan{Problem: "p"}
	require.NoError(t, s.Save(ctx, saved))
	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "p", got.Problem)
}
