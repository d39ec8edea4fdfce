package staged

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/stageflow/core/dataset"
	"github.com/leofalp/stageflow/core/plan"
	"github.com/leofalp/stageflow/patterns/graph"
)

// Stage is the orchestrator's position in a planning/run cycle.
type Stage string

const (
	StageIdle          Stage = "idle"
	StagePlanning      Stage = "planning"
	StageDataSelection Stage = "data-selection"
	StageRunning       Stage = "running"
)

// Status is the lifecycle of one ExecutionOutput.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// ExecutionOutput is one agent's result within a run. Text only grows, and
// Status leaves running exactly once.
type ExecutionOutput struct {
	ID          string    `json:"id"`
	NodeID      string    `json:"nodeId"`
	Phase       float64   `json:"phase"`
	Name        string    `json:"name"`
	Task        string    `json:"task"`
	Instruction string    `json:"instruction"`
	Text        string    `json:"text"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt,omitzero"`
}

// Snapshot is a point-in-time copy of a RunState.
type Snapshot struct {
	Stage      Stage             `json:"stage"`
	Problem    string            `json:"problem"`
	Plan       []plan.Entry      `json:"plan"`
	Data       []dataset.Entry   `json:"data"`
	Outputs    []ExecutionOutput `json:"outputs"`
	Running    []string          `json:"running"`
	Focused    string            `json:"focused,omitempty"`
	Context    string            `json:"context,omitempty"`
	Summary    string            `json:"summary,omitempty"`
	SummaryErr string            `json:"summaryError,omitempty"`
	Err        string            `json:"error,omitempty"`
}

// RunState is the mutable state of one planning/run cycle.
//
// Every output is addressed by its own id, so concurrent agents never touch
// each other's entries. The running set is never edited in place: each
// change installs a new slice, which keeps slices handed out by NodeState
// valid.
type RunState struct {
	mu sync.RWMutex

	stage   Stage
	problem string
	plan    []plan.Entry
	data    []dataset.Entry

	outputs []ExecutionOutput
	index   map[string]int
	running []string
	focused string

	context    string
	summary    string
	summaryErr string
	err        string
}

// NewRunState returns an idle state.
func NewRunState() *RunState {
	return &RunState{stage: StageIdle, index: make(map[string]int)}
}

// Reset discards everything and returns to idle with the given problem.
func (s *RunState) Reset(problem string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s = RunState{stage: StageIdle, problem: problem, index: make(map[string]int)}
}

// ClearRun drops the outputs, context, summary and error of a previous run
// while keeping the problem, plan and data.
func (s *RunState) ClearRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs = nil
	s.index = make(map[string]int)
	s.running = nil
	s.focused = ""
	s.context = ""
	s.summary = ""
	s.summaryErr = ""
	s.err = ""
}

// Stage returns the current stage.
func (s *RunState) Stage() Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

// SetStage moves to stage. Transition rules live in the orchestrator.
func (s *RunState) SetStage(stage Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
}

// Problem returns the problem statement of the cycle.
func (s *RunState) Problem() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.problem
}

// SetPlan installs the plan for the cycle.
func (s *RunState) SetPlan(entries []plan.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = plan.Clone(entries)
}

// Plan returns a copy of the plan.
func (s *RunState) Plan() []plan.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return plan.Clone(s.plan)
}

// SetData installs the data entries for the next run.
func (s *RunState) SetData(entries []dataset.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = slices.Clone(entries)
}

// Data returns a copy of the data entries.
func (s *RunState) Data() []dataset.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data)
}

// Context returns the rolling context accumulated so far.
func (s *RunState) Context() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.context
}

// SetSummary records the conclusion text and its error, if any.
func (s *RunState) SetSummary(text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = text
	s.summaryErr = ""
	if err != nil {
		s.summaryErr = err.Error()
	}
}

// SetError records a run-level error message.
func (s *RunState) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
	if err != nil {
		s.err = err.Error()
	}
}

// Output returns a copy of the output with id.
func (s *RunState) Output(id string) (ExecutionOutput, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return ExecutionOutput{}, false
	}
	return s.outputs[i], true
}

// Snapshot returns a deep copy of the state.
func (s *RunState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Stage:      s.stage,
		Problem:    s.problem,
		Plan:       plan.Clone(s.plan),
		Data:       slices.Clone(s.data),
		Outputs:    slices.Clone(s.outputs),
		Running:    slices.Clone(s.running),
		Focused:    s.focused,
		Context:    s.context,
		Summary:    s.summary,
		SummaryErr: s.summaryErr,
		Err:        s.err,
	}
}

// NodeState returns the running, completed and failed node ids plus the
// most recently updated node.
func (s *RunState) NodeState() graph.NodeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := graph.NodeState{Running: s.running, Focused: s.focused}
	for _, output := range s.outputs {
		switch output.Status {
		case StatusDone:
			state.Completed = append(state.Completed, output.NodeID)
		case StatusError:
			state.Failed = append(state.Failed, output.NodeID)
		}
	}
	return state
}

// startPhase creates one running output per entry and adds their nodes to
// the running set. It returns the new output ids in entry order.
func (s *RunState) startPhase(entries []plan.Entry) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	ids := make([]string, 0, len(entries))
	running := slices.Clone(s.running)
	for _, entry := range entries {
		id := uuid.NewString()
		s.index[id] = len(s.outputs)
		s.outputs = append(s.outputs, ExecutionOutput{
			ID:          id,
			NodeID:      entry.NodeID,
			Phase:       entry.Phase,
			Name:        entry.AgentName,
			Task:        entry.InitialTask,
			Instruction: entry.SystemInstruction,
			Status:      StatusRunning,
			StartedAt:   now,
		})
		running = append(running, entry.NodeID)
		ids = append(ids, id)
	}
	s.running = running
	return ids
}

// appendText adds a fragment to a running output. It reports false when
// the output is unknown or already settled.
func (s *RunState) appendText(id, fragment string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok || s.outputs[i].Status != StatusRunning {
		return false
	}
	s.outputs[i].Text += fragment
	s.focused = s.outputs[i].NodeID
	return true
}

// finish settles a running output as done (err == nil) or error and drops
// its node from the running set. Settled outputs are left untouched.
func (s *RunState) finish(id string, err error) (ExecutionOutput, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok || s.outputs[i].Status != StatusRunning {
		return ExecutionOutput{}, false
	}

	output := &s.outputs[i]
	output.FinishedAt = time.Now()
	if err != nil {
		output.Status = StatusError
		output.Error = err.Error()
	} else {
		output.Status = StatusDone
	}
	s.focused = output.NodeID

	running := make([]string, 0, len(s.running))
	removed := false
	for _, nodeID := range s.running {
		if !removed && nodeID == output.NodeID {
			removed = true
			continue
		}
		running = append(running, nodeID)
	}
	s.running = running
	return *output, true
}

// foldContext appends tagged text to the rolling context.
func (s *RunState) foldContext(blocks []string) {
	if len(blocks) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	parts := make([]string, 0, len(blocks)+1)
	if s.context != "" {
		parts = append(parts, s.context)
	}
	parts = append(parts, blocks...)
	s.context = strings.Join(parts, "\n\n")
}
