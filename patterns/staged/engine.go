package staged

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leofalp/stageflow/core/dataset"
	"github.com/leofalp/stageflow/core/plan"
	"github.com/leofalp/stageflow/internal/utils"
	"github.com/leofalp/stageflow/providers/ai"
	"github.com/leofalp/stageflow/providers/observability"
)

var (
	// ErrEmptyPlan is returned when a run is started without plan entries.
	ErrEmptyPlan = errors.New("plan has no entries")

	// ErrNoData is returned when a run is started without data entries.
	ErrNoData = errors.New("no data entries selected")

	// ErrRunAborted wraps the pre-flight failure or cancellation that
	// stopped a run before its last phase.
	ErrRunAborted = errors.New("run aborted")
)

// Engine executes plans phase by phase. An Engine holds no per-run state
// and may run several RunStates at once.
type Engine struct {
	provider ai.StreamProvider
	config   engineConfig
}

// NewEngine returns an engine that streams every agent through provider.
func NewEngine(provider ai.StreamProvider, opts ...Option) *Engine {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Engine{provider: provider, config: config}
}

// Phase is one group of plan entries sharing a phase number, in plan order.
type Phase struct {
	Number  float64
	Label   string
	Entries []plan.Entry
}

// GroupPhases splits entries into phases in ascending numeric order. Entries
// keep their plan order within a phase; the label is taken from the first
// entry of the phase.
func GroupPhases(entries []plan.Entry) []Phase {
	var phases []Phase
	index := make(map[float64]int)
	for _, entry := range entries {
		i, ok := index[entry.Phase]
		if !ok {
			i = len(phases)
			index[entry.Phase] = i
			phases = append(phases, Phase{Number: entry.Phase, Label: entry.PhaseLabel})
		}
		phases[i].Entries = append(phases[i].Entries, entry)
	}
	slices.SortStableFunc(phases, func(a, b Phase) int {
		return cmp.Compare(a.Number, b.Number)
	})
	return phases
}

// execution carries the per-run values shared by every phase.
type execution struct {
	*Engine
	state    *RunState
	problem  string
	data     string
	observer observer

	// opened is set once any agent of the run has opened its stream. From
	// then on pre-flight class errors are failures of single agents.
	opened atomic.Bool

	emitMu sync.Mutex
}

// Execute runs the plan and data installed in state to completion.
//
// Phases run strictly one after another. Inside a phase every agent streams
// concurrently (bounded by WithMaxConcurrency) and the engine waits for all
// of them to settle. Agent failures are recorded on their outputs and do not
// stop the run. Execute returns an error wrapping ErrRunAborted when a
// pre-flight failure is seen or ctx ends before the last phase; outputs that
// were running at that point are settled as errors. A pre-flight failure
// only aborts while no agent of the run has opened a stream; afterwards it
// fails just the agent that saw it.
//
// Execute does not touch the state's stage; the orchestrator owns it.
func (e *Engine) Execute(ctx context.Context, state *RunState) error {
	entries := state.Plan()
	if len(entries) == 0 {
		return ErrEmptyPlan
	}
	data := state.Data()
	if len(data) == 0 {
		return ErrNoData
	}

	provider := e.config.observer
	if provider == nil {
		provider = observability.ObserverFromContext(ctx)
	}
	run := &execution{
		Engine:   e,
		state:    state,
		problem:  state.Problem(),
		data:     dataset.Format(data, e.config.dataLimit),
		observer: observer{provider: provider},
	}
	phases := GroupPhases(entries)

	start := time.Now()
	ctx, span := run.observer.runStart(ctx, len(entries), len(phases))
	run.emit(Event{Type: EventRunStart})

	err := run.phases(ctx, phases)
	run.observer.runEnd(ctx, span, err, time.Since(start))
	run.emit(Event{Type: EventRunDone, Err: err})
	return err
}

func (r *execution) phases(ctx context.Context, phases []Phase) error {
	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w before stage %s: %w", ErrRunAborted, plan.FormatPhase(phase.Number), err)
		}
		if err := r.phase(ctx, phase); err != nil {
			return err
		}
	}
	return nil
}

// phase runs one barrier step. Only a pre-flight failure or a cancelled ctx
// makes it return an error.
func (r *execution) phase(ctx context.Context, phase Phase) error {
	ctx, span := r.observer.phaseStart(ctx, phase.Number, len(phase.Entries))
	phaseCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	previous := utils.TruncateHead(r.state.Context(), r.config.contextLimit)
	ids := r.state.startPhase(phase.Entries)

	r.emit(Event{Type: EventPhaseStart, Phase: phase.Number, PhaseLabel: phase.Label})
	for i, entry := range phase.Entries {
		r.emit(Event{
			Type:       EventAgentStart,
			Phase:      phase.Number,
			PhaseLabel: phase.Label,
			NodeID:     entry.NodeID,
			OutputID:   ids[i],
			AgentName:  entry.AgentName,
		})
	}

	var (
		group    errgroup.Group
		abortMu  sync.Mutex
		abortErr error
	)
	if r.config.maxConcurrency > 0 {
		group.SetLimit(r.config.maxConcurrency)
	}
	for i, entry := range phase.Entries {
		id := ids[i]
		request := ai.NewChatRequest(
			AgentSystemPrompt(entry.SystemInstruction),
			AgentUserPrompt(r.problem, r.data, entry.InitialTask, previous),
		)
		request.Model = r.config.model

		// Agents never fail the group: one agent's error must not cancel
		// its siblings.
		group.Go(func() error {
			err := r.agent(phaseCtx, id, entry, request)
			if err != nil && ai.IsPreflight(err) && !r.opened.Load() {
				abortMu.Lock()
				if abortErr == nil {
					abortErr = err
				}
				abortMu.Unlock()
				cancel(err)
			}
			return nil
		})
	}
	_ = group.Wait()

	failed := 0
	var blocks []string
	for i, entry := range phase.Entries {
		output, ok := r.state.Output(ids[i])
		if !ok {
			continue
		}
		if output.Status != StatusDone {
			failed++
			continue
		}
		if strings.TrimSpace(output.Text) != "" {
			blocks = append(blocks, ContextBlock(phase.Number, entry.AgentName, output.Text))
		}
	}
	r.state.foldContext(blocks)

	r.observer.phaseEnd(ctx, span, phase.Number, failed)
	r.emit(Event{Type: EventPhaseDone, Phase: phase.Number, PhaseLabel: phase.Label})

	if abortErr != nil {
		return fmt.Errorf("%w: %w", ErrRunAborted, abortErr)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w during stage %s: %w", ErrRunAborted, plan.FormatPhase(phase.Number), err)
	}
	return nil
}

// agent streams one entry into the output with id and settles it.
func (r *execution) agent(ctx context.Context, id string, entry plan.Entry, request ai.ChatRequest) error {
	if r.config.agentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.agentTimeout)
		defer cancel()
	}

	start := time.Now()
	ctx, span := r.observer.agentStart(ctx, entry.NodeID, entry.AgentName)

	err := r.stream(ctx, id, entry, request)
	output, settled := r.state.finish(id, err)
	if !settled {
		return err
	}
	r.observer.agentEnd(ctx, span, output, err, time.Since(start))

	event := Event{
		Type:      EventAgentDone,
		Phase:     entry.Phase,
		NodeID:    entry.NodeID,
		OutputID:  id,
		AgentName: entry.AgentName,
	}
	if err != nil {
		event.Type = EventAgentError
		event.Err = err
	}
	r.emit(event)
	return err
}

func (r *execution) stream(ctx context.Context, id string, entry plan.Entry, request ai.ChatRequest) error {
	stream, err := r.provider.StreamMessage(ctx, request)
	if err != nil {
		return err
	}
	r.opened.Store(true)
	for fragment, err := range stream.Iter() {
		if err != nil {
			return err
		}
		if fragment == "" || !r.state.appendText(id, fragment) {
			continue
		}
		r.emit(Event{
			Type:      EventAgentFragment,
			Phase:     entry.Phase,
			NodeID:    entry.NodeID,
			OutputID:  id,
			AgentName: entry.AgentName,
			Fragment:  fragment,
		})
	}
	return ctx.Err()
}

func (r *execution) emit(event Event) {
	if r.config.listener == nil {
		return
	}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.config.listener(event)
}
