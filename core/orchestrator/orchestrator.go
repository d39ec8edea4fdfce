package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/leofalp/stageflow/core/dataset"
	"github.com/leofalp/stageflow/core/plan"
	"github.com/leofalp/stageflow/patterns/graph"
	"github.com/leofalp/stageflow/patterns/staged"
	"github.com/leofalp/stageflow/providers/ai"
	"github.com/leofalp/stageflow/providers/observability"
)

var (
	// ErrInvalidTransition is returned when a call does not fit the current
	// stage, e.g. Run while planning.
	ErrInvalidTransition = errors.New("stageflow: invalid stage transition")

	// ErrEmptyProblem is returned by Plan and SetPlan for a blank problem.
	ErrEmptyProblem = errors.New("stageflow: problem statement is empty")
)

// EventArchitectFragment carries text streamed by the planning call.
const EventArchitectFragment staged.EventType = "architect_fragment"

// Orchestrator owns one RunState and moves it through the stages. Its
// methods are safe for concurrent use; Cancel is meant to be called while
// Plan or Run is in progress.
type Orchestrator struct {
	provider   ai.StreamProvider
	normalizer *plan.Normalizer
	engine     *staged.Engine
	config     config

	mu     sync.Mutex
	state  *staged.RunState
	graph  graph.Graph
	inputs []dataset.Entry
	cancel context.CancelFunc
}

// New returns an idle orchestrator streaming through provider.
func New(provider ai.StreamProvider, opts ...Option) *Orchestrator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	engineOptions := []staged.Option{
		staged.WithModel(cfg.model),
		staged.WithListener(cfg.listener),
		staged.WithObserver(cfg.observer),
	}
	engineOptions = append(engineOptions, cfg.engineOptions...)

	return &Orchestrator{
		provider:   provider,
		normalizer: plan.NewNormalizer(cfg.minAgents, cfg.maxAgents),
		engine:     staged.NewEngine(provider, engineOptions...),
		config:     cfg,
		state:      staged.NewRunState(),
	}
}

// Stage returns the current stage.
func (o *Orchestrator) Stage() staged.Stage {
	return o.state.Stage()
}

// Snapshot returns a copy of the run state.
func (o *Orchestrator) Snapshot() staged.Snapshot {
	return o.state.Snapshot()
}

// NodeState returns the per-node status overlay of the current run.
func (o *Orchestrator) NodeState() graph.NodeState {
	return o.state.NodeState()
}

// Graph returns the graph built from the current plan.
func (o *Orchestrator) Graph() graph.Graph {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.graph
}

// View returns the graph nodes painted with the current node state.
func (o *Orchestrator) View() []graph.NodeView {
	return o.Graph().View(o.state.NodeState())
}

// Inputs returns the data entries suggested with the current plan.
func (o *Orchestrator) Inputs() []dataset.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.inputs)
}

// Plan asks the architect model for a plan, normalizes it and moves to
// data-selection. A failed call moves back to idle.
func (o *Orchestrator) Plan(ctx context.Context, problem string) (plan.Result, error) {
	problem = strings.TrimSpace(problem)
	if problem == "" {
		return plan.Result{}, ErrEmptyProblem
	}

	ctx, err := o.begin(ctx, staged.StagePlanning, func(state *staged.RunState) {
		state.Reset(problem)
	}, staged.StageIdle, staged.StageDataSelection)
	if err != nil {
		return plan.Result{}, err
	}

	if err := o.preflight(); err != nil {
		o.end(staged.StageIdle)
		return plan.Result{}, err
	}

	minAgents, maxAgents := o.normalizer.Bounds()
	request := ai.NewChatRequest(ArchitectPrompt(minAgents, maxAgents), problem)
	request.Model = o.config.model

	text, err := o.stream(ctx, observability.SpanArchitect, request, func(fragment string) {
		o.emit(staged.Event{Type: EventArchitectFragment, Fragment: fragment})
	})
	if err != nil {
		o.state.SetError(err)
		o.end(staged.StageIdle)
		return plan.Result{}, fmt.Errorf("architect call: %w", err)
	}

	result := o.normalizer.FromResponse(text, problem)
	if !result.Parsed {
		o.warn(ctx, "architect output held no JSON plan, using fallback agents")
	}
	o.install(result.Plan, result.Inputs)
	o.end(staged.StageDataSelection)
	return result, nil
}

// SetPlan normalizes a caller-supplied plan payload (an object with a
// "plan" array and optional "inputs") and moves to data-selection.
func (o *Orchestrator) SetPlan(problem string, payload any) (plan.Result, error) {
	problem = strings.TrimSpace(problem)
	if problem == "" {
		return plan.Result{}, ErrEmptyProblem
	}
	result := plan.Result{
		Plan:   o.normalizer.Normalize(payload),
		Inputs: o.normalizer.NormalizeInputs(payload, problem, plan.DefaultInputs(problem)),
		Parsed: payload != nil,
	}
	if err := o.restore(problem, result.Plan, result.Inputs); err != nil {
		return plan.Result{}, err
	}
	return result, nil
}

// LoadPlan installs an already normalized plan, e.g. one read back from a
// store, and moves to data-selection.
func (o *Orchestrator) LoadPlan(problem string, entries []plan.Entry, inputs []dataset.Entry) error {
	if strings.TrimSpace(problem) == "" {
		return ErrEmptyProblem
	}
	if len(entries) == 0 {
		return staged.ErrEmptyPlan
	}
	return o.restore(strings.TrimSpace(problem), plan.Clone(entries), slices.Clone(inputs))
}

func (o *Orchestrator) restore(problem string, entries []plan.Entry, inputs []dataset.Entry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkLocked(staged.StageDataSelection, staged.StageIdle, staged.StageDataSelection); err != nil {
		return err
	}
	o.state.Reset(problem)
	o.installLocked(entries, inputs)
	o.state.SetStage(staged.StageDataSelection)
	return nil
}

// SelectData chooses the data entries for the next run. It is accepted in
// data-selection, and in idle once a plan exists so a finished run can be
// repeated with other data.
func (o *Orchestrator) SelectData(entries []dataset.Entry) error {
	if len(entries) == 0 {
		return staged.ErrNoData
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkLocked(staged.StageDataSelection, staged.StageIdle, staged.StageDataSelection); err != nil {
		return err
	}
	if len(o.state.Plan()) == 0 {
		return staged.ErrEmptyPlan
	}
	o.state.SetData(entries)
	o.state.SetStage(staged.StageDataSelection)
	return nil
}

// Run executes the plan on the selected data and, when enabled, asks for a
// conclusion. It always ends in idle. Pre-flight failures and aborted runs
// are returned; failures of single agents are only recorded on their
// outputs.
func (o *Orchestrator) Run(ctx context.Context) error {
	if len(o.state.Plan()) == 0 {
		return staged.ErrEmptyPlan
	}
	if len(o.state.Data()) == 0 {
		return staged.ErrNoData
	}

	ctx, err := o.begin(ctx, staged.StageRunning, (*staged.RunState).ClearRun, staged.StageDataSelection)
	if err != nil {
		return err
	}
	defer o.end(staged.StageIdle)

	if err := o.preflight(); err != nil {
		o.state.SetError(err)
		return err
	}

	if err := o.engine.Execute(ctx, o.state); err != nil {
		o.state.SetError(err)
		return err
	}

	if o.config.summarize {
		o.conclude(ctx)
	}
	return nil
}

// Cancel stops the Plan or Run call in progress, if any.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// conclude streams the summary of a finished run into the state. Its
// failure is recorded but does not fail the run.
func (o *Orchestrator) conclude(ctx context.Context) {
	snapshot := o.state.Snapshot()
	request := ai.NewChatRequest(
		staged.SummaryInstruction,
		staged.SummaryUserPrompt(snapshot.Problem, dataset.Format(snapshot.Data, dataset.DefaultContentLimit), snapshot.Outputs),
	)
	request.Model = o.config.model

	text, err := o.stream(ctx, observability.SpanSummary, request, func(fragment string) {
		o.emit(staged.Event{Type: staged.EventSummaryFragment, Fragment: fragment})
	})
	o.state.SetSummary(text, err)
	if err != nil {
		o.warn(ctx, "conclusion call failed", observability.Error(err))
	}
	o.emit(staged.Event{Type: staged.EventSummaryDone, Err: err})
}

// stream runs one generation to completion. The text received before a
// mid-stream error is returned with it.
func (o *Orchestrator) stream(ctx context.Context, spanName string, request ai.ChatRequest, onFragment func(string)) (string, error) {
	var span observability.Span
	if o.config.observer != nil {
		ctx = observability.ContextWithObserver(ctx, o.config.observer)
		ctx, span = o.config.observer.StartSpan(ctx, spanName,
			observability.String(observability.AttrLLMModel, request.Model),
		)
		defer span.End()
	}

	fail := func(err error) error {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, spanName+" failed")
		}
		return err
	}

	stream, err := o.provider.StreamMessage(ctx, request)
	if err != nil {
		return "", fail(err)
	}

	var text strings.Builder
	for fragment, err := range stream.Iter() {
		if err != nil {
			return text.String(), fail(err)
		}
		text.WriteString(fragment)
		if onFragment != nil && fragment != "" {
			onFragment(fragment)
		}
	}
	if span != nil {
		span.SetAttributes(observability.Int(observability.AttrAgentTextLength, text.Len()))
		span.SetStatus(observability.StatusOK, spanName+" completed")
	}
	return text.String(), nil
}

// begin validates and performs a transition into a long-running stage and
// returns the cancellable context for it.
func (o *Orchestrator) begin(ctx context.Context, to staged.Stage, prepare func(*staged.RunState), from ...staged.Stage) (context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkLocked(to, from...); err != nil {
		return nil, err
	}
	if prepare != nil {
		prepare(o.state)
	}
	o.state.SetStage(to)

	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.debug(ctx, "stage changed", to)
	return ctx, nil
}

// end leaves a long-running stage.
func (o *Orchestrator) end(to staged.Stage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.state.SetStage(to)
	o.debug(context.Background(), "stage changed", to)
}

func (o *Orchestrator) checkLocked(to staged.Stage, from ...staged.Stage) error {
	current := o.state.Stage()
	if !slices.Contains(from, current) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, to)
	}
	return nil
}

func (o *Orchestrator) install(entries []plan.Entry, inputs []dataset.Entry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.installLocked(entries, inputs)
}

func (o *Orchestrator) installLocked(entries []plan.Entry, inputs []dataset.Entry) {
	o.state.SetPlan(entries)
	o.graph = graph.Build(entries)
	o.inputs = inputs
}

func (o *Orchestrator) preflight() error {
	if checker, ok := o.provider.(ai.PreflightChecker); ok {
		return checker.Preflight()
	}
	return nil
}

func (o *Orchestrator) emit(event staged.Event) {
	if o.config.listener != nil {
		o.config.listener(event)
	}
}

func (o *Orchestrator) debug(ctx context.Context, msg string, stage staged.Stage) {
	if o.config.observer != nil {
		o.config.observer.Debug(ctx, msg, observability.String(observability.AttrRunStage, string(stage)))
	}
}

func (o *Orchestrator) warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if o.config.observer != nil {
		o.config.observer.Warn(ctx, msg, attrs...)
	}
}
