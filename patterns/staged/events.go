package staged

// EventType names a progress notification emitted during a run.
type EventType string

const (
	EventRunStart      EventType = "run_start"
	EventPhaseStart    EventType = "phase_start"
	EventAgentStart    EventType = "agent_start"
	EventAgentFragment EventType = "agent_fragment"
	EventAgentDone     EventType = "agent_done"
	EventAgentError    EventType = "agent_error"
	EventPhaseDone     EventType = "phase_done"
	EventRunDone       EventType = "run_done"

	// Conclusion events are emitted by the orchestrator after the last phase.
	EventSummaryFragment EventType = "summary_fragment"
	EventSummaryDone     EventType = "summary_done"
)

// Event is one progress notification. Fields that do not apply to Type are
// left zero.
type Event struct {
	Type       EventType
	Phase      float64
	PhaseLabel string
	NodeID     string
	OutputID   string
	AgentName  string
	Fragment   string
	Err        error
}

// Listener receives events. Calls for one run are serialized, so a listener
// need not be safe for concurrent use, but it runs on agent goroutines and
// should return quickly.
type Listener func(Event)
