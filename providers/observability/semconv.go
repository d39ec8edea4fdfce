package observability

// Attribute keys, span names and metric names shared by stageflow packages.

// --- LLM Provider Attributes ---

const (
	// AttrLLMProvider is the name of the LLM provider (e.g. "openai").
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the model identifier.
	AttrLLMModel = "llm.model"

	// AttrLLMEndpoint is the API endpoint URL.
	AttrLLMEndpoint = "llm.endpoint"

	// AttrLLMFragments is the number of text fragments received on a stream.
	AttrLLMFragments = "llm.fragments"
)

// --- HTTP Attributes ---

const (
	AttrHTTPMethod          = "http.method"
	AttrHTTPStatusCode      = "http.status_code"
	AttrHTTPURL             = "http.url"
	AttrHTTPRequestBodySize = "http.request.body.size"
)

// --- Run Attributes ---

const (
	// AttrRunPhase is the numeric phase currently executing.
	AttrRunPhase = "run.phase"

	// AttrRunPhaseCount is the number of distinct phases in the plan.
	AttrRunPhaseCount = "run.phase_count"

	// AttrRunAgents is the number of agents taking part in a run or phase.
	AttrRunAgents = "run.agents"

	// AttrRunStage is the orchestrator stage (idle, planning, ...).
	AttrRunStage = "run.stage"

	// AttrAgentNodeID identifies the plan entry an agent runs for.
	AttrAgentNodeID = "agent.node_id"

	// AttrAgentName is the agent's display name.
	AttrAgentName = "agent.name"

	// AttrAgentStatus is the final status of an agent output.
	AttrAgentStatus = "agent.status"

	// AttrAgentTextLength is the length of the text an agent produced.
	AttrAgentTextLength = "agent.text_length"
)

// --- Store Attributes ---

const (
	AttrStoreBackend = "store.backend"
	AttrStorePlanID  = "store.plan_id"
)

// --- General Attributes ---

const (
	AttrError             = "error"
	AttrDuration          = "duration"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	SpanRun       = "stageflow.run"
	SpanPhase     = "stageflow.phase"
	SpanAgent     = "stageflow.agent"
	SpanArchitect = "stageflow.architect"
	SpanSummary   = "stageflow.summary"
	SpanLLMStream = "llm.stream"
)

// --- Metric Names ---

const (
	MetricAgentCompleted = "stageflow.agent.completed"
	MetricAgentFailed    = "stageflow.agent.failed"
	MetricAgentDuration  = "stageflow.agent.duration"
	MetricRunDuration    = "stageflow.run.duration"
)
