// Package staged runs a normalized plan phase by phase against a streaming
// generation endpoint.
//
// All entries sharing a phase run concurrently; the [Engine] waits for every
// one of them to settle before the next phase starts. Each agent streams
// into its own [ExecutionOutput], and the text of successful agents is
// folded into a rolling context handed to later phases. One agent failing
// marks only its own output as failed. Pre-flight failures (missing or
// rejected credentials, unreachable endpoint) abort the whole run with
// [ErrRunAborted].
//
// [RunState] holds everything a run produces. It is safe for concurrent
// use; readers get copies through [RunState.Snapshot] and
// [RunState.NodeState].
package staged
