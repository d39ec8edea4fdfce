// Package observability defines the tracing, metrics and logging interfaces
// used across stageflow, plus the attribute keys and span names the engine
// emits.
//
// [Provider] composes [Tracer], [Metrics] and [Logger] into one injectable
// dependency. It travels through a [context.Context] with
// [ContextWithObserver] and [ObserverFromContext]; the active [Span] travels
// with [ContextWithSpan] and [SpanFromContext]. Every consumer treats a nil
// Provider as "observability disabled".
package observability
