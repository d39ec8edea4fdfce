// Package slogobs implements observability.Provider on top of log/slog.
//
// Spans, counters and histograms are all rendered as structured log lines
// through a [Handler] that writes compact, pretty or JSON output. Create an
// observer with [New] and tune it with [WithFormat], [WithLevel],
// [WithOutput], [WithColors] or [WithLogger].
package slogobs
