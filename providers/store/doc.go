// Package store defines how saved plans are persisted.
//
// A [SavedPlan] is a normalized plan together with its problem statement
// and the data entries chosen for it. Backends live in sub-packages:
// inmemory for tests and short-lived processes, pgstore for PostgreSQL and
// sqlitestore for a local file.
package store
