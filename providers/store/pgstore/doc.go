// Package pgstore persists saved plans in PostgreSQL through pgx/v5.
//
// [New] accepts anything implementing [Querier], typically a
// *pgxpool.Pool. Plans and inputs are stored as JSONB. [Store.EnsureSchema]
// creates the table for development; production deployments should manage
// the schema with their migration tooling.
package pgstore
