// Package bunstore persists profile documents in a relational table
// through bun, one row per collection/id pair with the document body
// stored as JSON. It is the durable ProfileStore for deployments that
// already run on SQL.
package bunstore
