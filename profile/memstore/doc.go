// Package memstore is an in-memory ProfileStore used by tests and
// ephemeral deployments. Documents are deep copied on the way in and
// out so callers never share map references with the store.
package memstore
