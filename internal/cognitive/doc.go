// Package cognitive is the memory subsystem facade. Producers hand it chat
// events, which it records as queue jobs; the historian processor later turns
// each job into a canonical event document in the vector index and, when the
// event carries new information, folds it into the entity's stored profile.
//
// Every entry point honors the enabled gate: with the subsystem disabled,
// queries return empty results and enqueue is a no-op, never an error.
package cognitive
