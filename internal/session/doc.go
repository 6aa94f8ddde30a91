// Package session tracks per-client verse resolution state.
//
// A [Store] owns one [Session] per connected client. Each session carries
// the current verse and translation and serialises resolution turns so
// that two events from the same client never interleave their writes.
// Removing a session cancels its context and rejects any later commit,
// which is how results computed for a disconnected client are dropped.
package session
