// Package session houses the session-scoped shared state implementation of
// the coordinator's SharedState collaborator. A Session is the mutable
// key/value state shared by every agent working under one session id.
//
// Add durable backends (Redis, Postgres, etc.) in sub-packages without
// changing any calling code; only the wiring layer needs to decide which
// implementation to instantiate.
package session
