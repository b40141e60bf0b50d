// Package artifact contains concrete implementations of the coordinator's
// ArtifactStore collaborator.
//
// The canonical ArtifactStore interface lives in the coordinator package so
// the consuming side owns the contract. Implementation packages like this
// one (in-memory, cloud object stores, databases, etc.) provide storage
// backends that can be swapped without touching calling code.
package artifact
