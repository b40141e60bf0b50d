// Package protocol defines the A2A wire model: typed content Parts, the
// Message envelope that carries them between agents, and the multipart
// variant used for heterogeneous payloads. All constructors are pure apart
// from ID and timestamp generation; validation never mutates.
package protocol
