// Package util holds small internal helpers shared across packages without
// committing to public API stability.
package util

import "github.com/google/uuid"

// NewID generates a process-unique identifier for messages, tasks and
// artifacts.
func NewID() string { return uuid.NewString() }
