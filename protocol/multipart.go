package protocol

import (
	"fmt"

	"github.com/peregrine-ai/a2arelay/internal/util"
)

// MultipartMessage is an envelope variant whose parts are managed explicitly
// under a boundary token. Part ids are unique within the message.
type MultipartMessage struct {
	Message
	Boundary string `json:"boundary"`
}

// NewMultipartMessage constructs an empty multipart envelope with a generated
// boundary token.
func NewMultipartMessage(role, sender string, msgType MessageType) *MultipartMessage {
	m := NewMessage(role, nil, msgType)
	m.Sender = sender
	return &MultipartMessage{
		Message:  m,
		Boundary: "boundary-" + util.NewID(),
	}
}

// AddPart appends a part, rejecting duplicate ids.
func (m *MultipartMessage) AddPart(p Part) error {
	for _, existing := range m.Parts {
		if existing.ID == p.ID {
			return fmt.Errorf("%w: %s", ErrDuplicatePartID, p.ID)
		}
	}
	m.Parts = append(m.Parts, p)
	return nil
}

// Part returns the part with the given id.
func (m *MultipartMessage) Part(id string) (Part, error) {
	for _, p := range m.Parts {
		if p.ID == id {
			return p, nil
		}
	}
	return Part{}, fmt.Errorf("%w: %s", ErrPartNotFound, id)
}

// RemovePart deletes the part with the given id, preserving order of the
// remainder.
func (m *MultipartMessage) RemovePart(id string) error {
	for i, p := range m.Parts {
		if p.ID == id {
			m.Parts = append(m.Parts[:i], m.Parts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrPartNotFound, id)
}

// PartsByType returns the parts of the given type in their original order.
func (m *MultipartMessage) PartsByType(t PartType) []Part {
	var out []Part
	for _, p := range m.Parts {
		if p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

// TotalSize sums the derived sizes of all parts.
func (m *MultipartMessage) TotalSize() int {
	total := 0
	for _, p := range m.Parts {
		total += p.Size
	}
	return total
}

// PartCount returns the number of parts.
func (m *MultipartMessage) PartCount() int { return len(m.Parts) }

// Validate extends the envelope validation with a duplicate part id check.
func (m *MultipartMessage) Validate() []error {
	errs := m.Message.Validate()
	seen := make(map[string]bool, len(m.Parts))
	for _, p := range m.Parts {
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicatePartID, p.ID))
		}
		seen[p.ID] = true
	}
	return errs
}
