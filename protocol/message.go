package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/peregrine-ai/a2arelay/internal/util"
)

// MessageType categorizes an envelope's routing semantics.
type MessageType string

const (
	// MessageTypeRequest expects a correlated response.
	MessageTypeRequest MessageType = "request"
	// MessageTypeResponse answers a prior request.
	MessageTypeResponse MessageType = "response"
	// MessageTypeNotification is fire-and-forget.
	MessageTypeNotification MessageType = "notification"
	// MessageTypeHeartbeat refreshes an agent's liveness record.
	MessageTypeHeartbeat MessageType = "heartbeat"
	// MessageTypeDiscovery asks the router for the agent directory.
	MessageTypeDiscovery MessageType = "discovery"
	// MessageTypeTaskAssignment hands a task to an agent.
	MessageTypeTaskAssignment MessageType = "task_assignment"
	// MessageTypeError reports a failure for a correlated request.
	MessageTypeError MessageType = "error"
)

// Priority orders competing messages. Higher is more urgent.
type Priority int

const (
	// PriorityLow is background work.
	PriorityLow Priority = iota + 1
	// PriorityNormal is the default.
	PriorityNormal
	// PriorityHigh is elevated.
	PriorityHigh
	// PriorityUrgent preempts normal traffic.
	PriorityUrgent
	// PriorityCritical is reserved for failures that need immediate handling.
	PriorityCritical
)

// String returns the symbolic name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Address identifies a delivery target. The Broadcast constant is the only
// non-agent addressing mode.
type Address string

// Broadcast fans a message out to every active agent.
const Broadcast Address = "broadcast"

// IsBroadcast reports whether the address is the broadcast mode.
func (a Address) IsBroadcast() bool { return a == Broadcast }

// DefaultRequestTTL bounds how long a request stays routable.
const DefaultRequestTTL = 30 * time.Minute

// Headers carries the envelope's delivery metadata. CorrelationID and the
// retry bounds are set at construction and treated as immutable afterwards.
type Headers struct {
	ContentType   string            `json:"content_type,omitempty"`
	Encoding      string            `json:"encoding,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	ReplyTo       string            `json:"reply_to,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	RetryCount    int               `json:"retry_count"`
	MaxRetries    int               `json:"max_retries"`
	Custom        map[string]string `json:"custom,omitempty"`
}

// Message is the A2A envelope: a role-attributed, ordered list of Parts plus
// addressing and delivery metadata. Field names in serialized form are part
// of the protocol and must not change.
type Message struct {
	Role         string      `json:"role"`
	Parts        []Part      `json:"parts"`
	ID           string      `json:"messageId"`
	Timestamp    time.Time   `json:"timestamp"`
	Type         MessageType `json:"message_type"`
	Priority     Priority    `json:"priority"`
	Sender       string      `json:"sender"`
	Recipients   []Address   `json:"recipients"`
	Headers      Headers     `json:"headers"`
	StatusCode   int         `json:"status_code,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// NewMessage constructs a bare envelope with generated id and UTC timestamp.
func NewMessage(role string, parts []Part, msgType MessageType) Message {
	return Message{
		Role:      role,
		Parts:     parts,
		ID:        util.NewID(),
		Timestamp: time.Now().UTC(),
		Type:      msgType,
		Priority:  PriorityNormal,
		Headers:   Headers{MaxRetries: 3},
	}
}

// NewTextMessage is a single text part convenience constructor.
func NewTextMessage(role, sender, text string) Message {
	m := NewMessage(role, []Part{NewTextPart(text)}, MessageTypeNotification)
	m.Sender = sender
	return m
}

// NewDataMessage is a single data part convenience constructor.
func NewDataMessage(role, sender string, data map[string]any) Message {
	m := NewMessage(role, []Part{NewDataPart(data)}, MessageTypeNotification)
	m.Sender = sender
	return m
}

// NewRequest builds a request envelope with a fresh correlation id and the
// default 30-minute TTL.
func NewRequest(sender string, recipients []Address, parts []Part, msgType MessageType, priority Priority) Message {
	m := NewMessage("agent", parts, msgType)
	m.Sender = sender
	m.Recipients = recipients
	if priority != 0 {
		m.Priority = priority
	}
	expires := time.Now().UTC().Add(DefaultRequestTTL)
	m.Headers.CorrelationID = util.NewID()
	m.Headers.ExpiresAt = &expires
	return m
}

// NewResponse builds a response to original: the correlation id is inherited,
// reply_to points back at the original sender and the response is addressed
// to it exclusively.
func NewResponse(original Message, parts []Part, statusCode int) Message {
	m := NewMessage("agent", parts, MessageTypeResponse)
	m.Sender = string(firstRecipient(original))
	m.Recipients = []Address{Address(original.Sender)}
	m.StatusCode = statusCode
	m.Headers.CorrelationID = original.Headers.CorrelationID
	m.Headers.ReplyTo = original.Sender
	return m
}

// NewErrorMessage wraps NewResponse with a single text part carrying the
// error text.
func NewErrorMessage(original Message, statusCode int, errText string) Message {
	m := NewResponse(original, []Part{NewTextPart(errText)}, statusCode)
	m.Type = MessageTypeError
	m.ErrorMessage = errText
	return m
}

func firstRecipient(m Message) Address {
	if len(m.Recipients) > 0 {
		return m.Recipients[0]
	}
	return ""
}

// IsExpired reports whether the envelope's TTL has elapsed. Envelopes without
// an expiry never expire.
func (m Message) IsExpired() bool {
	return m.Headers.ExpiresAt != nil && time.Now().After(*m.Headers.ExpiresAt)
}

// CanRetry reports whether another delivery attempt is permitted.
func (m Message) CanRetry() bool {
	return m.Headers.RetryCount < m.Headers.MaxRetries
}

// IncrementRetry bumps the retry counter. It returns ErrRetriesExhausted when
// the counter is already at its bound, keeping retry_count <= max_retries.
func (m *Message) IncrementRetry() error {
	if !m.CanRetry() {
		return ErrRetriesExhausted
	}
	m.Headers.RetryCount++
	return nil
}

// AddCustomHeader sets an application-defined header value.
func (m *Message) AddCustomHeader(key, value string) {
	if m.Headers.Custom == nil {
		m.Headers.Custom = make(map[string]string)
	}
	m.Headers.Custom[key] = value
}

// CustomHeader returns an application-defined header value.
func (m Message) CustomHeader(key string) (string, bool) {
	v, ok := m.Headers.Custom[key]
	return v, ok
}

// Validate aggregates every structural problem with the envelope, including
// per-part errors and expiry.
func (m Message) Validate() []error {
	var errs []error
	if m.Role == "" {
		errs = append(errs, errors.New("role is required"))
	}
	if m.ID == "" {
		errs = append(errs, errors.New("message id is required"))
	}
	if len(m.Parts) == 0 {
		errs = append(errs, errors.New("at least one part is required"))
	}
	for i, p := range m.Parts {
		for _, err := range p.Validate() {
			errs = append(errs, fmt.Errorf("part %d: %w", i, err))
		}
	}
	if m.IsExpired() {
		errs = append(errs, ErrExpired)
	}
	return errs
}

// TextContent concatenates the text of all text parts in order. Useful for
// log lines and simple consumers.
func (m Message) TextContent() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			out += p.Text
		}
	}
	return out
}
