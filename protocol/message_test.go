package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage_Defaults(t *testing.T) {
	m := NewMessage("agent", []Part{NewTextPart("hi")}, MessageTypeNotification)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, PriorityNormal, m.Priority)
	assert.False(t, m.IsExpired())
	assert.Empty(t, m.Validate())
}

func TestMessage_Validate_Errors(t *testing.T) {
	m := Message{}
	errs := m.Validate()
	require.NotEmpty(t, errs)
	joined := ""
	for _, err := range errs {
		joined += err.Error() + ";"
	}
	assert.Contains(t, joined, "role is required")
	assert.Contains(t, joined, "message id is required")
	assert.Contains(t, joined, "at least one part is required")
}

func TestMessage_Expiry(t *testing.T) {
	m := NewTextMessage("agent", "a", "hi")
	past := time.Now().Add(-time.Minute)
	m.Headers.ExpiresAt = &past
	assert.True(t, m.IsExpired())
	assert.Contains(t, m.Validate(), ErrExpired)
}

func TestMessage_RetryAccounting(t *testing.T) {
	m := NewTextMessage("agent", "a", "hi")
	m.Headers.MaxRetries = 2

	require.True(t, m.CanRetry())
	require.NoError(t, m.IncrementRetry())
	require.NoError(t, m.IncrementRetry())
	assert.False(t, m.CanRetry())
	assert.ErrorIs(t, m.IncrementRetry(), ErrRetriesExhausted)
	assert.Equal(t, 2, m.Headers.RetryCount)
}

func TestMessage_CustomHeaders(t *testing.T) {
	m := NewTextMessage("agent", "a", "hi")
	_, ok := m.CustomHeader("trace")
	assert.False(t, ok)
	m.AddCustomHeader("trace", "xyz")
	v, ok := m.CustomHeader("trace")
	assert.True(t, ok)
	assert.Equal(t, "xyz", v)
}

func TestNewRequest_CorrelationAndTTL(t *testing.T) {
	req := NewRequest("orchestrator", []Address{"risk_analyzer"}, []Part{NewTextPart("hi")}, MessageTypeRequest, PriorityHigh)
	assert.NotEmpty(t, req.Headers.CorrelationID)
	require.NotNil(t, req.Headers.ExpiresAt)
	ttl := time.Until(*req.Headers.ExpiresAt)
	assert.InDelta(t, DefaultRequestTTL.Seconds(), ttl.Seconds(), 5)
	assert.Equal(t, PriorityHigh, req.Priority)
}

func TestNewResponse_InheritsCorrelation(t *testing.T) {
	req := NewRequest("orchestrator", []Address{"risk_analyzer"}, []Part{NewTextPart("hi")}, MessageTypeRequest, PriorityNormal)
	resp := NewResponse(req, []Part{NewTextPart("done")}, 200)

	assert.Equal(t, req.Headers.CorrelationID, resp.Headers.CorrelationID)
	assert.Equal(t, "orchestrator", resp.Headers.ReplyTo)
	assert.Equal(t, []Address{"orchestrator"}, resp.Recipients)
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotEqual(t, req.ID, resp.ID)
}

func TestNewErrorMessage(t *testing.T) {
	req := NewRequest("orchestrator", []Address{"risk_analyzer"}, []Part{NewTextPart("hi")}, MessageTypeRequest, PriorityNormal)
	errMsg := NewErrorMessage(req, 500, "backend unavailable")

	assert.Equal(t, MessageTypeError, errMsg.Type)
	assert.Equal(t, "backend unavailable", errMsg.ErrorMessage)
	assert.Equal(t, "backend unavailable", errMsg.TextContent())
	assert.Equal(t, req.Headers.CorrelationID, errMsg.Headers.CorrelationID)
}

func TestAddress_IsBroadcast(t *testing.T) {
	assert.True(t, Broadcast.IsBroadcast())
	assert.False(t, Address("risk_analyzer").IsBroadcast())
}
