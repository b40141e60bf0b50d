package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextPart(t *testing.T) {
	p := NewTextPart("hello")
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, PartTypeText, p.Type)
	assert.Equal(t, "text/plain", p.ContentType)
	assert.Equal(t, 5, p.Size)
	assert.Empty(t, p.Validate())
}

func TestNewDataPart_SizeDerived(t *testing.T) {
	p := NewDataPart(map[string]any{"k": "v"})
	assert.Equal(t, PartTypeData, p.Type)
	assert.Equal(t, "application/json", p.ContentType)
	assert.Equal(t, len(`{"k":"v"}`), p.Size)
}

func TestPart_Validate_Errors(t *testing.T) {
	p := Part{Type: PartTypeText}
	errs := p.Validate()
	require.Len(t, errs, 3) // missing id, missing content, non-positive size
}

func TestPart_TransportRoundTrip_Bytes(t *testing.T) {
	raw := []byte{0x00, 0x01, 0xFF, 0xFE, 'a'}
	p := NewFilePart("report.bin", raw, "application/octet-stream")

	got, err := FromTransport(p.ToTransport())
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Type, got.Type)
	assert.Equal(t, raw, got.Bytes)
	assert.Equal(t, p.Size, got.Size)
	assert.Equal(t, "report.bin", got.Filename)
}

func TestPart_TransportRoundTrip_Data(t *testing.T) {
	p := NewDataPart(map[string]any{"risk": "high", "score": "0.9"})
	got, err := FromTransport(p.ToTransport())
	require.NoError(t, err)
	assert.Equal(t, p.Data, got.Data)
	assert.Equal(t, p.Size, got.Size)
}

func TestPart_TransportIgnoresSuppliedSize(t *testing.T) {
	p := NewTextPart("hi")
	raw := p.ToTransport()
	raw["size"] = 9999
	got, err := FromTransport(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Size)
}

func TestPart_JSONRoundTrip(t *testing.T) {
	p := NewMediaPart(PartTypeImage, []byte{0xDE, 0xAD}, "image/png")
	blob, err := json.Marshal(p)
	require.NoError(t, err)

	var got Part
	require.NoError(t, json.Unmarshal(blob, &got))
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, PartTypeImage, got.Type)
	assert.Equal(t, []byte{0xDE, 0xAD}, got.Bytes)
}

func TestNewMediaPart_CoercesUnknownType(t *testing.T) {
	p := NewMediaPart(PartTypeText, []byte{1}, "")
	assert.Equal(t, PartTypeBinary, p.Type)
}
