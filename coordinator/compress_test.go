package coordinator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompress_EmptyPayload(t *testing.T) {
	stats := Compress(map[string]any{})
	assert.Equal(t, 2, stats.OriginalSize) // "{}"
	assert.GreaterOrEqual(t, stats.Ratio, 1.0)

	stats = Compress(nil)
	assert.GreaterOrEqual(t, stats.Ratio, 1.0)
}

func TestCompress_RepetitivePayloadShrinks(t *testing.T) {
	stats := Compress(map[string]any{"text": strings.Repeat("flood risk ", 200)})
	assert.Greater(t, stats.Ratio, 1.0)
	assert.Less(t, stats.CompressedSize, stats.OriginalSize)
}

func TestCompress_TinyPayloadNeverBelowOne(t *testing.T) {
	// Deflate overhead exceeds the payload; the ratio still floors at 1.0.
	stats := Compress(map[string]any{"k": "v"})
	assert.GreaterOrEqual(t, stats.Ratio, 1.0)
	assert.Positive(t, stats.CompressedSize)
}
