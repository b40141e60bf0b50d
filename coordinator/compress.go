package coordinator

import (
	"bytes"
	"compress/flate"
	"encoding/json"
	"fmt"
)

// CompressionStats records the size effect of compressing a task's input
// context. The payload actually sent to the executor is never altered; the
// stats exist for metrics only. Ratio is original/compressed and never drops
// below 1.0.
type CompressionStats struct {
	OriginalSize   int     `json:"original_size"`
	CompressedSize int     `json:"compressed_size"`
	Ratio          float64 `json:"compression_ratio"`
}

// Compress measures how well the input's JSON form deflates. It is total:
// unmarshalable inputs fall back to their string rendering, and empty
// payloads yield a ratio of exactly 1.0 rather than dividing by zero.
func Compress(input any) CompressionStats {
	raw, err := json.Marshal(input)
	if err != nil {
		raw = []byte(fmt.Sprint(input))
	}
	stats := CompressionStats{OriginalSize: len(raw), Ratio: 1.0}
	if len(raw) == 0 {
		return stats
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestSpeed)
	if err != nil {
		stats.CompressedSize = stats.OriginalSize
		return stats
	}
	if _, err := w.Write(raw); err != nil {
		stats.CompressedSize = stats.OriginalSize
		return stats
	}
	if err := w.Close(); err != nil {
		stats.CompressedSize = stats.OriginalSize
		return stats
	}
	stats.CompressedSize = buf.Len()
	if stats.CompressedSize > 0 {
		if r := float64(stats.OriginalSize) / float64(stats.CompressedSize); r > 1.0 {
			stats.Ratio = r
		}
	}
	return stats
}
