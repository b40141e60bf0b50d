package content

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/peregrine-ai/a2arelay/protocol"
)

// TextHandler serves the text/* family. Content is any string.
type TextHandler struct{}

// CanHandle matches any text/* content type.
func (TextHandler) CanHandle(contentType string) bool {
	return strings.HasPrefix(contentType, "text/")
}

// Serialize returns strings unchanged and stringifies anything else.
func (TextHandler) Serialize(content any) (string, error) {
	if s, ok := content.(string); ok {
		return s, nil
	}
	return fmt.Sprint(content), nil
}

// Deserialize returns the raw string.
func (TextHandler) Deserialize(raw string) (any, error) { return raw, nil }

// Validate requires a non-empty string.
func (TextHandler) Validate(content any) []error {
	s, ok := content.(string)
	if !ok {
		return []error{fmt.Errorf("text content must be a string, got %T", content)}
	}
	if s == "" {
		return []error{errors.New("text content is empty")}
	}
	return nil
}

// JSONHandler serves application/json and +json suffixed types.
type JSONHandler struct{}

// CanHandle matches application/json and structured +json syntaxes.
func (JSONHandler) CanHandle(contentType string) bool {
	return contentType == "application/json" || strings.HasSuffix(contentType, "+json")
}

// Serialize marshals content to a JSON string.
func (JSONHandler) Serialize(content any) (string, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("serialize json: %w", err)
	}
	return string(raw), nil
}

// Deserialize parses JSON into its generic Go form.
func (JSONHandler) Deserialize(raw string) (any, error) {
	var out any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("deserialize json: %w", err)
	}
	return out, nil
}

// Validate checks that the content is JSON-marshalable.
func (JSONHandler) Validate(content any) []error {
	if _, err := json.Marshal(content); err != nil {
		return []error{fmt.Errorf("content is not json-marshalable: %w", err)}
	}
	return nil
}

// XMLHandler serves application/xml and text/xml. Only string payloads are
// handled; validation checks well-formedness by token scanning.
type XMLHandler struct{}

// CanHandle matches XML content types.
func (XMLHandler) CanHandle(contentType string) bool {
	return contentType == "application/xml" || contentType == "text/xml" || strings.HasSuffix(contentType, "+xml")
}

// Serialize passes string payloads through and marshals anything else.
func (XMLHandler) Serialize(content any) (string, error) {
	if s, ok := content.(string); ok {
		return s, nil
	}
	raw, err := xml.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("serialize xml: %w", err)
	}
	return string(raw), nil
}

// Deserialize returns the raw document after a well-formedness check.
func (x XMLHandler) Deserialize(raw string) (any, error) {
	if errs := x.Validate(raw); len(errs) > 0 {
		return nil, errs[0]
	}
	return raw, nil
}

// Validate scans the document for well-formedness.
func (XMLHandler) Validate(content any) []error {
	s, ok := content.(string)
	if !ok {
		return []error{fmt.Errorf("xml content must be a string, got %T", content)}
	}
	dec := xml.NewDecoder(strings.NewReader(s))
	for {
		_, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return []error{fmt.Errorf("malformed xml: %w", err)}
		}
	}
}

// YAMLHandler serves the YAML content types.
type YAMLHandler struct{}

// CanHandle matches YAML content types.
func (YAMLHandler) CanHandle(contentType string) bool {
	switch contentType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	}
	return strings.HasSuffix(contentType, "+yaml")
}

// Serialize marshals content to YAML.
func (YAMLHandler) Serialize(content any) (string, error) {
	raw, err := yaml.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("serialize yaml: %w", err)
	}
	return string(raw), nil
}

// Deserialize parses YAML into its generic Go form.
func (YAMLHandler) Deserialize(raw string) (any, error) {
	var out any
	if err := yaml.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("deserialize yaml: %w", err)
	}
	return out, nil
}

// Validate checks that the content is YAML-marshalable.
func (YAMLHandler) Validate(content any) []error {
	if _, err := yaml.Marshal(content); err != nil {
		return []error{fmt.Errorf("content is not yaml-marshalable: %w", err)}
	}
	return nil
}

// CSVHandler serves text/csv. Content is [][]string records.
type CSVHandler struct{}

// CanHandle matches text/csv.
func (CSVHandler) CanHandle(contentType string) bool { return contentType == "text/csv" }

// Serialize writes records as a CSV document.
func (CSVHandler) Serialize(content any) (string, error) {
	records, ok := content.([][]string)
	if !ok {
		return "", fmt.Errorf("csv content must be [][]string, got %T", content)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return "", fmt.Errorf("serialize csv: %w", err)
	}
	return buf.String(), nil
}

// Deserialize parses a CSV document into records.
func (CSVHandler) Deserialize(raw string) (any, error) {
	records, err := csv.NewReader(strings.NewReader(raw)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("deserialize csv: %w", err)
	}
	return records, nil
}

// Validate requires [][]string records with uniform column counts.
func (CSVHandler) Validate(content any) []error {
	records, ok := content.([][]string)
	if !ok {
		return []error{fmt.Errorf("csv content must be [][]string, got %T", content)}
	}
	if len(records) == 0 {
		return nil
	}
	width := len(records[0])
	var errs []error
	for i, rec := range records[1:] {
		if len(rec) != width {
			errs = append(errs, fmt.Errorf("csv row %d has %d fields, want %d", i+1, len(rec), width))
		}
	}
	return errs
}

// MediaHandler serves the broad file categories (application/*, image/*,
// audio/*, video/*) with base64 framing. It must be registered after the
// specific application handlers so it only catches the remainder.
type MediaHandler struct{}

// CanHandle matches any file category prefix.
func (MediaHandler) CanHandle(contentType string) bool {
	for _, prefix := range []string{"application/", "image/", "audio/", "video/"} {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// Serialize base64-encodes raw bytes.
func (MediaHandler) Serialize(content any) (string, error) {
	data, ok := content.([]byte)
	if !ok {
		return "", fmt.Errorf("media content must be []byte, got %T", content)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Deserialize decodes base64 back to raw bytes.
func (MediaHandler) Deserialize(raw string) (any, error) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("deserialize media: %w", err)
	}
	return data, nil
}

// Validate requires non-empty bytes.
func (MediaHandler) Validate(content any) []error {
	data, ok := content.([]byte)
	if !ok {
		return []error{fmt.Errorf("media content must be []byte, got %T", content)}
	}
	if len(data) == 0 {
		return []error{errors.New("media content is empty")}
	}
	return nil
}

// PartTypeFor maps a file-category content type onto the part type it should
// be carried as: images, audio and video get their media types, everything
// else under application/* is a generic file.
func PartTypeFor(contentType string) protocol.PartType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return protocol.PartTypeImage
	case strings.HasPrefix(contentType, "audio/"):
		return protocol.PartTypeAudio
	case strings.HasPrefix(contentType, "video/"):
		return protocol.PartTypeVideo
	case strings.HasPrefix(contentType, "text/"):
		return protocol.PartTypeText
	default:
		return protocol.PartTypeFile
	}
}
