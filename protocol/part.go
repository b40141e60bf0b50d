package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/peregrine-ai/a2arelay/internal/util"
)

// PartType categorizes the payload carried by a Part.
type PartType string

const (
	// PartTypeText is plain UTF-8 text content.
	PartTypeText PartType = "text"
	// PartTypeData is structured key/value content (JSON-shaped).
	PartTypeData PartType = "data"
	// PartTypeFile is a named file attachment.
	PartTypeFile PartType = "file"
	// PartTypeBinary is an anonymous byte payload.
	PartTypeBinary PartType = "binary"
	// PartTypeImage is image content.
	PartTypeImage PartType = "image"
	// PartTypeAudio is audio content.
	PartTypeAudio PartType = "audio"
	// PartTypeVideo is video content.
	PartTypeVideo PartType = "video"
)

// byteContent reports whether the part type carries raw bytes rather than
// text or structured data.
func (t PartType) byteContent() bool {
	switch t {
	case PartTypeFile, PartTypeBinary, PartTypeImage, PartTypeAudio, PartTypeVideo:
		return true
	}
	return false
}

// defaultContentType maps a part type to its fallback MIME type.
func (t PartType) defaultContentType() string {
	switch t {
	case PartTypeText:
		return "text/plain"
	case PartTypeData:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// Part is the smallest addressable content unit inside a Message. Exactly one
// of Text, Data or Bytes is populated, matching Type. Size is always derived
// from the populated content; values supplied by peers are ignored.
type Part struct {
	ID          string         `json:"id"`
	Type        PartType       `json:"part_type"`
	Text        string         `json:"-"`
	Data        map[string]any `json:"-"`
	Bytes       []byte         `json:"-"`
	ContentType string         `json:"content_type,omitempty"`
	Encoding    string         `json:"encoding,omitempty"`
	Filename    string         `json:"filename,omitempty"`
	Size        int            `json:"size"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewTextPart builds a text part with a generated id and derived size.
func NewTextPart(text string) Part {
	p := Part{ID: util.NewID(), Type: PartTypeText, Text: text}
	p.normalize()
	return p
}

// NewDataPart builds a structured data part.
func NewDataPart(data map[string]any) Part {
	p := Part{ID: util.NewID(), Type: PartTypeData, Data: data}
	p.normalize()
	return p
}

// NewFilePart builds a file part from raw bytes. contentType may be empty.
func NewFilePart(filename string, data []byte, contentType string) Part {
	p := Part{ID: util.NewID(), Type: PartTypeFile, Bytes: data, Filename: filename, ContentType: contentType}
	p.normalize()
	return p
}

// NewBinaryPart builds an anonymous binary part.
func NewBinaryPart(data []byte) Part {
	p := Part{ID: util.NewID(), Type: PartTypeBinary, Bytes: data}
	p.normalize()
	return p
}

// NewMediaPart builds an image, audio or video part. ptype must be one of the
// media part types; anything else is coerced to binary.
func NewMediaPart(ptype PartType, data []byte, contentType string) Part {
	switch ptype {
	case PartTypeImage, PartTypeAudio, PartTypeVideo:
	default:
		ptype = PartTypeBinary
	}
	p := Part{ID: util.NewID(), Type: ptype, Bytes: data, ContentType: contentType}
	p.normalize()
	return p
}

// normalize recomputes Size from the populated content and fills default
// id / content type. Called by every constructor and by FromTransport so the
// derived fields can never be spoofed.
func (p *Part) normalize() {
	if p.ID == "" {
		p.ID = util.NewID()
	}
	if p.ContentType == "" {
		p.ContentType = p.Type.defaultContentType()
	}
	switch {
	case p.Type == PartTypeData:
		if raw, err := json.Marshal(p.Data); err == nil {
			p.Size = len(raw)
		}
	case p.Type.byteContent():
		p.Size = len(p.Bytes)
	default:
		p.Size = len(p.Text)
	}
}

// Validate returns the list of structural problems with the part. An empty
// slice means the part is well formed.
func (p Part) Validate() []error {
	var errs []error
	if p.ID == "" {
		errs = append(errs, errors.New("part id is required"))
	}
	empty := false
	switch {
	case p.Type == PartTypeData:
		empty = len(p.Data) == 0
	case p.Type.byteContent():
		empty = len(p.Bytes) == 0
	default:
		empty = p.Text == ""
	}
	if empty {
		errs = append(errs, fmt.Errorf("part %s has no content", p.ID))
	}
	if p.Size <= 0 {
		errs = append(errs, fmt.Errorf("part %s has non-positive size", p.ID))
	}
	return errs
}

// ToTransport renders the part as a flat map suitable for text-safe
// transport. Byte content is base64 encoded and flagged via the encoding
// field; structured data passes through as-is.
func (p Part) ToTransport() map[string]any {
	out := map[string]any{
		"id":           p.ID,
		"part_type":    string(p.Type),
		"content_type": p.ContentType,
		"size":         p.Size,
	}
	switch {
	case p.Type == PartTypeData:
		out["content"] = p.Data
	case p.Type.byteContent():
		out["content"] = base64.StdEncoding.EncodeToString(p.Bytes)
		out["encoding"] = "base64"
	default:
		out["content"] = p.Text
	}
	if p.Encoding != "" && !p.Type.byteContent() {
		out["encoding"] = p.Encoding
	}
	if p.Filename != "" {
		out["filename"] = p.Filename
	}
	if len(p.Metadata) > 0 {
		out["metadata"] = p.Metadata
	}
	return out
}

// FromTransport reconstructs a Part from its transport map form. Size is
// recomputed from the decoded content, never read from the input.
func FromTransport(raw map[string]any) (Part, error) {
	p := Part{}
	if id, ok := raw["id"].(string); ok {
		p.ID = id
	}
	if pt, ok := raw["part_type"].(string); ok {
		p.Type = PartType(pt)
	}
	if p.Type == "" {
		return Part{}, errors.New("transport part missing part_type")
	}
	if ct, ok := raw["content_type"].(string); ok {
		p.ContentType = ct
	}
	if fn, ok := raw["filename"].(string); ok {
		p.Filename = fn
	}
	if md, ok := raw["metadata"].(map[string]any); ok {
		p.Metadata = md
	}
	switch {
	case p.Type == PartTypeData:
		data, ok := raw["content"].(map[string]any)
		if !ok {
			return Part{}, fmt.Errorf("data part %s: content is not a map", p.ID)
		}
		p.Data = data
	case p.Type.byteContent():
		enc, ok := raw["content"].(string)
		if !ok {
			return Part{}, fmt.Errorf("byte part %s: content is not a string", p.ID)
		}
		decoded, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return Part{}, fmt.Errorf("byte part %s: %w", p.ID, err)
		}
		p.Bytes = decoded
	default:
		text, ok := raw["content"].(string)
		if !ok {
			return Part{}, fmt.Errorf("text part %s: content is not a string", p.ID)
		}
		p.Text = text
	}
	p.normalize()
	return p, nil
}

// MarshalJSON serializes the part in its transport form so byte content
// survives JSON encoding.
func (p Part) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ToTransport())
}

// UnmarshalJSON decodes the transport form produced by MarshalJSON.
func (p *Part) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	part, err := FromTransport(raw)
	if err != nil {
		return err
	}
	*p = part
	return nil
}
