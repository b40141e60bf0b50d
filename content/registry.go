package content

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/peregrine-ai/a2arelay/logging"
)

// Handler is a serialization strategy for a family of content types.
type Handler interface {
	// CanHandle reports whether this handler serves the content type.
	CanHandle(contentType string) bool
	// Serialize renders content into a text-safe string.
	Serialize(content any) (string, error)
	// Deserialize parses a previously serialized string.
	Deserialize(raw string) (any, error)
	// Validate returns structural problems with the content.
	Validate(content any) []error
}

// Options configures a Registry.
type Options struct {
	// Logger receives handler resolution diagnostics.
	Logger logging.Logger
	// DisableDefaults skips registration of the built-in handlers.
	DisableDefaults bool
}

// Registry dispatches serialization to the first matching handler. Handlers
// can be registered at runtime; registration order is match order.
type Registry struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   logging.Logger
}

// NewRegistry constructs a registry pre-loaded with the built-in handlers
// (JSON, XML, YAML, CSV, text, media) unless disabled.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	r := &Registry{logger: opts.Logger}
	if !opts.DisableDefaults {
		// Specific formats before the broad text/media prefixes.
		r.Register(JSONHandler{})
		r.Register(XMLHandler{})
		r.Register(YAMLHandler{})
		r.Register(CSVHandler{})
		r.Register(TextHandler{})
		r.Register(MediaHandler{})
	}
	return r
}

// Register appends a handler to the match order.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
}

// HandlerFor returns the first handler matching the content type.
func (r *Registry) HandlerFor(contentType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handlers {
		if h.CanHandle(contentType) {
			return h, true
		}
	}
	return nil, false
}

// Serialize renders content using the matching handler. Unmatched content
// types pass through best-effort: strings as-is, everything else as JSON.
func (r *Registry) Serialize(contentType string, content any) (string, error) {
	if h, ok := r.HandlerFor(contentType); ok {
		return h.Serialize(content)
	}
	r.logger.Debug("no content handler, passing through", "content_type", contentType)
	if s, ok := content.(string); ok {
		return s, nil
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Sprint(content), nil
	}
	return string(raw), nil
}

// Deserialize parses raw using the matching handler, or returns it unchanged
// when no handler matches.
func (r *Registry) Deserialize(contentType, raw string) (any, error) {
	if h, ok := r.HandlerFor(contentType); ok {
		return h.Deserialize(raw)
	}
	r.logger.Debug("no content handler, passing through", "content_type", contentType)
	return raw, nil
}

// Validate checks content against the matching handler, or reports nothing
// when no handler matches.
func (r *Registry) Validate(contentType string, content any) []error {
	if h, ok := r.HandlerFor(contentType); ok {
		return h.Validate(content)
	}
	return nil
}
