// Package content implements pluggable serialization strategies keyed by
// content type. A Registry holds an ordered list of handlers; the first
// handler whose CanHandle matches a content type wins. Content types no
// handler matches pass through unchanged, so the registry degrades to a
// no-op rather than failing on unknown formats.
package content
