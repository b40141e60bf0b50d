package protocol

import "errors"

var (
	// ErrExpired marks an envelope whose TTL elapsed. An expired envelope is
	// permanently invalid.
	ErrExpired = errors.New("message expired")

	// ErrRetriesExhausted is returned when IncrementRetry would push the
	// retry counter past max_retries.
	ErrRetriesExhausted = errors.New("retry count exhausted")

	// ErrDuplicatePartID is returned when a multipart message would contain
	// two parts with the same id.
	ErrDuplicatePartID = errors.New("duplicate part id")

	// ErrPartNotFound is returned when a part id is absent from a multipart
	// message.
	ErrPartNotFound = errors.New("part not found")
)
