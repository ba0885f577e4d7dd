package webhook

import "errors"

var (
	// ErrMissingEvent indicates a request without the X-GitHub-Event header.
	ErrMissingEvent = errors.New("missing X-GitHub-Event header")
	// ErrPayloadTooLarge indicates a body above maxPayloadBytes.
	ErrPayloadTooLarge = errors.New("payload too large")
)
