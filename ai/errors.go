package ai

import "errors"

var (
	// ErrTemporary marks transient provider failures (429, 5xx, transport
	// errors). The model layer retries these with backoff.
	ErrTemporary = errors.New("temporary provider error")

	// ErrRejected marks a request the provider refused because of its
	// payload, typically an oversized prompt. The run loop retries exactly
	// once with a reduced prompt before giving up.
	ErrRejected = errors.New("provider rejected request")
)
