package datagentic

import "errors"

var (
	// ErrUnknownTool is returned by registry lookups and direct dispatches
	// for names no registered tool carries. When the model requests an
	// unknown tool mid-run, the run instead answers it with a tool error
	// message so the model can correct itself.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrIterationLimit is returned when a run reaches its model call bound
	// before the model produces a final answer.
	ErrIterationLimit = errors.New("iteration limit exceeded")
)
