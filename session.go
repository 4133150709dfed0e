package datagentic

import (
	"context"

	"github.com/google/uuid"
)

// Session scopes one or more runs to a shared id and cancellation context.
type Session struct {
	ID string

	Context    context.Context
	cancelFunc context.CancelFunc
}

// NewSession creates a new session with default settings
func NewSession(ctx context.Context) *Session {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		ID:         uuid.New().String(),
		Context:    ctx,
		cancelFunc: cancel,
	}
}

func (s *Session) Cancel() {
	s.cancelFunc()
}
