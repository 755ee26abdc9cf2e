package engine

import (
	"context"

	"clicker/internal/hook"
)

// Stream is a running hook bridge as the engine sees it.
// Events must be closed before Done.
type Stream interface {
	Events() <-chan hook.Event
	Done() <-chan struct{}
	Err() error
}

// Bridges hands out the single hook bridge
type Bridges interface {
	Acquire(ctx context.Context) (Stream, error)
	Release(s Stream) error
}

// OwnerBridges serves bridges from a hook.Owner
type OwnerBridges struct {
	Owner   *hook.Owner
	Options hook.Options
}

// Acquire starts the bridge child
func (o OwnerBridges) Acquire(ctx context.Context) (Stream, error) {
	b, err := o.Owner.Acquire(ctx, o.Options)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Release stops the bridge child
func (o OwnerBridges) Release(s Stream) error {
	b, ok := s.(*hook.Bridge)
	if !ok {
		return hook.ErrNotRunning
	}
	return o.Owner.Release(b)
}
