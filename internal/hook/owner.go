package hook

import (
	"context"
	"log"
	"sync"
)

// Owner guarantees at most one live bridge per process
type Owner struct {
	mu     sync.Mutex
	active *Bridge
	start  func(ctx context.Context, opts Options) (*Bridge, error)
}

// NewOwner creates an owner that launches bridges with Start
func NewOwner() *Owner {
	return &Owner{start: Start}
}

// Acquire starts a bridge unless one is already live
func (o *Owner) Acquire(ctx context.Context, opts Options) (*Bridge, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active != nil {
		if !o.active.Exited() {
			return nil, ErrAlreadyRunning
		}
		// The previous child died on its own; its slot is free
		log.Printf("Hook Bridge: Reclaiming slot of exited child PID %d", o.active.PID())
		o.active = nil
	}

	CleanupStale(opts.StopFile)

	start := o.start
	if start == nil {
		start = Start
	}
	b, err := start(ctx, opts)
	if err != nil {
		return nil, err
	}
	o.active = b
	return b, nil
}

// Release stops b and frees the slot
func (o *Owner) Release(b *Bridge) error {
	o.mu.Lock()
	if b == nil || o.active != b {
		o.mu.Unlock()
		return ErrNotRunning
	}
	o.active = nil
	o.mu.Unlock()

	return b.Stop()
}

// Active returns the live bridge, if any
func (o *Owner) Active() *Bridge {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil && o.active.Exited() {
		return nil
	}
	return o.active
}
