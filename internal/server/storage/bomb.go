package storage

import (
	"context"
	"sync"
)

// Bomb deletes an uploaded artifact when it explodes, unless it was
// disarmed first. Explode is meant to be deferred right after a successful
// upload; after Disarm or a first Explode it does nothing.
type Bomb struct {
	Key string

	mu     sync.Mutex
	armed  bool
	defuse func(ctx context.Context) error
}

// NewBomb arms a bomb that runs del on explosion.
func NewBomb(key string, del func(ctx context.Context) error) *Bomb {
	return &Bomb{Key: key, armed: true, defuse: del}
}

// Disarm keeps the artifact.
func (b *Bomb) Disarm() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.armed = false
}

// Armed reports whether Explode would still delete the artifact.
func (b *Bomb) Armed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.armed
}

// Explode deletes the artifact if the bomb is still armed.
func (b *Bomb) Explode(ctx context.Context) error {
	b.mu.Lock()
	armed := b.armed
	b.armed = false
	b.mu.Unlock()

	if !armed {
		return nil
	}
	return b.defuse(ctx)
}
