// Package local is the in-process replication transport, used when no
// hosted store is configured. It mirrors a same-device broadcast channel:
// publishes fan out to every subscriber of the session code, including the
// publisher, and new subscribers bootstrap with a sync request.
package local

import (
	"context"
	"sync"

	"github.com/photolangage/photolangage/internal/replication"
)

type subscriber struct {
	id int
	fn replication.Handler
}

// Broker fans replication messages out to in-process subscribers keyed by
// session code.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string][]subscriber
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string][]subscriber)}
}

// Publish delivers the envelope to every subscriber of the code. The
// broadcast has no equality filtering of its own; receivers discard stale
// versions themselves.
func (b *Broker) Publish(_ context.Context, code string, env replication.Envelope) error {
	b.dispatch(code, replication.Message{Envelope: env})
	return nil
}

// RequestSync asks peers holding an active session to re-publish their
// snapshot.
func (b *Broker) RequestSync(_ context.Context, code string) error {
	b.dispatch(code, replication.Message{SyncRequest: true})
	return nil
}

func (b *Broker) dispatch(code string, msg replication.Message) {
	b.mu.RLock()
	targets := make([]subscriber, len(b.subs[code]))
	copy(targets, b.subs[code])
	b.mu.RUnlock()
	for _, s := range targets {
		s.fn(msg)
	}
}

// Subscribe registers a handler for a session code and returns its
// unsubscribe function.
func (b *Broker) Subscribe(code string, fn replication.Handler) (func(), error) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[code] = append(b.subs[code], subscriber{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		kept := b.subs[code][:0]
		for _, s := range b.subs[code] {
			if s.id != id {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(b.subs, code)
		} else {
			b.subs[code] = kept
		}
	}, nil
}
