// Package eventstest provides an in-memory events.Publisher for tests.
package eventstest

import (
	"context"
	"sync"

	"storefront/internal/events"
)

// Recorder keeps published events in memory. A non-nil Err is returned
// from every Publish and nothing is recorded.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
	Err    error
}

var _ events.Publisher = (*Recorder)(nil)

func (r *Recorder) Publish(_ context.Context, _ string, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}
