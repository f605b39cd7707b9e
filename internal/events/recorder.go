package events

import (
	"context"
	"sync"
)

// Recorder is an EventHandler that keeps every event it receives. It backs
// tests and the CLI's --print-events output.
type Recorder struct {
	mu     sync.Mutex
	events []*Event
}

// HandleEvent implements EventHandler.
func (r *Recorder) HandleEvent(_ context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns the recorded events in arrival order.
func (r *Recorder) Events() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the types of the recorded events in arrival order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}
