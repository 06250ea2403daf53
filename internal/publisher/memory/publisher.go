// Package memory keeps crawl events in process, for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Publisher stores published events for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []Event
}

// Event captures one publish call.
type Event struct {
	Name    string
	Payload any
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event and returns a sequential ID.
func (p *Publisher) Publish(ctx context.Context, name string, payload any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Name: name, Payload: payload})
	return fmt.Sprintf("memory-%d", len(p.events)), nil
}

// Events returns a copy of the recorded events, optionally filtered by name.
func (p *Publisher) Events(name string) []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, 0, len(p.events))
	for _, e := range p.events {
		if name == "" || e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Close is a no-op.
func (p *Publisher) Close() error { return nil }
