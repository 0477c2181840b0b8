// Package diag carries non-fatal diagnostics out of the cleaning pipeline.
//
// Diagnostics describe data problems (a malformed phone number, a number that
// did not fit into a merged record, a phone shared by several records). They
// are reported through a Sink and never interrupt processing.
package diag

import (
	"fmt"
	"sync"
)

// Kind classifies a diagnostic.
type Kind string

const (
	InvalidPhone   Kind = "invalid_phone"
	MergeOverflow  Kind = "merge_overflow"
	DuplicatePhone Kind = "duplicate_phone"
)

// Event is a single diagnostic.
type Event struct {
	Kind     Kind
	Phone    string
	FullName string // Contact the event is about, when known.
	Region   string // Guessed region of a malformed number.
	Count    int    // Occurrences, for duplicate phones.
}

// String renders the event as a one-line human message.
func (e Event) String() string {
	switch e.Kind {
	case InvalidPhone:
		if e.Region != "" {
			return fmt.Sprintf("invalid phone number: %s (looks like %s)", e.Phone, e.Region)
		}
		return fmt.Sprintf("invalid phone number: %s", e.Phone)
	case MergeOverflow:
		return fmt.Sprintf("due to max numbers, skipped %s for %s", e.Phone, e.FullName)
	case DuplicatePhone:
		return fmt.Sprintf("duplicate phone number: %s - found %d times", e.Phone, e.Count)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Phone)
	}
}

// Sink receives diagnostics.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// Multi fans events out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return SinkFunc(func(e Event) {
		for _, s := range live {
			s.Emit(e)
		}
	})
}

// Collector records events in arrival order. It is safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Emit records e.
func (c *Collector) Emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of the recorded events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// OfKind returns the recorded events of kind k.
func (c *Collector) OfKind(k Kind) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, e := range c.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events of kind k were recorded.
func (c *Collector) Count(k Kind) int {
	return len(c.OfKind(k))
}
