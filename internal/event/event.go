// Package event provides the in-process notification bus. Sessions and
// the document layer publish hierarchical dot-notation topics; hosts
// subscribe with exact topics or wildcard patterns.
package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Topic is a hierarchical event type using dot notation, for example
// "session.state.changed" or "document.transaction.applied".
type Topic string

// Wildcard constants for subscription patterns.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more trailing segments.
	WildcardMulti = "**"

	// Separator separates topic segments.
	Separator = "."
)

// String returns the topic as a string.
func (t Topic) String() string { return string(t) }

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// Match reports whether the topic matches a subscription pattern.
// "*" matches one segment, "**" matches any remaining segments.
func (t Topic) Match(pattern Topic) bool {
	if pattern == t {
		return true
	}
	return matchSegments(t.Segments(), pattern.Segments())
}

func matchSegments(topic, pattern []string) bool {
	for i, p := range pattern {
		if p == WildcardMulti {
			return true
		}
		if i >= len(topic) {
			return false
		}
		if p != WildcardSingle && p != topic[i] {
			return false
		}
	}
	return len(topic) == len(pattern)
}

// Event carries a published payload with standard metadata.
type Event struct {
	// Topic is the hierarchical event type.
	Topic Topic

	// Payload is the event-specific data.
	Payload any

	// ID uniquely identifies this event instance.
	ID string

	// Timestamp is when the event was published.
	Timestamp time.Time

	// Source names the component that published the event.
	Source string
}

// New creates an event with generated metadata.
func New(topic Topic, payload any, source string) Event {
	return Event{
		Topic:     topic,
		Payload:   payload,
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Source:    source,
	}
}

// Handler processes a delivered event.
type Handler interface {
	Handle(ev Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ev Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ev Event) error { return f(ev) }
