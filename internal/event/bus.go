package event

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription identifies a registered handler.
type Subscription struct {
	// ID uniquely identifies the subscription.
	ID string

	// Pattern is the topic pattern the handler receives.
	Pattern Topic
}

type subscriber struct {
	sub     Subscription
	handler Handler
	once    bool
}

// Bus delivers published events to matching subscribers. Delivery is
// synchronous and in subscription order; a handler error or panic does
// not stop delivery to later subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscriber
	closed bool

	// ErrorHandler, when set, receives HandlerError and PanicError
	// values from failed deliveries.
	ErrorHandler func(err error)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for a topic pattern.
func (b *Bus) Subscribe(pattern Topic, handler Handler) (Subscription, error) {
	return b.subscribe(pattern, handler, false)
}

// SubscribeFunc registers a function handler for a topic pattern.
func (b *Bus) SubscribeFunc(pattern Topic, fn HandlerFunc) (Subscription, error) {
	return b.subscribe(pattern, fn, false)
}

// SubscribeOnce registers a handler that is removed after its first
// successful delivery.
func (b *Bus) SubscribeOnce(pattern Topic, handler Handler) (Subscription, error) {
	return b.subscribe(pattern, handler, true)
}

func (b *Bus) subscribe(pattern Topic, handler Handler, once bool) (Subscription, error) {
	if handler == nil {
		return Subscription{}, ErrNilHandler
	}
	if pattern == "" {
		return Subscription{}, ErrInvalidTopic
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return Subscription{}, ErrBusClosed
	}
	s := &subscriber{
		sub:     Subscription{ID: uuid.NewString(), Pattern: pattern},
		handler: handler,
		once:    once,
	}
	b.subs = append(b.subs, s)
	return s.sub, nil
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(sub Subscription) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.sub.ID == sub.ID {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// Publish delivers an event to every subscriber whose pattern matches
// its topic. The call blocks until all handlers return.
func (b *Bus) Publish(ev Event) error {
	if ev.Topic == "" {
		return ErrInvalidTopic
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	matched := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if ev.Topic.Match(s.sub.Pattern) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range matched {
		err := b.deliver(s, ev)
		if err != nil && b.ErrorHandler != nil {
			b.ErrorHandler(err)
		}
		if s.once && err == nil {
			_ = b.Unsubscribe(s.sub)
		}
	}
	return nil
}

func (b *Bus) deliver(s *subscriber, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{SubscriptionID: s.sub.ID, Topic: ev.Topic, Value: r}
		}
	}()
	if herr := s.handler.Handle(ev); herr != nil {
		return &HandlerError{SubscriptionID: s.sub.ID, Topic: ev.Topic, Err: herr}
	}
	return nil
}

// Close stops the bus. Further publishes and subscribes fail with
// ErrBusClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
}

// SubscriberCount returns the number of registered subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
