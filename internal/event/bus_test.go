package event

import (
	"errors"
	"testing"
)

func TestTopicMatch(t *testing.T) {
	tests := []struct {
		topic   Topic
		pattern Topic
		want    bool
	}{
		{"session.state.changed", "session.state.changed", true},
		{"session.state.changed", "session.*.changed", true},
		{"session.state.changed", "session.**", true},
		{"session.state.changed", "**", true},
		{"session.state.changed", "session.*", false},
		{"session.state.changed", "document.**", false},
		{"session", "session.*", false},
		{"session.state.changed", "session.state.*", true},
	}
	for _, tt := range tests {
		if got := tt.topic.Match(tt.pattern); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.topic, tt.pattern, got, tt.want)
		}
	}
}

func TestPublishDelivers(t *testing.T) {
	b := NewBus()
	var got []Topic
	if _, err := b.SubscribeFunc("session.**", func(ev Event) error {
		got = append(got, ev.Topic)
		return nil
	}); err != nil {
		t.Fatalf("SubscribeFunc: %v", err)
	}

	if err := b.Publish(New(TopicSessionStateChanged, StateChange{From: "user-input", To: "thinking"}, "test")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := b.Publish(New(TopicDocumentApplied, nil, "test")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(got) != 1 || got[0] != TopicSessionStateChanged {
		t.Errorf("delivered topics = %v, want [%s]", got, TopicSessionStateChanged)
	}
}

func TestHandlerErrorReachesErrorHandler(t *testing.T) {
	b := NewBus()
	boom := errors.New("boom")
	if _, err := b.SubscribeFunc("a.b", func(ev Event) error { return boom }); err != nil {
		t.Fatalf("SubscribeFunc: %v", err)
	}

	var captured error
	b.ErrorHandler = func(err error) { captured = err }

	if err := b.Publish(New("a.b", nil, "test")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var herr *HandlerError
	if !errors.As(captured, &herr) {
		t.Fatalf("captured error %v, want *HandlerError", captured)
	}
	if !errors.Is(captured, boom) {
		t.Errorf("captured does not unwrap to the handler error")
	}
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	b := NewBus()
	if _, err := b.SubscribeFunc("a.b", func(ev Event) error { panic("bad") }); err != nil {
		t.Fatalf("SubscribeFunc: %v", err)
	}
	delivered := false
	if _, err := b.SubscribeFunc("a.b", func(ev Event) error {
		delivered = true
		return nil
	}); err != nil {
		t.Fatalf("SubscribeFunc: %v", err)
	}

	var captured error
	b.ErrorHandler = func(err error) { captured = err }

	if err := b.Publish(New("a.b", nil, "test")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !errors.Is(captured, ErrHandlerPanic) {
		t.Errorf("captured = %v, want ErrHandlerPanic", captured)
	}
	if !delivered {
		t.Error("panic stopped delivery to later subscribers")
	}
}

func TestSubscribeOnce(t *testing.T) {
	b := NewBus()
	count := 0
	if _, err := b.SubscribeOnce("a.b", HandlerFunc(func(ev Event) error {
		count++
		return nil
	})); err != nil {
		t.Fatalf("SubscribeOnce: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := b.Publish(New("a.b", nil, "test")); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if count != 1 {
		t.Errorf("handler ran %d times, want 1", count)
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount = %d, want 0", b.SubscriberCount())
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	sub, err := b.SubscribeFunc("a.b", func(ev Event) error { return nil })
	if err != nil {
		t.Fatalf("SubscribeFunc: %v", err)
	}
	if err := b.Unsubscribe(sub); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if err := b.Unsubscribe(sub); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("second Unsubscribe = %v, want ErrSubscriptionNotFound", err)
	}
}

func TestClosedBus(t *testing.T) {
	b := NewBus()
	b.Close()
	if err := b.Publish(New("a.b", nil, "test")); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Publish = %v, want ErrBusClosed", err)
	}
	if _, err := b.SubscribeFunc("a.b", func(ev Event) error { return nil }); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Subscribe = %v, want ErrBusClosed", err)
	}
}
