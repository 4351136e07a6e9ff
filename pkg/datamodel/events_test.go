package datamodel

import (
	"errors"
	"testing"
)

// mockEventPublisher implements EventPublisher for testing.
type mockEventPublisher struct {
	published []publishedEvent
	err       error
	nextNum   EventNumber
}

type publishedEvent struct {
	endpoint EndpointID
	cluster  ClusterID
	eventID  EventID
	priority EventPriority
	data     any
}

func (m *mockEventPublisher) PublishEvent(
	endpoint EndpointID,
	cluster ClusterID,
	eventID EventID,
	priority EventPriority,
	data any,
) (EventNumber, error) {
	if m.err != nil {
		return 0, m.err
	}

	m.published = append(m.published, publishedEvent{
		endpoint: endpoint,
		cluster:  cluster,
		eventID:  eventID,
		priority: priority,
		data:     data,
	})

	m.nextNum++
	return m.nextNum, nil
}

func TestEventSource_Emit(t *testing.T) {
	pub := &mockEventPublisher{}
	es := NewEventSource()
	es.Bind(2, 0x0060, pub)
	es.RegisterEvents([]EventEntry{
		NewEventEntry(0x00, EventPriorityCritical, PrivilegeView),
		NewEventEntry(0x01, EventPriorityInfo, PrivilegeView),
	})

	if !es.IsBound() {
		t.Fatal("IsBound() = false after Bind")
	}

	num, err := es.Emit(0x01, EventPriorityInfo, "payload")
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if num != 1 {
		t.Errorf("EventNumber = %d, want 1", num)
	}

	if len(pub.published) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.published))
	}
	ev := pub.published[0]
	if ev.endpoint != 2 || ev.cluster != 0x0060 || ev.eventID != 0x01 || ev.priority != EventPriorityInfo {
		t.Errorf("published event = %+v", ev)
	}
	if ev.data != "payload" {
		t.Errorf("data = %v, want payload", ev.data)
	}
}

func TestEventSource_Emit_Errors(t *testing.T) {
	t.Run("NotBound", func(t *testing.T) {
		es := NewEventSource()
		if _, err := es.Emit(0, EventPriorityInfo, nil); !errors.Is(err, ErrEventPublisherNotBound) {
			t.Errorf("Emit = %v, want ErrEventPublisherNotBound", err)
		}
	})

	t.Run("Unregistered", func(t *testing.T) {
		es := NewEventSource()
		es.Bind(1, 0x0060, &mockEventPublisher{})
		es.RegisterEvent(NewEventEntry(0x00, EventPriorityCritical, PrivilegeView))

		if _, err := es.Emit(0x07, EventPriorityInfo, nil); !errors.Is(err, ErrEventNotRegistered) {
			t.Errorf("Emit = %v, want ErrEventNotRegistered", err)
		}
		if es.HasEvent(0x07) {
			t.Error("HasEvent(0x07) = true")
		}
	})

	t.Run("NoValidation", func(t *testing.T) {
		pub := &mockEventPublisher{}
		es := NewEventSource()
		es.Bind(1, 0x0060, pub)
		if _, err := es.Emit(0x07, EventPriorityDebug, nil); err != nil {
			t.Errorf("Emit without registered events = %v, want nil", err)
		}
	})

	t.Run("PublisherError", func(t *testing.T) {
		want := errors.New("journal closed")
		es := NewEventSource()
		es.Bind(1, 0x0060, &mockEventPublisher{err: want})
		if _, err := es.Emit(0, EventPriorityInfo, nil); !errors.Is(err, want) {
			t.Errorf("Emit = %v, want %v", err, want)
		}
	})
}

func TestEventPriority_String(t *testing.T) {
	tests := []struct {
		p    EventPriority
		want string
	}{
		{EventPriorityDebug, "Debug"},
		{EventPriorityInfo, "Info"},
		{EventPriorityCritical, "Critical"},
		{EventPriority(9), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("EventPriority(%d).String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}
