package pipeline

import "testing"

func TestEventBus_ScopesByRequestID(t *testing.T) {
	bus := NewEventBus()
	var gotA, gotB []Event

	unsubA := bus.Subscribe("req-a", func(e Event) { gotA = append(gotA, e) })
	defer unsubA()
	unsubB := bus.Subscribe("req-b", func(e Event) { gotB = append(gotB, e) })
	defer unsubB()

	bus.Publish(Event{RequestID: "req-a", Type: EventStageStarted})
	bus.Publish(Event{RequestID: "req-b", Type: EventStageStarted})

	if len(gotA) != 1 || len(gotB) != 1 {
		t.Fatalf("expected each handler to see only its own request's event, got gotA=%d gotB=%d", len(gotA), len(gotB))
	}
}

func TestEventBus_EmptyRequestID_HearsEverything(t *testing.T) {
	bus := NewEventBus()
	var all []Event
	unsub := bus.Subscribe("", func(e Event) { all = append(all, e) })
	defer unsub()

	bus.Publish(Event{RequestID: "req-a"})
	bus.Publish(Event{RequestID: "req-b"})

	if len(all) != 2 {
		t.Fatalf("expected a wildcard subscriber to see both events, got %d", len(all))
	}
}

func TestEventBus_Unsubscribe_StopsDelivery(t *testing.T) {
	bus := NewEventBus()
	var count int
	unsub := bus.Subscribe("req-a", func(Event) { count++ })

	bus.Publish(Event{RequestID: "req-a"})
	unsub()
	bus.Publish(Event{RequestID: "req-a"})

	if count != 1 {
		t.Fatalf("expected delivery to stop after unsubscribe, got count=%d", count)
	}
}
