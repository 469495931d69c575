package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestBus_PublishReachesSubscribers(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe(func(e Event) { got = append(got, e) })

	bus.Publish(Event{Type: TypeComplete, ItemID: "med-1", ItemType: ItemMedication})

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Type != TypeComplete || got[0].ItemID != "med-1" {
		t.Errorf("unexpected event: %+v", got[0])
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsubscribe := bus.Subscribe(func(Event) { calls++ })
	bus.Publish(Event{Type: TypeRemove})
	unsubscribe()
	unsubscribe()
	bus.Publish(Event{Type: TypeRemove})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}
}

func TestBus_SubscriptionOrder(t *testing.T) {
	bus := NewBus()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe(func(Event) { order = append(order, i) })
	}
	bus.Publish(Event{Type: TypeRestore})

	for i, v := range order {
		if v != i {
			t.Fatalf("expected subscription order, got %v", order)
		}
	}
}

func TestBus_UnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()

	var second func()
	calls := 0
	bus.Subscribe(func(Event) { second() })
	second = bus.Subscribe(func(Event) { calls++ })

	bus.Publish(Event{Type: TypeComplete})

	if calls != 0 {
		t.Errorf("expected removed handler to be skipped, got %d calls", calls)
	}
}

func TestHub_BroadcastByPatient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	bus := NewBus()
	detach := hub.Attach(bus)
	defer detach()

	alice := NewClient("patient-a", nil)
	bob := NewClient("patient-b", nil)
	hub.Register(alice)
	hub.Register(bob)

	bus.Publish(Event{Type: TypeComplete, ItemID: "med-1", PatientID: "patient-a", Timestamp: time.Now()})

	select {
	case data := <-alice.Send:
		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if e.ItemID != "med-1" {
			t.Errorf("expected med-1, got %s", e.ItemID)
		}
	default:
		t.Fatal("expected event for patient-a")
	}

	select {
	case <-bob.Send:
		t.Fatal("patient-b must not receive patient-a events")
	default:
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := NewClient("patient-a", nil)

	hub.Register(client)
	if hub.ClientCount("patient-a") != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount("patient-a"))
	}

	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount("patient-a") != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount("patient-a"))
	}
	if _, ok := <-client.Send; ok {
		t.Error("expected Send channel to be closed")
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := NewClient("patient-a", nil)
	hub.Register(client)

	for i := 0; i < sendBuffer+10; i++ {
		hub.Broadcast(Event{Type: TypeComplete, PatientID: "patient-a"})
	}

	if len(client.Send) != sendBuffer {
		t.Errorf("expected buffer to hold %d events, got %d", sendBuffer, len(client.Send))
	}
}
