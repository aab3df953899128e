package services

import (
	"context"
	"testing"

	"arena-battle-system/models"
)

func TestEventHub_SubscribePerRoom(t *testing.T) {
	hub := NewEventHub()
	var got []string
	unsubscribe := hub.Subscribe("r1", func(ev models.BattleEvent) { got = append(got, ev.ID) })

	hub.Publish(models.BattleEvent{ID: "a", RoomID: "r1"})
	hub.Publish(models.BattleEvent{ID: "b", RoomID: "r2"})
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("got = %v, want [a]", got)
	}
	if hub.Subscribers("r1") != 1 {
		t.Fatalf("subscribers = %d", hub.Subscribers("r1"))
	}

	unsubscribe()
	unsubscribe()
	hub.Publish(models.BattleEvent{ID: "c", RoomID: "r1"})
	if len(got) != 1 {
		t.Fatalf("received after unsubscribe: %v", got)
	}
	if hub.Subscribers("r1") != 0 {
		t.Fatalf("subscribers = %d after unsubscribe", hub.Subscribers("r1"))
	}
}

func TestEventLog_PublishesEvenWhenStoreFails(t *testing.T) {
	store := &failingEventStore{EventStore: NewMemoryStore()}
	log := NewEventLog(store, nil)

	var delivered int
	log.Subscribe("r1", func(models.BattleEvent) { delivered++ })

	err := log.AppendEvent(context.Background(), models.BattleEvent{ID: "a", RoomID: "r1"})
	if err == nil {
		t.Fatal("expected store error")
	}
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
}

func TestEventLog_ListsFromStore(t *testing.T) {
	store := NewMemoryStore()
	log := NewEventLog(store, NewEventHub())
	ctx := context.Background()

	if err := log.AppendEvent(ctx, models.BattleEvent{ID: "a", RoomID: "r1", Round: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	events, err := log.ListEvents(ctx, "r1")
	if err != nil || len(events) != 1 {
		t.Fatalf("events = %v, err = %v", events, err)
	}
}
