package services

import (
	"context"
	"sync"

	"arena-battle-system/models"
)

// EventHub fans battle events out to in-process subscribers, per room.
type EventHub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(models.BattleEvent)
}

func NewEventHub() *EventHub {
	return &EventHub{subs: map[string]map[int]func(models.BattleEvent){}}
}

// Subscribe registers fn for a room's events. fn runs on the publishing
// goroutine and must not block.
func (h *EventHub) Subscribe(roomID string, fn func(models.BattleEvent)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	if h.subs[roomID] == nil {
		h.subs[roomID] = map[int]func(models.BattleEvent){}
	}
	h.subs[roomID][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[roomID], id)
			if len(h.subs[roomID]) == 0 {
				delete(h.subs, roomID)
			}
		})
	}
}

// Publish delivers ev to every current subscriber of its room.
func (h *EventHub) Publish(ev models.BattleEvent) {
	h.mu.RLock()
	fns := make([]func(models.BattleEvent), 0, len(h.subs[ev.RoomID]))
	for _, fn := range h.subs[ev.RoomID] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribers returns how many subscribers a room has.
func (h *EventHub) Subscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[roomID])
}

// EventLog is the append-only battle log: durable storage plus live fan-out.
type EventLog struct {
	store EventStore
	hub   *EventHub
}

func NewEventLog(store EventStore, hub *EventHub) *EventLog {
	if hub == nil {
		hub = NewEventHub()
	}
	return &EventLog{store: store, hub: hub}
}

// AppendEvent stores ev and then publishes it. Subscribers see the event even
// when the store rejected it; the error is still returned to the caller.
func (l *EventLog) AppendEvent(ctx context.Context, ev models.BattleEvent) error {
	err := l.store.AppendEvent(ctx, ev)
	l.hub.Publish(ev)
	return err
}

func (l *EventLog) ListEvents(ctx context.Context, roomID string) ([]models.BattleEvent, error) {
	return l.store.ListEvents(ctx, roomID)
}

func (l *EventLog) Subscribe(roomID string, fn func(models.BattleEvent)) (unsubscribe func()) {
	return l.hub.Subscribe(roomID, fn)
}
