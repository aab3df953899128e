package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"arena-battle-system/battle"
	"arena-battle-system/models"
)

// fixedSampler always returns the same draws: f from Float64 and i%n from IntN.
type fixedSampler struct {
	f float64
	i int
}

func (s fixedSampler) Float64() float64 { return s.f }
func (s fixedSampler) IntN(n int) int   { return s.i % n }

type failingNarrator struct{}

func (failingNarrator) Generate(context.Context, battle.NarrativeContext) (string, error) {
	return "", errors.New("provider down")
}

// failingEventStore rejects every append but still lists what the wrapped
// store holds.
type failingEventStore struct {
	EventStore
	mu       sync.Mutex
	attempts int
}

func (f *failingEventStore) AppendEvent(context.Context, models.BattleEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	return errors.New("disk full")
}

// seedRoom creates a room with alive+dead participants (ids p0..), then moves
// it to status.
func seedRoom(t *testing.T, store *MemoryStore, alive, dead int, status models.RoomStatus) string {
	t.Helper()
	ctx := context.Background()
	room := &models.Room{Name: "Neon Grave", Slug: "neon-grave", Status: models.RoomStatusWaiting, MinParticipants: 2}
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("create room: %v", err)
	}
	for i := 0; i < alive+dead; i++ {
		p := &models.Participant{
			RoomID:      room.ID,
			UserID:      fmt.Sprintf("p%d", i),
			DisplayName: fmt.Sprintf("Fighter %d", i),
		}
		if err := store.AddParticipant(ctx, p); err != nil {
			t.Fatalf("add participant: %v", err)
		}
	}
	for i := alive; i < alive+dead; i++ {
		if err := store.MarkEliminated(ctx, room.ID, fmt.Sprintf("p%d", i), nil, 0, time.Now()); err != nil {
			t.Fatalf("eliminate: %v", err)
		}
	}
	if status != models.RoomStatusWaiting {
		if err := store.TransitionRoom(ctx, room.ID, []models.RoomStatus{models.RoomStatusWaiting}, status, time.Now()); err != nil {
			t.Fatalf("transition: %v", err)
		}
	}
	return room.ID
}

func newTestExecutor(store *MemoryStore, events EventStore, sampler battle.Sampler, provider battle.Narrator) *RoundExecutor {
	narration := &battle.Narration{Provider: provider, Timeout: 50 * time.Millisecond, Sampler: sampler}
	return NewRoundExecutor(store, events, narration, sampler)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
