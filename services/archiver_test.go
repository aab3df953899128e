package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"arena-battle-system/models"
)

type fakeUploader struct {
	key         string
	contentType string
	data        []byte
	err         error
}

func (f *fakeUploader) UploadBytes(_ context.Context, key, contentType string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.key, f.contentType, f.data = key, contentType, data
	return "https://cdn.example/" + key, nil
}

func TestArchiveKey(t *testing.T) {
	tests := []struct {
		room models.Room
		want string
	}{
		{models.Room{ID: "r1", Slug: "neon-grave"}, "battles/neon-grave-r1.json"},
		{models.Room{ID: "r1", Name: "Void Sector"}, "battles/void-sector-r1.json"},
		{models.Room{ID: "r1"}, "battles/r1.json"},
	}
	for _, tt := range tests {
		if got := ArchiveKey(&tt.room); got != tt.want {
			t.Errorf("ArchiveKey(%+v) = %q, want %q", tt.room, got, tt.want)
		}
	}
}

func TestBattleArchiver_Archive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	roomID := seedRoom(t, store, 2, 0, models.RoomStatusActive)
	roster, _ := store.GetParticipants(ctx, roomID)
	exec := newTestExecutor(store, store, fixedSampler{f: 0.99}, nil)
	if _, err := exec.ExecuteRound(ctx, roomID, 1, roster); err != nil {
		t.Fatalf("ExecuteRound: %v", err)
	}

	up := &fakeUploader{}
	a := NewBattleArchiver(store, up)
	url, err := a.Archive(ctx, roomID)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if up.key != "battles/neon-grave-"+roomID+".json" || up.contentType != "application/json" {
		t.Fatalf("uploaded %q as %q", up.key, up.contentType)
	}

	var doc BattleArchive
	if err := json.Unmarshal(up.data, &doc); err != nil {
		t.Fatalf("decode archive: %v", err)
	}
	if len(doc.Events) != 3 || doc.Events[2].Type != models.EventWinner {
		t.Fatalf("archived events = %+v", doc.Events)
	}
	if len(doc.Rounds) != 1 || doc.Rounds[0].SurvivorCount != 1 {
		t.Fatalf("rounds = %+v", doc.Rounds)
	}

	room, _ := store.GetRoom(ctx, roomID)
	if room.ArchiveURL != url {
		t.Fatalf("archive url = %q, want %q", room.ArchiveURL, url)
	}
}

func TestBattleArchiver_UploadFailure(t *testing.T) {
	store := NewMemoryStore()
	roomID := seedRoom(t, store, 2, 0, models.RoomStatusActive)
	a := NewBattleArchiver(store, &fakeUploader{err: errors.New("bucket gone")})

	if _, err := a.Archive(context.Background(), roomID); err == nil {
		t.Fatal("expected upload error")
	}
	room, _ := store.GetRoom(context.Background(), roomID)
	if room.ArchiveURL != "" {
		t.Fatalf("archive url set on failure: %q", room.ArchiveURL)
	}
}

func TestSummarizeRounds(t *testing.T) {
	ts := time.Now()
	events := []models.BattleEvent{
		{Round: 1, Type: models.EventRoundStart, Timestamp: ts},
		{Round: 1, Type: models.EventElimination, Timestamp: ts},
		{Round: 1, Type: models.EventElimination, Timestamp: ts},
		{Round: 1, Type: models.EventRoundEnd, Timestamp: ts},
		{Round: 2, Type: models.EventRoundStart, Timestamp: ts},
		{Round: 2, Type: models.EventRevive, Timestamp: ts},
		{Round: 2, Type: models.EventElimination, Timestamp: ts},
		{Round: 2, Type: models.EventRoundEnd, Timestamp: ts},
	}
	rounds := SummarizeRounds(5, events)
	if len(rounds) != 2 {
		t.Fatalf("rounds = %+v", rounds)
	}
	if r := rounds[0]; r.Number != 1 || r.EliminatedCount != 2 || r.SurvivorCount != 3 {
		t.Fatalf("round 1 = %+v", r)
	}
	if r := rounds[1]; r.Number != 2 || r.RevivedCount != 1 || r.EliminatedCount != 1 || r.SurvivorCount != 3 {
		t.Fatalf("round 2 = %+v", r)
	}
	if SummarizeRounds(5, nil) != nil {
		t.Fatal("empty log should have no rounds")
	}
}
