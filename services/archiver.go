package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"arena-battle-system/models"

	"github.com/gosimple/slug"
)

// ArchiveUploader stores a blob and returns where it can be fetched.
type ArchiveUploader interface {
	UploadBytes(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// BattleArchive is the JSON document written for a finished room.
type BattleArchive struct {
	Room       models.Room          `json:"room"`
	Rounds     []models.RoundInfo   `json:"rounds"`
	Events     []models.BattleEvent `json:"events"`
	ArchivedAt time.Time            `json:"archived_at"`
}

// BattleArchiver uploads the event log of finished rooms.
type BattleArchiver struct {
	Store    Store
	Uploader ArchiveUploader
	Now      func() time.Time
}

func NewBattleArchiver(store Store, uploader ArchiveUploader) *BattleArchiver {
	return &BattleArchiver{Store: store, Uploader: uploader, Now: time.Now}
}

// ArchiveKey is the object key for a room's archive.
func ArchiveKey(room *models.Room) string {
	name := room.Slug
	if name == "" {
		name = slug.Make(room.Name)
	}
	if name == "" {
		return fmt.Sprintf("battles/%s.json", room.ID)
	}
	return fmt.Sprintf("battles/%s-%s.json", name, room.ID)
}

// Archive uploads the room's ordered event log and records the URL.
func (a *BattleArchiver) Archive(ctx context.Context, roomID string) (string, error) {
	room, err := a.Store.GetRoom(ctx, roomID)
	if err != nil {
		return "", err
	}
	events, err := a.Store.ListEvents(ctx, roomID)
	if err != nil {
		return "", err
	}

	doc := BattleArchive{
		Room:       *room,
		Rounds:     SummarizeRounds(len(room.Participants), events),
		Events:     events,
		ArchivedAt: a.now(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode archive: %w", err)
	}

	url, err := a.Uploader.UploadBytes(ctx, ArchiveKey(room), "application/json", data)
	if err != nil {
		return "", err
	}
	if err := a.Store.SetArchiveURL(ctx, roomID, url); err != nil {
		return url, err
	}
	return url, nil
}

// OnFinish matches RoundScheduler.OnFinish. Failures are logged only.
func (a *BattleArchiver) OnFinish(ctx context.Context, roomID string, _ *RoundOutcome) {
	url, err := a.Archive(ctx, roomID)
	if err != nil {
		log.Printf("[Archive] ⚠️ Room %s: archive failed: %v", roomID, err)
		return
	}
	log.Printf("[Archive] ✅ Room %s archived to %s", roomID, url)
}

func (a *BattleArchiver) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// SummarizeRounds rebuilds per-round counts from an ordered event log.
// total is the roster size; everyone starts alive.
func SummarizeRounds(total int, events []models.BattleEvent) []models.RoundInfo {
	var rounds []models.RoundInfo
	alive := total
	for _, ev := range events {
		if len(rounds) == 0 || rounds[len(rounds)-1].Number != ev.Round {
			rounds = append(rounds, models.RoundInfo{Number: ev.Round, StartedAt: ev.Timestamp})
		}
		info := &rounds[len(rounds)-1]
		switch ev.Type {
		case models.EventElimination:
			info.EliminatedCount++
			alive--
		case models.EventRevive:
			info.RevivedCount++
			alive++
		}
		info.EndedAt = ev.Timestamp
		info.SurvivorCount = alive
	}
	return rounds
}
