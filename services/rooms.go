package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"arena-battle-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// RoundLoops is the part of the scheduler room management drives.
type RoundLoops interface {
	StartRoom(ctx context.Context, roomID string) error
	StopRoom(roomID string)
	HasLoop(roomID string) bool
}

// RoomManager owns the room lifecycle around the round loop: create, join,
// start, cancel and scheduled activation.
type RoomManager struct {
	Store Store
	Loops RoundLoops
	Namer ArenaNamer // optional
	Now   func() time.Time
}

// ArenaNamer suggests a name for rooms created without one.
type ArenaNamer interface {
	ArenaName(ctx context.Context) string
}

const defaultArenaName = "Neon Arena"

func NewRoomManager(store Store, loops RoundLoops) *RoomManager {
	return &RoomManager{Store: store, Loops: loops, Now: time.Now}
}

type CreateRoomInput struct {
	Name             string     `json:"name"`
	HostID           string     `json:"host_id"`
	MinParticipants  int        `json:"min_participants"`
	ScheduledStartAt *time.Time `json:"scheduled_start_at"`
}

type JoinRoomInput struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

func (m *RoomManager) CreateRoom(ctx context.Context, in CreateRoomInput) (*models.Room, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = defaultArenaName
		if m.Namer != nil {
			name = m.Namer.ArenaName(ctx)
		}
	}
	if in.ScheduledStartAt != nil && in.ScheduledStartAt.Before(m.now().Add(-time.Minute)) {
		return nil, fmt.Errorf("%w: scheduled_start_at is in the past", ErrInvalidRoom)
	}
	minParticipants := in.MinParticipants
	if minParticipants < models.DefaultMinParticipants {
		minParticipants = models.DefaultMinParticipants
	}

	room := &models.Room{
		ID:               uuid.NewString(),
		Name:             name,
		Slug:             slug.Make(name),
		HostID:           in.HostID,
		Status:           models.RoomStatusWaiting,
		MinParticipants:  minParticipants,
		ScheduledStartAt: in.ScheduledStartAt,
	}
	if err := m.Store.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	log.Printf("✅ Room created: %s (%s)", room.Name, room.ID)
	return room, nil
}

// JoinRoom seats a user in a WAITING room. Missing names are filled from the
// mirrored profile when one exists.
func (m *RoomManager) JoinRoom(ctx context.Context, roomID string, in JoinRoomInput) (*models.Participant, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRoom)
	}

	p := &models.Participant{
		RoomID:      roomID,
		UserID:      in.UserID,
		Username:    in.Username,
		DisplayName: in.DisplayName,
		AvatarURL:   in.AvatarURL,
		IsAlive:     true,
		JoinedAt:    m.now(),
	}
	if p.Username == "" || p.DisplayName == "" {
		profile, err := m.Store.LookupProfile(ctx, in.UserID)
		if err != nil {
			log.Printf("[Store] ⚠️ Profile lookup for %s failed: %v", in.UserID, err)
		} else if profile != nil {
			if p.Username == "" {
				p.Username = profile.Username
			}
			if p.DisplayName == "" {
				p.DisplayName = profile.DisplayName
			}
			if p.AvatarURL == "" && profile.AvatarURL != nil {
				p.AvatarURL = *profile.AvatarURL
			}
		}
	}

	if err := m.Store.AddParticipant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// StartRoom activates a WAITING room that has enough participants and hands
// it to the round loop.
func (m *RoomManager) StartRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := m.Store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != models.RoomStatusWaiting {
		return nil, ErrRoomNotWaiting
	}
	if len(room.Participants) < room.MinParticipants {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughPlayers, len(room.Participants), room.MinParticipants)
	}

	if err := m.Store.TransitionRoom(ctx, roomID, []models.RoomStatus{models.RoomStatusWaiting}, models.RoomStatusActive, m.now()); err != nil {
		return nil, err
	}
	if err := m.Loops.StartRoom(ctx, roomID); err != nil {
		return nil, fmt.Errorf("room %s is active but its round loop did not start: %w", roomID, err)
	}
	log.Printf("⚔️ Room %s started with %d participants", roomID, len(room.Participants))
	return m.Store.GetRoom(ctx, roomID)
}

// CancelRoom moves a WAITING or ACTIVE room to CANCELLED and stops its loop.
func (m *RoomManager) CancelRoom(ctx context.Context, roomID string) error {
	from := []models.RoomStatus{models.RoomStatusWaiting, models.RoomStatusActive}
	if err := m.Store.TransitionRoom(ctx, roomID, from, models.RoomStatusCancelled, m.now()); err != nil {
		return err
	}
	m.Loops.StopRoom(roomID)
	log.Printf("🛑 Room %s cancelled", roomID)
	return nil
}

// ActivateDue starts WAITING rooms whose scheduled start has passed, cancels
// the ones still short of participants, and resumes ACTIVE rooms that have no
// loop in this process.
func (m *RoomManager) ActivateDue(ctx context.Context) {
	now := m.now()

	waiting, err := m.Store.ListRoomsByStatus(ctx, models.RoomStatusWaiting)
	if err != nil {
		log.Printf("[Scheduler] DB error: %v", err)
		return
	}
	for _, r := range waiting {
		if r.ScheduledStartAt == nil || r.ScheduledStartAt.After(now) {
			continue
		}
		if _, err := m.StartRoom(ctx, r.ID); err != nil {
			if errors.Is(err, ErrNotEnoughPlayers) {
				if cerr := m.CancelRoom(ctx, r.ID); cerr != nil {
					log.Printf("[Scheduler] Failed to cancel under-filled room %s: %v", r.ID, cerr)
				}
				continue
			}
			log.Printf("[Scheduler] Failed to auto-start room %s: %v", r.ID, err)
			continue
		}
		log.Printf("✅ Auto-started room: %s", r.Name)
	}

	active, err := m.Store.ListRoomsByStatus(ctx, models.RoomStatusActive)
	if err != nil {
		log.Printf("[Scheduler] DB error: %v", err)
		return
	}
	for _, r := range active {
		if m.Loops.HasLoop(r.ID) {
			continue
		}
		if err := m.Loops.StartRoom(ctx, r.ID); err != nil {
			log.Printf("[Scheduler] Failed to resume room %s: %v", r.ID, err)
			continue
		}
		log.Printf("🔁 Resumed round loop for room %s", r.ID)
	}
}

func (m *RoomManager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
