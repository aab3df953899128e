package services

import (
	"context"
	"time"

	"arena-battle-system/models"
)

// RoomStore reads and mutates rooms and their rosters. Mutations used by the
// round loop are idempotent: repeating one after it took effect is a no-op.
type RoomStore interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
	ListRoomsByStatus(ctx context.Context, statuses ...models.RoomStatus) ([]models.Room, error)

	// AddParticipant seats a user in a WAITING room.
	AddParticipant(ctx context.Context, p *models.Participant) error
	GetParticipants(ctx context.Context, roomID string) ([]models.Participant, error)

	// TransitionRoom moves a room to `to` if its current status is one of
	// `from`. Entering ACTIVE stamps started_at; entering a terminal status
	// stamps ended_at.
	TransitionRoom(ctx context.Context, roomID string, from []models.RoomStatus, to models.RoomStatus, at time.Time) error

	MarkEliminated(ctx context.Context, roomID, participantID string, attackerID *string, round int, at time.Time) error
	MarkRevived(ctx context.Context, roomID, participantID string) error
	// SetWinner finishes an ACTIVE room.
	SetWinner(ctx context.Context, roomID, participantID string, at time.Time) error
	SetArchiveURL(ctx context.Context, roomID, url string) error
}

// EventStore persists battle events.
type EventStore interface {
	AppendEvent(ctx context.Context, ev models.BattleEvent) error
	// ListEvents returns a room's events ordered by (round, sequence).
	ListEvents(ctx context.Context, roomID string) ([]models.BattleEvent, error)
}

// ProfileStore holds the mirrored profile data used to label participants.
type ProfileStore interface {
	UpsertProfiles(ctx context.Context, users []models.ArenaUser) (int, error)
	LastProfileUpdate(ctx context.Context) (time.Time, error)
	LookupProfile(ctx context.Context, externalUserID string) (*models.ArenaUser, error)
	SearchProfiles(ctx context.Context, query string, limit int) ([]models.ArenaUser, error)
}

// Store is everything the service needs from persistence.
type Store interface {
	RoomStore
	EventStore
	ProfileStore
}

func containsStatus(list []models.RoomStatus, s models.RoomStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// transitionError picks the most specific sentinel for a refused transition.
func transitionError(from []models.RoomStatus) error {
	if len(from) == 1 {
		switch from[0] {
		case models.RoomStatusWaiting:
			return ErrRoomNotWaiting
		case models.RoomStatusActive:
			return ErrRoomNotActive
		}
	}
	return ErrInvalidTransition
}
