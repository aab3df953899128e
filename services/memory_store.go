package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"arena-battle-system/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. It backs single-instance runs without a
// database and the tests.
type MemoryStore struct {
	mu       sync.RWMutex
	rooms    map[string]*models.Room
	rosters  map[string][]models.Participant
	events   map[string][]models.BattleEvent
	eventIDs map[string]struct{}
	profiles map[string]models.ArenaUser
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    map[string]*models.Room{},
		rosters:  map[string][]models.Participant{},
		events:   map[string][]models.BattleEvent{},
		eventIDs: map[string]struct{}{},
		profiles: map[string]models.ArenaUser{},
	}
}

func (s *MemoryStore) CreateRoom(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if _, ok := s.rooms[room.ID]; ok {
		return fmt.Errorf("failed to create room: duplicate id %s", room.ID)
	}
	now := time.Now()
	room.CreatedAt, room.UpdatedAt = now, now

	stored := *room
	roster := models.CloneRoster(room.Participants)
	stored.Participants = nil
	s.rooms[room.ID] = &stored
	s.rosters[room.ID] = roster
	return nil
}

func (s *MemoryStore) GetRoom(_ context.Context, roomID string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	out := copyRoom(r)
	out.Participants = models.CloneRoster(s.rosters[roomID])
	return out, nil
}

func (s *MemoryStore) ListRoomsByStatus(_ context.Context, statuses ...models.RoomStatus) ([]models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Room
	for _, r := range s.rooms {
		if containsStatus(statuses, r.Status) {
			out = append(out, *copyRoom(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) AddParticipant(_ context.Context, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[p.RoomID]
	if !ok {
		return ErrRoomNotFound
	}
	if r.Status != models.RoomStatusWaiting {
		return ErrRoomNotWaiting
	}
	for _, existing := range s.rosters[p.RoomID] {
		if existing.UserID == p.UserID {
			return ErrAlreadyJoined
		}
	}
	p.IsAlive = true
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	s.rosters[p.RoomID] = append(s.rosters[p.RoomID], *p)
	return nil
}

func (s *MemoryStore) GetParticipants(_ context.Context, roomID string) ([]models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneRoster(s.rosters[roomID]), nil
}

func (s *MemoryStore) TransitionRoom(_ context.Context, roomID string, from []models.RoomStatus, to models.RoomStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if !containsStatus(from, r.Status) {
		return transitionError(from)
	}
	r.Status = to
	if to == models.RoomStatusActive {
		t := at
		r.StartedAt = &t
	}
	if to.IsTerminal() {
		t := at
		r.EndedAt = &t
	}
	r.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) MarkEliminated(_ context.Context, roomID, participantID string, attackerID *string, round int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.participant(roomID, participantID)
	if p == nil {
		return ErrParticipantNotFound
	}
	if !p.IsAlive {
		return nil
	}
	r, ts := round, at
	p.IsAlive = false
	p.EliminatedAtRound = &r
	p.EliminatedAt = &ts
	p.EliminatedBy = nil
	if attackerID != nil {
		a := *attackerID
		p.EliminatedBy = &a
	}
	return nil
}

func (s *MemoryStore) MarkRevived(_ context.Context, roomID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.participant(roomID, participantID)
	if p == nil {
		return ErrParticipantNotFound
	}
	if p.IsAlive {
		return nil
	}
	p.IsAlive = true
	p.EliminatedAtRound = nil
	p.EliminatedAt = nil
	p.EliminatedBy = nil
	p.RevivedCount++
	return nil
}

func (s *MemoryStore) SetWinner(_ context.Context, roomID, participantID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if r.Status == models.RoomStatusFinished && r.WinnerID != nil && *r.WinnerID == participantID {
		return nil
	}
	if r.Status != models.RoomStatusActive {
		return ErrRoomNotActive
	}
	w, t := participantID, at
	r.Status = models.RoomStatusFinished
	r.WinnerID = &w
	r.EndedAt = &t
	r.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetArchiveURL(_ context.Context, roomID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	r.ArchiveURL = url
	return nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, ev models.BattleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.eventIDs[ev.ID]; dup {
		return fmt.Errorf("failed to append %s event for room %s: duplicate id %s", ev.Type, ev.RoomID, ev.ID)
	}
	s.eventIDs[ev.ID] = struct{}{}
	ev.InvolvedParticipantIDs = append([]string(nil), ev.InvolvedParticipantIDs...)
	s.events[ev.RoomID] = append(s.events[ev.RoomID], ev)
	return nil
}

func (s *MemoryStore) ListEvents(_ context.Context, roomID string) ([]models.BattleEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.BattleEvent, len(s.events[roomID]))
	copy(out, s.events[roomID])
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

func (s *MemoryStore) UpsertProfiles(_ context.Context, users []models.ArenaUser) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		if existing, ok := s.profiles[u.ExternalUserID]; ok {
			u.ID = existing.ID
			u.CreatedAt = existing.CreatedAt
		} else if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.UpdatedAt.IsZero() {
			u.UpdatedAt = time.Now()
		}
		s.profiles[u.ExternalUserID] = u
	}
	return len(users), nil
}

func (s *MemoryStore) LastProfileUpdate(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last time.Time
	for _, u := range s.profiles {
		if u.UpdatedAt.After(last) {
			last = u.UpdatedAt
		}
	}
	return last, nil
}

func (s *MemoryStore) LookupProfile(_ context.Context, externalUserID string) (*models.ArenaUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.profiles[externalUserID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *MemoryStore) SearchProfiles(_ context.Context, query string, limit int) ([]models.ArenaUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query = strings.ToLower(strings.TrimSpace(query))
	var out []models.ArenaUser
	for _, u := range s.profiles {
		if query == "" ||
			strings.Contains(strings.ToLower(u.Username), query) ||
			strings.Contains(strings.ToLower(u.DisplayName), query) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// participant returns a pointer into the stored roster. Callers hold s.mu.
func (s *MemoryStore) participant(roomID, userID string) *models.Participant {
	roster := s.rosters[roomID]
	for i := range roster {
		if roster[i].UserID == userID {
			return &roster[i]
		}
	}
	return nil
}

func copyRoom(r *models.Room) *models.Room {
	out := *r
	if r.WinnerID != nil {
		w := *r.WinnerID
		out.WinnerID = &w
	}
	return &out
}
