package models

import (
	"time"
)

// RoomStatus is the lifecycle state of a battle room.
type RoomStatus string

const (
	RoomStatusWaiting   RoomStatus = "WAITING"
	RoomStatusActive    RoomStatus = "ACTIVE"
	RoomStatusFinished  RoomStatus = "FINISHED"
	RoomStatusCancelled RoomStatus = "CANCELLED"
)

// IsTerminal reports whether no further rounds can ever run for the status.
func (s RoomStatus) IsTerminal() bool {
	return s == RoomStatusFinished || s == RoomStatusCancelled
}

const DefaultMinParticipants = 2

// Room is one battle instance with a fixed roster and lifecycle.
type Room struct {
	ID               string     `json:"id" gorm:"primaryKey"`
	Name             string     `json:"name" gorm:"not null"`
	Slug             string     `json:"slug" gorm:"index"`
	HostID           string     `json:"host_id" gorm:"index"`
	Status           RoomStatus `json:"status" gorm:"type:varchar(16);index;default:'WAITING'"`
	MinParticipants  int        `json:"min_participants" gorm:"default:2"`
	ScheduledStartAt *time.Time `json:"scheduled_start_at,omitempty" gorm:"index"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	WinnerID         *string    `json:"winner_id,omitempty"`
	ArchiveURL       string     `json:"archive_url,omitempty"`

	Participants []Participant `json:"participants,omitempty" gorm:"foreignKey:RoomID"`

	Timestamps
}

// Participant is a user's seat in a room. UserID is the participant reference
// carried in battle events.
type Participant struct {
	RoomID      string `json:"room_id" gorm:"primaryKey"`
	UserID      string `json:"user_id" gorm:"primaryKey"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`

	IsAlive           bool       `json:"is_alive" gorm:"default:true"`
	EliminatedAtRound *int       `json:"eliminated_at_round,omitempty"`
	EliminatedAt      *time.Time `json:"eliminated_at,omitempty"`
	EliminatedBy      *string    `json:"eliminated_by,omitempty"`
	RevivedCount      int        `json:"revived_count" gorm:"default:0"`

	JoinedAt time.Time `json:"joined_at" gorm:"autoCreateTime"`
}

// Handle is the name shown in narration: display name, then username, then id.
func (p Participant) Handle() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Username != "" {
		return p.Username
	}
	return p.UserID
}

// CountAlive returns how many participants in the roster are alive.
func CountAlive(roster []Participant) int {
	n := 0
	for _, p := range roster {
		if p.IsAlive {
			n++
		}
	}
	return n
}

// CloneRoster copies a roster, including the pointer fields, so callers can
// mutate the copy without touching the source snapshot.
func CloneRoster(roster []Participant) []Participant {
	out := make([]Participant, len(roster))
	for i, p := range roster {
		if p.EliminatedAtRound != nil {
			v := *p.EliminatedAtRound
			p.EliminatedAtRound = &v
		}
		if p.EliminatedAt != nil {
			v := *p.EliminatedAt
			p.EliminatedAt = &v
		}
		if p.EliminatedBy != nil {
			v := *p.EliminatedBy
			p.EliminatedBy = &v
		}
		out[i] = p
	}
	return out
}
