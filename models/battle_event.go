package models

import (
	"time"
)

// EventType classifies a battle event.
type EventType string

const (
	EventRoundStart  EventType = "ROUND_START"
	EventElimination EventType = "ELIMINATION"
	EventRevive      EventType = "REVIVE"
	EventRoundEnd    EventType = "ROUND_END"
	EventWinner      EventType = "WINNER"
)

// BattleEvent is an append-only entry in a room's battle log. Within a room,
// events are ordered by (Round, Sequence).
type BattleEvent struct {
	ID       string    `json:"id" gorm:"primaryKey"`
	RoomID   string    `json:"room_id" gorm:"not null;index:idx_battle_events_order,priority:1"`
	Round    int       `json:"round" gorm:"not null;index:idx_battle_events_order,priority:2"`
	Sequence int       `json:"sequence" gorm:"not null;index:idx_battle_events_order,priority:3"`
	Type     EventType `json:"type" gorm:"type:varchar(16);not null"`
	Message  string    `json:"message" gorm:"type:text"`

	// [attacker, victim] or [victim] for ELIMINATION, [participant] for
	// REVIVE and WINNER, empty otherwise.
	InvolvedParticipantIDs []string `json:"involved_participant_ids" gorm:"serializer:json;type:text"`

	// Narrated is true when the message came from the narrative provider
	// rather than the fallback pool.
	Narrated  bool      `json:"narrated" gorm:"default:false"`
	Timestamp time.Time `json:"timestamp" gorm:"not null"`
}

// RoundInfo summarises one executed round.
type RoundInfo struct {
	Number          int       `json:"number"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	EliminatedCount int       `json:"eliminated_count"`
	RevivedCount    int       `json:"revived_count"`
	SurvivorCount   int       `json:"survivor_count"`
}
