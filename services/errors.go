package services

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomNotWaiting      = errors.New("room is not accepting participants")
	ErrRoomNotActive       = errors.New("room is not active")
	ErrAlreadyJoined       = errors.New("user already joined this room")
	ErrNotEnoughPlayers    = errors.New("not enough participants to start")
	ErrInvalidTransition   = errors.New("invalid room status transition")
	ErrInconsistentRoster  = errors.New("inconsistent roster: no participant alive")
	ErrParticipantNotFound = errors.New("participant not found in room")
	ErrInvalidRoom         = errors.New("invalid room")
)
