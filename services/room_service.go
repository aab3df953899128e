package services

import (
	"errors"
	"log"
	"strconv"

	"arena-battle-system/models"

	"github.com/gofiber/fiber/v2"
)

var errForbidden = errors.New("only the room host can do that")

// RoomService exposes rooms and their battle log over HTTP.
type RoomService struct {
	Manager *RoomManager
	Store   Store
	Events  *EventLog
}

func NewRoomService(manager *RoomManager, store Store, events *EventLog) *RoomService {
	return &RoomService{Manager: manager, Store: store, Events: events}
}

func (s *RoomService) CreateRoom(c *fiber.Ctx) error {
	var in CreateRoomInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body", "details": err.Error()})
	}
	if userID := localUserID(c); userID != "" {
		in.HostID = userID
	}

	room, err := s.Manager.CreateRoom(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(room)
}

func (s *RoomService) GetRoom(c *fiber.Ctx) error {
	room, err := s.Store.GetRoom(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"room":        room,
		"alive_count": models.CountAlive(room.Participants),
	})
}

func (s *RoomService) JoinRoom(c *fiber.Ctx) error {
	var in JoinRoomInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body", "details": err.Error()})
		}
	}
	if userID := localUserID(c); userID != "" {
		in.UserID = userID
	}

	p, err := s.Manager.JoinRoom(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(p)
}

func (s *RoomService) StartRoom(c *fiber.Ctx) error {
	roomID := c.Params("id")
	if err := s.requireHost(c, roomID); err != nil {
		return respondError(c, err)
	}
	room, err := s.Manager.StartRoom(c.UserContext(), roomID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

func (s *RoomService) CancelRoom(c *fiber.Ctx) error {
	roomID := c.Params("id")
	if err := s.requireHost(c, roomID); err != nil {
		return respondError(c, err)
	}
	if err := s.Manager.CancelRoom(c.UserContext(), roomID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "room cancelled", "room_id": roomID})
}

// ListEvents returns the ordered battle log with per-round summaries.
func (s *RoomService) ListEvents(c *fiber.Ctx) error {
	roomID := c.Params("id")
	room, err := s.Store.GetRoom(c.UserContext(), roomID)
	if err != nil {
		return respondError(c, err)
	}
	events, err := s.Events.ListEvents(c.UserContext(), roomID)
	if err != nil {
		return respondError(c, err)
	}
	if after, err := strconv.Atoi(c.Query("after_round", "0")); err == nil && after > 0 {
		filtered := events[:0:0]
		for _, ev := range events {
			if ev.Round > after {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	return c.JSON(fiber.Map{
		"room_id": roomID,
		"status":  room.Status,
		"events":  events,
		"rounds":  SummarizeRounds(len(room.Participants), events),
	})
}

// SearchUsers searches the mirrored profiles used to label participants.
func (s *RoomService) SearchUsers(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}
	users, err := s.Store.SearchProfiles(c.UserContext(), c.Query("q", ""), limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "search failed", "details": err.Error()})
	}

	type UserSummary struct {
		ExternalUserID string  `json:"external_user_id"`
		Username       string  `json:"username"`
		DisplayName    string  `json:"display_name"`
		AvatarURL      *string `json:"avatar_url,omitempty"`
	}
	res := make([]UserSummary, len(users))
	for i, u := range users {
		res[i] = UserSummary{
			ExternalUserID: u.ExternalUserID,
			Username:       u.Username,
			DisplayName:    u.DisplayName,
			AvatarURL:      u.AvatarURL,
		}
	}
	return c.JSON(res)
}

func (s *RoomService) requireHost(c *fiber.Ctx, roomID string) error {
	room, err := s.Store.GetRoom(c.UserContext(), roomID)
	if err != nil {
		return err
	}
	userID := localUserID(c)
	if room.HostID == "" || room.HostID == userID || hasRole(c, "admin") {
		return nil
	}
	return errForbidden
}

func localUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func hasRole(c *fiber.Ctx, role string) bool {
	roles, _ := c.Locals("user_roles").([]string)
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrParticipantNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, ErrInvalidRoom):
		status = fiber.StatusBadRequest
	case errors.Is(err, errForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, ErrRoomNotWaiting),
		errors.Is(err, ErrRoomNotActive),
		errors.Is(err, ErrAlreadyJoined),
		errors.Is(err, ErrNotEnoughPlayers),
		errors.Is(err, ErrInvalidTransition):
		status = fiber.StatusConflict
	default:
		log.Printf("❌ %s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
