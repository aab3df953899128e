package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"arena-battle-system/models"

	"github.com/gofiber/fiber/v2"
)

const (
	streamBuffer    = 256
	streamKeepAlive = 15 * time.Second
)

// StreamEvents serves a room's battle log as server-sent events: the stored
// backlog first, then live events until WINNER or disconnect.
func (s *RoomService) StreamEvents(c *fiber.Ctx) error {
	roomID := c.Params("id")
	ctx := c.UserContext()
	if _, err := s.Store.GetRoom(ctx, roomID); err != nil {
		return respondError(c, err)
	}

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	// Subscribe before reading the backlog so nothing falls in between.
	live := make(chan models.BattleEvent, streamBuffer)
	var lagged atomic.Bool
	unsubscribe := s.Events.Subscribe(roomID, func(ev models.BattleEvent) {
		select {
		case live <- ev:
		default:
			lagged.Store(true)
		}
	})

	backlog, err := s.Events.ListEvents(ctx, roomID)
	if err != nil {
		unsubscribe()
		return respondError(c, err)
	}

	reqCtx := c.Context()
	reqCtx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		ticker := time.NewTicker(streamKeepAlive)
		defer ticker.Stop()

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		seen := make(map[string]struct{}, len(backlog))
		for _, ev := range backlog {
			seen[ev.ID] = struct{}{}
			if err := writeEvent(w, ev); err != nil {
				return
			}
			if ev.Type == models.EventWinner {
				writeEnd(w)
				return
			}
		}
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev := <-live:
				if _, dup := seen[ev.ID]; dup {
					continue
				}
				seen[ev.ID] = struct{}{}
				if err := writeEvent(w, ev); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}
				if ev.Type == models.EventWinner {
					writeEnd(w)
					return
				}
				if lagged.Load() {
					writeLagged(w, roomID)
					return
				}
			case <-ticker.C:
				if lagged.Load() {
					writeLagged(w, roomID)
					return
				}
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			case <-reqCtx.Done():
				// Server shutting down
				return
			}
		}
	})

	return nil
}

func writeEvent(w *bufio.Writer, ev models.BattleEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, strings.ToLower(string(ev.Type)), payload)
	return err
}

// writeLagged tells a client it missed events; it should reconnect and
// backfill.
func writeLagged(w *bufio.Writer, roomID string) {
	log.Printf("[Stream] Room %s subscriber fell behind, closing", roomID)
	fmt.Fprint(w, "event: lagged\ndata: {}\n\n")
	_ = w.Flush()
}

func writeEnd(w *bufio.Writer) {
	fmt.Fprint(w, "event: end\ndata: {}\n\n")
	_ = w.Flush()
}
