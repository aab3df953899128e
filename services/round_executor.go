package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"arena-battle-system/battle"
	"arena-battle-system/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "arena-battle-system/services"

// RoundOutcome is what one executed round produced.
type RoundOutcome struct {
	Events       []models.BattleEvent
	IsComplete   bool
	Winner       *models.Participant
	Participants []models.Participant // roster after the round
	Info         models.RoundInfo
}

// RoundExecutor runs a single round: decision, state changes, narration and
// event emission.
type RoundExecutor struct {
	Rooms     RoomStore
	Events    EventStore
	Narration *battle.Narration
	Sampler   battle.Sampler
	Now       func() time.Time

	tracer trace.Tracer
}

func NewRoundExecutor(rooms RoomStore, events EventStore, narration *battle.Narration, sampler battle.Sampler) *RoundExecutor {
	if narration == nil {
		narration = &battle.Narration{}
	}
	if narration.Sampler == nil {
		narration.Sampler = sampler
	}
	return &RoundExecutor{
		Rooms:     rooms,
		Events:    events,
		Narration: narration,
		Sampler:   sampler,
		Now:       time.Now,
		tracer:    otel.Tracer(tracerName),
	}
}

// ExecuteRound runs round number `round` over the given roster snapshot. The
// snapshot is not modified; the resulting roster is returned in the outcome.
//
// A roster with nobody alive yields a complete outcome with no winner and
// ErrInconsistentRoster. Store and event log failures are logged and never
// stop the round.
func (e *RoundExecutor) ExecuteRound(ctx context.Context, roomID string, round int, participants []models.Participant) (*RoundOutcome, error) {
	roster := models.CloneRoster(participants)
	total := len(roster)
	alive := models.CountAlive(roster)
	stage := battle.ClassifyStage(alive, total)

	ctx, span := e.tracer.Start(ctx, "battle.round", trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.Int("round.number", round),
		attribute.Int("round.alive_before", alive),
		attribute.String("round.stage", string(stage)),
	))
	defer span.End()

	out := &RoundOutcome{
		Participants: roster,
		Info:         models.RoundInfo{Number: round, StartedAt: e.now()},
	}

	switch alive {
	case 0:
		log.Printf("[Round] ❌ Room %s round %d: no participant alive, halting", roomID, round)
		span.SetStatus(codes.Error, "no participant alive")
		out.IsComplete = true
		out.Info.EndedAt = e.now()
		return out, fmt.Errorf("room %s round %d: %w", roomID, round, ErrInconsistentRoster)
	case 1:
		e.crown(ctx, out, roomID, round, stage, aliveIDs(roster)[0])
		out.Info.SurvivorCount = 1
		out.Info.EndedAt = e.now()
		return out, nil
	}

	e.emit(ctx, out, roomID, round, models.EventRoundStart,
		fmt.Sprintf("ROUND %d BEGINS! %d warriors remain!", round, alive), false, []string{})

	d := battle.Decide(roster, e.Sampler)
	span.SetAttributes(attribute.Int("round.planned_eliminations", d.Planned))

	for _, in := range d.Intents {
		at := e.now()
		if !battle.Apply(roster, in, round, at) {
			log.Printf("[Round] ⚠️ Room %s round %d: %s for %s did not apply, skipping", roomID, round, in.Kind, in.ParticipantID)
			continue
		}

		switch in.Kind {
		case models.EventRevive:
			out.Info.RevivedCount++
			if err := e.Rooms.MarkRevived(ctx, roomID, in.ParticipantID); err != nil {
				log.Printf("[Store] ⚠️ Room %s: failed to persist revive of %s: %v", roomID, in.ParticipantID, err)
			}
			msg, narrated := e.narrate(ctx, models.EventRevive, d.Stage, round, handleOf(roster, in.ParticipantID), "")
			e.emit(ctx, out, roomID, round, models.EventRevive, msg, narrated, []string{in.ParticipantID})

		case models.EventElimination:
			out.Info.EliminatedCount++
			var attacker *string
			attackerName := ""
			involved := []string{in.ParticipantID}
			if in.HasAttacker() {
				a := in.AttackerID
				attacker = &a
				attackerName = handleOf(roster, a)
				involved = []string{a, in.ParticipantID}
			}
			if err := e.Rooms.MarkEliminated(ctx, roomID, in.ParticipantID, attacker, round, at); err != nil {
				log.Printf("[Store] ⚠️ Room %s: failed to persist elimination of %s: %v", roomID, in.ParticipantID, err)
			}
			msg, narrated := e.narrate(ctx, models.EventElimination, d.Stage, round, handleOf(roster, in.ParticipantID), attackerName)
			e.emit(ctx, out, roomID, round, models.EventElimination, msg, narrated, involved)

			if left := aliveIDs(roster); len(left) == 1 {
				e.crown(ctx, out, roomID, round, d.Stage, left[0])
			}
		}
		if out.IsComplete {
			break
		}
	}

	survivors := models.CountAlive(roster)
	out.Info.SurvivorCount = survivors
	if !out.IsComplete {
		e.emit(ctx, out, roomID, round, models.EventRoundEnd,
			fmt.Sprintf("Round %d complete. %d survivors advance to the next round!", round, survivors), false, []string{})
	}
	out.Info.EndedAt = e.now()

	span.SetAttributes(
		attribute.Int("round.eliminated", out.Info.EliminatedCount),
		attribute.Int("round.revived", out.Info.RevivedCount),
		attribute.Int("round.survivors", survivors),
		attribute.Bool("round.complete", out.IsComplete),
	)
	log.Printf("[Round] ✅ Room %s round %d (%s): %d eliminated, %d revived, %d survive",
		roomID, round, d.Stage, out.Info.EliminatedCount, out.Info.RevivedCount, survivors)
	return out, nil
}

// crown emits WINNER for participantID and finishes the room.
func (e *RoundExecutor) crown(ctx context.Context, out *RoundOutcome, roomID string, round int, stage battle.Stage, participantID string) {
	if err := e.Rooms.SetWinner(ctx, roomID, participantID, e.now()); err != nil {
		log.Printf("[Store] ⚠️ Room %s: failed to persist winner %s: %v", roomID, participantID, err)
	}
	msg, narrated := e.narrate(ctx, models.EventWinner, stage, round, handleOf(out.Participants, participantID), "")
	e.emit(ctx, out, roomID, round, models.EventWinner, msg, narrated, []string{participantID})

	for i := range out.Participants {
		if out.Participants[i].UserID == participantID {
			w := out.Participants[i]
			out.Winner = &w
			break
		}
	}
	out.IsComplete = true
	log.Printf("[Round] 🏆 Room %s round %d: %s wins", roomID, round, participantID)
}

func (e *RoundExecutor) narrate(ctx context.Context, kind models.EventType, stage battle.Stage, round int, victim, attacker string) (string, bool) {
	return e.Narration.Resolve(ctx, battle.NarrativeContext{
		Kind:         kind,
		Stage:        stage,
		Round:        round,
		VictimName:   victim,
		AttackerName: attacker,
	})
}

func (e *RoundExecutor) emit(ctx context.Context, out *RoundOutcome, roomID string, round int, typ models.EventType, msg string, narrated bool, involved []string) {
	ev := models.BattleEvent{
		ID:                     uuid.NewString(),
		RoomID:                 roomID,
		Round:                  round,
		Sequence:               len(out.Events),
		Type:                   typ,
		Message:                msg,
		InvolvedParticipantIDs: involved,
		Narrated:               narrated,
		Timestamp:              e.now(),
	}
	if err := e.Events.AppendEvent(ctx, ev); err != nil {
		log.Printf("[Store] ⚠️ Room %s round %d: failed to append %s event: %v", roomID, round, typ, err)
	}
	out.Events = append(out.Events, ev)
}

func (e *RoundExecutor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func aliveIDs(roster []models.Participant) []string {
	var ids []string
	for _, p := range roster {
		if p.IsAlive {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

func handleOf(roster []models.Participant, userID string) string {
	for _, p := range roster {
		if p.UserID == userID {
			return p.Handle()
		}
	}
	return userID
}
