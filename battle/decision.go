package battle

import (
	"math"
	"time"

	"arena-battle-system/models"
)

const (
	ReviveChanceOpening       = 0.05
	ReviveChanceMidBattle     = 0.12
	ReviveChanceFinalShowdown = 0.03

	EliminationRateOpening   = 0.15
	EliminationRateMidBattle = 0.10

	// AttackerChance is the probability an elimination is credited to another
	// participant instead of the arena.
	AttackerChance = 0.70
)

// Intent is one state change decided for a round.
type Intent struct {
	Kind          models.EventType // EventRevive or EventElimination
	ParticipantID string           // revived participant or eliminated victim
	AttackerID    string           // empty when the arena did it
}

// HasAttacker reports whether an elimination was credited to a participant.
func (i Intent) HasAttacker() bool {
	return i.AttackerID != ""
}

// Decision is the full outcome of the decision engine for one round.
type Decision struct {
	Stage       Stage
	AliveBefore int
	Planned     int
	Intents     []Intent
	WinnerID    string
	Complete    bool
}

// Revival returns the revive intent, if the round has one.
func (d Decision) Revival() (Intent, bool) {
	for _, in := range d.Intents {
		if in.Kind == models.EventRevive {
			return in, true
		}
	}
	return Intent{}, false
}

// Eliminations returns the elimination intents in the order they were drawn.
func (d Decision) Eliminations() []Intent {
	out := make([]Intent, 0, len(d.Intents))
	for _, in := range d.Intents {
		if in.Kind == models.EventElimination {
			out = append(out, in)
		}
	}
	return out
}

// ReviveChance is the per-round revival probability for a stage.
func ReviveChance(stage Stage) float64 {
	switch stage {
	case StageOpening:
		return ReviveChanceOpening
	case StageMidBattle:
		return ReviveChanceMidBattle
	default:
		return ReviveChanceFinalShowdown
	}
}

// EliminationCount is how many participants a round removes, computed on the
// pre-round alive count and clamped so at least one participant survives.
func EliminationCount(alive, total int) int {
	if alive <= 1 {
		return 0
	}
	if alive <= 2 {
		return 1
	}

	var n int
	switch ClassifyStage(alive, total) {
	case StageOpening:
		n = int(math.Floor(float64(alive) * EliminationRateOpening))
	case StageMidBattle:
		n = int(math.Floor(float64(alive) * EliminationRateMidBattle))
	default:
		n = 1
	}
	return max(1, min(n, alive-1))
}

// ShouldRevive draws the revival check. It never fires with two or fewer
// alive or with nobody to bring back.
func ShouldRevive(alive, dead int, stage Stage, s Sampler) bool {
	if dead == 0 || alive <= 2 {
		return false
	}
	return s.Float64() < ReviveChance(stage)
}

// Decide runs the decision engine over a roster snapshot. The roster is not
// modified.
func Decide(roster []models.Participant, s Sampler) Decision {
	var alive, dead []string
	for _, p := range roster {
		if p.IsAlive {
			alive = append(alive, p.UserID)
		} else {
			dead = append(dead, p.UserID)
		}
	}

	d := Decision{
		Stage:       ClassifyStage(len(alive), len(roster)),
		AliveBefore: len(alive),
	}
	if len(alive) <= 1 {
		if len(alive) == 1 {
			d.WinnerID = alive[0]
			d.Complete = true
		}
		return d
	}

	if ShouldRevive(len(alive), len(dead), d.Stage, s) {
		lucky := pick(s, dead)
		d.Intents = append(d.Intents, Intent{Kind: models.EventRevive, ParticipantID: lucky})
		alive = append(alive, lucky)
	}

	d.Planned = EliminationCount(d.AliveBefore, len(roster))
	for i := 0; i < d.Planned && len(alive) > 1; i++ {
		vi := s.IntN(len(alive))
		victim := alive[vi]
		alive = append(alive[:vi:vi], alive[vi+1:]...)

		in := Intent{Kind: models.EventElimination, ParticipantID: victim}
		if s.Float64() < AttackerChance {
			in.AttackerID = pick(s, alive)
		}
		d.Intents = append(d.Intents, in)
	}

	if len(alive) == 1 {
		d.WinnerID = alive[0]
		d.Complete = true
	}
	return d
}

// Apply mutates the roster for one intent and reports whether it changed
// anything. Eliminating a dead participant or reviving a live one is a no-op.
func Apply(roster []models.Participant, in Intent, round int, at time.Time) bool {
	for i := range roster {
		p := &roster[i]
		if p.UserID != in.ParticipantID {
			continue
		}
		switch in.Kind {
		case models.EventElimination:
			if !p.IsAlive {
				return false
			}
			r := round
			ts := at
			p.IsAlive = false
			p.EliminatedAtRound = &r
			p.EliminatedAt = &ts
			p.EliminatedBy = nil
			if in.HasAttacker() {
				attacker := in.AttackerID
				p.EliminatedBy = &attacker
			}
			return true
		case models.EventRevive:
			if p.IsAlive {
				return false
			}
			p.IsAlive = true
			p.EliminatedAtRound = nil
			p.EliminatedAt = nil
			p.EliminatedBy = nil
			p.RevivedCount++
			return true
		}
		return false
	}
	return false
}
