package battle

import "time"

const (
	InitialGraceDelay = 3 * time.Second
	MinRoundDelay     = 60 * time.Second
	MaxRoundDelay     = 180 * time.Second
	RoundDelayStep    = 5 * time.Second
)

// Pacing holds the timing knobs of a room loop.
type Pacing struct {
	Initial time.Duration
	Min     time.Duration
	Max     time.Duration
	Step    time.Duration
}

// DefaultPacing returns the production timings.
func DefaultPacing() Pacing {
	return Pacing{
		Initial: InitialGraceDelay,
		Min:     MinRoundDelay,
		Max:     MaxRoundDelay,
		Step:    RoundDelayStep,
	}
}

// RoundDelay is the wait before the next round. More survivors give a
// shorter delay, bounded to [Min, Max].
func (p Pacing) RoundDelay(alive int) time.Duration {
	if alive < 0 {
		alive = 0
	}
	span := p.Max - p.Min
	if span < 0 {
		span = 0
	}

	reduction := span
	if p.Step > 0 && int64(alive) <= int64(span/p.Step) {
		reduction = min(time.Duration(alive)*p.Step, span)
	} else if p.Step <= 0 {
		reduction = 0
	}

	d := p.Max - reduction
	if d < p.Min {
		d = p.Min
	}
	if d > p.Max {
		d = p.Max
	}
	return d
}

// RoundDelay applies DefaultPacing.
func RoundDelay(alive int) time.Duration {
	return DefaultPacing().RoundDelay(alive)
}
