package battle

import (
	"fmt"

	"arena-battle-system/models"
)

// scriptedSampler replays fixed draws. Once a script runs out it returns
// floatDefault and 0.
type scriptedSampler struct {
	floats       []float64
	ints         []int
	floatDefault float64
}

func (s *scriptedSampler) Float64() float64 {
	if len(s.floats) == 0 {
		return s.floatDefault
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scriptedSampler) IntN(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func makeRoster(alive, dead int) []models.Participant {
	roster := make([]models.Participant, 0, alive+dead)
	for i := 0; i < alive; i++ {
		roster = append(roster, models.Participant{
			RoomID:   "room-1",
			UserID:   fmt.Sprintf("a%d", i),
			Username: fmt.Sprintf("alive_%d", i),
			IsAlive:  true,
		})
	}
	for i := 0; i < dead; i++ {
		roster = append(roster, models.Participant{
			RoomID:   "room-1",
			UserID:   fmt.Sprintf("d%d", i),
			Username: fmt.Sprintf("dead_%d", i),
			IsAlive:  false,
		})
	}
	return roster
}

func aliveSet(roster []models.Participant) map[string]bool {
	out := map[string]bool{}
	for _, p := range roster {
		if p.IsAlive {
			out[p.UserID] = true
		}
	}
	return out
}
