// services/scheduler.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"arena-battle-system/battle"
	"arena-battle-system/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// roomLoop is the scheduler's state for one room.
type roomLoop struct {
	roomID  string
	round   int // next round to run
	roster  []models.Participant
	jobID   uuid.UUID
	armed   bool
	running bool
	halted  bool
}

// RoundScheduler drives the round loop of every ACTIVE room on a gocron
// scheduler: one armed one-time job per room, at most one round in flight.
type RoundScheduler struct {
	sched    gocron.Scheduler
	rooms    RoomStore
	events   EventStore
	executor *RoundExecutor
	pacing   battle.Pacing

	// OnFinish runs after a room's final round, off the round goroutine.
	OnFinish func(ctx context.Context, roomID string, outcome *RoundOutcome)

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	loops map[string]*roomLoop
	wg    sync.WaitGroup
}

func NewRoundScheduler(rooms RoomStore, events EventStore, executor *RoundExecutor, pacing battle.Pacing) (*RoundScheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RoundScheduler{
		sched:    sched,
		rooms:    rooms,
		events:   events,
		executor: executor,
		pacing:   pacing,
		ctx:      ctx,
		cancel:   cancel,
		loops:    map[string]*roomLoop{},
	}, nil
}

func (s *RoundScheduler) Start() {
	s.sched.Start()
	log.Println("[Scheduler] ✅ Round scheduler started")
}

// Shutdown stops firing new rounds and waits for running ones and finish
// hooks to return.
func (s *RoundScheduler) Shutdown() error {
	s.cancel()
	err := s.sched.Shutdown()
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	return nil
}

// Watch runs fn every interval, never overlapping itself.
func (s *RoundScheduler) Watch(name string, interval time.Duration, fn func(ctx context.Context)) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { fn(s.ctx) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// StartRoom begins the round loop for an ACTIVE room. Calling it for a room
// that already has a loop is a no-op. Rounds resume after the highest round
// already in the event log.
func (s *RoundScheduler) StartRoom(ctx context.Context, roomID string) error {
	s.mu.Lock()
	if _, ok := s.loops[roomID]; ok {
		s.mu.Unlock()
		log.Printf("[Scheduler] Duplicate start for room %s ignored", roomID)
		return nil
	}
	// Reserve the slot so concurrent starts stay no-ops while we load state.
	loop := &roomLoop{roomID: roomID}
	s.loops[roomID] = loop
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		if s.loops[roomID] == loop {
			delete(s.loops, roomID)
		}
		s.mu.Unlock()
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		release()
		return err
	}
	if room.Status != models.RoomStatusActive {
		release()
		return ErrRoomNotActive
	}
	roster, err := s.rooms.GetParticipants(ctx, roomID)
	if err != nil {
		release()
		return err
	}
	events, err := s.events.ListEvents(ctx, roomID)
	if err != nil {
		release()
		return err
	}

	next := 1
	for _, ev := range events {
		if ev.Round >= next {
			next = ev.Round + 1
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loops[roomID] != loop {
		return nil
	}
	loop.round = next
	loop.roster = roster
	if err := s.arm(loop, s.pacing.Initial); err != nil {
		delete(s.loops, roomID)
		return err
	}
	log.Printf("[Scheduler] ▶️ Room %s: round %d in %s (%d participants)", roomID, next, s.pacing.Initial, len(roster))
	return nil
}

// StopRoom drops a room's loop. A round already running finishes but is not
// followed by another.
func (s *RoundScheduler) StopRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loop, ok := s.loops[roomID]
	if !ok {
		return
	}
	if loop.armed {
		if err := s.sched.RemoveJob(loop.jobID); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
			log.Printf("[Scheduler] ⚠️ Room %s: failed to remove job %s: %v", roomID, loop.jobID, err)
		}
	}
	delete(s.loops, roomID)
	log.Printf("[Scheduler] ⏹️ Room %s loop stopped", roomID)
}

// HasLoop reports whether the room has a loop registered, halted or not.
func (s *RoundScheduler) HasLoop(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loops[roomID]
	return ok
}

// Halted reports whether the room's loop was stopped on an inconsistent roster.
func (s *RoundScheduler) Halted(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	loop, ok := s.loops[roomID]
	return ok && loop.halted
}

// arm schedules the next fire for loop. Callers hold s.mu.
func (s *RoundScheduler) arm(loop *roomLoop, delay time.Duration) error {
	start := gocron.OneTimeJobStartDateTime(time.Now().Add(delay))
	if delay <= 0 {
		start = gocron.OneTimeJobStartImmediately()
	}

	opts := []gocron.JobOption{
		gocron.WithName("round:" + loop.roomID),
		gocron.WithTags("room:" + loop.roomID),
		gocron.WithLimitedRuns(1),
	}
	job, err := s.sched.NewJob(gocron.OneTimeJob(start), gocron.NewTask(s.fire, loop.roomID), opts...)
	if errors.Is(err, gocron.ErrOneTimeJobStartDateTimePast) {
		job, err = s.sched.NewJob(gocron.OneTimeJob(gocron.OneTimeJobStartImmediately()), gocron.NewTask(s.fire, loop.roomID), opts...)
	}
	if err != nil {
		return fmt.Errorf("failed to arm round %d for room %s: %w", loop.round, loop.roomID, err)
	}
	loop.jobID = job.ID()
	loop.armed = true
	return nil
}

func (s *RoundScheduler) fire(roomID string) {
	s.mu.Lock()
	loop, ok := s.loops[roomID]
	if !ok || loop.running || loop.halted {
		s.mu.Unlock()
		return
	}
	loop.running = true
	loop.armed = false
	round := loop.round
	roster := loop.roster
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx := s.ctx
	if ctx.Err() != nil {
		s.mu.Lock()
		loop.running = false
		s.mu.Unlock()
		return
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		log.Printf("[Scheduler] ⚠️ Room %s: failed to load before round %d, retrying: %v", roomID, round, err)
		s.rearm(loop, s.pacing.RoundDelay(models.CountAlive(roster)))
		return
	}
	if room.Status != models.RoomStatusActive {
		log.Printf("[Scheduler] Room %s is %s, stopping before round %d", roomID, room.Status, round)
		s.drop(loop)
		return
	}

	outcome, err := s.executor.ExecuteRound(ctx, roomID, round, roster)
	if err != nil {
		log.Printf("[Scheduler] ❌ Room %s halted at round %d: %v", roomID, round, err)
		s.mu.Lock()
		loop.running = false
		loop.halted = true
		s.mu.Unlock()
		return
	}

	if outcome.IsComplete {
		s.drop(loop)
		if s.OnFinish != nil {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.OnFinish(ctx, roomID, outcome)
			}()
		}
		return
	}

	alive := models.CountAlive(outcome.Participants)
	delay := s.pacing.RoundDelay(alive)
	s.mu.Lock()
	loop.round = round + 1
	loop.roster = outcome.Participants
	s.mu.Unlock()
	s.rearm(loop, delay)
	log.Printf("[Scheduler] Room %s: round %d in %s (%d alive)", roomID, round+1, delay, alive)
}

// rearm schedules the next fire unless the loop was stopped meanwhile.
func (s *RoundScheduler) rearm(loop *roomLoop, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loop.running = false
	if s.loops[loop.roomID] != loop || s.ctx.Err() != nil {
		return
	}
	if err := s.arm(loop, delay); err != nil {
		log.Printf("[Scheduler] ❌ Room %s: %v", loop.roomID, err)
		delete(s.loops, loop.roomID)
	}
}

// drop removes the loop if it is still the registered one.
func (s *RoundScheduler) drop(loop *roomLoop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loop.running = false
	if s.loops[loop.roomID] == loop {
		delete(s.loops, loop.roomID)
	}
}
