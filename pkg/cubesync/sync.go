package cubesync

import (
	"context"
	"fmt"
	"sync"

	"github.com/cubesim/cubesim-go/pkg/simclock"
)

// Sync is the rendezvous point between one master and N cube participants.
type Sync struct {
	mu   sync.Mutex
	cond *sync.Cond

	// deadline is the tick participants may run up to.
	deadline simclock.Ticks

	// lastOpened is the bound of the most recent event.
	lastOpened simclock.Ticks

	// inEvent is true between BeginEventAt and EndEvent.
	inEvent bool

	participants map[*Participant]struct{}

	// Counters
	events uint64
	wakes  uint64
}

// Participant is one cube goroutine's handle on a Sync.
type Participant struct {
	s *Sync

	// at is the last tick reported through Reached.
	at simclock.Ticks
}

// New creates a Sync whose participants may initially run up to deadline.
func New(deadline simclock.Ticks) *Sync {
	s := &Sync{
		deadline:     deadline,
		participants: make(map[*Participant]struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Join registers a participant whose local clock starts at start.
func (s *Sync) Join(start simclock.Ticks) *Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Participant{s: s, at: start}
	s.participants[p] = struct{}{}
	return p
}

// Deadline returns the current bound.
func (s *Sync) Deadline() simclock.Ticks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline
}

// InEvent reports whether an event is open.
func (s *Sync) InEvent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inEvent
}

// Participants returns the number of joined participants.
func (s *Sync) Participants() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}

// Events returns the number of events opened so far.
func (s *Sync) Events() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

// Wakes returns the number of Wake calls so far.
func (s *Sync) Wakes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wakes
}

// BeginEventAt publishes until as the new bound and waits for every
// participant to park there.
//
// It returns ctx.Err() as soon as ctx is done, whether or not participants
// have caught up. The bound must be greater than the previous event's bound
// and must not be behind the current deadline.
func (s *Sync) BeginEventAt(ctx context.Context, until simclock.Ticks) error {
	stop := context.AfterFunc(ctx, s.Wake)
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inEvent {
		panic("cubesync: BeginEventAt while an event is already open")
	}
	if s.events > 0 && until <= s.lastOpened {
		panic(fmt.Sprintf("cubesync: event bound %d not after previous bound %d", until, s.lastOpened))
	}
	if until < s.deadline {
		panic(fmt.Sprintf("cubesync: event bound %d behind deadline %d", until, s.deadline))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.deadline = until
	s.lastOpened = until
	s.events++
	s.cond.Broadcast()

	for !s.allParkedAt(until) {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.cond.Wait()
	}

	s.inEvent = true
	return nil
}

// EndEvent closes the open event and lets participants run up to next.
// It never blocks.
func (s *Sync) EndEvent(next simclock.Ticks) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inEvent {
		panic("cubesync: EndEvent without BeginEventAt")
	}
	s.inEvent = false
	s.extendLocked(next)
}

// Extend raises the deadline to t outside of an event. It never lowers it.
func (s *Sync) Extend(t simclock.Ticks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extendLocked(t)
}

func (s *Sync) extendLocked(t simclock.Ticks) {
	if t > s.deadline {
		s.deadline = t
	}
	s.cond.Broadcast()
}

// Wake makes every waiter re-check its state immediately.
func (s *Sync) Wake() {
	s.mu.Lock()
	s.wakes++
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *Sync) allParkedAt(t simclock.Ticks) bool {
	for p := range s.participants {
		if p.at < t {
			return false
		}
	}
	return true
}

// Deadline returns the tick the participant may run up to.
func (p *Participant) Deadline() simclock.Ticks {
	return p.s.Deadline()
}

// Reached reports that the participant's local clock is at t and parks it
// until the deadline moves beyond t. It returns the new deadline.
func (p *Participant) Reached(ctx context.Context, t simclock.Ticks) (simclock.Ticks, error) {
	s := p.s

	stop := context.AfterFunc(ctx, s.Wake)
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if t > s.deadline {
		panic(fmt.Sprintf("cubesync: participant at %d ran past deadline %d", t, s.deadline))
	}
	if t > p.at {
		p.at = t
	}
	s.cond.Broadcast()

	for s.deadline <= p.at {
		if err := ctx.Err(); err != nil {
			return s.deadline, err
		}
		s.cond.Wait()
	}
	return s.deadline, nil
}

// Leave removes the participant. The master stops waiting for it.
func (p *Participant) Leave() {
	s := p.s
	s.mu.Lock()
	delete(s.participants, p)
	s.cond.Broadcast()
	s.mu.Unlock()
}
