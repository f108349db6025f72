// Package cubesync keeps the master timeline and the cube timelines in step.
//
// The master controller and every simulated cube run in their own
// goroutines against their own clocks. A Sync publishes a tick deadline that
// cube goroutines may run up to but never past. Between transactions the
// cubes free-run up to the master's next transmit opportunity.
//
// # Events
//
// Before the master touches cube state it opens an event:
//
//	if err := s.BeginEventAt(ctx, ticks); err != nil {
//	    return err // shutting down
//	}
//	ack := cube.HandlePacket(pkt, &reply)
//	s.EndEvent(ticks + quantum)
//
// BeginEventAt blocks until every participant has parked at the event's
// tick. Between BeginEventAt and EndEvent all cubes are parked, so the master
// may read and write their state. EndEvent releases them without blocking.
//
// # Participants
//
// Each cube goroutine joins once and then loops:
//
//	for {
//	    runTo(p.Deadline())
//	    if _, err := p.Reached(ctx, now); err != nil {
//	        return err
//	    }
//	}
//
// # Cancellation
//
// There are no timeouts. Waits end when the bound moves or when the caller's
// context is done; Wake forces every waiter to re-check immediately.
package cubesync
