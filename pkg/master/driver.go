package master

import (
	"context"
	"fmt"

	"github.com/cubesim/cubesim-go/pkg/log"
	"github.com/cubesim/cubesim-go/pkg/radio"
	"github.com/cubesim/cubesim-go/pkg/simclock"
)

// CubeForAddress returns the cube currently listening on addr, or nil.
func (m *Master) CubeForAddress(addr *radio.Address) radio.Peripheral {
	packed := addr.Pack()
	for _, c := range m.config.Cubes {
		if c.PackedRXAddr() == packed {
			return c
		}
	}
	return nil
}

// CubeForSlot returns the cube paired with slot, or nil.
func (m *Master) CubeForSlot(slot CubeSlot) radio.Peripheral {
	addr := slot.RadioAddress()
	if addr == nil {
		return nil
	}
	return m.CubeForAddress(addr)
}

// doRadioPacket runs one transaction: produce a packet, deliver it to the
// addressed cube inside a rendezvous window, retry without an ack, and
// report the outcome to the firmware exactly once.
func (m *Master) doRadioPacket(ctx context.Context) error {
	var tx radio.Transmission
	m.config.Firmware.Produce(&tx)

	if tx.Dest == nil {
		panic("master: firmware produced a packet without a destination")
	}
	if tx.Packet.Len > radio.PayloadMax {
		panic(fmt.Sprintf("master: firmware produced a %d byte packet, max %d", tx.Packet.Len, radio.PayloadMax))
	}
	m.stats.transactions.Add(1)

	q := m.config.TicksPerPacket

	var reply radio.Packet
	for retry := 0; retry < m.config.MaxRetries; retry++ {
		ticks := m.clock.Advance(q)

		if err := m.sync.BeginEventAt(ctx, ticks); err != nil {
			return fmt.Errorf("%w: %w", ErrStopped, err)
		}
		// Cubes only change their RX address while free-running, so the
		// lookup must happen inside the window on every attempt.
		target := m.CubeForAddress(tx.Dest)
		reply = radio.Packet{}
		ack := target != nil && target.HandlePacket(tx.Packet, &reply)

		// Let the cubes run, but no farther than the next transmit opportunity.
		m.sync.EndEvent(ticks + q)
		m.stats.attempts.Add(1)

		report := log.ReportNone
		switch {
		case ack && reply.Len > 0:
			report = log.ReportAckWithPacket
		case ack:
			report = log.ReportAckEmpty
		case retry == m.config.MaxRetries-1:
			report = log.ReportTimeout
		}
		m.traceAttempt(ticks, &tx, target, ack, &reply, retry, report)

		if ack {
			if reply.Len > 0 {
				m.stats.acks.Add(1)
				m.config.Firmware.AckWithPacket(reply.Bytes())
			} else {
				m.stats.emptyAcks.Add(1)
				m.config.Firmware.AckEmpty()
			}
			return nil
		}
	}

	m.stats.timeouts.Add(1)
	m.config.Firmware.Timeout()
	return nil
}

func (m *Master) traceAttempt(ticks simclock.Ticks, tx *radio.Transmission, target radio.Peripheral,
	ack bool, reply *radio.Packet, retry int, report log.Report) {
	if !m.traceRadio.Load() {
		return
	}

	at := &log.AttemptEvent{
		Dest:   tx.Dest.Pack(),
		TX:     append([]byte(nil), tx.Packet.Bytes()...),
		Ack:    ack,
		Retry:  uint8(retry),
		Report: report,
	}
	if target != nil {
		id := target.ID()
		at.Cube = &id
	}
	if ack {
		at.Reply = append([]byte(nil), reply.Bytes()...)
	}

	m.trace.Log(log.Event{
		Time:     simclock.ToDuration(ticks),
		Ticks:    uint64(ticks),
		RunID:    m.RunID(),
		Category: log.CategoryRadio,
		Attempt:  at,
	})
}
