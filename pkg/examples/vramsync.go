package examples

import (
	"log/slog"
	"sync"

	"github.com/cubesim/cubesim-go/pkg/cube"
	"github.com/cubesim/cubesim-go/pkg/master"
	"github.com/cubesim/cubesim-go/pkg/radio"
)

// MaxWritesPerPacket is the number of VRAM word writes that fit one packet.
const MaxWritesPerPacket = radio.PayloadMax / cube.WriteSize

// unpaired is produced when there is no slot to talk to. No cube listens
// on it, so the transaction times out.
var unpaired = radio.Address{}

// Slot is the firmware's record of one cube: its address and the video
// buffer mirroring its VRAM.
type Slot struct {
	id   int
	addr *radio.Address
	vbuf *cube.VideoBuffer

	// lastFrame is the frame count from the most recent ack.
	lastFrame uint8
}

// ID returns the slot index.
func (s *Slot) ID() int { return s.id }

// RadioAddress returns the cube's address, or nil if unpaired.
func (s *Slot) RadioAddress() *radio.Address { return s.addr }

// VideoBuffer returns the slot's video buffer.
func (s *Slot) VideoBuffer() *cube.VideoBuffer { return s.vbuf }

// VRAMSyncStats holds firmware-side counters.
type VRAMSyncStats struct {
	Packets  uint64
	Pings    uint64
	Acks     uint64
	Timeouts uint64
	Resent   uint64
}

// VRAMSync is a firmware that keeps each cube's VRAM in sync with a local
// video buffer. Changed words are sent eight per packet, round robin over
// the slots; slots with nothing to send are pinged with empty packets.
// Words from a transaction that timed out are queued again.
type VRAMSync struct {
	mu     sync.Mutex
	slots  []*Slot
	next   int
	logger *slog.Logger

	// The transaction in flight, if any.
	inflight *Slot
	words    []uint16

	stats VRAMSyncStats
}

// NewVRAMSync creates the firmware with one slot per address.
func NewVRAMSync(addrs []radio.Address, logger *slog.Logger) *VRAMSync {
	f := &VRAMSync{logger: logger}
	for i := range addrs {
		addr := addrs[i]
		f.slots = append(f.slots, &Slot{
			id:   i,
			addr: &addr,
			vbuf: &cube.VideoBuffer{},
		})
	}
	return f
}

// Slots returns the firmware's slots.
func (f *VRAMSync) Slots() []*Slot {
	return f.slots
}

// VideoSlots returns the slots as master.VideoSlot values.
func (f *VRAMSync) VideoSlots() []master.VideoSlot {
	out := make([]master.VideoSlot, len(f.slots))
	for i, s := range f.slots {
		out[i] = s
	}
	return out
}

// Write changes one VRAM word of a slot. It is sent with a later packet.
func (f *VRAMSync) Write(slot int, word, val uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots[slot%len(f.slots)].vbuf.Poke(word, val)
}

// Idle reports whether every change has been acknowledged.
func (f *VRAMSync) Idle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.words) > 0 {
		return false
	}
	for _, s := range f.slots {
		if s.vbuf.Pending() {
			return false
		}
	}
	return true
}

// LastFrame returns the frame count a slot's cube last reported.
func (f *VRAMSync) LastFrame(slot int) uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slots[slot%len(f.slots)].lastFrame
}

// Stats returns a snapshot of the counters.
func (f *VRAMSync) Stats() VRAMSyncStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// Produce fills in the next packet.
func (f *VRAMSync) Produce(tx *radio.Transmission) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// A transaction cut short by Stop never reports; send its words again.
	f.requeue()

	n := len(f.slots)
	if n == 0 {
		tx.Dest = &unpaired
		return
	}

	var slot *Slot
	for i := 0; i < n; i++ {
		s := f.slots[(f.next+i)%n]
		if s.vbuf.Pending() {
			slot = s
			f.next = (f.next + i + 1) % n
			break
		}
	}
	if slot == nil {
		slot = f.slots[f.next%n]
		f.next = (f.next + 1) % n
		f.stats.Pings++
	}

	f.words = slot.vbuf.TakeChanges(MaxWritesPerPacket)
	for _, w := range f.words {
		_ = tx.Packet.Append(cube.AppendWrite(nil, w, slot.vbuf.Peek(w))...)
	}
	f.inflight = slot
	f.stats.Packets++
	tx.Dest = slot.addr
}

// AckWithPacket records the cube's frame count.
func (f *VRAMSync) AckWithPacket(reply []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inflight != nil && len(reply) > 0 {
		f.inflight.lastFrame = reply[0]
	}
	f.done()
}

// AckEmpty completes a ping.
func (f *VRAMSync) AckEmpty() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done()
}

// Timeout queues the lost words again.
func (f *VRAMSync) Timeout() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats.Timeouts++
	if f.inflight != nil {
		f.debugLog("vramsync: timeout", "slot", f.inflight.id, "words", len(f.words))
	}
	f.requeue()
}

func (f *VRAMSync) done() {
	f.stats.Acks++
	f.inflight = nil
	f.words = nil
}

func (f *VRAMSync) requeue() {
	if f.inflight != nil {
		for _, w := range f.words {
			f.inflight.vbuf.Mark(w)
		}
		f.stats.Resent += uint64(len(f.words))
	}
	f.inflight = nil
	f.words = nil
}

func (f *VRAMSync) debugLog(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

var (
	_ radio.Firmware   = (*VRAMSync)(nil)
	_ master.VideoSlot = (*Slot)(nil)
)
