package master

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cubesim/cubesim-go/pkg/cube"
	"github.com/cubesim/cubesim-go/pkg/cubesync"
	"github.com/cubesim/cubesim-go/pkg/log"
	"github.com/cubesim/cubesim-go/pkg/radio"
	"github.com/cubesim/cubesim-go/pkg/simclock"
)

var (
	addrA = radio.Address{Channel: 2, ID: [5]byte{0x01, 0xe7, 0xe7, 0xe7, 0xe7}}
	addrB = radio.Address{Channel: 2, ID: [5]byte{0x02, 0xe7, 0xe7, 0xe7, 0xe7}}
	addrZ = radio.Address{Channel: 9, ID: [5]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE}}
)

// ---------------------------------------------------------------------------
// stubFirmware
// ---------------------------------------------------------------------------

type stubFirmware struct{ mock.Mock }

func (f *stubFirmware) Produce(tx *radio.Transmission) { f.Called(tx) }
func (f *stubFirmware) AckWithPacket(reply []byte) {
	f.Called(append([]byte(nil), reply...))
}
func (f *stubFirmware) AckEmpty() { f.Called() }
func (f *stubFirmware) Timeout()  { f.Called() }

// produces makes Produce address dest with payload.
func (f *stubFirmware) produces(dest radio.Address, payload ...byte) *mock.Call {
	return f.On("Produce", mock.Anything).Run(func(args mock.Arguments) {
		tx := args.Get(0).(*radio.Transmission)
		d := dest
		tx.Dest = &d
		_ = tx.Packet.SetBytes(payload)
	})
}

// ---------------------------------------------------------------------------
// stubCube
// ---------------------------------------------------------------------------

type stubCube struct {
	mock.Mock
	id   int
	addr uint64
}

func newStubCube(id int, addr radio.Address) *stubCube {
	return &stubCube{id: id, addr: addr.Pack()}
}

func (c *stubCube) ID() int              { return c.id }
func (c *stubCube) PackedRXAddr() uint64 { return c.addr }
func (c *stubCube) HandlePacket(pkt radio.Packet, reply *radio.Packet) bool {
	ret := c.Called(append([]byte(nil), pkt.Bytes()...))
	if b, ok := ret.Get(1).([]byte); ok {
		_ = reply.SetBytes(b)
	}
	return ret.Bool(0)
}

// ---------------------------------------------------------------------------
// pairingCube: listens on its address only from a given rendezvous event on
// ---------------------------------------------------------------------------

type pairingCube struct {
	sync     *cubesync.Sync
	addr     radio.Address
	pairAt   uint64
	inWindow []bool
}

func (c *pairingCube) ID() int { return 7 }
func (c *pairingCube) PackedRXAddr() uint64 {
	c.inWindow = append(c.inWindow, c.sync.InEvent())
	if c.sync.Events() < c.pairAt {
		return radio.PackedNone
	}
	return c.addr.Pack()
}
func (c *pairingCube) HandlePacket(_ radio.Packet, reply *radio.Packet) bool {
	_ = reply.SetBytes([]byte{0x42})
	return true
}

// ---------------------------------------------------------------------------
// stubCache
// ---------------------------------------------------------------------------

type stubCache struct{ mock.Mock }

func (c *stubCache) Invalidate() { c.Called() }

// ---------------------------------------------------------------------------
// loopFirmware: a concurrency-safe firmware for lifecycle tests
// ---------------------------------------------------------------------------

type loopFirmware struct {
	dest     radio.Address
	produced atomic.Uint64
	acks     atomic.Uint64
	timeouts atomic.Uint64
}

func (f *loopFirmware) Produce(tx *radio.Transmission) {
	f.produced.Add(1)
	tx.Dest = &f.dest
}
func (f *loopFirmware) AckWithPacket([]byte) { f.acks.Add(1) }
func (f *loopFirmware) AckEmpty()            { f.acks.Add(1) }
func (f *loopFirmware) Timeout()             { f.timeouts.Add(1) }

// ---------------------------------------------------------------------------
// recordingLogger
// ---------------------------------------------------------------------------

type recordingLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (l *recordingLogger) Log(e log.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *recordingLogger) byCategory(c log.Category) []log.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []log.Event
	for _, e := range l.events {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// slots
// ---------------------------------------------------------------------------

type testSlot struct {
	id   int
	addr *radio.Address
	vbuf *cube.VideoBuffer
}

func (s *testSlot) ID() int                        { return s.id }
func (s *testSlot) RadioAddress() *radio.Address   { return s.addr }
func (s *testSlot) VideoBuffer() *cube.VideoBuffer { return s.vbuf }

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func newTestMaster(t *testing.T, fw radio.Firmware, cubes ...radio.Peripheral) *Master {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Firmware = fw
	cfg.Cubes = cubes
	cfg.Sync = cubesync.New(0)
	cfg.Clock = simclock.New(1000)

	m, err := New(cfg)
	require.NoError(t, err)
	return m
}

func transact(t *testing.T, m *Master) {
	t.Helper()
	require.NoError(t, m.doRadioPacket(context.Background()))
}
