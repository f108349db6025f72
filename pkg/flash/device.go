package flash

import (
	"errors"
	"fmt"
	"sync"
)

// Flash geometry.
const (
	// DefaultCapacity is the size of the master's external flash.
	DefaultCapacity = 16 << 20

	// ErasedByte is the value of every byte after ChipErase.
	ErasedByte = 0xFF
)

// Flash errors.
var (
	ErrOutOfRange    = errors.New("flash: address out of range")
	ErrInvalidSize   = errors.New("flash: invalid capacity")
	ErrImageMismatch = errors.New("flash: store file size does not match capacity")
)

// Reader reads bytes from a flash device.
type Reader interface {
	Read(addr uint32, p []byte) error
}

// MemDevice is an in-memory flash array. It is safe for concurrent use.
type MemDevice struct {
	mu   sync.RWMutex
	data []byte

	// Counters
	erases uint64
	writes uint64
}

// NewMemDevice creates an erased device of the given capacity in bytes.
func NewMemDevice(capacity int) (*MemDevice, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, capacity)
	}
	d := &MemDevice{data: make([]byte, capacity)}
	fill(d.data, ErasedByte)
	return d, nil
}

// Capacity returns the size of the device in bytes.
func (d *MemDevice) Capacity() int {
	return len(d.data)
}

// ChipErase sets every byte of the device to ErasedByte.
func (d *MemDevice) ChipErase() {
	d.mu.Lock()
	defer d.mu.Unlock()

	fill(d.data, ErasedByte)
	d.erases++
}

// Write programs p at addr. Programming can only clear bits, so writing
// over data that was not erased ANDs the old and new values.
func (d *MemDevice) Write(addr uint32, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkRange(addr, len(p)); err != nil {
		return err
	}

	dst := d.data[addr:]
	for i, b := range p {
		dst[i] &= b
	}
	d.writes++
	return nil
}

// Read copies len(p) bytes starting at addr into p.
func (d *MemDevice) Read(addr uint32, p []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.checkRange(addr, len(p)); err != nil {
		return err
	}
	copy(p, d.data[addr:])
	return nil
}

// Erases returns the number of chip erases performed.
func (d *MemDevice) Erases() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.erases
}

// Writes returns the number of successful writes performed.
func (d *MemDevice) Writes() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.writes
}

func (d *MemDevice) checkRange(addr uint32, n int) error {
	if uint64(addr)+uint64(n) > uint64(len(d.data)) {
		return fmt.Errorf("%w: [0x%x, 0x%x) exceeds capacity 0x%x",
			ErrOutOfRange, addr, uint64(addr)+uint64(n), len(d.data))
	}
	return nil
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
