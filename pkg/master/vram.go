package master

import (
	"fmt"

	"github.com/cubesim/cubesim-go/pkg/cube"
)

// CheckQuiescentVRAM asserts that slot's video buffer has nothing left to
// send and matches the paired cube's VRAM byte for byte.
//
// Only call it at points where no packet is in flight. Every mismatch is
// logged before the check panics. Slots without a buffer or without a
// reachable cube are skipped.
func (m *Master) CheckQuiescentVRAM(slot VideoSlot) {
	vbuf := slot.VideoBuffer()
	if vbuf == nil {
		return
	}
	c := m.CubeForSlot(slot)
	if c == nil {
		return
	}
	src, ok := c.(VRAMSource)
	if !ok {
		return
	}
	hw := src.VRAM()

	errs := 0
	if vbuf.CM16 != 0 {
		m.errorLog(fmt.Sprintf("VRAM[%d]: Changes still present in cm16, 0x%08x", slot.ID(), vbuf.CM16))
		errs++
	}
	for i, w := range vbuf.CM1 {
		if w != 0 {
			m.errorLog(fmt.Sprintf("VRAM[%d]: Changes still present in cm1[%d], 0x%08x", slot.ID(), i, w))
			errs++
		}
	}
	for i := 0; i < cube.VRAMSize; i++ {
		var b byte
		if i < len(hw) {
			b = hw[i]
		}
		if b != vbuf.VRAM[i] {
			m.errorLog(fmt.Sprintf("VRAM[%d]: Mismatch at 0x%03x, hw=%02x buf=%02x", slot.ID(), i, b, vbuf.VRAM[i]))
			errs++
		}
	}

	if errs > 0 {
		panic(fmt.Sprintf("master: VRAM[%d]: %d total errors", slot.ID(), errs))
	}
	m.debugLog(fmt.Sprintf("VRAM[%d]: okay!", slot.ID()))
}
