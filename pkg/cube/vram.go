package cube

import (
	"encoding/binary"
	"math/bits"
)

// VRAM geometry.
const (
	// VRAMSize is the size of a cube's video memory in bytes.
	VRAMSize = 1024

	// VRAMWords is the number of 16-bit words in video memory.
	VRAMWords = VRAMSize / 2

	// WriteSize is the encoded size of one VRAM word write.
	WriteSize = 4
)

// VideoBuffer is the master-side mirror of one cube's VRAM together with
// the change bits still waiting to be sent.
//
// CM1 has one bit per VRAM word; CM16 has one bit per CM1 word. Both are
// zero when every change has been acknowledged by the cube.
type VideoBuffer struct {
	CM16 uint32
	CM1  [VRAMWords / 32]uint32
	VRAM [VRAMSize]byte
}

// Poke stores val at word and marks it as changed.
func (vb *VideoBuffer) Poke(word uint16, val uint16) {
	word %= VRAMWords
	binary.LittleEndian.PutUint16(vb.VRAM[2*word:], val)
	vb.Mark(word)
}

// Peek returns the value of word.
func (vb *VideoBuffer) Peek(word uint16) uint16 {
	word %= VRAMWords
	return binary.LittleEndian.Uint16(vb.VRAM[2*word:])
}

// Mark flags word as changed.
func (vb *VideoBuffer) Mark(word uint16) {
	word %= VRAMWords
	vb.CM1[word>>5] |= 1 << (word & 31)
	vb.CM16 |= 1 << (word >> 5)
}

// Pending reports whether any change bit is set.
func (vb *VideoBuffer) Pending() bool {
	if vb.CM16 != 0 {
		return true
	}
	for _, w := range vb.CM1 {
		if w != 0 {
			return true
		}
	}
	return false
}

// TakeChanges clears and returns up to max changed word indices, lowest first.
func (vb *VideoBuffer) TakeChanges(max int) []uint16 {
	var out []uint16
	for vb.CM16 != 0 && len(out) < max {
		i := bits.TrailingZeros32(vb.CM16)
		for vb.CM1[i] != 0 && len(out) < max {
			b := bits.TrailingZeros32(vb.CM1[i])
			vb.CM1[i] &^= 1 << b
			out = append(out, uint16(i<<5|b))
		}
		if vb.CM1[i] == 0 {
			vb.CM16 &^= 1 << i
		}
	}
	return out
}

// AppendWrite encodes a VRAM word write: index then value, both little endian.
func AppendWrite(dst []byte, word uint16, val uint16) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, word)
	return binary.LittleEndian.AppendUint16(dst, val)
}

// DecodeWrites calls fn for every complete write in p. Trailing bytes that
// do not form a full write are ignored.
func DecodeWrites(p []byte, fn func(word uint16, val uint16)) {
	for len(p) >= WriteSize {
		fn(binary.LittleEndian.Uint16(p), binary.LittleEndian.Uint16(p[2:]))
		p = p[WriteSize:]
	}
}
