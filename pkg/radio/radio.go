// Package radio defines the simulated radio link between the master and
// the cubes: addresses, packets, and the interfaces of both ends.
package radio

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PayloadMax is the largest radio payload in bytes.
const PayloadMax = 32

// PackedNone is never the packed form of a valid address. A cube without a
// radio address reports it.
const PackedNone = ^uint64(0)

// Radio errors.
var (
	ErrPayloadTooLong = errors.New("radio: payload too long")
	ErrInvalidAddress = errors.New("radio: invalid address")
)

// Address identifies a cube's receiver: an RF channel plus a 5-byte
// device ID, least significant byte first.
type Address struct {
	Channel uint8
	ID      [5]byte
}

// Pack returns the bit-compacted form used for address comparison.
func (a *Address) Pack() uint64 {
	return uint64(a.Channel)<<40 |
		uint64(a.ID[4])<<32 |
		uint64(a.ID[3])<<24 |
		uint64(a.ID[2])<<16 |
		uint64(a.ID[1])<<8 |
		uint64(a.ID[0])
}

// Unpack is the inverse of Pack.
func Unpack(packed uint64) Address {
	return Address{
		Channel: uint8(packed >> 40),
		ID: [5]byte{
			byte(packed),
			byte(packed >> 8),
			byte(packed >> 16),
			byte(packed >> 24),
			byte(packed >> 32),
		},
	}
}

// String formats the address as channel/id, most significant ID byte first.
func (a Address) String() string {
	return fmt.Sprintf("%02d/%02x%02x%02x%02x%02x",
		a.Channel, a.ID[4], a.ID[3], a.ID[2], a.ID[1], a.ID[0])
}

// ParseAddress parses the String form of an address.
func ParseAddress(s string) (Address, error) {
	ch, id, ok := strings.Cut(s, "/")
	if !ok {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	channel, err := strconv.ParseUint(ch, 10, 8)
	if err != nil {
		return Address{}, fmt.Errorf("%w: channel %q", ErrInvalidAddress, ch)
	}
	raw, err := hex.DecodeString(id)
	if err != nil || len(raw) != 5 {
		return Address{}, fmt.Errorf("%w: id %q", ErrInvalidAddress, id)
	}

	a := Address{Channel: uint8(channel)}
	for i, b := range raw {
		a.ID[4-i] = b
	}
	return a, nil
}

// Packet is a length-prefixed radio payload.
type Packet struct {
	Len     uint8
	Payload [PayloadMax]byte
}

// Bytes returns the valid part of the payload.
func (p *Packet) Bytes() []byte {
	return p.Payload[:p.Len]
}

// SetBytes replaces the payload with b.
func (p *Packet) SetBytes(b []byte) error {
	if len(b) > PayloadMax {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(b))
	}
	p.Len = uint8(copy(p.Payload[:], b))
	return nil
}

// Append adds b to the end of the payload.
func (p *Packet) Append(b ...byte) error {
	if int(p.Len)+len(b) > PayloadMax {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, int(p.Len)+len(b))
	}
	p.Len += uint8(copy(p.Payload[p.Len:], b))
	return nil
}

// Free returns the number of payload bytes still available.
func (p *Packet) Free() int {
	return PayloadMax - int(p.Len)
}

// Transmission is an outgoing packet and its destination.
type Transmission struct {
	Dest   *Address
	Packet Packet
}

// Firmware is the protocol-consuming layer on the master side.
//
// The driver pulls one packet per transaction with Produce and then calls
// exactly one of AckWithPacket, AckEmpty or Timeout. All calls happen on the
// master goroutine.
type Firmware interface {
	// Produce fills in the next packet to send. Dest must be set.
	Produce(tx *Transmission)

	// AckWithPacket reports an acknowledgment carrying reply data.
	// The slice is only valid for the duration of the call.
	AckWithPacket(reply []byte)

	// AckEmpty reports an acknowledgment with no reply data.
	AckEmpty()

	// Timeout reports that no acknowledgment arrived within the retry bound.
	Timeout()
}

// Peripheral is the radio end of one simulated cube.
//
// The master only calls these methods while a rendezvous event is open.
type Peripheral interface {
	// ID returns the cube's index in the simulated system.
	ID() int

	// PackedRXAddr returns the packed receive address, or PackedNone.
	PackedRXAddr() uint64

	// HandlePacket delivers pkt. It returns true if the cube acknowledges,
	// with any reply payload written to reply.
	HandlePacket(pkt Packet, reply *Packet) bool
}
