package log

import (
	"time"

	"github.com/cubesim/cubesim-go/pkg/radio"
)

// Event represents a trace event recorded by the master.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Time is the simulated elapsed time when the event was recorded.
	Time time.Duration `cbor:"1,keyasint"`

	// Ticks is the master clock value when the event was recorded.
	Ticks uint64 `cbor:"2,keyasint"`

	// RunID identifies the master run (UUID, new for every Start).
	RunID string `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Type-specific payload (one of these will be set).
	Attempt     *AttemptEvent     `cbor:"10,keyasint,omitempty"` // Radio
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"` // State
	Install     *InstallEvent     `cbor:"12,keyasint,omitempty"` // Flash
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryRadio indicates a radio transmission attempt.
	CategoryRadio Category = 0
	// CategoryState indicates a master lifecycle transition.
	CategoryState Category = 1
	// CategoryFlash indicates a flash image installation.
	CategoryFlash Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryRadio:
		return "RADIO"
	case CategoryState:
		return "STATE"
	case CategoryFlash:
		return "FLASH"
	default:
		return "UNKNOWN"
	}
}

// Report is the outcome reported to the firmware for a transaction.
type Report uint8

const (
	// ReportNone means the attempt was not the last of its transaction.
	ReportNone Report = 0
	// ReportAckWithPacket means the cube acknowledged with reply data.
	ReportAckWithPacket Report = 1
	// ReportAckEmpty means the cube acknowledged without reply data.
	ReportAckEmpty Report = 2
	// ReportTimeout means the retry bound was exhausted.
	ReportTimeout Report = 3
)

// String returns the report name.
func (r Report) String() string {
	switch r {
	case ReportNone:
		return "NONE"
	case ReportAckWithPacket:
		return "ACK_PACKET"
	case ReportAckEmpty:
		return "ACK_EMPTY"
	case ReportTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// AttemptEvent captures one delivery attempt of a radio transaction.
type AttemptEvent struct {
	// Dest is the packed destination address.
	Dest uint64 `cbor:"1,keyasint"`

	// Cube is the index of the cube the address resolved to, if any.
	Cube *int `cbor:"2,keyasint,omitempty"`

	// TX is the transmitted payload.
	TX []byte `cbor:"3,keyasint,omitempty"`

	// Ack indicates the cube acknowledged.
	Ack bool `cbor:"4,keyasint,omitempty"`

	// Reply is the acknowledgment payload.
	Reply []byte `cbor:"5,keyasint,omitempty"`

	// Retry is the zero-based attempt number within the transaction.
	Retry uint8 `cbor:"6,keyasint"`

	// Report is set on the attempt that concluded the transaction.
	Report Report `cbor:"7,keyasint,omitempty"`
}

// Address returns the unpacked destination address.
func (a *AttemptEvent) Address() radio.Address {
	return radio.Unpack(a.Dest)
}

// StateChangeEvent captures a master lifecycle transition.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// InstallEvent captures the result of a flash image installation.
type InstallEvent struct {
	// Path is the image source.
	Path string `cbor:"1,keyasint"`

	// Bytes is the number of bytes written to flash.
	Bytes int `cbor:"2,keyasint"`

	// Digest is the hex BLAKE2b-256 digest of the written image.
	Digest string `cbor:"3,keyasint,omitempty"`

	// Error is the failure message, empty on success.
	Error string `cbor:"4,keyasint,omitempty"`
}
