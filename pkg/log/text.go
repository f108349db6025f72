package log

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cubesim/cubesim-go/pkg/radio"
)

// Byte offsets inside an ACK reply where a new status field begins.
// The text format prints a '-' before each of them.
var ackSegments = map[int]bool{
	1:  true, // frame count
	4:  true, // accelerometer
	8:  true, // neighbors
	9:  true, // flash fifo
	11: true, // battery voltage
	19: true, // hardware id
}

// FormatAttempt renders a radio attempt as a single RADIO line, without the
// trailing newline. Non-radio events return false.
func FormatAttempt(event Event) (string, bool) {
	at := event.Attempt
	if at == nil {
		return "", false
	}
	addr := at.Address()

	var b strings.Builder
	fmt.Fprintf(&b, "RADIO: %6dms %02d/%02x%02x%02x%02x%02x -- TX[%2d] ",
		event.Time.Milliseconds(), addr.Channel,
		addr.ID[4], addr.ID[3], addr.ID[2], addr.ID[1], addr.ID[0],
		len(at.TX))

	// Nybbles low-first, padded to the full payload width.
	for i := 0; i < radio.PayloadMax; i++ {
		if i < len(at.TX) {
			fmt.Fprintf(&b, "%x%x", at.TX[i]&0xf, at.TX[i]>>4)
		} else {
			b.WriteString("  ")
		}
	}

	if !at.Ack {
		fmt.Fprintf(&b, " -- TIMEOUT, retry #%d", at.Retry)
		return b.String(), true
	}

	cube := -1
	if at.Cube != nil {
		cube = *at.Cube
	}
	fmt.Fprintf(&b, " -- Cube %d: ACK[%2d] ", cube, len(at.Reply))
	for i, v := range at.Reply {
		if ackSegments[i] {
			b.WriteByte('-')
		}
		fmt.Fprintf(&b, "%02x", v)
	}
	return b.String(), true
}

// TextLogger writes radio attempts in the human-readable RADIO format.
// State and flash events are written as short tagged lines.
type TextLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextLogger creates a TextLogger writing to w.
func NewTextLogger(w io.Writer) *TextLogger {
	return &TextLogger{w: w}
}

// Log writes one line for the event. Write errors are ignored.
func (l *TextLogger) Log(event Event) {
	line, ok := FormatAttempt(event)
	if !ok {
		line = formatOther(event)
	}
	if line == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.w, line+"\n")
}

func formatOther(event Event) string {
	switch {
	case event.StateChange != nil:
		sc := event.StateChange
		s := fmt.Sprintf("STATE: %6dms %s -> %s", event.Time.Milliseconds(), orDash(sc.OldState), sc.NewState)
		if sc.Reason != "" {
			s += " (" + sc.Reason + ")"
		}
		return s
	case event.Install != nil:
		in := event.Install
		if in.Error != "" {
			return fmt.Sprintf("FLASH: %6dms %s failed: %s", event.Time.Milliseconds(), in.Path, in.Error)
		}
		return fmt.Sprintf("FLASH: %6dms installed %s (%d bytes, blake2b %s)",
			event.Time.Milliseconds(), in.Path, in.Bytes, in.Digest)
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Compile-time interface satisfaction check.
var _ Logger = (*TextLogger)(nil)
