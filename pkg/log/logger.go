package log

// Logger is the interface applications implement to receive trace events.
// Pass nil or NoopLogger to disable tracing.
type Logger interface {
	// Log records a trace event. Implementations must be thread-safe.
	// It runs on the master goroutine between rendezvous windows, so a slow
	// Log stretches wall time but never simulated time.
	Log(event Event)
}

// LoggerFunc adapts an ordinary function to the Logger interface.
type LoggerFunc func(Event)

// Log calls f(event).
func (f LoggerFunc) Log(event Event) { f(event) }

// Only returns a Logger that forwards events of the given categories to l
// and discards the rest.
func Only(l Logger, categories ...Category) Logger {
	if l == nil || len(categories) == 0 {
		return NoopLogger{}
	}
	var mask uint8
	for _, c := range categories {
		mask |= 1 << c
	}
	return LoggerFunc(func(e Event) {
		if mask&(1<<e.Category) != 0 {
			l.Log(e)
		}
	})
}

// NoopLogger discards all events. Use when tracing is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction checks.
var (
	_ Logger = NoopLogger{}
	_ Logger = LoggerFunc(nil)
)
