package log

import (
	"sync"
	"testing"
	"time"
)

// mockLogger records events for testing
type mockLogger struct {
	mu     sync.Mutex
	events []Event
}

func (m *mockLogger) Log(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func TestMultiLoggerCallsAll(t *testing.T) {
	mock1 := &mockLogger{}
	mock2 := &mockLogger{}
	mock3 := &mockLogger{}

	multi := NewMultiLogger(mock1, mock2, mock3)
	multi.Log(attemptEvent("run-123", time.Millisecond, 0, ReportAckEmpty))

	for i, mock := range []*mockLogger{mock1, mock2, mock3} {
		if len(mock.events) != 1 {
			t.Errorf("logger %d: got %d events, want 1", i, len(mock.events))
			continue
		}
		if mock.events[0].RunID != "run-123" {
			t.Errorf("logger %d: RunID = %q, want %q", i, mock.events[0].RunID, "run-123")
		}
	}
}

func TestMultiLoggerEmptyList(t *testing.T) {
	multi := NewMultiLogger()

	// Should not panic with empty logger list
	multi.Log(attemptEvent("run", 0, 0, ReportTimeout))
}

func TestMultiLoggerSkipsNil(t *testing.T) {
	mock := &mockLogger{}
	multi := NewMultiLogger(nil, mock, nil)

	multi.Log(attemptEvent("run", 0, 0, ReportTimeout))

	if len(mock.events) != 1 {
		t.Errorf("got %d events, want 1", len(mock.events))
	}
}

func TestNoopLoggerDiscards(t *testing.T) {
	var l Logger = NoopLogger{}
	l.Log(attemptEvent("run", 0, 0, ReportTimeout))
}

func TestMultiLoggerFlattens(t *testing.T) {
	mock1 := &mockLogger{}
	mock2 := &mockLogger{}

	inner := NewMultiLogger(mock1, NoopLogger{})
	multi := NewMultiLogger(inner, nil, mock2, &NoopLogger{})

	if multi.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", multi.Len())
	}
	multi.Log(attemptEvent("run", 0, 0, ReportAckEmpty))
	if len(mock1.events) != 1 || len(mock2.events) != 1 {
		t.Errorf("got %d and %d events, want 1 each", len(mock1.events), len(mock2.events))
	}
}

func TestOnlyFiltersCategories(t *testing.T) {
	var got []Category
	l := Only(LoggerFunc(func(e Event) { got = append(got, e.Category) }), CategoryRadio, CategoryFlash)

	l.Log(attemptEvent("run", 0, 0, ReportAckEmpty))
	l.Log(Event{Category: CategoryState, StateChange: &StateChangeEvent{NewState: "RUNNING"}})
	l.Log(Event{Category: CategoryFlash, Install: &InstallEvent{Path: "fw.bin"}})

	if len(got) != 2 || got[0] != CategoryRadio || got[1] != CategoryFlash {
		t.Errorf("forwarded categories = %v, want [RADIO FLASH]", got)
	}
}

func TestOnlyWithoutCategoriesDiscards(t *testing.T) {
	mock := &mockLogger{}
	Only(mock).Log(attemptEvent("run", 0, 0, ReportAckEmpty))
	if len(mock.events) != 0 {
		t.Errorf("got %d events, want 0", len(mock.events))
	}
	if _, ok := Only(nil, CategoryRadio).(NoopLogger); !ok {
		t.Error("Only(nil) should return a NoopLogger")
	}
}
