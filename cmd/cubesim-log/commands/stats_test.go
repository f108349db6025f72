package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/cubesim/cubesim-go/pkg/log"
)

func TestStatsCountsAttempts(t *testing.T) {
	events := []log.Event{
		stateEvent("run-1", 0, "IDLE", "RUNNING"),
		attempt("run-1", time.Millisecond, 0, 0, true, log.ReportAckWithPacket),
		attempt("run-1", 2*time.Millisecond, 1, 0, false, log.ReportNone),
		attempt("run-1", 2*time.Millisecond, 1, 1, true, log.ReportAckEmpty),
		attempt("run-1", 3*time.Millisecond, -1, 0, false, log.ReportNone),
		attempt("run-1", 3*time.Millisecond, -1, 1, false, log.ReportNone),
		attempt("run-1", 3*time.Millisecond, -1, 2, false, log.ReportTimeout),
	}
	path := createTestLogFile(t, events)

	stats, err := collectStats(path)
	if err != nil {
		t.Fatalf("collectStats failed: %v", err)
	}

	if stats.TotalEvents != 7 {
		t.Errorf("TotalEvents = %d, want 7", stats.TotalEvents)
	}
	if stats.Attempts != 6 || stats.Retries != 3 {
		t.Errorf("Attempts/Retries = %d/%d, want 6/3", stats.Attempts, stats.Retries)
	}
	if stats.Transactions() != 3 {
		t.Errorf("Transactions = %d, want 3", stats.Transactions())
	}
	if stats.Unresolved != 3 {
		t.Errorf("Unresolved = %d, want 3", stats.Unresolved)
	}
	if cs := stats.Cubes[1]; cs == nil || cs.Attempts != 2 || cs.Acks != 1 {
		t.Errorf("cube 1 stats = %+v", cs)
	}
	if stats.TimeRange.End != 3*time.Millisecond {
		t.Errorf("TimeRange.End = %v", stats.TimeRange.End)
	}
}

func TestStatsOutput(t *testing.T) {
	events := []log.Event{
		stateEvent("aaaaaaaa-run-1", 0, "IDLE", "RUNNING"),
		attempt("aaaaaaaa-run-1", time.Millisecond, 2, 0, true, log.ReportAckEmpty),
		stateEvent("bbbbbbbb-run-2", 5*time.Millisecond, "EXITED", "RUNNING"),
		{
			Time:     6 * time.Millisecond,
			RunID:    "bbbbbbbb-run-2",
			Category: log.CategoryFlash,
			Install:  &log.InstallEvent{Path: "x.img", Error: "boom"},
		},
	}
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Total Events: 4",
		"RADIO:       1",
		"STATE:       2",
		"FLASH:       1",
		"ACK_EMPTY:   1",
		"[ 2] 1 attempts, 1 acks, 0 timeouts",
		"Runs: 2",
		"Installs: 1 (1 failed)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}

	// Runs are listed in order of appearance.
	if strings.Index(output, "[aaaaaaaa]") > strings.Index(output, "[bbbbbbbb]") {
		t.Errorf("runs out of order:\n%s", output)
	}
}

func TestStatsEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
