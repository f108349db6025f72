package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/cubesim/cubesim-go/pkg/log"
)

func TestFormatAttemptEvent(t *testing.T) {
	event := attempt("0123456789abcdef", 1500*time.Microsecond, 2, 1, true, log.ReportAckWithPacket)
	event.Ticks = 24000

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"1.500ms [run:01234567] RADIO Attempt #1",
		"Ticks: 24000",
		"Dest: 02/e7e7e7e702 (cube 2)",
		"TX: 2 bytes 1234",
		"ACK: 1 bytes 07",
		"Report: ACK_PACKET",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestFormatAttemptEventNoAck(t *testing.T) {
	event := attempt("run", 0, -1, 0, false, log.ReportNone)

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "(no cube)") {
		t.Errorf("expected unresolved cube, got:\n%s", output)
	}
	if !strings.Contains(output, "No ACK") {
		t.Errorf("expected No ACK, got:\n%s", output)
	}
	if strings.Contains(output, "Report:") {
		t.Errorf("intermediate attempt should not show a report, got:\n%s", output)
	}
}

func TestFormatStateAndInstallEvents(t *testing.T) {
	var buf bytes.Buffer
	sc := stateEvent("run", 2*time.Second, "", "RUNNING")
	sc.StateChange.Reason = "start"
	formatEvent(&buf, sc)
	formatEvent(&buf, log.Event{
		Category: log.CategoryFlash,
		Install:  &log.InstallEvent{Path: "game.img", Bytes: 1024, Digest: "abcd"},
	})
	output := buf.String()

	for _, want := range []string{
		"2.000s [run:run] STATE State",
		"  -> RUNNING",
		"Reason: start",
		"FLASH Install",
		"Path: game.img",
		"Bytes: 1024",
		"BLAKE2b: abcd",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "0.500us"},
		{1500 * time.Microsecond, "1.500ms"},
		{2500 * time.Millisecond, "2.500s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if c, err := ParseCategoryFlag("RADIO"); err != nil || c != log.CategoryRadio {
		t.Errorf("ParseCategoryFlag(RADIO) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("bogus"); err == nil {
		t.Error("expected error for bogus category")
	}
	if r, err := ParseReportFlag("ack-empty"); err != nil || r != log.ReportAckEmpty {
		t.Errorf("ParseReportFlag(ack-empty) = %v, %v", r, err)
	}
	if _, err := ParseReportFlag("maybe"); err == nil {
		t.Error("expected error for bogus report")
	}
	if _, err := ParseCubeFlag("-1"); err == nil {
		t.Error("expected error for negative cube")
	}
	if d, err := ParseDestFlag("02/e7e7e7e703"); err != nil || d != 0x02_e7_e7_e7_e7_03 {
		t.Errorf("ParseDestFlag = %x, %v", d, err)
	}
}

func TestRunViewText(t *testing.T) {
	events := []log.Event{
		stateEvent("run-1", 0, "IDLE", "RUNNING"),
		attempt("run-1", 12*time.Millisecond, 3, 0, false, log.ReportNone),
		attempt("run-1", 12*time.Millisecond, 3, 1, true, log.ReportAckWithPacket),
	}
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{}, false, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "STATE:") {
		t.Errorf("expected STATE line, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "RADIO:     12ms 02/e7e7e7e703 -- TX[ 2] 2143") {
		t.Errorf("unexpected RADIO line %q", lines[1])
	}
	if !strings.HasSuffix(lines[1], "-- TIMEOUT, retry #0") {
		t.Errorf("expected retry marker, got %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "-- Cube 3: ACK[ 1] 07") {
		t.Errorf("expected ACK, got %q", lines[2])
	}
}

func TestRunViewFiltered(t *testing.T) {
	events := []log.Event{
		stateEvent("run-1", 0, "IDLE", "RUNNING"),
		attempt("run-1", time.Millisecond, 1, 0, true, log.ReportAckEmpty),
		attempt("run-1", 2*time.Millisecond, 2, 0, true, log.ReportAckEmpty),
	}
	path := createTestLogFile(t, events)

	cube := 2
	var buf bytes.Buffer
	if err := RunView(path, log.Filter{Cube: &cube}, true, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()

	if strings.Count(output, "RADIO Attempt") != 1 {
		t.Errorf("expected exactly one attempt, got:\n%s", output)
	}
	if !strings.Contains(output, "(cube 2)") {
		t.Errorf("expected cube 2, got:\n%s", output)
	}
	if strings.Contains(output, "STATE") {
		t.Errorf("cube filter should drop state events, got:\n%s", output)
	}
}
