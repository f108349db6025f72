package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSlogAdapterAttempt(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := NewSlogAdapter(logger)

	adapter.Log(attemptEvent("run-1", 3*time.Millisecond, 4, ReportAckWithPacket))

	output := buf.String()
	for _, want := range []string{
		"level=DEBUG",
		"msg=trace",
		"sim_time=3ms",
		"run_id=run-1",
		"category=RADIO",
		"dest=02/0000000004",
		"tx=1234",
		"cube=4",
		"reply=01",
		"report=ACK_PACKET",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestSlogAdapterStateAndInstall(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := NewSlogAdapter(logger)

	adapter.Log(Event{
		Category:    CategoryState,
		StateChange: &StateChangeEvent{OldState: "IDLE", NewState: "RUNNING", Reason: "start"},
	})
	adapter.Log(Event{
		Category: CategoryFlash,
		Install:  &InstallEvent{Path: "game.img", Bytes: 10, Error: "boom"},
	})

	output := buf.String()
	for _, want := range []string{
		"old_state=IDLE", "new_state=RUNNING", "reason=start",
		"path=game.img", "bytes=10", "error=boom",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestSlogAdapterFilteredByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	NewSlogAdapter(logger).Log(attemptEvent("run-1", 0, 1, ReportNone))

	if buf.Len() != 0 {
		t.Errorf("expected no output at info level, got: %s", buf.String())
	}
}
