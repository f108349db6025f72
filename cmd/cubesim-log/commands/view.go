// Package commands implements the cubesim-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cubesim/cubesim-go/pkg/log"
	"github.com/cubesim/cubesim-go/pkg/radio"
)

// formatEvent writes a multi-line representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: time [run:id] CATEGORY Type
	var typeLabel string
	switch {
	case event.Attempt != nil:
		typeLabel = fmt.Sprintf("Attempt #%d", event.Attempt.Retry)
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Install != nil:
		typeLabel = "Install"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%12s [run:%s] %-5s %s\n",
		formatDuration(event.Time), shortenRunID(event.RunID), event.Category, typeLabel)
	fmt.Fprintf(w, "  Ticks: %d\n", event.Ticks)

	switch {
	case event.Attempt != nil:
		formatAttemptDetails(w, event.Attempt)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Install != nil:
		formatInstallDetails(w, event.Install)
	}

	fmt.Fprintln(w)
}

// shortenRunID returns the first 8 characters of the run ID.
func shortenRunID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatAttemptDetails(w io.Writer, at *log.AttemptEvent) {
	fmt.Fprintf(w, "  Dest: %s", at.Address())
	if at.Cube != nil {
		fmt.Fprintf(w, " (cube %d)", *at.Cube)
	} else {
		fmt.Fprint(w, " (no cube)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  TX: %d bytes", len(at.TX))
	if len(at.TX) > 0 {
		fmt.Fprintf(w, " %s", hex.EncodeToString(at.TX))
	}
	fmt.Fprintln(w)
	if at.Ack {
		fmt.Fprintf(w, "  ACK: %d bytes", len(at.Reply))
		if len(at.Reply) > 0 {
			fmt.Fprintf(w, " %s", hex.EncodeToString(at.Reply))
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "  No ACK")
	}
	if at.Report != log.ReportNone {
		fmt.Fprintf(w, "  Report: %s\n", at.Report)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatInstallDetails(w io.Writer, in *log.InstallEvent) {
	fmt.Fprintf(w, "  Path: %s\n", in.Path)
	fmt.Fprintf(w, "  Bytes: %d\n", in.Bytes)
	if in.Digest != "" {
		fmt.Fprintf(w, "  BLAKE2b: %s\n", in.Digest)
	}
	if in.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", in.Error)
	}
}

// formatDuration formats a simulated time for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "radio":
		return log.CategoryRadio, nil
	case "state":
		return log.CategoryState, nil
	case "flash":
		return log.CategoryFlash, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be radio, state, or flash)", s)
	}
}

// ParseReportFlag parses a transaction report string from command-line flag.
func ParseReportFlag(s string) (log.Report, error) {
	return parseReport(s)
}

func parseReport(s string) (log.Report, error) {
	switch strings.ToLower(s) {
	case "none":
		return log.ReportNone, nil
	case "ack-packet", "ack_packet":
		return log.ReportAckWithPacket, nil
	case "ack-empty", "ack_empty":
		return log.ReportAckEmpty, nil
	case "timeout":
		return log.ReportTimeout, nil
	default:
		return 0, fmt.Errorf("invalid report: %s (must be none, ack-packet, ack-empty, or timeout)", s)
	}
}

// ParseCubeFlag parses a cube index.
func ParseCubeFlag(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid cube: %s", s)
	}
	return n, nil
}

// ParseDestFlag parses a destination address in channel/id form and
// returns its packed value.
func ParseDestFlag(s string) (uint64, error) {
	a, err := radio.ParseAddress(s)
	if err != nil {
		return 0, err
	}
	return a.Pack(), nil
}

// RunView executes the view command. With detail set, every event is
// printed on several lines; otherwise in the single-line trace format.
func RunView(path string, filter log.Filter, detail bool, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	text := log.NewTextLogger(output)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		if detail {
			formatEvent(output, event)
		} else {
			text.Log(event)
		}
	}

	return nil
}
