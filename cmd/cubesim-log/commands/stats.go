package commands

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/cubesim/cubesim-go/pkg/log"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents      int
	EventsByCategory map[log.Category]int
	Reports          map[log.Report]int
	Attempts         int
	Retries          int
	Cubes            map[int]*CubeStats
	Unresolved       int
	Runs             map[string]*RunSummary
	Installs         int
	InstallFailures  int
	TimeRange        struct {
		Start time.Duration
		End   time.Duration
	}
}

// CubeStats holds radio statistics for a single cube.
type CubeStats struct {
	Attempts int
	Acks     int
	Timeouts int
}

// RunSummary holds statistics for a single master run.
type RunSummary struct {
	FirstSeen time.Duration
	LastSeen  time.Duration
	Events    int
	order     int
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := collectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func collectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory: make(map[log.Category]int),
		Reports:          make(map[log.Report]int),
		Cubes:            make(map[int]*CubeStats),
		Runs:             make(map[string]*RunSummary),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		if stats.TotalEvents == 0 || event.Time < stats.TimeRange.Start {
			stats.TimeRange.Start = event.Time
		}
		if event.Time > stats.TimeRange.End {
			stats.TimeRange.End = event.Time
		}
		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++

		run, ok := stats.Runs[event.RunID]
		if !ok {
			run = &RunSummary{FirstSeen: event.Time, LastSeen: event.Time, order: len(stats.Runs)}
			stats.Runs[event.RunID] = run
		}
		run.Events++
		run.FirstSeen = min(run.FirstSeen, event.Time)
		run.LastSeen = max(run.LastSeen, event.Time)

		switch {
		case event.Attempt != nil:
			countAttempt(stats, event.Attempt)
		case event.Install != nil:
			stats.Installs++
			if event.Install.Error != "" {
				stats.InstallFailures++
			}
		}
	}

	return stats, nil
}

func countAttempt(stats *Stats, at *log.AttemptEvent) {
	stats.Attempts++
	if at.Retry > 0 {
		stats.Retries++
	}
	if at.Report != log.ReportNone {
		stats.Reports[at.Report]++
	}

	if at.Cube == nil {
		stats.Unresolved++
		return
	}
	cs, ok := stats.Cubes[*at.Cube]
	if !ok {
		cs = &CubeStats{}
		stats.Cubes[*at.Cube] = cs
	}
	cs.Attempts++
	if at.Ack {
		cs.Acks++
	}
	if at.Report == log.ReportTimeout {
		cs.Timeouts++
	}
}

// Transactions returns the number of transactions that reported an outcome.
func (s *Stats) Transactions() int {
	n := 0
	for _, c := range s.Reports {
		n += c
	}
	return n
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== cubesim Radio Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			formatDuration(stats.TimeRange.Start), formatDuration(stats.TimeRange.End))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryRadio, log.CategoryState, log.CategoryFlash} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Attempts:     %d (%d retries)\n", stats.Attempts, stats.Retries)
	fmt.Fprintf(w, "Transactions: %d\n", stats.Transactions())
	for _, r := range []log.Report{log.ReportAckWithPacket, log.ReportAckEmpty, log.ReportTimeout} {
		if count := stats.Reports[r]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", r.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Cubes) > 0 || stats.Unresolved > 0 {
		fmt.Fprintln(w, "Cubes:")
		ids := make([]int, 0, len(stats.Cubes))
		for id := range stats.Cubes {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			cs := stats.Cubes[id]
			fmt.Fprintf(w, "  [%2d] %d attempts, %d acks, %d timeouts\n", id, cs.Attempts, cs.Acks, cs.Timeouts)
		}
		if stats.Unresolved > 0 {
			fmt.Fprintf(w, "  [--] %d attempts to unknown addresses\n", stats.Unresolved)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Runs: %d\n", len(stats.Runs))
	if len(stats.Runs) > 0 {
		ids := make([]string, 0, len(stats.Runs))
		for id := range stats.Runs {
			ids = append(ids, id)
		}
		slices.SortFunc(ids, func(a, b string) int {
			return stats.Runs[a].order - stats.Runs[b].order
		})

		fmt.Fprintln(w)
		for _, id := range ids {
			rs := stats.Runs[id]
			fmt.Fprintf(w, "  [%s] %d events, %s to %s\n", shortenRunID(id), rs.Events,
				formatDuration(rs.FirstSeen), formatDuration(rs.LastSeen))
		}
	}

	if stats.Installs > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Installs: %d (%d failed)\n", stats.Installs, stats.InstallFailures)
	}
}
