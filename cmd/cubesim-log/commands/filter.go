package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/cubesim/cubesim-go/pkg/log"
)

// FilterOptions specifies filtering criteria for the filter command.
type FilterOptions struct {
	Output    string
	RunID     string
	Category  string
	Cube      string
	Dest      string
	Report    string
	TimeStart string
	TimeEnd   string
}

// BuildFilter converts command-line filter options into a log.Filter.
func BuildFilter(opts FilterOptions) (log.Filter, error) {
	filter := log.Filter{RunID: opts.RunID}

	if opts.Category != "" {
		c, err := parseCategory(opts.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}

	if opts.Cube != "" {
		n, err := ParseCubeFlag(opts.Cube)
		if err != nil {
			return filter, err
		}
		filter.Cube = &n
	}

	if opts.Dest != "" {
		d, err := ParseDestFlag(opts.Dest)
		if err != nil {
			return filter, err
		}
		filter.Dest = &d
	}

	if opts.Report != "" {
		r, err := parseReport(opts.Report)
		if err != nil {
			return filter, err
		}
		filter.Report = &r
	}

	if opts.TimeStart != "" {
		d, err := time.ParseDuration(opts.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start: %w", err)
		}
		filter.TimeStart = &d
	}

	if opts.TimeEnd != "" {
		d, err := time.ParseDuration(opts.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end: %w", err)
		}
		filter.TimeEnd = &d
	}

	return filter, nil
}

// RunFilter filters the log file and writes matching events to a new file.
// It returns the number of events written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter, err := BuildFilter(opts)
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			written, _ := logger.Counts()
			return int(written), fmt.Errorf("failed to read event: %w", err)
		}
		logger.Log(event)
	}

	if err := logger.Close(); err != nil {
		return 0, fmt.Errorf("failed to write output: %w", err)
	}
	written, _ := logger.Counts()
	return int(written), nil
}
