package log

import (
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter specifies criteria for filtering trace events.
// Empty/nil fields match all events for that criterion.
type Filter struct {
	// RunID filters by exact run ID match.
	RunID string

	// Category filters by event category.
	Category *Category

	// Cube filters radio attempts by resolved cube index.
	Cube *int

	// Dest filters radio attempts by packed destination address.
	Dest *uint64

	// Report filters radio attempts by transaction report.
	Report *Report

	// TimeStart filters events at or after this simulated time.
	TimeStart *time.Duration

	// TimeEnd filters events before this simulated time.
	TimeEnd *time.Duration
}

// Matches returns true if the event matches all filter criteria.
func (f *Filter) Matches(event Event) bool {
	if f.RunID != "" && event.RunID != f.RunID {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.TimeStart != nil && event.Time < *f.TimeStart {
		return false
	}
	if f.TimeEnd != nil && event.Time >= *f.TimeEnd {
		return false
	}

	if f.Cube == nil && f.Dest == nil && f.Report == nil {
		return true
	}

	// Attempt-specific criteria exclude every other event type.
	at := event.Attempt
	if at == nil {
		return false
	}
	if f.Cube != nil && (at.Cube == nil || *at.Cube != *f.Cube) {
		return false
	}
	if f.Dest != nil && at.Dest != *f.Dest {
		return false
	}
	if f.Report != nil && at.Report != *f.Report {
		return false
	}
	return true
}

// Reader reads trace events from a CBOR-encoded file.
// It provides an iterator interface for streaming large files.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader creates a Reader that reads all events from the specified trace file.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader creates a Reader that reads events matching the filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next event that matches the filter.
// Returns io.EOF when no more events are available.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if err == io.EOF {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if err := validateEvent(event); err != nil {
			return Event{}, err
		}

		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
