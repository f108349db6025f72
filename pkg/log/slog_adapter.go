package log

import (
	"context"
	"encoding/hex"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger.
// Useful for development when you want trace events in the operational log.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.Duration("sim_time", event.Time),
		slog.Uint64("ticks", event.Ticks),
		slog.String("run_id", event.RunID),
		slog.String("category", event.Category.String()),
	}

	switch {
	case event.Attempt != nil:
		at := event.Attempt
		attrs = append(attrs,
			slog.String("dest", at.Address().String()),
			slog.Int("tx_len", len(at.TX)),
			slog.String("tx", hex.EncodeToString(at.TX)),
			slog.Bool("ack", at.Ack),
			slog.Int("retry", int(at.Retry)),
		)
		if at.Cube != nil {
			attrs = append(attrs, slog.Int("cube", *at.Cube))
		}
		if at.Ack {
			attrs = append(attrs, slog.String("reply", hex.EncodeToString(at.Reply)))
		}
		if at.Report != ReportNone {
			attrs = append(attrs, slog.String("report", at.Report.String()))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Install != nil:
		attrs = append(attrs,
			slog.String("path", event.Install.Path),
			slog.Int("bytes", event.Install.Bytes),
		)
		if event.Install.Digest != "" {
			attrs = append(attrs, slog.String("digest", event.Install.Digest))
		}
		if event.Install.Error != "" {
			attrs = append(attrs, slog.String("error", event.Install.Error))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
