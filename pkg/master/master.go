package master

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cubesim/cubesim-go/pkg/cubesync"
	"github.com/cubesim/cubesim-go/pkg/log"
	"github.com/cubesim/cubesim-go/pkg/simclock"
)

// Master is the simulated master controller. It runs the firmware on a
// dedicated goroutine and drives the radio link to the cubes.
type Master struct {
	config Config
	clock  *simclock.Clock
	sync   *cubesync.Sync
	logger *slog.Logger
	trace  log.Logger

	traceRadio atomic.Bool

	// lifecycleMu serializes Start, Stop and InstallImage.
	lifecycleMu sync.Mutex
	thread      atomic.Pointer[thread]

	stats struct {
		transactions atomic.Uint64
		attempts     atomic.Uint64
		acks         atomic.Uint64
		emptyAcks    atomic.Uint64
		timeouts     atomic.Uint64
	}
}

// thread is the lifecycle of one master goroutine. A new one is created by
// every Start.
type thread struct {
	state  atomic.Uint32
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	runID  string
}

func (t *thread) load() ThreadState {
	return ThreadState(t.state.Load())
}

// New creates a master from config.
func New(config Config) (*Master, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Clock == nil {
		config.Clock = simclock.New(0)
	}

	m := &Master{
		config: config,
		clock:  config.Clock,
		sync:   config.Sync,
		logger: config.Logger,
		trace:  config.TraceLogger,
	}
	if m.trace == nil {
		m.trace = log.NoopLogger{}
	}
	m.traceRadio.Store(config.TraceRadio)
	return m, nil
}

// Start launches the master goroutine. Starting a running master panics.
func (m *Master) Start() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	m.start()
}

func (m *Master) start() {
	old := ThreadIdle
	if t := m.thread.Load(); t != nil {
		old = t.load()
		if old != ThreadExited {
			panic(fmt.Sprintf("master: Start while %s", old))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &thread{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		runID:  uuid.New().String(),
	}
	t.state.Store(uint32(ThreadRunning))
	m.thread.Store(t)

	m.infoLog("master: starting", "run_id", t.runID)
	m.traceState(t, old, ThreadRunning, "start")

	go m.run(t)
}

// Stop asks the master goroutine to exit and waits until it has. Stopping a
// master that is not running panics.
func (m *Master) Stop() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	m.stop()
}

func (m *Master) stop() {
	t := m.thread.Load()
	if t == nil || t.load() != ThreadRunning {
		state := ThreadIdle
		if t != nil {
			state = t.load()
		}
		panic(fmt.Sprintf("master: Stop while %s", state))
	}

	t.state.Store(uint32(ThreadStopRequested))
	m.traceState(t, ThreadRunning, ThreadStopRequested, "stop")
	t.cancel()
	m.sync.Wake()
	<-t.done
	m.infoLog("master: stopped", "run_id", t.runID, "ticks", m.clock.Now())
}

// State returns the lifecycle state of the current run.
func (m *Master) State() ThreadState {
	t := m.thread.Load()
	if t == nil {
		return ThreadIdle
	}
	return t.load()
}

// Running reports whether the master goroutine is executing.
func (m *Master) Running() bool {
	return m.State() == ThreadRunning
}

// RunID returns the ID of the current or last run, or "" before the first Start.
func (m *Master) RunID() string {
	if t := m.thread.Load(); t != nil {
		return t.runID
	}
	return ""
}

// Now returns the master clock.
func (m *Master) Now() simclock.Ticks {
	return m.clock.Now()
}

// SetTraceRadio switches per-attempt radio tracing.
func (m *Master) SetTraceRadio(on bool) {
	m.traceRadio.Store(on)
}

// TraceRadio reports whether radio tracing is on.
func (m *Master) TraceRadio() bool {
	return m.traceRadio.Load()
}

// Stats returns a snapshot of the transaction counters.
func (m *Master) Stats() Stats {
	return Stats{
		Transactions: m.stats.transactions.Load(),
		Attempts:     m.stats.attempts.Load(),
		Acks:         m.stats.acks.Load(),
		EmptyAcks:    m.stats.emptyAcks.Load(),
		Timeouts:     m.stats.timeouts.Load(),
	}
}

// run is the master goroutine's entry point.
func (m *Master) run(t *thread) {
	defer func() {
		prev := t.load()
		t.state.Store(uint32(ThreadExited))
		m.traceState(t, prev, ThreadExited, "")
		close(t.done)
	}()

	// Start shortly after the cubes come up, and never behind a bound
	// already published to them.
	start := max(m.clock.Now(), m.sync.Deadline()) + m.config.StartupDelay
	m.clock.Set(start)
	m.sync.Extend(start)
	m.debugLog("master: clock set", "ticks", start, "time", simclock.ToDuration(start))

	if m.config.Runner != nil {
		err := m.config.Runner.Run(t.ctx, m.halt)
		if errors.Is(err, ErrStopped) || t.ctx.Err() != nil {
			return
		}
		if err != nil {
			m.warnLog("master: firmware exited with error", "error", err)
		}
	}

	// Keep the cubes moving after the firmware returns.
	for {
		if m.config.Tasks != nil {
			m.config.Tasks.Work()
		}
		if err := m.halt(t.ctx); err != nil {
			return
		}
	}
}

// halt performs one radio transaction unless the master is stopping.
func (m *Master) halt(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStopped, err)
	}
	return m.doRadioPacket(ctx)
}

func (m *Master) traceState(t *thread, from, to ThreadState, reason string) {
	m.trace.Log(log.Event{
		Time:     m.clock.Elapsed(),
		Ticks:    uint64(m.clock.Now()),
		RunID:    t.runID,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})
}

func (m *Master) debugLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *Master) infoLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Info(msg, args...)
	}
}

func (m *Master) warnLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}

func (m *Master) errorLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Error(msg, args...)
	}
}
