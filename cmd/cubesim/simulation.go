package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/cubesim/cubesim-go/cmd/cubesim/interactive"
	"github.com/cubesim/cubesim-go/pkg/config"
	"github.com/cubesim/cubesim-go/pkg/cube"
	"github.com/cubesim/cubesim-go/pkg/cubesync"
	"github.com/cubesim/cubesim-go/pkg/examples"
	"github.com/cubesim/cubesim-go/pkg/flash"
	"github.com/cubesim/cubesim-go/pkg/log"
	"github.com/cubesim/cubesim-go/pkg/master"
	"github.com/cubesim/cubesim-go/pkg/radio"
)

// simulation owns every component of a running simulator.
type simulation struct {
	cfg    *config.Config
	logger *slog.Logger

	rendezvous *cubesync.Sync
	cubes      []*cube.Cube
	fw         *examples.VRAMSync
	pattern    *examples.PatternTask
	flash      *flash.MemDevice
	cache      *flash.BlockCache
	master     *master.Master
	traceFile  *log.FileLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// newSimulation builds the simulator described by cfg. Trace text goes to
// traceOut; CBOR trace events go to cfg.TraceFile when set.
func newSimulation(cfg *config.Config, logger *slog.Logger, traceOut io.Writer) (*simulation, error) {
	sim := &simulation{
		cfg:        cfg,
		logger:     logger,
		rendezvous: cubesync.New(0),
	}

	dev, err := flash.NewMemDevice(cfg.FlashSize)
	if err != nil {
		return nil, fmt.Errorf("create flash: %w", err)
	}
	if cfg.FlashFile != "" {
		loaded, err := dev.LoadFile(cfg.FlashFile)
		if err != nil {
			return nil, fmt.Errorf("load flash: %w", err)
		}
		if loaded {
			logger.Info("FLASH: loaded store file", "path", cfg.FlashFile)
		}
	}
	sim.flash = dev

	sim.cache, err = flash.NewBlockCache(dev, cfg.CacheBlocks)
	if err != nil {
		return nil, err
	}

	addrs := cfg.Addresses()
	peripherals := make([]radio.Peripheral, len(addrs))
	for i := range addrs {
		cc := cube.DefaultConfig(i)
		cc.Address = &addrs[i]
		cc.Logger = logger.With("cube", i)
		c := cube.New(cc)
		sim.cubes = append(sim.cubes, c)
		peripherals[i] = c
	}

	sim.fw = examples.NewVRAMSync(addrs, logger)
	sim.pattern = examples.NewPatternTask(sim.fw, cfg.Pattern.Seed, cfg.Pattern.PerFrame, cfg.Pattern.Writes)

	// At debug level trace events join the operational log as structured
	// records instead of RADIO lines. The master already logs its own
	// lifecycle, so the text trace leaves state events out.
	var trace []log.Logger
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		trace = append(trace, log.NewSlogAdapter(logger))
	} else {
		trace = append(trace, log.Only(log.NewTextLogger(traceOut), log.CategoryRadio, log.CategoryFlash))
	}
	if cfg.TraceFile != "" {
		sim.traceFile, err = log.NewFileLogger(cfg.TraceFile)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		trace = append(trace, sim.traceFile)
	}

	mc := cfg.Master()
	mc.Firmware = sim.fw
	mc.Cubes = peripherals
	mc.Sync = sim.rendezvous
	mc.Flash = dev
	mc.Cache = sim.cache
	mc.Runner = &examples.Game{Tasks: sim.pattern, Frames: cfg.Pattern.Frames}
	mc.Tasks = sim.pattern
	mc.TraceLogger = log.NewMultiLogger(trace...)
	mc.Logger = logger

	sim.master, err = master.New(mc)
	if err != nil {
		if sim.traceFile != nil {
			_ = sim.traceFile.Close()
		}
		return nil, err
	}
	return sim, nil
}

// start launches the cube goroutines and the master thread.
func (s *simulation) start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, c := range s.cubes {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := c.Run(ctx, s.rendezvous); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("cube stopped", "cube", c.ID(), "error", err)
			}
		}()
	}
	s.master.Start()
}

// close stops the master and the cubes, then saves the flash store and
// closes the trace file.
func (s *simulation) close() error {
	if s.master.Running() {
		s.master.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	var errs []error
	if _, err := s.saveFlash(); err != nil {
		errs = append(errs, err)
	}
	if s.traceFile != nil {
		written, dropped := s.traceFile.Counts()
		if err := s.traceFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trace file: %w", err))
		}
		s.logger.Info("TRACE: closed trace file", "path", s.cfg.TraceFile, "events", written, "dropped", dropped)
	}
	return errors.Join(errs...)
}

// Master implements interactive.Simulator.
func (s *simulation) Master() *master.Master { return s.master }

// Firmware implements interactive.Simulator.
func (s *simulation) Firmware() *examples.VRAMSync { return s.fw }

// Pattern implements interactive.Simulator.
func (s *simulation) Pattern() *examples.PatternTask { return s.pattern }

// Flash implements interactive.Simulator.
func (s *simulation) Flash() *flash.MemDevice { return s.flash }

// Cache implements interactive.Simulator.
func (s *simulation) Cache() *flash.BlockCache { return s.cache }

// Cubes implements interactive.Simulator.
func (s *simulation) Cubes() []*cube.Cube { return s.cubes }

// Logger implements interactive.Simulator.
func (s *simulation) Logger() *slog.Logger { return s.logger }

// SaveFlash implements interactive.Simulator.
func (s *simulation) SaveFlash() (string, error) { return s.saveFlash() }

func (s *simulation) saveFlash() (string, error) {
	if s.cfg.FlashFile == "" {
		return "", nil
	}
	if err := s.flash.SaveFile(s.cfg.FlashFile); err != nil {
		return "", fmt.Errorf("save flash: %w", err)
	}
	return s.cfg.FlashFile, nil
}

var _ interactive.Simulator = (*simulation)(nil)
