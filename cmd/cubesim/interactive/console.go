// Package interactive provides the interactive command-line interface
// for cubesim.
package interactive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/cubesim/cubesim-go/pkg/cube"
	"github.com/cubesim/cubesim-go/pkg/examples"
	"github.com/cubesim/cubesim-go/pkg/flash"
	"github.com/cubesim/cubesim-go/pkg/master"
	"github.com/cubesim/cubesim-go/pkg/simclock"
)

// Simulator gives the console access to the running simulation.
type Simulator interface {
	Master() *master.Master
	Firmware() *examples.VRAMSync
	Pattern() *examples.PatternTask
	Flash() *flash.MemDevice
	Cache() *flash.BlockCache
	Cubes() []*cube.Cube
	Logger() *slog.Logger

	// SaveFlash writes the flash store file. It returns the path written,
	// or "" if no store file is configured.
	SaveFlash() (string, error)
}

// Console handles interactive mode for cubesim.
type Console struct {
	rl  *readline.Instance
	w   io.Writer
	sim Simulator
}

// New creates a console. The readline instance is created immediately so
// log output can be routed through Stdout and Stderr before Run.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "cubesim> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, w: rl.Stdout()}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc, sim Simulator) {
	defer c.rl.Close()
	c.Attach(sim)

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out(), "Exiting...")
			cancel()
			return
		}

		if !c.Exec(line) {
			fmt.Fprintln(c.out(), "Exiting...")
			cancel()
			return
		}
	}
}

// Attach sets the simulation the console commands act on.
func (c *Console) Attach(sim Simulator) {
	c.sim = sim
}

// Exec runs one command line. It returns false when the line asks to quit.
func (c *Console) Exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "status", "s":
		c.cmdStatus()

	case "start":
		c.cmdStart()

	case "stop":
		c.cmdStop()

	case "install":
		c.cmdInstall(args)

	case "trace":
		c.cmdTrace(args)

	case "check":
		c.cmdCheck()

	case "vram":
		c.cmdVRAM(args)

	case "save":
		c.cmdSave()

	case "flash", "f":
		c.cmdFlash(args)

	case "quit", "exit", "q":
		return false

	default:
		fmt.Fprintf(c.out(), "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) out() io.Writer {
	return c.w
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out(), `
cubesim Commands:
  Master:
    status             - Show master, radio and flash status
    start              - Start the master thread
    stop               - Stop the master thread

  Radio:
    trace [on|off]     - Show or set per-attempt radio tracing

  Flash:
    install <path>     - Install an image (stops and restarts the master)
    flash <addr> [len] - Read flash through the block cache
    save               - Write the flash store file

  VRAM:
    check              - Compare every cube's VRAM with the firmware buffers
    vram <cube> [word] - Show a cube's VRAM words

  General:
    help               - Show this help
    quit               - Exit cubesim`)
}

// cmdStatus shows the simulator status.
func (c *Console) cmdStatus() {
	m := c.sim.Master()
	st := m.Stats()
	fw := c.sim.Firmware().Stats()
	cache := c.sim.Cache().Stats()

	w := c.out()
	fmt.Fprintln(w, "\nSimulator Status")
	fmt.Fprintln(w, "-------------------------------------------")
	fmt.Fprintf(w, "  Master:         %s\n", m.State())
	fmt.Fprintf(w, "  Run ID:         %s\n", orNone(m.RunID()))
	fmt.Fprintf(w, "  Sim Time:       %s (%d ticks)\n", simclock.ToDuration(m.Now()), m.Now())
	fmt.Fprintf(w, "  Radio Trace:    %s\n", onOff(m.TraceRadio()))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Transactions:   %d (%d attempts)\n", st.Transactions, st.Attempts)
	fmt.Fprintf(w, "  Acks:           %d with packet, %d empty\n", st.Acks, st.EmptyAcks)
	fmt.Fprintf(w, "  Timeouts:       %d\n", st.Timeouts)
	fmt.Fprintf(w, "  Firmware:       %d packets, %d pings, %d resent\n", fw.Packets, fw.Pings, fw.Resent)
	fmt.Fprintf(w, "  Pattern:        %d writes left\n", c.sim.Pattern().Remaining())
	fmt.Fprintln(w)
	for _, cb := range c.sim.Cubes() {
		fmt.Fprintf(w, "  Cube %-2d         %d frames, %d packets\n", cb.ID(), cb.Frames(), cb.Packets())
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Flash:          %d bytes, %d erases, %d writes\n",
		c.sim.Flash().Capacity(), c.sim.Flash().Erases(), c.sim.Flash().Writes())
	fmt.Fprintf(w, "  Block Cache:    %d hits, %d misses, %d invalidations\n",
		cache.Hits, cache.Misses, cache.Invalidations)
	fmt.Fprintln(w)
}

// cmdStart starts the master.
func (c *Console) cmdStart() {
	m := c.sim.Master()
	if m.Running() {
		fmt.Fprintln(c.out(), "Master already running")
		return
	}
	m.Start()
	fmt.Fprintf(c.out(), "Master started (run %s)\n", m.RunID())
}

// cmdStop stops the master.
func (c *Console) cmdStop() {
	m := c.sim.Master()
	if !m.Running() {
		fmt.Fprintln(c.out(), "Master not running")
		return
	}
	m.Stop()
	fmt.Fprintln(c.out(), "Master stopped")
}

// cmdInstall installs a flash image.
func (c *Console) cmdInstall(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out(), "Usage: install <path>")
		return
	}
	if err := c.sim.Master().InstallImage(args[0]); err != nil {
		fmt.Fprintf(c.out(), "Install failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out(), "Installed %s\n", args[0])
}

// cmdTrace shows or sets radio tracing.
func (c *Console) cmdTrace(args []string) {
	m := c.sim.Master()
	if len(args) == 0 {
		fmt.Fprintf(c.out(), "Radio trace: %s\n", onOff(m.TraceRadio()))
		return
	}
	switch strings.ToLower(args[0]) {
	case "on":
		m.SetTraceRadio(true)
	case "off":
		m.SetTraceRadio(false)
	default:
		fmt.Fprintln(c.out(), "Usage: trace [on|off]")
		return
	}
	fmt.Fprintf(c.out(), "Radio trace: %s\n", onOff(m.TraceRadio()))
}

// cmdCheck runs the quiescent VRAM check on every slot. The master must be
// stopped and the firmware idle, otherwise in-flight changes are reported
// as errors.
func (c *Console) cmdCheck() {
	m := c.sim.Master()
	if m.Running() {
		fmt.Fprintln(c.out(), "Stop the master first")
		return
	}

	failed := 0
	for _, slot := range c.sim.Firmware().VideoSlots() {
		if err := checkSlot(m, slot); err != nil {
			c.sim.Logger().Error("VRAM consistency check failed", "cube", slot.ID(), "error", err)
			fmt.Fprintf(c.out(), "  %v\n", err)
			failed++
		}
	}
	if failed == 0 {
		fmt.Fprintln(c.out(), "VRAM consistent")
		return
	}
	fmt.Fprintf(c.out(), "VRAM check failed for %d cube(s)\n", failed)
}

// checkSlot turns the check's panic into an error.
func checkSlot(m *master.Master, slot master.VideoSlot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	m.CheckQuiescentVRAM(slot)
	return nil
}

// cmdVRAM dumps VRAM words of one cube.
func (c *Console) cmdVRAM(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out(), "Usage: vram <cube> [word]")
		return
	}
	id, err := strconv.Atoi(args[0])
	cubes := c.sim.Cubes()
	if err != nil || id < 0 || id >= len(cubes) {
		fmt.Fprintf(c.out(), "Invalid cube: %s\n", args[0])
		return
	}

	start := 0
	if len(args) > 1 {
		n, err := strconv.ParseUint(args[1], 0, 16)
		if err != nil || n >= cube.VRAMWords {
			fmt.Fprintf(c.out(), "Invalid word: %s\n", args[1])
			return
		}
		start = int(n)
	}

	vram := cubes[id].VRAM()
	end := min(start+32, cube.VRAMWords)
	for w := start; w < end; w += 8 {
		fmt.Fprintf(c.out(), "  %03x:", w)
		for i := w; i < min(w+8, end); i++ {
			fmt.Fprintf(c.out(), " %02x%02x", vram[2*i+1], vram[2*i])
		}
		fmt.Fprintln(c.out())
	}
}

// cmdFlash dumps flash contents through the block cache.
func (c *Console) cmdFlash(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out(), "Usage: flash <addr> [len]")
		return
	}
	addr, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		fmt.Fprintf(c.out(), "Invalid address: %s\n", args[0])
		return
	}
	n := uint64(64)
	if len(args) > 1 {
		n, err = strconv.ParseUint(args[1], 0, 16)
		if err != nil || n == 0 {
			fmt.Fprintf(c.out(), "Invalid length: %s\n", args[1])
			return
		}
	}

	buf := make([]byte, n)
	if err := c.sim.Cache().Read(uint32(addr), buf); err != nil {
		fmt.Fprintf(c.out(), "Read failed: %v\n", err)
		return
	}
	for off := 0; off < len(buf); off += 16 {
		end := min(off+16, len(buf))
		fmt.Fprintf(c.out(), "  %08x: % x\n", addr+uint64(off), buf[off:end])
	}
}

// cmdSave writes the flash store file.
func (c *Console) cmdSave() {
	path, err := c.sim.SaveFlash()
	switch {
	case err != nil:
		fmt.Fprintf(c.out(), "Save failed: %v\n", err)
	case path == "":
		fmt.Fprintln(c.out(), "No flash file configured")
	default:
		fmt.Fprintf(c.out(), "Saved flash to %s\n", path)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
