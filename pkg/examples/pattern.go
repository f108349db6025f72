package examples

import (
	"context"
	"math/rand/v2"
	"sync/atomic"

	"github.com/cubesim/cubesim-go/pkg/cube"
	"github.com/cubesim/cubesim-go/pkg/master"
)

// PatternTask writes pseudo-random words into a VRAMSync's slots. The
// sequence depends only on the seed.
type PatternTask struct {
	fw        *VRAMSync
	rng       *rand.Rand
	perWork   int
	remaining atomic.Int64
}

// NewPatternTask creates a task that writes total words, perWork at a time.
func NewPatternTask(fw *VRAMSync, seed uint64, perWork, total int) *PatternTask {
	p := &PatternTask{
		fw:      fw,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		perWork: perWork,
	}
	p.remaining.Store(int64(total))
	return p
}

// Work writes the next batch.
func (p *PatternTask) Work() {
	if len(p.fw.slots) == 0 {
		return
	}
	for i := 0; i < p.perWork && p.remaining.Load() > 0; i++ {
		slot := p.rng.IntN(len(p.fw.slots))
		word := uint16(p.rng.IntN(cube.VRAMWords))
		p.fw.Write(slot, word, uint16(p.rng.Uint32()))
		p.remaining.Add(-1)
	}
}

// Remaining returns the number of writes not yet made.
func (p *PatternTask) Remaining() int {
	return int(p.remaining.Load())
}

// Game is a firmware main loop: it runs its tasks and one radio
// transaction per frame, for a fixed number of frames.
type Game struct {
	Tasks  master.TaskRunner
	Frames int
}

// Run implements master.Runner.
func (g *Game) Run(ctx context.Context, halt func(context.Context) error) error {
	for i := 0; i < g.Frames; i++ {
		if g.Tasks != nil {
			g.Tasks.Work()
		}
		if err := halt(ctx); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ master.TaskRunner = (*PatternTask)(nil)
	_ master.Runner     = (*Game)(nil)
)
