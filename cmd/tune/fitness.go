package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/grains/config"
	"github.com/pthm-cable/grains/input"
	"github.com/pthm-cable/grains/sim"
	"github.com/pthm-cable/grains/systems"
)

// overlapWeight converts the fraction of overlapping grains into speed units.
const overlapWeight = 20.0

// FitnessEvaluator runs headless pours and scores how well the pile settles.
type FitnessEvaluator struct {
	params      *ParamVector
	pourFrames  int
	settleFrame int
	seeds       []int64
	baseConfig  *config.Config

	mu      sync.Mutex
	lastRun runResult
}

// runResult holds the measurements from one simulation run.
type runResult struct {
	meanSpeed   float64
	overlapFrac float64
	grains      int
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, pourFrames, settleFrames int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		pourFrames:  pourFrames,
		settleFrame: settleFrames,
		seeds:       seeds,
		baseConfig:  baseCfg,
	}
}

// LastRun returns the averaged measurements from the most recent evaluation.
func (fe *FitnessEvaluator) LastRun() (meanSpeed, overlapFrac float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastRun.meanSpeed, fe.lastRun.overlapFrac
}

// Evaluate computes fitness for a raw parameter vector (lower = better):
// residual mean speed after settling plus a penalty for interpenetration.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			cfg := fe.copyConfig()
			fe.params.ApplyToConfig(cfg, x)
			cfg.Spawn.Seed = s
			results[idx] = fe.runSimulation(cfg)
		}(i, seed)
	}
	wg.Wait()

	var avg runResult
	for _, r := range results {
		avg.meanSpeed += r.meanSpeed
		avg.overlapFrac += r.overlapFrac
	}
	n := float64(len(results))
	avg.meanSpeed /= n
	avg.overlapFrac /= n

	fe.mu.Lock()
	fe.lastRun = avg
	fe.mu.Unlock()

	return score(avg)
}

func score(r runResult) float64 {
	if math.IsNaN(r.meanSpeed) || math.IsNaN(r.overlapFrac) {
		return math.Inf(1)
	}
	return r.meanSpeed + overlapWeight*r.overlapFrac
}

// runSimulation pours at the top center, lets the pile settle and measures it.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config) runResult {
	opts := sim.OptionsFromConfig(cfg)
	opts.Workers = 1 // seeds already run in parallel
	w, err := sim.NewWorld(opts)
	if err != nil {
		return runResult{meanSpeed: math.NaN()}
	}
	defer w.Close()

	w.SpawnLattice(cfg.World.InitialCols, cfg.World.InitialRows,
		float32(cfg.World.InitialSpacingX), float32(cfg.World.InitialSpacingY))

	frameSeconds := 1 / float64(cfg.Screen.TargetFPS)
	dt := sim.FrameDT(frameSeconds, cfg.Physics.TimeScale, cfg.Physics.MaxDT)
	spray := input.NewSpray(cfg.Spawn)
	src := input.Fixed{X: cfg.Derived.WorldW32 / 2, Y: cfg.Derived.Radius32 * 4, Held: true}

	for f := 0; f < fe.pourFrames+fe.settleFrame; f++ {
		if f < fe.pourFrames {
			spray.Apply(w, src, frameSeconds)
		}
		w.StepFrame(dt)
	}

	return runResult{
		meanSpeed:   w.Motion().MeanSpeed,
		overlapFrac: overlapFraction(w),
		grains:      w.Len(),
	}
}

// overlapFraction returns the share of grains whose interaction square
// contains another grain's center.
func overlapFraction(w *sim.World) float64 {
	if w.Len() == 0 {
		return 0
	}
	reach := 2 * w.Radius()
	overlapping := 0
	w.Each(func(g systems.GrainState) {
		for _, n := range w.Neighbors(g.Pos.X, g.Pos.Y) {
			if n.ID == g.ID {
				continue
			}
			if abs32(n.X-g.Pos.X) < reach && abs32(n.Y-g.Pos.Y) < reach {
				overlapping++
				return
			}
		}
	})
	return float64(overlapping) / float64(w.Len())
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// copyConfig returns a copy of the base config for one run.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}
