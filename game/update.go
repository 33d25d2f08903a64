package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grains/sim"
	"github.com/pthm-cable/grains/telemetry"
)

// Update advances one rendered frame using raylib's frame time.
func (g *Game) Update() {
	g.perf.StartTick()
	g.handleInput()
	g.step(float64(rl.GetFrameTime()))
	g.world.PrepareDraw()
}

// UpdateHeadless advances one frame of fixed length without touching raylib.
func (g *Game) UpdateHeadless() {
	g.perf.StartTick()
	g.step(1 / float64(g.targetFPS()))
	g.perf.EndTick()
	g.perf.RecordFrame()
	g.flushTelemetry(1 / float64(g.targetFPS()))
}

// step spawns from the current source, then advances the world.
func (g *Game) step(frameSeconds float64) {
	g.perf.StartPhase(telemetry.PhaseSpawn)
	if g.src != nil && !g.pointerOverUI() {
		g.spray.Apply(g.world, g.src, frameSeconds)
	}
	if g.ctl.Paused {
		return
	}
	g.world.StepFrame(sim.FrameDT(frameSeconds, float64(g.ctl.TimeScale), g.cfg.Physics.MaxDT))
}

func (g *Game) targetFPS() int {
	if g.cfg.Screen.TargetFPS > 0 {
		return g.cfg.Screen.TargetFPS
	}
	return 60
}
