package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grains/ui"
)

var background = rl.Color{R: 18, G: 18, B: 24, A: 255}

// Draw renders grains and the UI, then flushes telemetry.
func (g *Game) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(background)

	ox, oy := g.cam.Offset()
	rl.BeginMode2D(rl.Camera2D{
		Offset: rl.Vector2{X: ox, Y: oy},
		Target: rl.Vector2{X: g.cam.X, Y: g.cam.Y},
		Zoom:   g.cam.Zoom,
	})
	rl.DrawRectangleLines(0, 0, int32(g.world.Width()), int32(g.world.Height()), rl.DarkGray)
	g.world.Draw()
	g.inspector.DrawHighlight(g.world)
	rl.EndMode2D()

	g.drawUI()

	rl.EndDrawing()

	g.perf.EndTick()
	g.perf.RecordFrame()
	g.flushTelemetry(float64(rl.GetFrameTime()))
}

func (g *Game) drawUI() {
	motion := g.world.Motion()
	g.hud.Draw(ui.HUDData{
		Title:     g.cfg.Screen.Title,
		Grains:    motion.Grains,
		Resting:   motion.Resting,
		Frame:     g.world.Frame(),
		FPS:       rl.GetFPS(),
		Workers:   g.world.Workers(),
		SpawnRate: g.spray.Rate(),
		Paused:    g.ctl.Paused,
	})
	g.hud.DrawControls(int32(rl.GetScreenHeight()), "[LMB] Pour  [RMB] Inspect  [Space] Pause  [P] Perf  [Tab] Controls  [Arrows/Wheel] Camera  [Home] Reset")

	if g.ctl.ShowPerf {
		g.perfPanel.Draw(g.perf.Stats())
	}
	g.inspector.Draw(g.world)
	if g.controls.Draw(&g.ctl) {
		g.spray.SetRate(float64(g.ctl.SpawnRate))
	}
}
