package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grains/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title     string
	Grains    int
	Resting   int
	Frame     uint64
	FPS       int32
	Workers   int
	SpawnRate float64
	Paused    bool
}

// HUD renders the status lines in the top-left corner.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawFPS(10, 10)
	rl.DrawText(data.Title, 10, 32, 20, rl.White)
	rl.DrawText(statusLine(data), 10, 56, 16, rl.LightGray)
	if data.Paused {
		rl.DrawText("PAUSED", 10, 76, 16, rl.Yellow)
	}
}

// DrawControls renders the key legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-22, 14, rl.Gray)
}

func statusLine(data HUDData) string {
	return fmt.Sprintf("Grains: %d (%d resting) | Frame: %d | Workers: %d | Spawn: %.0f/s",
		data.Grains, data.Resting, data.Frame, data.Workers, data.SpawnRate)
}

// PerfPanel renders the per-phase frame breakdown.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y, width int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	pad := r.Theme.Padding
	height := r.Theme.LineHeight*int32(len(telemetry.Phases)+3) + pad*2
	r.DrawPanel(p.x, p.y, p.width, height)

	x := p.x + pad
	y := r.DrawSectionHeader(x, p.y+pad, "Frame Phases")
	y = r.DrawLabelValue(x, y, "avg", stats.AvgTickDuration.Round(time.Microsecond).String())
	y = r.DrawLabelValue(x, y, "p95", stats.P95TickDuration.Round(time.Microsecond).String())
	for _, phase := range telemetry.Phases {
		y = r.DrawBar(x, y, phase, stats.PhasePct[phase], 40, p.width-pad*2)
	}
}
