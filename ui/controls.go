package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Controls is the state edited through the control panel.
type Controls struct {
	Paused    bool
	ShowPerf  bool
	SpawnRate float32 // grains per second
	TimeScale float32 // simulation units per wall second
}

// Spawn rate and time scale slider bounds.
const (
	MinSpawnRate = 10
	MaxSpawnRate = 2000
	MinTimeScale = 1
	MaxTimeScale = 30
)

// ControlsPanel renders the right-side raygui panel.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Bounds returns the panel rectangle, or an empty one when hidden.
func (c *ControlsPanel) Bounds() rl.Rectangle {
	if !c.visible {
		return rl.Rectangle{}
	}
	return rl.Rectangle{X: float32(c.x), Y: float32(c.y), Width: float32(c.width), Height: float32(c.height())}
}

func (c *ControlsPanel) height() int32 {
	return c.renderer.Theme.Padding*2 + 150
}

// Draw renders the panel and applies any edits to ctl.
// Returns true if ctl changed.
func (c *ControlsPanel) Draw(ctl *Controls) bool {
	if !c.visible {
		return false
	}

	r := c.renderer
	pad := float32(r.Theme.Padding)
	r.DrawPanel(c.x, c.y, c.width, c.height())

	x := float32(c.x) + pad
	y := float32(c.y) + pad
	w := float32(c.width) - pad*2
	changed := false

	rl.DrawText("Controls", int32(x), int32(y), 16, rl.White)
	y += 22

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w/2 - 4, Height: 24}, toggleText(ctl.Paused, "Resume", "Pause")) {
		ctl.Paused = !ctl.Paused
		changed = true
	}
	if gui.Button(rl.Rectangle{X: x + w/2 + 4, Y: y, Width: w/2 - 4, Height: 24}, toggleText(ctl.ShowPerf, "Hide perf", "Show perf")) {
		ctl.ShowPerf = !ctl.ShowPerf
		changed = true
	}
	y += 34

	rl.DrawText(fmt.Sprintf("Spawn rate: %.0f/s", ctl.SpawnRate), int32(x), int32(y), 12, rl.LightGray)
	y += 14
	rate := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: w, Height: 16}, "", "", ctl.SpawnRate, MinSpawnRate, MaxSpawnRate)
	if rate != ctl.SpawnRate {
		ctl.SpawnRate = rate
		changed = true
	}
	y += 26

	rl.DrawText(fmt.Sprintf("Time scale: %.1fx", ctl.TimeScale), int32(x), int32(y), 12, rl.LightGray)
	y += 14
	scale := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: w, Height: 16}, "", "", ctl.TimeScale, MinTimeScale, MaxTimeScale)
	if scale != ctl.TimeScale {
		ctl.TimeScale = scale
		changed = true
	}

	return changed
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
