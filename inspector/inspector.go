// Package inspector lets the user select a grain and shows its state.
package inspector

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grains/sim"
)

// Panel dimensions
const (
	PanelWidth   = 220
	PanelPadding = 10
	HeaderHeight = 26
	lineHeight   = 16
)

// Panel colors
var (
	ColorPanelBg     = rl.Color{R: 30, G: 30, B: 35, A: 240}
	ColorPanelHeader = rl.Color{R: 45, G: 45, B: 55, A: 255}
	ColorPanelBorder = rl.Color{R: 70, G: 70, B: 80, A: 255}
	ColorHeaderText  = rl.Color{R: 255, G: 255, B: 255, A: 255}
	ColorValueText   = rl.Color{R: 200, G: 200, B: 220, A: 255}
	ColorHighlight   = rl.Color{R: 255, G: 220, B: 60, A: 255}
)

// pickTolerance widens the hit area beyond a grain's radius, in world units.
const pickTolerance = 3

// Details is the displayed state of one grain.
type Details struct {
	ID        uint32
	X, Y      float32
	VX, VY    float32
	Speed     float64
	Col, Row  int
	Neighbors int // grains in the 3x3 block, excluding itself
	Touching  int // neighbors inside the interaction square
}

// Inspector tracks the selected grain and renders its panel.
type Inspector struct {
	selected    uint32
	hasSelected bool
	panelX      int32
	panelY      int32
}

// NewInspector creates an inspector with its panel at (x, y).
func NewInspector(x, y int32) *Inspector {
	return &Inspector{panelX: x, panelY: y}
}

// SetPosition moves the panel.
func (ins *Inspector) SetPosition(x, y int32) {
	ins.panelX = x
	ins.panelY = y
}

// Pick returns the grain nearest (x, y) within its radius plus a tolerance.
func Pick(w *sim.World, x, y float32) (uint32, bool) {
	hit := w.Radius() + pickTolerance
	best := hit * hit
	var id uint32
	found := false
	for _, n := range w.Neighbors(x, y) {
		dx, dy := n.X-x, n.Y-y
		if d := dx*dx + dy*dy; d <= best {
			best = d
			id = n.ID
			found = true
		}
	}
	return id, found
}

// Select picks the grain under (x, y), or clears the selection if none.
func (ins *Inspector) Select(w *sim.World, x, y float32) bool {
	ins.selected, ins.hasSelected = Pick(w, x, y)
	return ins.hasSelected
}

// Deselect clears the current selection.
func (ins *Inspector) Deselect() {
	ins.hasSelected = false
}

// Selected returns the selected grain ID.
func (ins *Inspector) Selected() (uint32, bool) {
	return ins.selected, ins.hasSelected
}

// Describe gathers the selected grain's state.
func (ins *Inspector) Describe(w *sim.World) (Details, bool) {
	if !ins.hasSelected {
		return Details{}, false
	}
	s, ok := w.Grain(ins.selected)
	if !ok {
		return Details{}, false
	}

	d := Details{
		ID:    s.ID,
		X:     s.Pos.X,
		Y:     s.Pos.Y,
		VX:    s.Vel.X,
		VY:    s.Vel.Y,
		Speed: math.Hypot(float64(s.Vel.X), float64(s.Vel.Y)),
	}
	d.Col, d.Row = w.Grid().CellOf(s.Pos.X, s.Pos.Y)

	reach := 2 * w.Radius()
	for _, n := range w.Neighbors(s.Pos.X, s.Pos.Y) {
		if n.ID == s.ID {
			continue
		}
		d.Neighbors++
		if absf(n.X-s.Pos.X) < reach && absf(n.Y-s.Pos.Y) < reach {
			d.Touching++
		}
	}
	return d, true
}

// Lines formats details for the panel.
func (d Details) Lines() []string {
	return []string{
		fmt.Sprintf("pos   %.1f, %.1f", d.X, d.Y),
		fmt.Sprintf("vel   %.2f, %.2f", d.VX, d.VY),
		fmt.Sprintf("speed %.2f", d.Speed),
		fmt.Sprintf("cell  %d, %d", d.Col, d.Row),
		fmt.Sprintf("near  %d (%d touching)", d.Neighbors, d.Touching),
	}
}

// DrawHighlight outlines the selected grain. Call inside the world camera.
func (ins *Inspector) DrawHighlight(w *sim.World) {
	d, ok := ins.Describe(w)
	if !ok {
		return
	}
	rl.DrawCircleLines(int32(d.X), int32(d.Y), w.Radius()+2, ColorHighlight)
}

// Draw renders the panel in screen space.
func (ins *Inspector) Draw(w *sim.World) {
	d, ok := ins.Describe(w)
	if !ok {
		return
	}
	lines := d.Lines()
	height := int32(HeaderHeight + PanelPadding*2 + lineHeight*len(lines))

	rl.DrawRectangle(ins.panelX, ins.panelY, PanelWidth, height, ColorPanelBg)
	rl.DrawRectangle(ins.panelX, ins.panelY, PanelWidth, HeaderHeight, ColorPanelHeader)
	rl.DrawRectangleLines(ins.panelX, ins.panelY, PanelWidth, height, ColorPanelBorder)
	rl.DrawText(fmt.Sprintf("Grain #%d", d.ID), ins.panelX+PanelPadding, ins.panelY+6, 16, ColorHeaderText)

	y := ins.panelY + HeaderHeight + PanelPadding
	for _, line := range lines {
		rl.DrawText(line, ins.panelX+PanelPadding, y, 12, ColorValueText)
		y += lineHeight
	}
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
