// Package terminal runs the simulation in a text terminal with tcell.
package terminal

import (
	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/grains/components"
)

// grainRune is drawn for every occupied cell.
const grainRune = '●'

// statusRows is reserved at the bottom of the screen.
const statusRows = 1

// Canvas maps the simulation plane onto terminal cells.
type Canvas struct {
	screen         tcell.Screen
	worldW, worldH float32
	cols, rows     int
	style          tcell.Style
}

// NewCanvas sizes a canvas for screen and the given plane.
func NewCanvas(screen tcell.Screen, worldW, worldH float32, rgba [4]uint8) *Canvas {
	c := &Canvas{
		screen: screen,
		worldW: worldW,
		worldH: worldH,
		style: tcell.StyleDefault.Foreground(
			tcell.NewRGBColor(int32(rgba[0]), int32(rgba[1]), int32(rgba[2])),
		),
	}
	c.Resize()
	return c
}

// Resize re-reads the screen size. Returns true if it changed.
func (c *Canvas) Resize() bool {
	w, h := c.screen.Size()
	h -= statusRows
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w == c.cols && h == c.rows {
		return false
	}
	c.cols, c.rows = w, h
	return true
}

// Dims returns the drawable area in cells.
func (c *Canvas) Dims() (cols, rows int) { return c.cols, c.rows }

// ToCell maps a plane position to a cell, clamped to the drawable area.
func (c *Canvas) ToCell(x, y float32) (col, row int) {
	col = clampInt(int(x/c.worldW*float32(c.cols)), c.cols)
	row = clampInt(int(y/c.worldH*float32(c.rows)), c.rows)
	return col, row
}

// ToWorld maps a cell to the plane position at its center.
func (c *Canvas) ToWorld(col, row int) (x, y float32) {
	x = (float32(col) + 0.5) * c.worldW / float32(c.cols)
	y = (float32(row) + 0.5) * c.worldH / float32(c.rows)
	return x, y
}

// Factory returns a visual factory producing cells on this canvas.
func (c *Canvas) Factory() func(id uint32) components.Visual {
	return func(uint32) components.Visual {
		return &GrainCell{canvas: c}
	}
}

// DrawStatus writes text on the status row.
func (c *Canvas) DrawStatus(text string) {
	row := c.rows
	style := tcell.StyleDefault.Reverse(true)
	col := 0
	for _, r := range text {
		if col >= c.cols {
			break
		}
		c.screen.SetContent(col, row, r, nil, style)
		col++
	}
	for ; col < c.cols; col++ {
		c.screen.SetContent(col, row, ' ', nil, style)
	}
}

func clampInt(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// GrainCell is a grain drawn as a single character cell.
type GrainCell struct {
	canvas   *Canvas
	col, row int
}

// PrepareDraw records the cell for (x, y).
func (g *GrainCell) PrepareDraw(x, y float32) {
	g.col, g.row = g.canvas.ToCell(x, y)
}

// Draw writes the grain's cell.
func (g *GrainCell) Draw() {
	g.canvas.screen.SetContent(g.col, g.row, grainRune, nil, g.canvas.style)
}

// Cell returns the cell the grain was last prepared at.
func (g *GrainCell) Cell() (col, row int) { return g.col, g.row }
