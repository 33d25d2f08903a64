package terminal

import "github.com/gdamore/tcell/v2"

// Pointer tracks the mouse in plane coordinates.
type Pointer struct {
	canvas *Canvas
	x, y   float32
	held   bool
}

// NewPointer creates a pointer reporting positions on canvas.
func NewPointer(canvas *Canvas) *Pointer {
	return &Pointer{canvas: canvas}
}

// HandleMouse updates the pointer from a mouse event.
func (p *Pointer) HandleMouse(ev *tcell.EventMouse) {
	col, row := ev.Position()
	p.x, p.y = p.canvas.ToWorld(col, row)
	p.held = ev.Buttons()&tcell.Button1 != 0
}

// Pointer implements input.Source.
func (p *Pointer) Pointer() (x, y float32, held bool) {
	return p.x, p.y, p.held
}
