package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grains/camera"
)

// mouseSource reports the raylib mouse in world coordinates.
type mouseSource struct {
	cam *camera.Camera
}

func (m mouseSource) Pointer() (x, y float32, held bool) {
	p := rl.GetMousePosition()
	x, y = m.cam.ScreenToWorld(p.X, p.Y)
	return x, y, rl.IsMouseButtonDown(rl.MouseButtonLeft)
}

// handleInput processes keyboard input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeySpace) {
		g.ctl.Paused = !g.ctl.Paused
	}
	if rl.IsKeyPressed(rl.KeyP) {
		g.ctl.ShowPerf = !g.ctl.ShowPerf
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		g.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	g.handleCameraInput()

	// Right click selects a grain; clicking empty space clears.
	if rl.IsMouseButtonPressed(rl.MouseButtonRight) {
		p := rl.GetMousePosition()
		x, y := g.cam.ScreenToWorld(p.X, p.Y)
		g.inspector.Select(g.world, x, y)
	}
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	g.cam.Resize(w, h)
	g.controls.SetPosition(int32(w)-200, 10)
	g.inspector.SetPosition(int32(w)-230, 190)
}

// handleCameraInput processes camera pan/zoom controls.
func (g *Game) handleCameraInput() {
	// Screen pixels per frame; Pan divides by zoom.
	panSpeed := float32(8.0)

	if rl.IsKeyDown(rl.KeyRight) {
		g.cam.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		g.cam.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.cam.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.cam.Pan(0, -panSpeed)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.cam.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.cam.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.cam.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		g.cam.Reset()
	}
}

// pointerOverUI reports whether the mouse is over the control panel, so
// clicks on widgets don't pour grains underneath.
func (g *Game) pointerOverUI() bool {
	if g.headless || g.controls == nil {
		return false
	}
	if _, ok := g.src.(mouseSource); !ok {
		return false
	}
	return rl.CheckCollisionPointRec(rl.GetMousePosition(), g.controls.Bounds())
}
