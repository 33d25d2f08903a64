// Package renderer draws grains with raylib.
package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grains/components"
)

// GrainMesh is a grain's disc as a cached triangle fan. The vertices are
// built once around the spawn point and translated by the movement delta on
// every PrepareDraw, so a frame costs one add per vertex.
type GrainMesh struct {
	verts []rl.Vector2 // center first, then the perimeter; the first perimeter vertex is repeated to close the fan
	x, y  float32      // position the vertices are currently centered on
	color rl.Color
}

// NewGrainMesh builds a fan of sides perimeter vertices centered on the origin.
func NewGrainMesh(radius float32, sides int, color rl.Color) *GrainMesh {
	if sides < 3 {
		sides = 3
	}
	verts := make([]rl.Vector2, 0, sides+2)
	verts = append(verts, rl.Vector2{})

	// Decreasing angle gives the winding raylib expects with y pointing down.
	step := 2 * math.Pi / float64(sides)
	for i := 0; i <= sides; i++ {
		a := -float64(i) * step
		verts = append(verts, rl.Vector2{
			X: radius * float32(math.Cos(a)),
			Y: radius * float32(math.Sin(a)),
		})
	}
	return &GrainMesh{verts: verts, color: color}
}

// PrepareDraw moves the fan so it is centered on (x, y).
func (m *GrainMesh) PrepareDraw(x, y float32) {
	dx, dy := x-m.x, y-m.y
	if dx == 0 && dy == 0 {
		return
	}
	for i := range m.verts {
		m.verts[i].X += dx
		m.verts[i].Y += dy
	}
	m.x, m.y = x, y
}

// Draw emits the fan. Must be called between BeginDrawing and EndDrawing.
func (m *GrainMesh) Draw() {
	rl.DrawTriangleFan(m.verts, m.color)
}

// Center returns the position the mesh was last prepared at.
func (m *GrainMesh) Center() (x, y float32) { return m.x, m.y }

// Vertices exposes the fan for inspection. Callers must not modify it.
func (m *GrainMesh) Vertices() []rl.Vector2 { return m.verts }

// MeshFactory returns a visual factory producing meshes with the given shape.
func MeshFactory(radius float32, sides int, rgba [4]uint8) func(id uint32) components.Visual {
	color := rl.Color{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}
	return func(uint32) components.Visual {
		return NewGrainMesh(radius, sides, color)
	}
}
