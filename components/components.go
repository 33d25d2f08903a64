// Package components defines ECS components for the simulation.
package components

// Position represents a grain's position on the simulation plane.
type Position struct {
	X, Y float32
}

// Velocity represents a grain's velocity.
type Velocity struct {
	X, Y float32
}

// Grain holds a grain's identity. IDs are assigned at spawn and never reused.
type Grain struct {
	ID uint32
}

// Visual is the drawable shape attached to a grain.
// PrepareDraw moves the cached shape to the given position; Draw emits it
// into whatever drawing context the front end has active.
type Visual interface {
	PrepareDraw(x, y float32)
	Draw()
}

// Sprite owns a grain's visual handle. The simulation never reads it.
type Sprite struct {
	Visual Visual
}
