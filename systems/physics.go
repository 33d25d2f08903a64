package systems

import (
	"github.com/pthm-cable/grains/components"
)

// PhysicsParams holds the constants shared by every grain update.
type PhysicsParams struct {
	Damping float32
	Gravity float32
	Jostle  float32 // vy removed per horizontal separation
	Radius  float32
	Width   float32
	Height  float32
}

// GrainState is the mutable physical state of one grain.
type GrainState struct {
	ID  uint32
	Pos components.Position
	Vel components.Velocity
}

// Integrate applies damping and gravity and advances the position by dt.
func Integrate(s GrainState, p *PhysicsParams, dt float32) GrainState {
	s.Vel.X *= p.Damping * (1 - dt)
	s.Pos.X += s.Vel.X * dt
	s.Vel.Y += p.Gravity * dt
	s.Pos.Y += s.Vel.Y * dt
	return s
}

// Collide separates the grain from every overlapping neighbor. Only the
// grain itself moves; neighbors are read, never written. Entries with the
// grain's own ID are skipped.
func Collide(s GrainState, p *PhysicsParams, neighbors []Neighbor) GrainState {
	d := 2 * p.Radius

	for i := range neighbors {
		n := &neighbors[i]
		if n.ID == s.ID {
			continue
		}

		dx := s.Pos.X - n.X
		dy := s.Pos.Y - n.Y
		if abs32(dx) >= d || abs32(dy) >= d {
			continue
		}

		// Horizontal separation
		if dx < 0 {
			push := d + dx
			s.Pos.X -= push
			s.Vel.X -= push / 2
		} else {
			push := d - dx
			s.Pos.X += push
			s.Vel.X += push / 2
		}
		s.Vel.Y -= p.Jostle

		// Stacking: a grain at or above its neighbor rests on it
		if dy <= 0 {
			s.Pos.Y = n.Y - d
			s.Vel.Y = 0
		}
	}

	return s
}

// ClampToBounds keeps the grain at least one diameter inside the plane.
func ClampToBounds(s GrainState, p *PhysicsParams) GrainState {
	d := 2 * p.Radius
	s.Pos.Y = clamp32(s.Pos.Y, d, p.Height-d)
	s.Pos.X = clamp32(s.Pos.X, d, p.Width-d)
	return s
}

// StepGrain computes a grain's next state: integrate, resolve collisions
// against the neighbors found at the new position, then clamp.
// query fills the neighbor view for a position; scratch is reused across calls.
func StepGrain(
	s GrainState, p *PhysicsParams, dt float32,
	query func(dst []Neighbor, x, y float32) []Neighbor,
	scratch []Neighbor,
) (GrainState, []Neighbor) {
	s = Integrate(s, p, dt)
	scratch = query(scratch[:0], s.Pos.X, s.Pos.Y)
	s = Collide(s, p, scratch)
	s = ClampToBounds(s, p)
	return s, scratch
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// clamp32 limits v to [lo, hi]. When the plane is narrower than two
// diameters, lo wins. NaN maps to lo, matching the grid's cell 0.
func clamp32(v, lo, hi float32) float32 {
	if v != v {
		return lo
	}
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
