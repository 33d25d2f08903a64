// Package input turns pointer state into spawn requests.
package input

import (
	"math"

	"github.com/aquilax/go-perlin"

	"github.com/pthm-cable/grains/config"
)

// Source reports the pointer once per frame.
type Source interface {
	Pointer() (x, y float32, held bool)
}

// Spawner is the part of the world the spray drives.
type Spawner interface {
	Spawn(x, y float32, count int) []uint32
}

// Spray emits grains under the pointer while the primary button is held.
// The count scales with frame time so the flow rate is independent of FPS;
// the spawn point drifts along a Perlin curve within +-jitter of the pointer.
type Spray struct {
	rate       float64
	jitter     float64
	noiseSpeed float64
	noise      *perlin.Perlin

	t     float64 // noise coordinate
	carry float64 // fractional grains owed from earlier frames
}

// NewSpray builds a spray from spawn settings.
func NewSpray(cfg config.SpawnConfig) *Spray {
	return &Spray{
		rate:       cfg.Rate,
		jitter:     cfg.Jitter,
		noiseSpeed: cfg.NoiseSpeed,
		noise:      perlin.NewPerlin(2, 2, 3, cfg.Seed),
	}
}

// Rate returns the current flow rate in grains per second.
func (s *Spray) Rate() float64 { return s.rate }

// SetRate changes the flow rate. Negative rates are treated as zero.
func (s *Spray) SetRate(rate float64) {
	s.rate = math.Max(0, rate)
}

// Count returns how many grains to emit for a frame lasting frameSeconds.
// Fractions carry over, so rates below the frame rate skip frames.
func (s *Spray) Count(frameSeconds float64) int {
	if s.rate <= 0 || frameSeconds <= 0 {
		return 0
	}
	s.carry += s.rate * frameSeconds
	n := int(s.carry)
	s.carry -= float64(n)
	return n
}

// Offset returns the next horizontal brush offset in [-jitter, jitter].
func (s *Spray) Offset() float32 {
	if s.jitter == 0 {
		return 0
	}
	s.t += s.noiseSpeed
	v := s.noise.Noise1D(s.t) * 2
	v = math.Max(-1, math.Min(1, v))
	return float32(v * s.jitter)
}

// Apply polls src and spawns into w. Returns the number of grains spawned.
func (s *Spray) Apply(w Spawner, src Source, frameSeconds float64) int {
	x, y, held := src.Pointer()
	if !held {
		s.carry = 0
		return 0
	}
	n := s.Count(frameSeconds)
	if n == 0 {
		return 0
	}
	return len(w.Spawn(x+s.Offset(), y, n))
}

// Fixed is a Source pinned at one position.
type Fixed struct {
	X, Y float32
	Held bool
}

// Pointer implements Source.
func (f Fixed) Pointer() (x, y float32, held bool) { return f.X, f.Y, f.Held }
