// Package sim composes the grain arena, the spatial grid and the
// fork-join scheduler into a steppable world.
package sim

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/grains/components"
	"github.com/pthm-cable/grains/config"
	"github.com/pthm-cable/grains/systems"
	"github.com/pthm-cable/grains/telemetry"
)

// ErrConfig is wrapped by construction errors.
var ErrConfig = errors.New("sim: bad world configuration")

// VisualFactory builds the visual attached to a newly spawned grain.
type VisualFactory func(id uint32) components.Visual

// PhaseRecorder receives the name of each frame phase as it starts.
// telemetry.PerfCollector satisfies it.
type PhaseRecorder interface {
	StartPhase(phase string)
}

// Options configures a World.
type Options struct {
	Width    float32
	Height   float32
	CellSize float32
	Radius   float32

	Damping float32
	Gravity float32
	Jostle  float32

	// Workers is the pool size; 0 means GOMAXPROCS.
	Workers int
	// Populations below ParallelThreshold update on the calling goroutine.
	ParallelThreshold int

	NewVisual VisualFactory
	Perf      PhaseRecorder
}

// OptionsFromConfig maps loaded configuration onto world options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Width:             cfg.Derived.WorldW32,
		Height:            cfg.Derived.WorldH32,
		CellSize:          cfg.Derived.CellSize,
		Radius:            cfg.Derived.Radius32,
		Damping:           float32(cfg.Physics.Damping),
		Gravity:           float32(cfg.Physics.Gravity),
		Jostle:            float32(cfg.Physics.Jostle),
		Workers:           cfg.Sim.Workers,
		ParallelThreshold: cfg.Sim.ParallelThreshold,
	}
}

// World owns every grain and the grid that indexes them.
//
// The ECS world is the single owning arena; the grid and the per-frame
// tasks hold entity handles only. A World is driven from one goroutine:
// Spawn, StepFrame, PrepareDraw and Draw must not be called concurrently.
type World struct {
	ecs    *ecs.World
	mapper *ecs.Map4[
		components.Position,
		components.Velocity,
		components.Grain,
		components.Sprite,
	]
	motionFilter *ecs.Filter2[components.Position, components.Velocity]

	posMap    *ecs.Map[components.Position]
	velMap    *ecs.Map[components.Velocity]
	grainMap  *ecs.Map[components.Grain]
	spriteMap *ecs.Map[components.Sprite]

	grid     *systems.SpatialGrid
	entities []ecs.Entity // spawn order; index == grain ID
	nextID   uint64

	params    systems.PhysicsParams
	threshold int
	sched     *scheduler
	query     func(dst []systems.Neighbor, x, y float32) []systems.Neighbor
	newVisual VisualFactory
	perf      PhaseRecorder

	// Per-frame buffers
	snapshots []systems.GrainState
	results   []systems.GrainState

	updating atomic.Bool
	frame    uint64
}

// NewWorld validates opts and builds an empty world.
func NewWorld(opts Options) (*World, error) {
	switch {
	case opts.Width <= 0 || opts.Height <= 0:
		return nil, fmt.Errorf("%w: size must be positive, got %gx%g", ErrConfig, opts.Width, opts.Height)
	case !(opts.CellSize > 0):
		return nil, fmt.Errorf("%w: cell size must be > 0, got %g", ErrConfig, opts.CellSize)
	case !(opts.Radius > 0):
		return nil, fmt.Errorf("%w: radius must be > 0, got %g", ErrConfig, opts.Radius)
	case opts.CellSize < 2*opts.Radius:
		return nil, fmt.Errorf("%w: cell size %g is smaller than a grain diameter %g", ErrConfig, opts.CellSize, 2*opts.Radius)
	case opts.Workers < 0:
		return nil, fmt.Errorf("%w: workers must be >= 0, got %d", ErrConfig, opts.Workers)
	}

	ew := ecs.NewWorld()
	w := &World{
		ecs: ew,
		mapper: ecs.NewMap4[
			components.Position,
			components.Velocity,
			components.Grain,
			components.Sprite,
		](ew),
		motionFilter: ecs.NewFilter2[components.Position, components.Velocity](ew),
		posMap:       ecs.NewMap[components.Position](ew),
		velMap:       ecs.NewMap[components.Velocity](ew),
		grainMap:     ecs.NewMap[components.Grain](ew),
		spriteMap:    ecs.NewMap[components.Sprite](ew),
		grid:         systems.NewSpatialGrid(opts.Width, opts.Height, opts.CellSize),
		params: systems.PhysicsParams{
			Damping: opts.Damping,
			Gravity: opts.Gravity,
			Jostle:  opts.Jostle,
			Radius:  opts.Radius,
			Width:   opts.Width,
			Height:  opts.Height,
		},
		threshold: opts.ParallelThreshold,
		sched:     newScheduler(opts.Workers),
		newVisual: opts.NewVisual,
		perf:      opts.Perf,
	}
	w.query = func(dst []systems.Neighbor, x, y float32) []systems.Neighbor {
		return w.grid.QueryInto(dst, x, y, w.posMap, w.grainMap)
	}
	return w, nil
}

// Close stops the worker pool. The world must not be stepped afterwards.
func (w *World) Close() {
	w.sched.stop()
}

// Width returns the plane's horizontal extent.
func (w *World) Width() float32 { return w.params.Width }

// Height returns the plane's vertical extent.
func (w *World) Height() float32 { return w.params.Height }

// Radius returns the radius shared by every grain.
func (w *World) Radius() float32 { return w.params.Radius }

// Len returns the number of grains.
func (w *World) Len() int { return len(w.entities) }

// Frame returns the number of completed StepFrame calls.
func (w *World) Frame() uint64 { return w.frame }

// Workers returns the size of the update pool.
func (w *World) Workers() int { return w.sched.numWorkers }

// Grid exposes the spatial index for inspection.
func (w *World) Grid() *systems.SpatialGrid { return w.grid }

// maxGrains is the number of distinct uint32 grain IDs.
const maxGrains = 1 << 32

// Spawn creates count grains at (x, y) and returns their IDs.
// IDs are never reused; Spawn panics once all 2^32 have been handed out.
// Positions outside the plane are indexed in the nearest edge cell and are
// pulled inside by the next update.
func (w *World) Spawn(x, y float32, count int) []uint32 {
	if w.updating.Load() {
		panic("sim: Spawn called during the update phase")
	}
	if w.nextID+uint64(max(count, 0)) > maxGrains {
		panic("sim: grain ID space exhausted")
	}
	w.startPhase(telemetry.PhaseSpawn)

	ids := make([]uint32, 0, count)
	for i := 0; i < count; i++ {
		id := uint32(w.nextID)
		w.nextID++

		pos := components.Position{X: x, Y: y}
		vel := components.Velocity{}
		grain := components.Grain{ID: id}
		sprite := components.Sprite{}
		if w.newVisual != nil {
			sprite.Visual = w.newVisual(id)
			sprite.Visual.PrepareDraw(x, y)
		}

		e := w.mapper.NewEntity(&pos, &vel, &grain, &sprite)
		w.grid.Insert(e, x, y)
		w.entities = append(w.entities, e)
		ids = append(ids, id)
	}
	return ids
}

// SpawnLattice fills a cols x rows lattice starting at the origin.
func (w *World) SpawnLattice(cols, rows int, spacingX, spacingY float32) int {
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			w.Spawn(float32(c)*spacingX, float32(r)*spacingY, 1)
		}
	}
	return cols * rows
}

// Grain returns the current state of the grain with the given ID.
func (w *World) Grain(id uint32) (systems.GrainState, bool) {
	if int(id) >= len(w.entities) {
		return systems.GrainState{}, false
	}
	e := w.entities[id]
	return systems.GrainState{
		ID:  id,
		Pos: *w.posMap.Get(e),
		Vel: *w.velMap.Get(e),
	}, true
}

// SetGrain overwrites a grain's position and velocity. The grid is not
// updated until the next Rebuild.
func (w *World) SetGrain(s systems.GrainState) bool {
	if int(s.ID) >= len(w.entities) {
		return false
	}
	e := w.entities[s.ID]
	*w.posMap.Get(e) = s.Pos
	*w.velMap.Get(e) = s.Vel
	return true
}

// Each calls fn for every grain in spawn order.
func (w *World) Each(fn func(s systems.GrainState)) {
	for id, e := range w.entities {
		fn(systems.GrainState{
			ID:  uint32(id),
			Pos: *w.posMap.Get(e),
			Vel: *w.velMap.Get(e),
		})
	}
}

// Neighbors returns the grains in the 3x3 cell block around (x, y).
func (w *World) Neighbors(x, y float32) []systems.Neighbor {
	return w.query(nil, x, y)
}

// Rebuild restores grid membership after grains moved and returns the
// number of relocated handles.
func (w *World) Rebuild() int {
	w.startPhase(telemetry.PhaseRebuild)
	return w.grid.Rebuild(w.posMap)
}

// StepFrame advances every grain by dt: a parallel update phase that reads
// the frozen grid and writes one result slot per grain, a join, a
// single-threaded apply, then a grid rebuild.
func (w *World) StepFrame(dt float32) {
	w.update(dt)
	w.Rebuild()
	w.frame++
}

// update runs the fork-join phase and applies the results.
func (w *World) update(dt float32) {
	n := len(w.entities)
	if n == 0 {
		return
	}

	// Snapshot (single-threaded)
	w.startPhase(telemetry.PhaseSnapshot)
	w.snapshots = w.snapshots[:0]
	for id, e := range w.entities {
		w.snapshots = append(w.snapshots, systems.GrainState{
			ID:  uint32(id),
			Pos: *w.posMap.Get(e),
			Vel: *w.velMap.Get(e),
		})
	}
	if cap(w.results) < n {
		w.results = make([]systems.GrainState, n)
	}
	w.results = w.results[:n]

	// Compute: grid and components are read-only until the join.
	w.startPhase(telemetry.PhaseUpdate)
	w.updating.Store(true)
	task := func(i int, scratch *workerScratch) {
		w.results[i], scratch.Neighbors = systems.StepGrain(
			w.snapshots[i], &w.params, dt, w.query, scratch.Neighbors,
		)
	}
	if n < w.threshold {
		w.sched.runInline(n, task)
	} else {
		w.sched.run(n, task)
	}
	w.updating.Store(false)

	// Apply (single-threaded)
	w.startPhase(telemetry.PhaseApply)
	for i, e := range w.entities {
		r := &w.results[i]
		*w.posMap.Get(e) = r.Pos
		*w.velMap.Get(e) = r.Vel
	}
}

// PrepareDraw moves every grain's visual to its final position.
func (w *World) PrepareDraw() {
	w.startPhase(telemetry.PhasePrepareDraw)
	for _, e := range w.entities {
		sprite := w.spriteMap.Get(e)
		if sprite.Visual == nil {
			continue
		}
		pos := w.posMap.Get(e)
		sprite.Visual.PrepareDraw(pos.X, pos.Y)
	}
}

// Draw emits every grain's visual.
func (w *World) Draw() {
	w.startPhase(telemetry.PhaseDraw)
	for _, e := range w.entities {
		if v := w.spriteMap.Get(e).Visual; v != nil {
			v.Draw()
		}
	}
}

// MotionStats summarizes grain motion.
type MotionStats struct {
	Grains    int
	Resting   int // |vy| below restEpsilon
	MeanSpeed float64
	MaxSpeed  float64
}

const restEpsilon = 1e-3

// Motion summarizes every grain's velocity. Must be called between frames.
func (w *World) Motion() MotionStats {
	var st MotionStats
	var total float64

	query := w.motionFilter.Query()
	for query.Next() {
		_, vel := query.Get()
		st.Grains++
		if vel.Y > -restEpsilon && vel.Y < restEpsilon {
			st.Resting++
		}
		speed := math.Hypot(float64(vel.X), float64(vel.Y))
		total += speed
		if speed > st.MaxSpeed {
			st.MaxSpeed = speed
		}
	}
	if st.Grains > 0 {
		st.MeanSpeed = total / float64(st.Grains)
	}
	return st
}

func (w *World) startPhase(phase string) {
	if w.perf != nil {
		w.perf.StartPhase(phase)
	}
}

// FrameDT converts a frame's wall time into a simulation step, capped at maxDT.
// A non-positive maxDT disables the cap.
func FrameDT(frameSeconds, timeScale, maxDT float64) float32 {
	dt := frameSeconds * timeScale
	if dt < 0 {
		dt = 0
	}
	if maxDT > 0 && dt > maxDT {
		dt = maxDT
	}
	return float32(dt)
}
