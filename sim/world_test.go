package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/grains/components"
	"github.com/pthm-cable/grains/config"
	"github.com/pthm-cable/grains/systems"
)

func testOptions() Options {
	return Options{
		Width:             100,
		Height:            100,
		CellSize:          4,
		Radius:            1,
		Damping:           0.99,
		Gravity:           1.2,
		Jostle:            0.05,
		Workers:           4,
		ParallelThreshold: 0,
	}
}

func newTestWorld(t *testing.T, opts Options) *World {
	t.Helper()
	w, err := NewWorld(opts)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	t.Cleanup(w.Close)
	return w
}

// checkGridInvariant verifies every grain sits in the cell its position maps to.
func checkGridInvariant(t *testing.T, w *World) {
	t.Helper()
	g := w.Grid()
	cols, rows := g.Dims()
	seen := 0
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			for _, e := range g.Cell(col, row) {
				seen++
				pos := w.posMap.Get(e)
				c, r := g.CellOf(pos.X, pos.Y)
				if c != col || r != row {
					t.Errorf("grain at (%f, %f) stored in (%d, %d), want (%d, %d)", pos.X, pos.Y, col, row, c, r)
				}
			}
		}
	}
	if seen != w.Len() {
		t.Errorf("grid holds %d handles, world has %d grains", seen, w.Len())
	}
}

func TestNewWorldRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero cell size", func(o *Options) { o.CellSize = 0 }},
		{"negative cell size", func(o *Options) { o.CellSize = -1 }},
		{"NaN cell size", func(o *Options) { o.CellSize = float32(math.NaN()) }},
		{"zero width", func(o *Options) { o.Width = 0 }},
		{"negative height", func(o *Options) { o.Height = -5 }},
		{"zero radius", func(o *Options) { o.Radius = 0 }},
		{"NaN radius", func(o *Options) { o.Radius = float32(math.NaN()) }},
		{"cell smaller than a diameter", func(o *Options) { o.Radius = 4; o.CellSize = 2 }},
		{"negative workers", func(o *Options) { o.Workers = -2 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := testOptions()
			tc.mutate(&opts)
			w, err := NewWorld(opts)
			if !errors.Is(err, ErrConfig) {
				t.Errorf("NewWorld error = %v, want ErrConfig", err)
			}
			if w != nil {
				t.Error("expected nil world on error")
			}
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Defaults()
	opts := OptionsFromConfig(cfg)

	if opts.Width != cfg.Derived.WorldW32 || opts.Height != cfg.Derived.WorldH32 {
		t.Errorf("size = %gx%g", opts.Width, opts.Height)
	}
	if opts.Workers != 16 {
		t.Errorf("Workers = %d, want 16", opts.Workers)
	}

	w := newTestWorld(t, opts)
	if w.Workers() != 16 {
		t.Errorf("pool size = %d, want 16", w.Workers())
	}
}

func TestTwoGrainStacking(t *testing.T) {
	w := newTestWorld(t, testOptions())
	top := w.Spawn(10, 10, 1)[0]
	bottom := w.Spawn(10, 10.5, 1)[0]

	w.StepFrame(0.1)

	a, _ := w.Grain(top)
	b, _ := w.Grain(bottom)
	r := w.Radius()

	if sep := b.Pos.Y - a.Pos.Y; sep < 2*r {
		t.Errorf("vertical separation = %f, want >= %f", sep, 2*r)
	}
	// The grain resting on the other stops falling.
	if a.Vel.Y != 0 {
		t.Errorf("resting grain vy = %f, want 0", a.Vel.Y)
	}
	checkGridInvariant(t, w)
}

func TestOneDiameterCellSeparatesContacts(t *testing.T) {
	opts := testOptions()
	opts.Radius = 4
	opts.CellSize = 8
	opts.Gravity = 0
	w := newTestWorld(t, opts)

	// 6 apart with a diameter of 8.
	top := w.Spawn(20, 20, 1)[0]
	bottom := w.Spawn(20, 26, 1)[0]
	w.StepFrame(0.01)

	a, _ := w.Grain(top)
	b, _ := w.Grain(bottom)
	if sep := b.Pos.Y - a.Pos.Y; sep < 2*opts.Radius {
		t.Errorf("vertical separation = %f, want >= %f", sep, 2*opts.Radius)
	}
}

func TestSpawnAssignsUniqueIDs(t *testing.T) {
	w := newTestWorld(t, testOptions())
	w.SpawnLattice(3, 3, 10, 10)
	before := w.Len()

	seen := make(map[uint32]bool)
	w.Each(func(s systems.GrainState) { seen[s.ID] = true })

	var spawned []uint32
	for frame := 0; frame < 10; frame++ {
		spawned = append(spawned, w.Spawn(50, 20, 5)...)
		w.StepFrame(0.1)
	}

	if got := w.Len() - before; got != 50 {
		t.Errorf("grain count grew by %d, want 50", got)
	}
	if len(spawned) != 50 {
		t.Fatalf("Spawn returned %d IDs, want 50", len(spawned))
	}
	for _, id := range spawned {
		if seen[id] {
			t.Errorf("ID %d reused", id)
		}
		seen[id] = true
	}
	if len(seen) != w.Len() {
		t.Errorf("%d distinct IDs for %d grains", len(seen), w.Len())
	}
}

func TestSpawnPanicsWhenIDsRunOut(t *testing.T) {
	w := newTestWorld(t, testOptions())
	w.nextID = maxGrains - 1

	if id := w.Spawn(10, 10, 1)[0]; id != math.MaxUint32 {
		t.Fatalf("last ID = %d, want %d", id, uint32(math.MaxUint32))
	}

	defer func() {
		if recover() == nil {
			t.Error("Spawn reused an ID instead of panicking")
		}
	}()
	w.Spawn(10, 10, 1)
}

func TestSpawnOutOfBoundsIsClamped(t *testing.T) {
	w := newTestWorld(t, testOptions())
	ids := w.Spawn(-10, -10, 2)
	ids = append(ids, w.Spawn(500, 500, 2)...)
	ids = append(ids, w.Spawn(float32(math.NaN()), 10, 1)...)
	checkGridInvariant(t, w)

	w.StepFrame(0.1)

	r := w.Radius()
	for _, id := range ids {
		s, _ := w.Grain(id)
		if s.Pos.X < 2*r || s.Pos.X > w.Width()-2*r || s.Pos.Y < 2*r || s.Pos.Y > w.Height()-2*r {
			t.Errorf("grain %d outside bounds: (%f, %f)", id, s.Pos.X, s.Pos.Y)
		}
	}
	checkGridInvariant(t, w)
}

func TestBoundaryClampAtWidth(t *testing.T) {
	w := newTestWorld(t, testOptions())
	id := w.Spawn(w.Width(), 50, 1)[0]

	w.StepFrame(0.01)

	s, _ := w.Grain(id)
	if want := w.Width() - 2*w.Radius(); s.Pos.X != want {
		t.Errorf("x = %f, want %f", s.Pos.X, want)
	}
}

func TestStepFrameKeepsInvariants(t *testing.T) {
	opts := testOptions()
	opts.Radius = 2
	opts.CellSize = 8
	w := newTestWorld(t, opts)

	w.SpawnLattice(20, 10, 5, 4)
	for i := 0; i < 10; i++ {
		w.Spawn(50, 10, 10)
	}

	r := w.Radius()
	for frame := 0; frame < 60; frame++ {
		w.StepFrame(0.2)

		w.Each(func(s systems.GrainState) {
			if s.Pos.X < 2*r || s.Pos.X > w.Width()-2*r || s.Pos.Y < 2*r || s.Pos.Y > w.Height()-2*r {
				t.Fatalf("frame %d: grain %d outside bounds: (%f, %f)", frame, s.ID, s.Pos.X, s.Pos.Y)
			}
		})
		checkGridInvariant(t, w)
	}

	if moved := w.Rebuild(); moved != 0 {
		t.Errorf("Rebuild right after StepFrame moved %d grains, want 0", moved)
	}
	if w.Frame() != 60 {
		t.Errorf("Frame = %d, want 60", w.Frame())
	}
}

func TestNeighborsIncludesCallerAndSameCell(t *testing.T) {
	w := newTestWorld(t, testOptions())
	a := w.Spawn(10, 10, 1)[0]
	b := w.Spawn(11, 11, 1)[0]
	far := w.Spawn(30, 30, 1)[0]

	ids := make(map[uint32]bool)
	for _, n := range w.Neighbors(10, 10) {
		ids[n.ID] = true
	}
	if !ids[a] || !ids[b] {
		t.Errorf("neighbors %v missing same-cell grains %d, %d", ids, a, b)
	}
	if ids[far] {
		t.Errorf("neighbors include distant grain %d", far)
	}
}

func TestParallelMatchesInline(t *testing.T) {
	inlineOpts := testOptions()
	inlineOpts.Workers = 1
	inlineOpts.ParallelThreshold = math.MaxInt
	parallelOpts := testOptions()
	parallelOpts.Workers = 8

	inline := newTestWorld(t, inlineOpts)
	parallel := newTestWorld(t, parallelOpts)

	for _, w := range []*World{inline, parallel} {
		w.SpawnLattice(15, 15, 6, 3)
	}
	for frame := 0; frame < 30; frame++ {
		for _, w := range []*World{inline, parallel} {
			if frame%3 == 0 {
				w.Spawn(40, 5, 4)
			}
			w.StepFrame(0.15)
		}
	}

	if inline.Len() != parallel.Len() {
		t.Fatalf("grain counts differ: %d vs %d", inline.Len(), parallel.Len())
	}
	inline.Each(func(s systems.GrainState) {
		p, _ := parallel.Grain(s.ID)
		if p != s {
			t.Fatalf("grain %d diverged: inline %+v, parallel %+v", s.ID, s, p)
		}
	})
}

func TestGrainAccessors(t *testing.T) {
	w := newTestWorld(t, testOptions())
	id := w.Spawn(20, 20, 1)[0]

	if _, ok := w.Grain(id + 1); ok {
		t.Error("Grain reported an unknown ID as present")
	}

	s, ok := w.Grain(id)
	if !ok {
		t.Fatal("Grain missing spawned ID")
	}
	s.Pos = components.Position{X: 60, Y: 70}
	s.Vel = components.Velocity{X: 1}
	if !w.SetGrain(s) {
		t.Fatal("SetGrain failed")
	}
	if w.Rebuild() != 1 {
		t.Error("Rebuild should relocate the moved grain")
	}
	checkGridInvariant(t, w)
}

func TestMotion(t *testing.T) {
	w := newTestWorld(t, testOptions())
	w.Spawn(50, 50, 3)

	st := w.Motion()
	if st.Grains != 3 || st.Resting != 3 || st.MeanSpeed != 0 {
		t.Errorf("fresh grains: %+v", st)
	}

	s, _ := w.Grain(0)
	s.Vel = components.Velocity{X: 3, Y: 4}
	w.SetGrain(s)

	st = w.Motion()
	if st.Resting != 2 {
		t.Errorf("Resting = %d, want 2", st.Resting)
	}
	if math.Abs(st.MaxSpeed-5) > 1e-9 {
		t.Errorf("MaxSpeed = %f, want 5", st.MaxSpeed)
	}
}

func TestEmptyWorldStep(t *testing.T) {
	w := newTestWorld(t, testOptions())
	w.StepFrame(0.1)
	if w.Len() != 0 || w.Frame() != 1 {
		t.Errorf("Len/Frame = %d/%d, want 0/1", w.Len(), w.Frame())
	}
}

func BenchmarkStepFrame(b *testing.B) {
	cfg := config.Defaults()
	w, err := NewWorld(OptionsFromConfig(cfg))
	if err != nil {
		b.Fatal(err)
	}
	defer w.Close()
	w.SpawnLattice(cfg.World.InitialCols, cfg.World.InitialRows,
		float32(cfg.World.InitialSpacingX), float32(cfg.World.InitialSpacingY))

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		w.StepFrame(1.0 / 6)
	}
}

func TestFrameDT(t *testing.T) {
	tests := []struct {
		name                    string
		frame, timeScale, maxDT float64
		want                    float32
	}{
		{"60fps at 10x", 1.0 / 60, 10, 0.5, float32(10.0 / 60)},
		{"long frame is capped", 0.5, 10, 0.5, 0.5},
		{"no cap", 0.5, 10, 0, 5},
		{"negative frame", -1, 10, 0.5, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FrameDT(tc.frame, tc.timeScale, tc.maxDT); math.Abs(float64(got-tc.want)) > 1e-6 {
				t.Errorf("FrameDT = %f, want %f", got, tc.want)
			}
		})
	}
}
