package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/grains/components"
)

// testGrains is a minimal ECS world holding only what the grid needs.
type testGrains struct {
	world    *ecs.World
	mapper   *ecs.Map2[components.Position, components.Grain]
	posMap   *ecs.Map[components.Position]
	grainMap *ecs.Map[components.Grain]
	nextID   uint32
}

func newTestGrains() *testGrains {
	w := ecs.NewWorld()
	return &testGrains{
		world:    w,
		mapper:   ecs.NewMap2[components.Position, components.Grain](w),
		posMap:   ecs.NewMap[components.Position](w),
		grainMap: ecs.NewMap[components.Grain](w),
	}
}

func (tg *testGrains) add(x, y float32) ecs.Entity {
	id := tg.nextID
	tg.nextID++
	return tg.mapper.NewEntity(&components.Position{X: x, Y: y}, &components.Grain{ID: id})
}

func (tg *testGrains) move(e ecs.Entity, x, y float32) {
	pos := tg.posMap.Get(e)
	pos.X, pos.Y = x, y
}

func contains(es []ecs.Entity, e ecs.Entity) bool {
	for _, x := range es {
		if x == e {
			return true
		}
	}
	return false
}

func TestSpatialGridDims(t *testing.T) {
	g := NewSpatialGrid(100, 50, 10)
	cols, rows := g.Dims()
	// Cells cover [0, width/cellSize] inclusive
	if cols != 11 || rows != 6 {
		t.Errorf("Dims = (%d, %d), want (11, 6)", cols, rows)
	}
}

func TestSpatialGridCellOfClamps(t *testing.T) {
	g := NewSpatialGrid(100, 50, 10)

	tests := []struct {
		name     string
		x, y     float32
		col, row int
	}{
		{"interior", 25, 15, 2, 1},
		{"cell boundary", 10, 10, 1, 1},
		{"negative x", -5, 15, 0, 1},
		{"negative y", 25, -0.1, 2, 0},
		{"far negative", -1e6, -1e6, 0, 0},
		{"exact width", 100, 50, 10, 5},
		{"beyond plane", 500, 500, 10, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			col, row := g.CellOf(tc.x, tc.y)
			if col != tc.col || row != tc.row {
				t.Errorf("CellOf(%v, %v) = (%d, %d), want (%d, %d)", tc.x, tc.y, col, row, tc.col, tc.row)
			}
		})
	}
}

func TestSpatialGridInsertSingleCell(t *testing.T) {
	tg := newTestGrains()
	g := NewSpatialGrid(100, 100, 10)

	e := tg.add(35, 72)
	g.Insert(e, 35, 72)

	if g.Len() != 1 {
		t.Fatalf("Len = %d, want 1", g.Len())
	}

	cols, rows := g.Dims()
	found := 0
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if contains(g.Cell(col, row), e) {
				found++
				if col != 3 || row != 7 {
					t.Errorf("grain stored in (%d, %d), want (3, 7)", col, row)
				}
			}
		}
	}
	if found != 1 {
		t.Errorf("grain stored in %d cells, want 1", found)
	}
}

func TestSpatialGridInsertNegativeClamps(t *testing.T) {
	tg := newTestGrains()
	g := NewSpatialGrid(100, 100, 10)

	e := tg.add(-3, -40)
	g.Insert(e, -3, -40)

	if !contains(g.Cell(0, 0), e) {
		t.Error("negative position should clamp into cell (0, 0)")
	}
}

func TestSpatialGridNeighbors(t *testing.T) {
	tg := newTestGrains()
	g := NewSpatialGrid(100, 100, 10)

	center := tg.add(55, 55)   // cell (5, 5)
	same := tg.add(51, 59)     // cell (5, 5)
	adjacent := tg.add(65, 45) // cell (6, 4)
	far := tg.add(75, 55)      // cell (7, 5), two columns away
	farRow := tg.add(55, 35)   // cell (5, 3), two rows away

	for _, e := range []ecs.Entity{center, same, adjacent, far, farRow} {
		pos := tg.posMap.Get(e)
		g.Insert(e, pos.X, pos.Y)
	}

	got := g.Neighbors(55, 55)

	if !contains(got, center) {
		t.Error("neighbors should include the querying grain's own handle")
	}
	if !contains(got, same) {
		t.Error("neighbors should include every grain in the same cell")
	}
	if !contains(got, adjacent) {
		t.Error("neighbors should include grains in diagonal cells")
	}
	if contains(got, far) {
		t.Error("neighbors should not include grains two columns away")
	}
	if contains(got, farRow) {
		t.Error("neighbors should not include grains two rows away")
	}
	if len(got) != 3 {
		t.Errorf("len(neighbors) = %d, want 3", len(got))
	}
}

func TestSpatialGridNeighborsClampedAtEdges(t *testing.T) {
	tg := newTestGrains()
	g := NewSpatialGrid(100, 100, 10)
	cols, rows := g.Dims()

	// A grain at the opposite corner must not be seen through wraparound.
	opposite := tg.add(99, 99)
	g.Insert(opposite, 99, 99)
	corner := tg.add(1, 1)
	g.Insert(corner, 1, 1)
	bottom := tg.add(5, float32(rows-1)*10)
	g.Insert(bottom, 5, float32(rows-1)*10)

	got := g.Neighbors(1, 1)
	if contains(got, opposite) {
		t.Error("neighbors wrapped around the top-left corner")
	}
	if contains(got, bottom) {
		t.Error("neighbors wrapped to the bottom row")
	}
	if !contains(got, corner) {
		t.Error("neighbors should include the corner cell contents")
	}

	last := g.Neighbors(float32(cols)*10, float32(rows)*10)
	if contains(last, corner) {
		t.Error("neighbors wrapped around the bottom-right corner")
	}
}

func TestSpatialGridQueryInto(t *testing.T) {
	tg := newTestGrains()
	g := NewSpatialGrid(100, 100, 10)

	a := tg.add(20, 20)
	b := tg.add(25, 22)
	g.Insert(a, 20, 20)
	g.Insert(b, 25, 22)

	got := g.QueryInto(nil, 20, 20, tg.posMap, tg.grainMap)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, n := range got {
		pos := tg.posMap.Get(n.E)
		grain := tg.grainMap.Get(n.E)
		if n.X != pos.X || n.Y != pos.Y || n.ID != grain.ID {
			t.Errorf("neighbor %+v does not match components %+v %+v", n, *pos, *grain)
		}
	}
}

func TestSpatialGridRebuildRelocates(t *testing.T) {
	tg := newTestGrains()
	g := NewSpatialGrid(100, 100, 10)

	e := tg.add(15, 15)
	g.Insert(e, 15, 15)
	stay := tg.add(16, 16)
	g.Insert(stay, 16, 16)

	tg.move(e, 85, 42)

	moved := g.Rebuild(tg.posMap)
	if moved != 1 {
		t.Errorf("Rebuild moved %d, want 1", moved)
	}
	if contains(g.Cell(1, 1), e) {
		t.Error("moved grain still in its old cell")
	}
	if !contains(g.Cell(8, 4), e) {
		t.Error("moved grain not in its new cell")
	}
	if !contains(g.Cell(1, 1), stay) {
		t.Error("stationary grain lost from its cell")
	}
	if g.Len() != 2 {
		t.Errorf("Len = %d, want 2", g.Len())
	}
}

func TestSpatialGridRebuildIdempotent(t *testing.T) {
	tg := newTestGrains()
	g := NewSpatialGrid(100, 100, 10)

	var es []ecs.Entity
	for i := 0; i < 50; i++ {
		x := float32(i*7%100) + 0.5
		y := float32(i*13%100) + 0.5
		e := tg.add(x, y)
		g.Insert(e, x, y)
		es = append(es, e)
	}

	// Scatter everything, including a move into a cell scanned later.
	for i, e := range es {
		tg.move(e, float32((i*31)%100), float32((i*17)%100))
	}
	g.Rebuild(tg.posMap)

	snapshot := func() map[ecs.Entity][2]int {
		out := make(map[ecs.Entity][2]int)
		cols, rows := g.Dims()
		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				for _, e := range g.Cell(col, row) {
					out[e] = [2]int{col, row}
				}
			}
		}
		return out
	}

	first := snapshot()
	if moved := g.Rebuild(tg.posMap); moved != 0 {
		t.Errorf("second Rebuild moved %d, want 0", moved)
	}
	second := snapshot()

	if len(first) != len(es) || len(second) != len(es) {
		t.Fatalf("membership sizes %d/%d, want %d", len(first), len(second), len(es))
	}
	for e, cell := range first {
		if second[e] != cell {
			t.Errorf("entity %v changed cell %v -> %v", e, cell, second[e])
		}
		pos := tg.posMap.Get(e)
		col, row := g.CellOf(pos.X, pos.Y)
		if cell != [2]int{col, row} {
			t.Errorf("entity %v in %v, position maps to (%d, %d)", e, cell, col, row)
		}
	}
}

func TestSpatialGridRebuildClampsNegative(t *testing.T) {
	tg := newTestGrains()
	g := NewSpatialGrid(100, 100, 10)

	e := tg.add(50, 50)
	g.Insert(e, 50, 50)
	tg.move(e, -20, -1)

	g.Rebuild(tg.posMap)
	if !contains(g.Cell(0, 0), e) {
		t.Error("negative position should clamp into cell (0, 0) on rebuild")
	}
}

func BenchmarkSpatialGridRebuild(b *testing.B) {
	tg := newTestGrains()
	g := NewSpatialGrid(600, 400, 16)
	var es []ecs.Entity
	for i := 0; i < 2000; i++ {
		x := float32(i%45) * 13
		y := float32(i/45) * 8
		e := tg.add(x, y)
		g.Insert(e, x, y)
		es = append(es, e)
	}

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		shift := float32(n%2) * 20
		for i, e := range es {
			tg.move(e, float32(i%45)*13+shift, float32(i/45)*8)
		}
		g.Rebuild(tg.posMap)
	}
}
