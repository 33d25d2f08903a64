// Package systems provides the grid index and per-grain physics.
package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/grains/components"
)

// Neighbor is a nearby grain as seen by a collision query.
type Neighbor struct {
	E    ecs.Entity
	ID   uint32
	X, Y float32
}

// SpatialGrid indexes grains by uniform square cells for neighbor lookups.
// Cells hold entity handles only; the ECS world owns the grains.
type SpatialGrid struct {
	cellSize float32
	cols     int // cells per row, covering [0, width/cellSize]
	rows     int
	cells    [][]ecs.Entity // flat grid of entity lists, row-major
	count    int
}

// NewSpatialGrid creates a spatial grid covering the given plane.
// cellSize must be positive; callers validate it at construction.
func NewSpatialGrid(width, height, cellSize float32) *SpatialGrid {
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]ecs.Entity, cols*rows)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8) // pre-allocate small capacity
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Dims returns the number of columns and rows.
func (g *SpatialGrid) Dims() (cols, rows int) {
	return g.cols, g.rows
}

// CellSize returns the side length of a cell.
func (g *SpatialGrid) CellSize() float32 {
	return g.cellSize
}

// Len returns the number of handles stored across all cells.
func (g *SpatialGrid) Len() int {
	return g.count
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.count = 0
}

// Insert adds an entity to the cell containing (x, y).
// Positions outside the plane, including negative ones, land in the nearest edge cell.
func (g *SpatialGrid) Insert(e ecs.Entity, x, y float32) {
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], e)
	g.count++
}

// CellOf returns the clamped cell coordinates of a position.
func (g *SpatialGrid) CellOf(x, y float32) (col, row int) {
	return g.clampCol(x), g.clampRow(y)
}

// Cell returns the handles stored in the given cell. The slice aliases
// grid storage and is only valid until the next Insert or Rebuild.
func (g *SpatialGrid) Cell(col, row int) []ecs.Entity {
	if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
		return nil
	}
	return g.cells[row*g.cols+col]
}

// NeighborsInto appends the handles in the 3x3 block of cells around (x, y)
// to dst. The block is clamped at the plane edges, never wrapped, and
// includes the center cell itself.
func (g *SpatialGrid) NeighborsInto(dst []ecs.Entity, x, y float32) []ecs.Entity {
	centerCol, centerRow := g.CellOf(x, y)

	for row := max(centerRow-1, 0); row <= min(centerRow+1, g.rows-1); row++ {
		for col := max(centerCol-1, 0); col <= min(centerCol+1, g.cols-1); col++ {
			dst = append(dst, g.cells[row*g.cols+col]...)
		}
	}
	return dst
}

// Neighbors returns the handles in the 3x3 block of cells around (x, y).
func (g *SpatialGrid) Neighbors(x, y float32) []ecs.Entity {
	return g.NeighborsInto(nil, x, y)
}

// QueryInto appends the grains in the 3x3 block around (x, y) to dst,
// resolving each handle's identity and position. Safe for concurrent use
// as long as nothing mutates the grid or the components meanwhile.
func (g *SpatialGrid) QueryInto(
	dst []Neighbor, x, y float32,
	posMap *ecs.Map[components.Position],
	grainMap *ecs.Map[components.Grain],
) []Neighbor {
	centerCol, centerRow := g.CellOf(x, y)

	for row := max(centerRow-1, 0); row <= min(centerRow+1, g.rows-1); row++ {
		for col := max(centerCol-1, 0); col <= min(centerCol+1, g.cols-1); col++ {
			for _, e := range g.cells[row*g.cols+col] {
				pos := posMap.Get(e)
				grain := grainMap.Get(e)
				if pos == nil || grain == nil {
					continue
				}
				dst = append(dst, Neighbor{E: e, ID: grain.ID, X: pos.X, Y: pos.Y})
			}
		}
	}
	return dst
}

// Rebuild restores cell membership after grains have moved. Each handle
// whose live position maps to a different cell than the one holding it is
// moved there. Returns the number of handles relocated.
//
// Must not run concurrently with queries.
func (g *SpatialGrid) Rebuild(posMap *ecs.Map[components.Position]) int {
	moved := 0
	for idx := range g.cells {
		cell := g.cells[idx]
		// Walk backwards so swap-removal only disturbs already visited slots.
		for i := len(cell) - 1; i >= 0; i-- {
			pos := posMap.Get(cell[i])
			if pos == nil {
				continue
			}
			target := g.cellIndex(pos.X, pos.Y)
			if target == idx {
				continue
			}
			e := cell[i]
			last := len(cell) - 1
			cell[i] = cell[last]
			cell = cell[:last]
			g.cells[target] = append(g.cells[target], e)
			moved++
		}
		g.cells[idx] = cell
	}
	return moved
}

// cellIndex returns the flat index for a plane position.
func (g *SpatialGrid) cellIndex(x, y float32) int {
	return g.clampRow(y)*g.cols + g.clampCol(x)
}

// clampCol converts x to a column in [0, cols-1]. Negative and NaN values
// map to column 0 instead of relying on float-to-int conversion.
func (g *SpatialGrid) clampCol(x float32) int {
	c := x / g.cellSize
	if !(c >= 0) {
		return 0
	}
	if c >= float32(g.cols-1) {
		return g.cols - 1
	}
	return int(c)
}

func (g *SpatialGrid) clampRow(y float32) int {
	r := y / g.cellSize
	if !(r >= 0) {
		return 0
	}
	if r >= float32(g.rows-1) {
		return g.rows - 1
	}
	return int(r)
}
