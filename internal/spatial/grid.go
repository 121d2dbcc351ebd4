// Package spatial provides cache-efficient spatial data structures for
// broad-phase collision detection and neighbor queries used by the room
// simulation: a uniform grid for bucketed proximity queries, sweep-and-prune
// for obstacle broad-phase, a flow field for troop path bias, a skip list
// for ranked lookups, and lock-free queues for the per-room input/output
// pipeline.
//
// All structures use preallocated slices with integer indices (not pointers)
// to minimize GC pressure and maximize cache locality.
package spatial

import (
	"math"
)

// SpatialGrid provides O(1) average spatial queries via fixed-size cells.
// Uses preallocated slices with entity indices (not pointers) for GC
// efficiency. Cells are stored in row-major order (cells[row*cols+col]).
//
// Boundary tie-breaking: cell assignment is inclusive on the min edge of a
// cell and exclusive on the max edge, the natural result of floor(x/cellSize).
type SpatialGrid struct {
	cellSize    float64
	invCellSize float64 // 1/cellSize for faster division
	cols, rows  int
	cells       [][]uint32 // cells[row*cols+col] = list of entity indices
	scratch     []uint32   // reusable buffer for query results
	maxEntities int
}

// NewSpatialGrid creates a grid for the given world bounds.
// cellSize should equal the largest query radius for optimal performance.
// maxEntities is used to preallocate cell capacity.
func NewSpatialGrid(worldWidth, worldHeight, cellSize float64, maxEntities int) *SpatialGrid {
	cols := int(math.Ceil(worldWidth / cellSize))
	rows := int(math.Ceil(worldHeight / cellSize))

	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	avgPerCell := maxEntities / len(cells)
	if avgPerCell < 4 {
		avgPerCell = 4
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, avgPerCell)
	}

	return &SpatialGrid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 64),
		maxEntities: maxEntities,
	}
}

// Clear resets all cells without deallocating underlying memory.
// O(number of cells), not number of entities.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an entity at position (x, y). entityID should be the index
// into the caller's entity table. O(1).
func (g *SpatialGrid) Insert(entityID uint32, x, y float64) {
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], entityID)
}

// Remove deletes entityID from the cell containing (x, y). O(cell size).
// No-op if the entity is not present in that cell (e.g. stale coordinates).
func (g *SpatialGrid) Remove(entityID uint32, x, y float64) {
	idx := g.cellIndex(x, y)
	cell := g.cells[idx]
	for i, id := range cell {
		if id == entityID {
			cell[i] = cell[len(cell)-1]
			g.cells[idx] = cell[:len(cell)-1]
			return
		}
	}
}

// Move relocates entityID from (oldX, oldY) to (newX, newY). A no-op (aside
// from the remove/insert pair) when both positions hash to the same cell.
func (g *SpatialGrid) Move(entityID uint32, oldX, oldY, newX, newY float64) {
	oldIdx := g.cellIndex(oldX, oldY)
	newIdx := g.cellIndex(newX, newY)
	if oldIdx == newIdx {
		return
	}
	g.Remove(entityID, oldX, oldY)
	g.Insert(entityID, newX, newY)
}

// cellIndex computes the cell index for a position, with bounds checking.
func (g *SpatialGrid) cellIndex(x, y float64) int {
	col := int(x * g.invCellSize)
	row := int(y * g.invCellSize)

	if col < 0 {
		col = 0
	}
	if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= g.rows {
		row = g.rows - 1
	}

	return row*g.cols + col
}

// QueryRadius returns all entity IDs potentially within radius of (cx, cy).
// Uses an internal scratch buffer to avoid allocation; the returned slice is
// reused on the next call and candidates may fall outside the exact radius
// (narrow-phase distance check is the caller's responsibility).
func (g *SpatialGrid) QueryRadius(cx, cy, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol := int((cx - radius) * g.invCellSize)
	maxCol := int((cx + radius) * g.invCellSize)
	minRow := int((cy - radius) * g.invCellSize)
	maxRow := int((cy + radius) * g.invCellSize)

	if minCol < 0 {
		minCol = 0
	}
	if maxCol >= g.cols {
		maxCol = g.cols - 1
	}
	if minRow < 0 {
		minRow = 0
	}
	if maxRow >= g.rows {
		maxRow = g.rows - 1
	}

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			idx := row*g.cols + col
			g.scratch = append(g.scratch, g.cells[idx]...)
		}
	}

	return g.scratch
}

// QueryAABB returns all entity IDs potentially within the axis-aligned box
// [minX,maxX] x [minY,maxY]. Same reused-scratch-buffer contract as
// QueryRadius.
func (g *SpatialGrid) QueryAABB(minX, minY, maxX, maxY float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol := int(minX * g.invCellSize)
	maxCol := int(maxX * g.invCellSize)
	minRow := int(minY * g.invCellSize)
	maxRow := int(maxY * g.invCellSize)

	if minCol < 0 {
		minCol = 0
	}
	if maxCol >= g.cols {
		maxCol = g.cols - 1
	}
	if minRow < 0 {
		minRow = 0
	}
	if maxRow >= g.rows {
		maxRow = g.rows - 1
	}

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			idx := row*g.cols + col
			g.scratch = append(g.scratch, g.cells[idx]...)
		}
	}

	return g.scratch
}

// QueryCell returns all entity IDs in the cell containing (x, y).
func (g *SpatialGrid) QueryCell(x, y float64) []uint32 {
	idx := g.cellIndex(x, y)
	return g.cells[idx]
}

// Stats returns grid statistics for debugging/profiling.
func (g *SpatialGrid) Stats() GridStats {
	var totalEntities, maxInCell, nonEmpty int
	for _, cell := range g.cells {
		count := len(cell)
		totalEntities += count
		if count > maxInCell {
			maxInCell = count
		}
		if count > 0 {
			nonEmpty++
		}
	}

	avgPerCell := 0.0
	if nonEmpty > 0 {
		avgPerCell = float64(totalEntities) / float64(nonEmpty)
	}

	return GridStats{
		TotalCells:     len(g.cells),
		NonEmptyCells:  nonEmpty,
		TotalEntities:  totalEntities,
		MaxInCell:      maxInCell,
		AvgPerNonEmpty: avgPerCell,
	}
}

// GridStats contains grid statistics for debugging.
type GridStats struct {
	TotalCells     int
	NonEmptyCells  int
	TotalEntities  int
	MaxInCell      int
	AvgPerNonEmpty float64
}

// Dimensions returns the grid dimensions.
func (g *SpatialGrid) Dimensions() (cols, rows int, cellSize float64) {
	return g.cols, g.rows, g.cellSize
}
