// Package systems provides the simulation's core mechanics: the spatial
// index, candidate ranking, trade search, and the resource field. The
// logic here operates on plain values so it can be tested without an ECS
// world; the sim package wires it into the tick loop.
package systems

import "sort"

// Metric selects the distance metric for a run. It is fixed at
// initialization and never changes mid-run.
type Metric uint8

const (
	// Manhattan is |dx| + |dy|.
	Manhattan Metric = iota
	// Chebyshev is max(|dx|, |dy|).
	Chebyshev
)

// Dist returns the metric distance between two grid positions.
func Dist(m Metric, x1, y1, x2, y2 int) int {
	dx := x1 - x2
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y2
	if dy < 0 {
		dy = -dy
	}
	if m == Chebyshev {
		if dx > dy {
			return dx
		}
		return dy
	}
	return dx + dy
}

// gridEntry is one occupant record in a bucket.
type gridEntry struct {
	ID   uint32
	X, Y int
}

// SpatialGrid answers "which agents are within radius r of p" in time
// proportional to the touched buckets, independent of total population.
// Buckets cover cellSize x cellSize regions of the bounded grid. The grid
// is updated incrementally as agents move; it must never be stale when a
// later phase queries it.
type SpatialGrid struct {
	cellSize int
	cols     int
	rows     int
	width    int
	height   int
	cells    [][]gridEntry
}

// NewSpatialGrid creates a grid covering width x height with the given
// bucket size.
func NewSpatialGrid(width, height, cellSize int) *SpatialGrid {
	cols := (width + cellSize - 1) / cellSize
	rows := (height + cellSize - 1) / cellSize
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	cells := make([][]gridEntry, cols*rows)
	for i := range cells {
		cells[i] = make([]gridEntry, 0, 8)
	}
	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		width:    width,
		height:   height,
		cells:    cells,
	}
}

// Clear removes all occupants.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an agent at the given position. Out-of-grid positions are
// ignored.
func (g *SpatialGrid) Insert(id uint32, x, y int) {
	idx, ok := g.bucketIndex(x, y)
	if !ok {
		return
	}
	g.cells[idx] = append(g.cells[idx], gridEntry{ID: id, X: x, Y: y})
}

// Remove deletes an agent from the bucket holding the given position.
func (g *SpatialGrid) Remove(id uint32, x, y int) {
	idx, ok := g.bucketIndex(x, y)
	if !ok {
		return
	}
	bucket := g.cells[idx]
	for i, e := range bucket {
		if e.ID == id {
			g.cells[idx] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// Move relocates an agent. It must be called for every position change,
// in the same tick, before any later phase queries the grid.
func (g *SpatialGrid) Move(id uint32, fromX, fromY, toX, toY int) {
	g.Remove(id, fromX, fromY)
	g.Insert(id, toX, toY)
}

// QueryRadius returns the IDs of all agents within metric distance r of
// (x, y), excluding the given ID, sorted ascending. Queries outside the
// grid return nil rather than erroring.
func (g *SpatialGrid) QueryRadius(x, y, r int, m Metric, exclude uint32) []uint32 {
	if x < 0 || y < 0 || x >= g.width || y >= g.height || r < 0 {
		return nil
	}
	cellRadius := r/g.cellSize + 1
	centerCol := x / g.cellSize
	centerRow := y / g.cellSize

	var out []uint32
	for dc := -cellRadius; dc <= cellRadius; dc++ {
		col := centerCol + dc
		if col < 0 || col >= g.cols {
			continue
		}
		for dr := -cellRadius; dr <= cellRadius; dr++ {
			row := centerRow + dr
			if row < 0 || row >= g.rows {
				continue
			}
			for _, e := range g.cells[row*g.cols+col] {
				if e.ID == exclude {
					continue
				}
				if Dist(m, x, y, e.X, e.Y) <= r {
					out = append(out, e.ID)
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// bucketIndex returns the flat bucket index for a position and whether
// the position is inside the grid.
func (g *SpatialGrid) bucketIndex(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return 0, false
	}
	return (y/g.cellSize)*g.cols + x/g.cellSize, true
}
