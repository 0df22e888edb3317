package systems

import (
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// ResourceCell is one depleting, regenerating resource site.
type ResourceCell struct {
	X, Y       int
	Good       int
	Qty        int64
	Max        int64
	RegenEvery int // ticks between regenerated units
	RegenIn    int // countdown to the next unit
}

// ResourceField holds all resource cells plus the transient claim table
// that keeps multiple agents from converging on one cell. Cells are kept
// in row-major (y, then x) order so every sweep is deterministic.
type ResourceField struct {
	width, height int
	cells         []ResourceCell
	byPos         map[int]int    // y*width+x -> cell index
	claims        map[int]uint32 // cell index -> claimant agent ID
}

// NewResourceField creates an empty field for a width x height grid.
func NewResourceField(width, height int) *ResourceField {
	return &ResourceField{
		width:  width,
		height: height,
		byPos:  make(map[int]int),
		claims: make(map[int]uint32),
	}
}

// Add places a resource cell. Adding to an occupied position replaces
// the cell. Call Finalize after the last Add.
func (f *ResourceField) Add(c ResourceCell) {
	key := c.Y*f.width + c.X
	if idx, ok := f.byPos[key]; ok {
		f.cells[idx] = c
		return
	}
	f.byPos[key] = len(f.cells)
	f.cells = append(f.cells, c)
}

// Finalize sorts cells row-major and rebuilds the position index. Must
// be called once after seeding, before the first tick.
func (f *ResourceField) Finalize() {
	sort.Slice(f.cells, func(i, j int) bool {
		if f.cells[i].Y != f.cells[j].Y {
			return f.cells[i].Y < f.cells[j].Y
		}
		return f.cells[i].X < f.cells[j].X
	})
	f.byPos = make(map[int]int, len(f.cells))
	for i, c := range f.cells {
		f.byPos[c.Y*f.width+c.X] = i
	}
}

// Cells returns the row-major cell slice. Callers must not reorder it.
func (f *ResourceField) Cells() []ResourceCell {
	return f.cells
}

// At returns the cell at a position, or nil.
func (f *ResourceField) At(x, y int) *ResourceCell {
	idx, ok := f.byPos[y*f.width+x]
	if !ok {
		return nil
	}
	return &f.cells[idx]
}

// IndexAt returns the cell index at a position.
func (f *ResourceField) IndexAt(x, y int) (int, bool) {
	idx, ok := f.byPos[y*f.width+x]
	return idx, ok
}

// Claimant returns the agent holding a claim on the cell, if any.
func (f *ResourceField) Claimant(cellIdx int) (uint32, bool) {
	id, ok := f.claims[cellIdx]
	return id, ok
}

// Claim records a reservation, replacing any previous claimant.
func (f *ResourceField) Claim(cellIdx int, agent uint32) {
	f.claims[cellIdx] = agent
}

// ClearClaim drops a reservation.
func (f *ResourceField) ClearClaim(cellIdx int) {
	delete(f.claims, cellIdx)
}

// ClearClaimsOf drops every reservation held by the agent and returns
// the affected cell indices sorted ascending.
func (f *ResourceField) ClearClaimsOf(agent uint32) []int {
	var cleared []int
	for idx, id := range f.claims {
		if id == agent {
			cleared = append(cleared, idx)
		}
	}
	sort.Ints(cleared)
	for _, idx := range cleared {
		delete(f.claims, idx)
	}
	return cleared
}

// ClaimIndices returns all claimed cell indices sorted ascending, for
// deterministic sweeps.
func (f *ResourceField) ClaimIndices() []int {
	out := make([]int, 0, len(f.claims))
	for idx := range f.claims {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Harvest removes up to want units from the cell and returns the amount
// actually taken.
func (f *ResourceField) Harvest(cellIdx int, want int64) int64 {
	c := &f.cells[cellIdx]
	taken := want
	if taken > c.Qty {
		taken = c.Qty
	}
	c.Qty -= taken
	return taken
}

// Regen advances every cell's regeneration countdown in row-major order.
// A cell below capacity gains one unit each time its countdown expires.
func (f *ResourceField) Regen() {
	for i := range f.cells {
		c := &f.cells[i]
		if c.Qty >= c.Max || c.RegenEvery <= 0 {
			continue
		}
		c.RegenIn--
		if c.RegenIn <= 0 {
			c.Qty++
			c.RegenIn = c.RegenEvery
		}
	}
}

// SeedNoise places count cells of one good on the grid, picking the
// positions where an opensimplex field peaks. The noise is a pure
// function of the seed, so placement is identical across runs and
// machines.
func (f *ResourceField) SeedNoise(seed int64, count int, good int, max int64, regenEvery int) {
	noise := opensimplex.NewNormalized(seed)
	const freq = 0.1

	type scored struct {
		x, y int
		v    float64
	}
	ranked := make([]scored, 0, f.width*f.height)
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			if _, taken := f.byPos[y*f.width+x]; taken {
				continue
			}
			ranked = append(ranked, scored{x: x, y: y, v: noise.Eval2(float64(x)*freq, float64(y)*freq)})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].v != ranked[j].v {
			return ranked[i].v > ranked[j].v
		}
		if ranked[i].y != ranked[j].y {
			return ranked[i].y < ranked[j].y
		}
		return ranked[i].x < ranked[j].x
	})
	if count > len(ranked) {
		count = len(ranked)
	}
	for _, s := range ranked[:count] {
		f.Add(ResourceCell{
			X:          s.x,
			Y:          s.y,
			Good:       good,
			Qty:        max,
			Max:        max,
			RegenEvery: regenEvery,
			RegenIn:    regenEvery,
		})
	}
}
