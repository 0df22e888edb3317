package systems

import (
	"reflect"
	"testing"
)

func TestDist(t *testing.T) {
	tests := []struct {
		name           string
		x1, y1, x2, y2 int
		manhattan      int
		chebyshev      int
	}{
		{"same cell", 3, 3, 3, 3, 0, 0},
		{"axis aligned", 0, 0, 4, 0, 4, 4},
		{"diagonal", 0, 0, 3, 4, 7, 4},
		{"negative deltas", 5, 5, 2, 1, 7, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dist(Manhattan, tt.x1, tt.y1, tt.x2, tt.y2); got != tt.manhattan {
				t.Errorf("Manhattan = %d, want %d", got, tt.manhattan)
			}
			if got := Dist(Chebyshev, tt.x1, tt.y1, tt.x2, tt.y2); got != tt.chebyshev {
				t.Errorf("Chebyshev = %d, want %d", got, tt.chebyshev)
			}
		})
	}
}

func TestQueryRadius(t *testing.T) {
	g := NewSpatialGrid(32, 32, 8)
	g.Insert(3, 10, 10)
	g.Insert(1, 12, 10)
	g.Insert(2, 10, 14)
	g.Insert(4, 30, 30)

	got := g.QueryRadius(10, 10, 4, Manhattan, 0)
	if want := []uint32{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("QueryRadius = %v, want %v (sorted ascending)", got, want)
	}

	// The querying agent excludes itself.
	got = g.QueryRadius(10, 10, 4, Manhattan, 3)
	if want := []uint32{1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("QueryRadius excluding 3 = %v, want %v", got, want)
	}

	// Radius zero finds only co-located agents; with single occupancy
	// that means nothing but the querier itself.
	if got := g.QueryRadius(10, 10, 0, Manhattan, 3); got != nil {
		t.Errorf("QueryRadius r=0 = %v, want nil", got)
	}

	// Out-of-grid queries return nil rather than erroring.
	if got := g.QueryRadius(-1, 5, 4, Manhattan, 0); got != nil {
		t.Errorf("out-of-grid query = %v, want nil", got)
	}
}

func TestQueryRadiusMetrics(t *testing.T) {
	g := NewSpatialGrid(16, 16, 4)
	g.Insert(1, 3, 3)
	g.Insert(2, 5, 5) // manhattan 4, chebyshev 2 from (3,3)

	if got := g.QueryRadius(3, 3, 2, Manhattan, 1); got != nil {
		t.Errorf("Manhattan r=2 = %v, want nil", got)
	}
	got := g.QueryRadius(3, 3, 2, Chebyshev, 1)
	if want := []uint32{2}; !reflect.DeepEqual(got, want) {
		t.Errorf("Chebyshev r=2 = %v, want %v", got, want)
	}
}

func TestMoveKeepsGridCurrent(t *testing.T) {
	g := NewSpatialGrid(32, 32, 8)
	g.Insert(1, 2, 2)

	// Across a bucket boundary.
	g.Move(1, 2, 2, 20, 20)

	if got := g.QueryRadius(2, 2, 3, Manhattan, 0); got != nil {
		t.Errorf("old position still occupied: %v", got)
	}
	got := g.QueryRadius(20, 20, 0, Manhattan, 0)
	if want := []uint32{1}; !reflect.DeepEqual(got, want) {
		t.Errorf("new position query = %v, want %v", got, want)
	}
}

func TestRemoveAndClear(t *testing.T) {
	g := NewSpatialGrid(16, 16, 4)
	g.Insert(1, 1, 1)
	g.Insert(2, 2, 2)

	g.Remove(1, 1, 1)
	got := g.QueryRadius(1, 1, 4, Manhattan, 0)
	if want := []uint32{2}; !reflect.DeepEqual(got, want) {
		t.Errorf("after Remove = %v, want %v", got, want)
	}

	g.Clear()
	if got := g.QueryRadius(1, 1, 4, Manhattan, 0); got != nil {
		t.Errorf("after Clear = %v, want nil", got)
	}
}
