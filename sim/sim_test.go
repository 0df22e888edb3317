package sim

import (
	"testing"

	"github.com/cmfunderburk/vmt-dev-sub002/scenario"
)

// tradeScenario puts two complementary agents side by side: agent 1
// values y three times x, agent 2 the reverse. They pair and trade on
// the first tick and exhaust the gains by the second.
func tradeScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Seed: 7,
		Grid: scenario.GridConfig{Width: 16, Height: 16, CellSize: 8, Metric: "manhattan"},
		Regime: scenario.RegimeConfig{
			Exchange:          "goods",
			InteractionRadius: 1,
			PerceptionRadius:  8,
			TradeCooldown:     2,
			MaxQuantity:       5,
			Spread:            0,
			MoveBudget:        1,
			ForageRate:        1,
		},
		Goods: []string{"x", "y"},
		Agents: []scenario.AgentConfig{
			{ID: 1, X: 2, Y: 2, Goods: map[string]int64{"x": 6, "y": 6},
				Utility: scenario.UtilityConfig{Family: "linear", Alpha: map[string]float64{"x": 1, "y": 3}}},
			{ID: 2, X: 3, Y: 2, Goods: map[string]int64{"x": 6, "y": 6},
				Utility: scenario.UtilityConfig{Family: "linear", Alpha: map[string]float64{"x": 3, "y": 1}}},
		},
		Telemetry: scenario.TelemetryConfig{StatsWindow: 10},
	}
}

func mustNew(t *testing.T, scn *scenario.Scenario) *Sim {
	t.Helper()
	s, err := New(scn, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func checkConserved(t *testing.T, s *Sim, wantX, wantY int64) {
	t.Helper()
	var totX, totY int64
	for _, id := range s.AgentIDs() {
		goods, _, ok := s.InventoryOf(id)
		if !ok {
			t.Fatalf("agent %d missing", id)
		}
		for i, q := range goods {
			if q < 0 {
				t.Fatalf("agent %d holds %d of good %d", id, q, i)
			}
		}
		totX += goods[0]
		totY += goods[1]
	}
	if totX != wantX || totY != wantY {
		t.Fatalf("totals (%d, %d), want (%d, %d)", totX, totY, wantX, wantY)
	}
}

func TestAdjacentAgentsPairAndTrade(t *testing.T) {
	s := mustNew(t, tradeScenario())

	s.Step()
	checkConserved(t, s, 12, 12)

	if _, active, _ := s.PairingOf(1); !active {
		t.Fatal("agents not paired after first tick")
	}
	if partner, _, _ := s.PairingOf(2); partner != 1 {
		t.Errorf("agent 2 partner = %d, want 1", partner)
	}

	// Midpoint price 5/3, best quantity 3, counter 5.
	goods1, _, _ := s.InventoryOf(1)
	goods2, _, _ := s.InventoryOf(2)
	if goods1[0] != 1 || goods1[1] != 9 {
		t.Errorf("agent 1 holds %v, want [1 9]", goods1)
	}
	if goods2[0] != 11 || goods2[1] != 3 {
		t.Errorf("agent 2 holds %v, want [11 3]", goods2)
	}

	// With the gains exhausted the pairing dissolves on the next tick.
	s.Step()
	checkConserved(t, s, 12, 12)
	if _, active, _ := s.PairingOf(1); active {
		t.Error("pairing survived an infeasible trade attempt")
	}

	// The cooldown blocks immediate re-pairing.
	s.Step()
	if _, active, _ := s.PairingOf(1); active {
		t.Error("agents re-paired during cooldown")
	}
}

func TestDistantAgentsApproachAndTrade(t *testing.T) {
	scn := tradeScenario()
	scn.Agents[1].X = 10
	scn.Regime.PerceptionRadius = 12
	s := mustNew(t, scn)

	traded := false
	for i := 0; i < 6 && !traded; i++ {
		s.Step()
		checkConserved(t, s, 12, 12)
		goods1, _, _ := s.InventoryOf(1)
		traded = goods1[0] != 6 || goods1[1] != 6
	}
	if !traded {
		t.Fatal("agents never met and traded")
	}

	// They closed the gap walking toward each other.
	x1, _, _ := s.PositionOf(1)
	x2, _, _ := s.PositionOf(2)
	d := x2 - x1
	if d < 0 {
		d = -d
	}
	if d > 1 {
		t.Errorf("agents %d apart after trading, want adjacent", d)
	}
}

func TestUnreciprocatedChoiceStaysUnpaired(t *testing.T) {
	scn := tradeScenario()
	scn.Agents[0].Utility.Alpha = map[string]float64{"x": 1, "y": 10}
	scn.Agents[1].Utility.Alpha = map[string]float64{"x": 10, "y": 1}
	scn.Agents = append(scn.Agents, scenario.AgentConfig{
		ID: 3, X: 2, Y: 3, Goods: map[string]int64{"x": 6, "y": 6},
		Utility: scenario.UtilityConfig{Family: "linear", Alpha: map[string]float64{"x": 9, "y": 1}},
	})
	s := mustNew(t, scn)

	s.Step()

	// 1 and 2 see the larger overlap and pair; 3's choice of 1 goes
	// unreciprocated.
	if partner, active, _ := s.PairingOf(1); !active || partner != 2 {
		t.Errorf("agent 1 pairing = (%d, %v), want (2, true)", partner, active)
	}
	if _, active, _ := s.PairingOf(3); active {
		t.Error("agent 3 paired despite unreciprocated choice")
	}
}

func TestForageCycle(t *testing.T) {
	scn := &scenario.Scenario{
		Seed: 3,
		Grid: scenario.GridConfig{Width: 8, Height: 8, CellSize: 4, Metric: "manhattan"},
		Regime: scenario.RegimeConfig{
			Exchange:          "goods",
			InteractionRadius: 1,
			PerceptionRadius:  8,
			TradeCooldown:     0,
			MaxQuantity:       1,
			MoveBudget:        1,
			ForageRate:        1,
		},
		Goods: []string{"x"},
		Agents: []scenario.AgentConfig{
			{ID: 1, X: 1, Y: 1,
				Utility: scenario.UtilityConfig{Family: "linear", Alpha: map[string]float64{"x": 1}}},
		},
		Resources: scenario.ResourcesConfig{
			Cells: []scenario.ResourceCellConfig{{X: 4, Y: 1, Good: "x", Qty: 3, Max: 3}},
		},
		Telemetry: scenario.TelemetryConfig{StatsWindow: 10},
	}
	s := mustNew(t, scn)

	// Three steps to walk over, then one harvest per tick.
	s.Run(5)

	goods, _, _ := s.InventoryOf(1)
	if goods[0] != 3 {
		t.Errorf("agent holds %d, want the full 3", goods[0])
	}
	if x, y, _ := s.PositionOf(1); x != 4 || y != 1 {
		t.Errorf("agent at (%d,%d), want (4,1)", x, y)
	}
	if qty := s.ResourceCells()[0].Qty; qty != 0 {
		t.Errorf("cell qty = %d, want 0", qty)
	}
}

func TestRemoveAgentRepairsPartner(t *testing.T) {
	s := mustNew(t, tradeScenario())

	s.Step()
	if _, active, _ := s.PairingOf(1); !active {
		t.Fatal("agents not paired")
	}

	if !s.RemoveAgent(2) {
		t.Fatal("RemoveAgent(2) failed")
	}
	if s.AgentCount() != 1 {
		t.Fatalf("count = %d, want 1", s.AgentCount())
	}

	// Housekeeping notices the dangling partner and repairs it.
	s.Step()
	if _, active, _ := s.PairingOf(1); active {
		t.Error("dangling pairing survived housekeeping")
	}
}

func TestDeterministicDigests(t *testing.T) {
	load := func() *scenario.Scenario {
		scn, err := scenario.Load("")
		if err != nil {
			t.Fatal(err)
		}
		return scn
	}

	a := mustNew(t, load())
	b := mustNew(t, load())

	if da, db := a.Digest(), b.Digest(); da != db {
		t.Fatalf("initial digests differ:\n%s\n%s", da, db)
	}
	for tick := 1; tick <= 25; tick++ {
		a.Step()
		b.Step()
		if da, db := a.Digest(), b.Digest(); da != db {
			t.Fatalf("digests diverge at tick %d:\n%s\n%s", tick, da, db)
		}
	}
}

func TestDigestReflectsState(t *testing.T) {
	s := mustNew(t, tradeScenario())
	before := s.Digest()
	s.Step()
	if s.Digest() == before {
		t.Error("digest unchanged across a tick that traded")
	}
}
