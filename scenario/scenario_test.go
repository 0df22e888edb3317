package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cmfunderburk/vmt-dev-sub002/utility"
)

func TestLoadDefaults(t *testing.T) {
	scn, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}
	if scn.Seed == 0 {
		t.Error("defaults carry no seed")
	}
	if len(scn.Goods) == 0 || len(scn.Agents) == 0 {
		t.Errorf("defaults have %d goods, %d agents", len(scn.Goods), len(scn.Agents))
	}
	// Normalize assigned sequential IDs.
	for i, a := range scn.Agents {
		if a.ID != uint32(i+1) {
			t.Errorf("agent %d id = %d, want %d", i, a.ID, i+1)
		}
	}
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	overlay := "seed: 1234\nregime:\n  trade_cooldown: 9\n"
	if err := os.WriteFile(path, []byte(overlay), 0644); err != nil {
		t.Fatal(err)
	}

	scn, err := Load(path)
	if err != nil {
		t.Fatalf("Load overlay: %v", err)
	}
	if scn.Seed != 1234 {
		t.Errorf("seed = %d, want 1234", scn.Seed)
	}
	if scn.Regime.TradeCooldown != 9 {
		t.Errorf("trade_cooldown = %d, want 9", scn.Regime.TradeCooldown)
	}
	// Untouched sections keep their defaults.
	if scn.Grid.Width != 32 {
		t.Errorf("grid width = %d, want default 32", scn.Grid.Width)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}

func base(t *testing.T) *Scenario {
	t.Helper()
	scn, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	return scn
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Scenario)
	}{
		{"zero grid", func(s *Scenario) { s.Grid.Width = 0 }},
		{"bad metric", func(s *Scenario) { s.Grid.Metric = "euclidean" }},
		{"no goods", func(s *Scenario) { s.Goods = nil }},
		{"duplicate good", func(s *Scenario) { s.Goods = []string{"sugar", "sugar"} }},
		{"bad regime", func(s *Scenario) { s.Regime.Exchange = "barter" }},
		{"money regime without money", func(s *Scenario) { s.Regime.Exchange = "money" }},
		{"perception below interaction", func(s *Scenario) { s.Regime.PerceptionRadius = 0 }},
		{"zero max quantity", func(s *Scenario) { s.Regime.MaxQuantity = 0 }},
		{"spread out of range", func(s *Scenario) { s.Regime.Spread = 1 }},
		{"duplicate agent id", func(s *Scenario) { s.Agents[1].ID = s.Agents[0].ID }},
		{"agent out of bounds", func(s *Scenario) { s.Agents[0].X = 99 }},
		{"agents co-located", func(s *Scenario) {
			s.Agents[1].X = s.Agents[0].X
			s.Agents[1].Y = s.Agents[0].Y
		}},
		{"negative goods", func(s *Scenario) { s.Agents[0].Goods["sugar"] = -1 }},
		{"money with money disabled", func(s *Scenario) { s.Agents[0].Money = 10 }},
		{"unknown good in inventory", func(s *Scenario) { s.Agents[0].Goods["salt"] = 1 }},
		{"bad utility family", func(s *Scenario) { s.Agents[0].Utility.Family = "cobb_douglas" }},
		{"zero stats window", func(s *Scenario) { s.Telemetry.StatsWindow = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scn := base(t)
			tt.mut(scn)
			if err := scn.Validate(); err == nil {
				t.Error("Validate accepted invalid scenario")
			}
		})
	}
}

func TestValidateStoneGearyFloor(t *testing.T) {
	scn := base(t)
	scn.Agents[0].Utility = UtilityConfig{
		Family: "stone_geary",
		Alpha:  map[string]float64{"sugar": 1, "spice": 1},
		Gamma:  map[string]float64{"sugar": 1, "spice": 1},
	}
	scn.Agents[0].Goods = map[string]int64{"sugar": 1, "spice": 5}
	if err := scn.Validate(); err == nil {
		t.Error("Validate accepted agent at its subsistence floor")
	}

	scn.Agents[0].Goods["sugar"] = 2
	if err := scn.Validate(); err != nil {
		t.Errorf("Validate rejected agent above its floor: %v", err)
	}
}

func TestBuildUtilityMapsByName(t *testing.T) {
	scn := base(t)
	fn, err := scn.BuildUtility(UtilityConfig{
		Family: "linear",
		Alpha:  map[string]float64{"spice": 3, "sugar": 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if fn.Family != utility.Linear {
		t.Errorf("family = %v, want linear", fn.Family)
	}
	// Vector order follows the goods list, not the map.
	if fn.Alpha[0] != 2 || fn.Alpha[1] != 3 {
		t.Errorf("alpha = %v, want [2 3]", fn.Alpha)
	}

	if _, err := scn.BuildUtility(UtilityConfig{Family: "linear", Alpha: map[string]float64{"salt": 1}}); err == nil {
		t.Error("BuildUtility accepted unknown good")
	}
}

func TestBuildInventory(t *testing.T) {
	scn := base(t)
	goods, err := scn.BuildInventory(AgentConfig{Goods: map[string]int64{"spice": 7}})
	if err != nil {
		t.Fatal(err)
	}
	if goods[0] != 0 || goods[1] != 7 {
		t.Errorf("goods = %v, want [0 7]", goods)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	scn := base(t)
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := scn.WriteYAML(path); err != nil {
		t.Fatal(err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("reloading written scenario: %v", err)
	}
	if back.Seed != scn.Seed || len(back.Agents) != len(scn.Agents) {
		t.Errorf("round trip changed scenario: seed %d->%d, agents %d->%d",
			scn.Seed, back.Seed, len(scn.Agents), len(back.Agents))
	}
}
