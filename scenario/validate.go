package scenario

import (
	"fmt"

	"github.com/cmfunderburk/vmt-dev-sub002/utility"
)

// Normalize fills in derived conveniences before validation: if no agent
// carries an explicit identifier, sequential IDs are assigned in list
// order starting at 1. Load calls this; callers constructing scenarios
// in code may call it themselves.
func (s *Scenario) Normalize() {
	allZero := true
	for _, a := range s.Agents {
		if a.ID != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		for i := range s.Agents {
			s.Agents[i].ID = uint32(i + 1)
		}
	}
}

// Validate checks the whole scenario and returns the first problem
// found. All violations here are configuration errors: they fail before
// any tick runs and are never swallowed.
func (s *Scenario) Validate() error {
	if s.Grid.Width <= 0 || s.Grid.Height <= 0 {
		return fmt.Errorf("grid: dimensions %dx%d, both must be positive", s.Grid.Width, s.Grid.Height)
	}
	if s.Grid.CellSize <= 0 {
		return fmt.Errorf("grid: cell_size %d, must be positive", s.Grid.CellSize)
	}
	if _, err := s.Metric(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}

	if len(s.Goods) == 0 {
		return fmt.Errorf("goods: at least one good is required")
	}
	seenGoods := make(map[string]bool)
	for i, g := range s.Goods {
		if g == "" {
			return fmt.Errorf("goods[%d]: empty name", i)
		}
		if seenGoods[g] {
			return fmt.Errorf("goods: duplicate name %q", g)
		}
		seenGoods[g] = true
	}

	regime, err := s.ExchangeRegime()
	if err != nil {
		return fmt.Errorf("regime: %w", err)
	}
	if regime != utility.RegimeGoods && !s.Money.Enabled {
		return fmt.Errorf("regime: exchange %q requires money.enabled", s.Regime.Exchange)
	}
	if s.Regime.InteractionRadius < 1 {
		return fmt.Errorf("regime: interaction_radius %d, must be at least 1", s.Regime.InteractionRadius)
	}
	if s.Regime.PerceptionRadius < s.Regime.InteractionRadius {
		return fmt.Errorf("regime: perception_radius %d below interaction_radius %d",
			s.Regime.PerceptionRadius, s.Regime.InteractionRadius)
	}
	if s.Regime.TradeCooldown < 0 {
		return fmt.Errorf("regime: trade_cooldown %d, must be non-negative", s.Regime.TradeCooldown)
	}
	if s.Regime.MaxQuantity < 1 {
		return fmt.Errorf("regime: max_quantity %d, must be at least 1", s.Regime.MaxQuantity)
	}
	if s.Regime.Spread < 0 || s.Regime.Spread >= 1 {
		return fmt.Errorf("regime: spread %v, must be in [0, 1)", s.Regime.Spread)
	}
	if s.Regime.MoveBudget < 1 {
		return fmt.Errorf("regime: move_budget %d, must be at least 1", s.Regime.MoveBudget)
	}
	if s.Regime.ForageRate < 1 {
		return fmt.Errorf("regime: forage_rate %d, must be at least 1", s.Regime.ForageRate)
	}

	if len(s.Agents) == 0 {
		return fmt.Errorf("agents: at least one agent is required")
	}
	seenIDs := make(map[uint32]bool)
	seenPos := make(map[[2]int]uint32)
	for i, a := range s.Agents {
		if a.ID == 0 {
			return fmt.Errorf("agents[%d]: id 0 is reserved (set ids explicitly or none at all)", i)
		}
		if seenIDs[a.ID] {
			return fmt.Errorf("agents[%d]: duplicate id %d", i, a.ID)
		}
		seenIDs[a.ID] = true
		if a.X < 0 || a.X >= s.Grid.Width || a.Y < 0 || a.Y >= s.Grid.Height {
			return fmt.Errorf("agent %d: position (%d,%d) outside %dx%d grid", a.ID, a.X, a.Y, s.Grid.Width, s.Grid.Height)
		}
		// One agent per cell: movement assumes single occupancy.
		if prev, taken := seenPos[[2]int{a.X, a.Y}]; taken {
			return fmt.Errorf("agent %d: position (%d,%d) already occupied by agent %d", a.ID, a.X, a.Y, prev)
		}
		seenPos[[2]int{a.X, a.Y}] = a.ID

		goods, err := s.BuildInventory(a)
		if err != nil {
			return fmt.Errorf("agent %d: %w", a.ID, err)
		}
		for g, qty := range goods {
			if qty < 0 {
				return fmt.Errorf("agent %d: negative initial %s", a.ID, s.Goods[g])
			}
		}
		if a.Money < 0 {
			return fmt.Errorf("agent %d: negative initial money", a.ID)
		}
		if a.Money != 0 && !s.Money.Enabled {
			return fmt.Errorf("agent %d: money balance with money disabled", a.ID)
		}

		fn, err := s.BuildUtility(a.Utility)
		if err != nil {
			return fmt.Errorf("agent %d: %w", a.ID, err)
		}
		if err := fn.Validate(len(s.Goods)); err != nil {
			return fmt.Errorf("agent %d: %w", a.ID, err)
		}
		if !fn.Feasible(goods) {
			return fmt.Errorf("agent %d: initial inventory not above subsistence floor", a.ID)
		}
	}

	seenCells := make(map[[2]int]bool)
	for i, c := range s.Resources.Cells {
		if _, err := s.GoodIndex(c.Good); err != nil {
			return fmt.Errorf("resources.cells[%d]: %w", i, err)
		}
		if c.X < 0 || c.X >= s.Grid.Width || c.Y < 0 || c.Y >= s.Grid.Height {
			return fmt.Errorf("resources.cells[%d]: position (%d,%d) outside grid", i, c.X, c.Y)
		}
		if seenCells[[2]int{c.X, c.Y}] {
			return fmt.Errorf("resources.cells[%d]: duplicate position (%d,%d)", i, c.X, c.Y)
		}
		seenCells[[2]int{c.X, c.Y}] = true
		if c.Max < 1 {
			return fmt.Errorf("resources.cells[%d]: max %d, must be at least 1", i, c.Max)
		}
		if c.Qty < 0 || c.Qty > c.Max {
			return fmt.Errorf("resources.cells[%d]: qty %d outside [0, %d]", i, c.Qty, c.Max)
		}
		if c.RegenEvery < 0 {
			return fmt.Errorf("resources.cells[%d]: regen_every %d, must be non-negative", i, c.RegenEvery)
		}
	}
	for i, n := range s.Resources.Noise {
		if _, err := s.GoodIndex(n.Good); err != nil {
			return fmt.Errorf("resources.noise[%d]: %w", i, err)
		}
		if n.Count < 1 {
			return fmt.Errorf("resources.noise[%d]: count %d, must be at least 1", i, n.Count)
		}
		if n.Max < 1 {
			return fmt.Errorf("resources.noise[%d]: max %d, must be at least 1", i, n.Max)
		}
		if n.RegenEvery < 0 {
			return fmt.Errorf("resources.noise[%d]: regen_every %d, must be non-negative", i, n.RegenEvery)
		}
	}

	if s.Telemetry.StatsWindow < 1 {
		return fmt.Errorf("telemetry: stats_window %d, must be at least 1", s.Telemetry.StatsWindow)
	}
	if s.Telemetry.SnapshotEvery < 0 {
		return fmt.Errorf("telemetry: snapshot_every %d, must be non-negative", s.Telemetry.SnapshotEvery)
	}

	return nil
}
