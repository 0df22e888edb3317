// Package sim is the deterministic execution core: it owns the ECS
// world, the seven-phase tick scheduler, and the arbitration rules that
// make runs bit-identical for a given scenario and seed.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/cmfunderburk/vmt-dev-sub002/components"
	"github.com/cmfunderburk/vmt-dev-sub002/scenario"
	"github.com/cmfunderburk/vmt-dev-sub002/systems"
	"github.com/cmfunderburk/vmt-dev-sub002/telemetry"
	"github.com/cmfunderburk/vmt-dev-sub002/utility"
)

// Options configures the collaborators a Sim reports to. Both are
// optional: a nil sink discards output, a nil logger uses slog's
// default.
type Options struct {
	Sink   telemetry.Sink
	Logger *slog.Logger
}

// agentRef binds an agent identifier to its entity. The slice of refs,
// kept sorted ascending, is the canonical processing order for every
// phase; entities are never dereferenced across ticks without going
// through it.
type agentRef struct {
	id     uint32
	entity ecs.Entity
}

// percept is one agent's read-only view of its surroundings, built in
// Perception and consumed by Decision.
type percept struct {
	neighbors     []uint32 // ascending IDs within perception radius
	resourceCells []int    // resource cell indices within perception radius
}

// Sim holds the complete simulation state.
type Sim struct {
	scn *scenario.Scenario

	world *ecs.World

	agentMapper *ecs.Map7[
		components.Agent,
		components.Position,
		components.Inventory,
		components.Pref,
		components.Quotes,
		components.Pairing,
		components.Movement,
	]

	// Individual component mappers for lookups by entity.
	posMap   *ecs.Map1[components.Position]
	invMap   *ecs.Map1[components.Inventory]
	prefMap  *ecs.Map1[components.Pref]
	quoteMap *ecs.Map1[components.Quotes]
	pairMap  *ecs.Map1[components.Pairing]
	moveMap  *ecs.Map1[components.Movement]

	grid      *systems.SpatialGrid
	resources *systems.ResourceField
	registry  *systems.PhaseRegistry

	pairs  []utility.Pair
	regime utility.Regime
	metric systems.Metric

	rng  *rand.Rand
	tick int64

	// Arena + index: weak references resolve through byID, never through
	// stored entity handles.
	agents   []agentRef
	byID     map[uint32]ecs.Entity
	occupied map[int]uint32 // y*width+x -> agent ID, single occupancy

	percepts []percept

	collector *telemetry.Collector
	sink      telemetry.Sink
	logger    *slog.Logger

	phaseTime map[string]time.Duration
}

// New builds a simulation from a fully-parsed scenario. Configuration
// errors surface here, before any tick runs.
func New(scn *scenario.Scenario, opts Options) (*Sim, error) {
	if err := scn.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	metric, err := scn.Metric()
	if err != nil {
		return nil, err
	}
	regime, err := scn.ExchangeRegime()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	world := ecs.NewWorld()

	s := &Sim{
		scn:   scn,
		world: world,
		agentMapper: ecs.NewMap7[
			components.Agent,
			components.Position,
			components.Inventory,
			components.Pref,
			components.Quotes,
			components.Pairing,
			components.Movement,
		](world),
		posMap:    ecs.NewMap1[components.Position](world),
		invMap:    ecs.NewMap1[components.Inventory](world),
		prefMap:   ecs.NewMap1[components.Pref](world),
		quoteMap:  ecs.NewMap1[components.Quotes](world),
		pairMap:   ecs.NewMap1[components.Pairing](world),
		moveMap:   ecs.NewMap1[components.Movement](world),
		grid:      systems.NewSpatialGrid(scn.Grid.Width, scn.Grid.Height, scn.Grid.CellSize),
		resources: systems.NewResourceField(scn.Grid.Width, scn.Grid.Height),
		registry:  systems.NewPhaseRegistry(),
		pairs:     utility.EnumeratePairs(scn.Goods, regime),
		regime:    regime,
		metric:    metric,
		rng:       rand.New(rand.NewSource(scn.Seed)),
		byID:      make(map[uint32]ecs.Entity),
		occupied:  make(map[int]uint32),
		collector: telemetry.NewCollector(scn.Telemetry.StatsWindow),
		sink:      opts.Sink,
		logger:    logger,
		phaseTime: make(map[string]time.Duration),
	}

	s.seedResources()
	if err := s.spawnAgents(); err != nil {
		return nil, err
	}

	return s, nil
}

// seedResources places explicit cells first, then noise-driven cells.
// Noise streams are derived from the scenario seed so placement is part
// of the determinism contract.
func (s *Sim) seedResources() {
	for _, c := range s.scn.Resources.Cells {
		good, _ := s.scn.GoodIndex(c.Good)
		s.resources.Add(systems.ResourceCell{
			X:          c.X,
			Y:          c.Y,
			Good:       good,
			Qty:        c.Qty,
			Max:        c.Max,
			RegenEvery: c.RegenEvery,
			RegenIn:    c.RegenEvery,
		})
	}
	for i, n := range s.scn.Resources.Noise {
		good, _ := s.scn.GoodIndex(n.Good)
		s.resources.SeedNoise(s.scn.Seed+int64(i+1), n.Count, good, n.Max, n.RegenEvery)
	}
	s.resources.Finalize()
}

// spawnAgents creates all initial agents in ascending identifier order
// with their quotes precomputed, so tick 1's Perception sees a complete
// quote table.
func (s *Sim) spawnAgents() error {
	cfgs := make([]scenario.AgentConfig, len(s.scn.Agents))
	copy(cfgs, s.scn.Agents)
	sort.Slice(cfgs, func(i, j int) bool { return cfgs[i].ID < cfgs[j].ID })

	for _, cfg := range cfgs {
		fn, err := s.scn.BuildUtility(cfg.Utility)
		if err != nil {
			return fmt.Errorf("agent %d: %w", cfg.ID, err)
		}
		goods, err := s.scn.BuildInventory(cfg)
		if err != nil {
			return fmt.Errorf("agent %d: %w", cfg.ID, err)
		}

		agent := components.Agent{ID: cfg.ID}
		pos := components.Position{X: cfg.X, Y: cfg.Y}
		inv := components.Inventory{Goods: goods, Money: cfg.Money}
		pref := components.Pref{Fn: fn}
		quotes := components.Quotes{
			Entries: utility.ComputeQuotes(&pref.Fn, goods, cfg.Money, s.pairs, s.scn.Regime.Spread),
			Valid:   true,
		}
		pairing := components.Pairing{Cooldowns: make(map[uint32]int)}
		movement := components.Movement{}

		entity := s.agentMapper.NewEntity(&agent, &pos, &inv, &pref, &quotes, &pairing, &movement)

		s.agents = append(s.agents, agentRef{id: cfg.ID, entity: entity})
		s.byID[cfg.ID] = entity
		s.occupied[cfg.Y*s.scn.Grid.Width+cfg.X] = cfg.ID
		s.grid.Insert(cfg.ID, cfg.X, cfg.Y)
	}

	s.percepts = make([]percept, len(s.agents))
	return nil
}

// RemoveAgent deletes an agent mid-run. Its partner's dangling pairing
// and any claims it held are repaired by the next Housekeeping sweep.
func (s *Sim) RemoveAgent(id uint32) bool {
	entity, ok := s.byID[id]
	if !ok {
		return false
	}
	pos := s.posMap.Get(entity)
	s.grid.Remove(id, pos.X, pos.Y)
	delete(s.occupied, pos.Y*s.scn.Grid.Width+pos.X)
	delete(s.byID, id)
	for i, ref := range s.agents {
		if ref.id == id {
			s.agents = append(s.agents[:i], s.agents[i+1:]...)
			break
		}
	}
	s.agentMapper.Remove(entity)
	s.percepts = make([]percept, len(s.agents))
	return true
}

// Tick returns the last completed tick number.
func (s *Sim) Tick() int64 {
	return s.tick
}

// AgentCount returns the current population.
func (s *Sim) AgentCount() int {
	return len(s.agents)
}

// AgentIDs returns all agent identifiers in ascending order.
func (s *Sim) AgentIDs() []uint32 {
	ids := make([]uint32, len(s.agents))
	for i, ref := range s.agents {
		ids[i] = ref.id
	}
	return ids
}

// Pairs returns the run's exchange-pair table.
func (s *Sim) Pairs() []utility.Pair {
	return s.pairs
}

// InventoryOf returns a copy of an agent's holdings.
func (s *Sim) InventoryOf(id uint32) (goods []int64, money int64, ok bool) {
	entity, found := s.byID[id]
	if !found {
		return nil, 0, false
	}
	inv := s.invMap.Get(entity)
	return inv.CloneGoods(), inv.Money, true
}

// PositionOf returns an agent's position.
func (s *Sim) PositionOf(id uint32) (x, y int, ok bool) {
	entity, found := s.byID[id]
	if !found {
		return 0, 0, false
	}
	pos := s.posMap.Get(entity)
	return pos.X, pos.Y, true
}

// PairingOf returns an agent's pairing state.
func (s *Sim) PairingOf(id uint32) (partner uint32, active bool, ok bool) {
	entity, found := s.byID[id]
	if !found {
		return 0, false, false
	}
	pair := s.pairMap.Get(entity)
	return pair.PartnerID, pair.Active, true
}

// UtilityOf returns an agent's current total utility.
func (s *Sim) UtilityOf(id uint32) (float64, bool) {
	entity, found := s.byID[id]
	if !found {
		return 0, false
	}
	inv := s.invMap.Get(entity)
	pref := s.prefMap.Get(entity)
	return pref.Fn.Eval(inv.Goods, inv.Money), true
}

// ResourceCells returns the resource field's cells in row-major order.
func (s *Sim) ResourceCells() []systems.ResourceCell {
	return s.resources.Cells()
}

// PhaseTimings returns cumulative wall time per phase ID, for perf
// reporting only; it has no effect on simulation state.
func (s *Sim) PhaseTimings() map[string]time.Duration {
	out := make(map[string]time.Duration, len(s.phaseTime))
	for id, d := range s.phaseTime {
		out[id] = d
	}
	return out
}

// PhaseRegistry returns metadata for the seven phases in protocol order.
func (s *Sim) PhaseRegistry() *systems.PhaseRegistry {
	return s.registry
}
