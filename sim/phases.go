package sim

import (
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/cmfunderburk/vmt-dev-sub002/systems"
	"github.com/cmfunderburk/vmt-dev-sub002/telemetry"
	"github.com/cmfunderburk/vmt-dev-sub002/utility"
)

// Step advances the simulation by one tick: all seven phases, in order,
// each sweeping agents in ascending identifier order.
func (s *Sim) Step() {
	s.tick++
	s.runPhase("perception", s.perceptionPhase)
	s.runPhase("decision", s.decisionPhase)
	s.runPhase("movement", s.movementPhase)
	s.runPhase("trade", s.tradePhase)
	s.runPhase("forage", s.foragePhase)
	s.runPhase("regen", s.regenPhase)
	s.runPhase("housekeeping", s.housekeepingPhase)
}

// Run advances the simulation by n ticks.
func (s *Sim) Run(n int64) {
	for i := int64(0); i < n; i++ {
		s.Step()
	}
}

func (s *Sim) runPhase(id string, fn func()) {
	start := time.Now()
	fn()
	s.phaseTime[id] += time.Since(start)
}

// emit routes one event through the stats collector and the sink. Sink
// failures are logged and do not stop the run; the simulation state is
// already committed by the time an event exists.
func (s *Sim) emit(ev telemetry.Event) {
	s.collector.Record(ev)
	if s.sink != nil {
		if err := s.sink.Record(ev); err != nil {
			s.logger.Warn("telemetry sink rejected event", "type", ev.Type, "error", err)
		}
	}
}

// trader builds the search view of one agent: a goods copy the trade
// engine can scratch on, plus the cached quotes.
func (s *Sim) trader(id uint32) *systems.Trader {
	entity := s.byID[id]
	inv := s.invMap.Get(entity)
	pref := s.prefMap.Get(entity)
	quotes := s.quoteMap.Get(entity)
	return &systems.Trader{
		ID:     id,
		Fn:     &pref.Fn,
		Goods:  inv.CloneGoods(),
		Money:  inv.Money,
		Quotes: quotes.Entries,
	}
}

// perceptionPhase snapshots each agent's surroundings. It only reads
// state, so the sweep order carries no information; it still runs
// ascending like everything else.
func (s *Sim) perceptionPhase() {
	radius := s.scn.Regime.PerceptionRadius
	for i, ref := range s.agents {
		pos := s.posMap.Get(ref.entity)

		s.percepts[i].neighbors = s.grid.QueryRadius(pos.X, pos.Y, radius, s.metric, ref.id)

		s.percepts[i].resourceCells = s.percepts[i].resourceCells[:0]
		for idx, c := range s.resources.Cells() {
			if c.Qty <= 0 {
				continue
			}
			if systems.Dist(s.metric, pos.X, pos.Y, c.X, c.Y) <= radius {
				s.percepts[i].resourceCells = append(s.percepts[i].resourceCells, idx)
			}
		}
	}
}

// decisionPhase runs three passes. First every unpaired agent ranks its
// visible candidates and records its top choice. Second, mutual choices
// become pairings. Third, agents left without a feasible trade candidate
// target a resource cell and claim it.
func (s *Sim) decisionPhase() {
	choices := make(map[uint32]uint32)

	// Pass 1: candidate ranking. Paired agents only refresh their
	// approach target, since the partner may have moved last tick.
	for i, ref := range s.agents {
		pair := s.pairMap.Get(ref.entity)
		if pair.Active {
			if pe, ok := s.byID[pair.PartnerID]; ok {
				ppos := s.posMap.Get(pe)
				mv := s.moveMap.Get(ref.entity)
				mv.TargetX, mv.TargetY, mv.HasTarget = ppos.X, ppos.Y, true
			}
			continue
		}

		self := s.trader(ref.id)
		var ranked []systems.RankedCandidate
		for _, nid := range s.percepts[i].neighbors {
			ne, ok := s.byID[nid]
			if !ok {
				continue
			}
			npair := s.pairMap.Get(ne)
			if npair.Active || pair.OnCooldown(nid) || npair.OnCooldown(ref.id) {
				continue
			}
			other := s.trader(nid)
			ranked = append(ranked, systems.RankedCandidate{
				ID:      nid,
				Surplus: systems.EstimateSurplus(self, other, s.pairs),
			})
		}

		if best, ok := systems.BestCandidate(ranked); ok {
			choices[ref.id] = best.ID
			bpos := s.posMap.Get(s.byID[best.ID])
			mv := s.moveMap.Get(ref.entity)
			mv.TargetX, mv.TargetY, mv.HasTarget = bpos.X, bpos.Y, true
		}
	}

	// Pass 2: mutual consent. Each mutual pair is visited once, at its
	// lower identifier. A choice is a function of the chooser, so mutual
	// pairs are disjoint and no re-check is needed.
	for _, ref := range s.agents {
		a := ref.id
		b, chose := choices[a]
		if !chose || b <= a || choices[b] != a {
			continue
		}
		be := s.byID[b]

		apair := s.pairMap.Get(ref.entity)
		bpair := s.pairMap.Get(be)
		apair.PartnerID, apair.Active = b, true
		bpair.PartnerID, bpair.Active = a, true

		apos := s.posMap.Get(ref.entity)
		bpos := s.posMap.Get(be)
		amv := s.moveMap.Get(ref.entity)
		bmv := s.moveMap.Get(be)
		amv.TargetX, amv.TargetY, amv.HasTarget = bpos.X, bpos.Y, true
		bmv.TargetX, bmv.TargetY, bmv.HasTarget = apos.X, apos.Y, true

		s.resources.ClearClaimsOf(a)
		s.resources.ClearClaimsOf(b)

		s.emit(telemetry.NewPairFormedEvent(s.tick, a, b))
	}

	// Pass 3: forage targeting for agents with no feasible candidate.
	// Cells claimed by a lower identifier are off limits; a later agent
	// may displace a higher one's claim, which the displaced agent
	// re-resolves next tick.
	for i, ref := range s.agents {
		pair := s.pairMap.Get(ref.entity)
		if pair.Active {
			continue
		}
		if _, chose := choices[ref.id]; chose {
			continue
		}

		pos := s.posMap.Get(ref.entity)
		bestIdx := -1
		bestDist := 0
		for _, idx := range s.percepts[i].resourceCells {
			c := &s.resources.Cells()[idx]
			if c.Qty <= 0 {
				continue
			}
			if owner, claimed := s.resources.Claimant(idx); claimed && owner < ref.id {
				continue
			}
			d := systems.Dist(s.metric, pos.X, pos.Y, c.X, c.Y)
			if bestIdx < 0 || d < bestDist || (d == bestDist && idx < bestIdx) {
				bestIdx, bestDist = idx, d
			}
		}

		mv := s.moveMap.Get(ref.entity)
		if bestIdx < 0 {
			s.resources.ClearClaimsOf(ref.id)
			mv.HasTarget = false
			continue
		}

		c := &s.resources.Cells()[bestIdx]
		prevOwner, hadOwner := s.resources.Claimant(bestIdx)
		s.resources.ClearClaimsOf(ref.id)
		s.resources.Claim(bestIdx, ref.id)
		mv.TargetX, mv.TargetY, mv.HasTarget = c.X, c.Y, true

		if !hadOwner || prevOwner != ref.id {
			s.emit(telemetry.NewClaimEvent(s.tick, ref.id, c.X, c.Y))
		}
	}
}

// movementPhase steps agents toward their targets under single-cell
// occupancy. Each step prefers the axis with the larger remaining
// distance, falling back to the other axis when the preferred cell is
// blocked. Agents move in ascending identifier order, so a lower agent
// vacating a cell frees it for a higher one within the same tick.
func (s *Sim) movementPhase() {
	width := s.scn.Grid.Width
	height := s.scn.Grid.Height
	budget := s.scn.Regime.MoveBudget

	for _, ref := range s.agents {
		mv := s.moveMap.Get(ref.entity)
		if !mv.HasTarget {
			continue
		}
		pos := s.posMap.Get(ref.entity)

		for step := 0; step < budget; step++ {
			dx := mv.TargetX - pos.X
			dy := mv.TargetY - pos.Y
			if dx == 0 && dy == 0 {
				break
			}

			var first, second [2]int
			stepX := [2]int{sign(dx), 0}
			stepY := [2]int{0, sign(dy)}
			if abs(dx) >= abs(dy) {
				first, second = stepX, stepY
			} else {
				first, second = stepY, stepX
			}

			moved := false
			for _, d := range [2][2]int{first, second} {
				if d[0] == 0 && d[1] == 0 {
					continue
				}
				nx, ny := pos.X+d[0], pos.Y+d[1]
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				if _, taken := s.occupied[ny*width+nx]; taken {
					continue
				}
				delete(s.occupied, pos.Y*width+pos.X)
				s.occupied[ny*width+nx] = ref.id
				s.grid.Move(ref.id, pos.X, pos.Y, nx, ny)
				pos.X, pos.Y = nx, ny
				moved = true
				break
			}
			if !moved {
				break
			}
		}
	}
}

// tradePhase attempts at most one trade per pairing. Each pairing is
// processed once, at its lower identifier. A failed search dissolves the
// pairing and starts both cooldowns; partners out of range simply keep
// approaching.
func (s *Sim) tradePhase() {
	radius := s.scn.Regime.InteractionRadius

	for _, ref := range s.agents {
		apair := s.pairMap.Get(ref.entity)
		if !apair.Active || apair.PartnerID <= ref.id {
			continue
		}
		partnerID := apair.PartnerID

		pe, ok := s.byID[partnerID]
		if !ok {
			continue // housekeeping repairs the dangling reference
		}
		bpair := s.pairMap.Get(pe)
		if !bpair.Active || bpair.PartnerID != ref.id {
			continue // non-mutual, housekeeping repairs it
		}

		apos := s.posMap.Get(ref.entity)
		bpos := s.posMap.Get(pe)
		if systems.Dist(s.metric, apos.X, apos.Y, bpos.X, bpos.Y) > radius {
			continue
		}

		ta := s.trader(ref.id)
		tb := s.trader(partnerID)
		cand, found := systems.FindBestTrade(ta, tb, s.pairs, s.scn.Regime.MaxQuantity)
		if found {
			p := s.pairs[cand.PairIdx]
			buyerEntity, sellerEntity := ref.entity, pe
			if cand.BuyerID == partnerID {
				buyerEntity, sellerEntity = pe, ref.entity
			}
			systems.Apply(cand, p, s.invMap.Get(buyerEntity), s.invMap.Get(sellerEntity))
			s.emit(telemetry.NewTradeEvent(s.tick, cand.BuyerID, cand.SellerID,
				p.Label, cand.Qty, cand.Counter, cand.GainBuyer, cand.GainSeller))
			continue
		}

		// No mutually improving trade remains: dissolve and cool down.
		s.unpair(ref.entity, pe)
		cooldown := s.scn.Regime.TradeCooldown
		if cooldown > 0 {
			apair.Cooldowns[partnerID] = cooldown
			bpair.Cooldowns[ref.id] = cooldown
		}
		s.emit(telemetry.NewPairDissolvedEvent(s.tick, ref.id, partnerID, "no_feasible_trade"))
	}
}

// unpair resets both sides of a pairing and their movement targets.
func (s *Sim) unpair(ae, be ecs.Entity) {
	for _, e := range []ecs.Entity{ae, be} {
		pair := s.pairMap.Get(e)
		pair.PartnerID, pair.Active = 0, false
		mv := s.moveMap.Get(e)
		mv.HasTarget = false
	}
}

// foragePhase harvests for unpaired agents standing on a stocked cell
// they either claimed or found unclaimed. Arrival consumes the claim.
func (s *Sim) foragePhase() {
	for _, ref := range s.agents {
		pair := s.pairMap.Get(ref.entity)
		if pair.Active {
			continue
		}
		pos := s.posMap.Get(ref.entity)
		cellIdx, onCell := s.resources.IndexAt(pos.X, pos.Y)
		if !onCell {
			continue
		}
		if owner, claimed := s.resources.Claimant(cellIdx); claimed && owner != ref.id {
			continue
		}

		taken := s.resources.Harvest(cellIdx, s.scn.Regime.ForageRate)
		if taken <= 0 {
			continue
		}

		cell := &s.resources.Cells()[cellIdx]
		inv := s.invMap.Get(ref.entity)
		inv.Goods[cell.Good] += taken
		inv.Dirty = true
		s.resources.ClearClaim(cellIdx)

		mv := s.moveMap.Get(ref.entity)
		if mv.HasTarget && mv.TargetX == pos.X && mv.TargetY == pos.Y {
			mv.HasTarget = false
		}

		s.emit(telemetry.NewForageEvent(s.tick, ref.id, s.scn.Goods[cell.Good], taken, pos.X, pos.Y))
	}
}

func (s *Sim) regenPhase() {
	s.resources.Regen()
}

// housekeepingPhase repairs referential integrity, sweeps stale claims,
// advances cooldowns, refreshes dirty quotes, and emits periodic
// telemetry. Repairs indicate a logic fault elsewhere; they are logged
// loudly but never abort the run.
func (s *Sim) housekeepingPhase() {
	// Pairing integrity: every active pairing must reference a live,
	// reciprocating partner.
	for _, ref := range s.agents {
		pair := s.pairMap.Get(ref.entity)
		if !pair.Active {
			continue
		}
		pe, alive := s.byID[pair.PartnerID]
		if alive {
			ppair := s.pairMap.Get(pe)
			if ppair.Active && ppair.PartnerID == ref.id {
				continue
			}
		}
		note := "partner not reciprocating"
		if !alive {
			note = "partner missing"
		}
		s.logger.Warn("repairing pairing",
			"tick", s.tick, "agent", ref.id, "partner", pair.PartnerID, "reason", note)
		pair.PartnerID, pair.Active = 0, false
		mv := s.moveMap.Get(ref.entity)
		mv.HasTarget = false
		s.emit(telemetry.NewIntegrityRepairEvent(s.tick, ref.id, note))
	}

	// Claim sweep: a claim survives only while its owner is alive,
	// unpaired, and still heading for the cell.
	for _, cellIdx := range s.resources.ClaimIndices() {
		owner, _ := s.resources.Claimant(cellIdx)
		entity, alive := s.byID[owner]
		if !alive {
			s.logger.Warn("repairing claim", "tick", s.tick, "cell", cellIdx, "owner", owner)
			s.resources.ClearClaim(cellIdx)
			s.emit(telemetry.NewIntegrityRepairEvent(s.tick, owner, "claim owner missing"))
			continue
		}
		cell := &s.resources.Cells()[cellIdx]
		pair := s.pairMap.Get(entity)
		mv := s.moveMap.Get(entity)
		if pair.Active || !mv.HasTarget || mv.TargetX != cell.X || mv.TargetY != cell.Y || cell.Qty <= 0 {
			s.resources.ClearClaim(cellIdx)
		}
	}

	// Cooldowns tick down and expire.
	for _, ref := range s.agents {
		pair := s.pairMap.Get(ref.entity)
		for id, left := range pair.Cooldowns {
			if left <= 1 {
				delete(pair.Cooldowns, id)
			} else {
				pair.Cooldowns[id] = left - 1
			}
		}
	}

	// Quote refresh: only inventories that changed this tick recompute.
	for _, ref := range s.agents {
		inv := s.invMap.Get(ref.entity)
		quotes := s.quoteMap.Get(ref.entity)
		if !inv.Dirty && quotes.Valid {
			continue
		}
		pref := s.prefMap.Get(ref.entity)
		quotes.Entries = utility.ComputeQuotes(&pref.Fn, inv.Goods, inv.Money, s.pairs, s.scn.Regime.Spread)
		quotes.Valid = true
		inv.Dirty = false
	}

	// Periodic telemetry.
	if s.sink != nil && s.scn.Telemetry.SnapshotEvery > 0 && s.tick%s.scn.Telemetry.SnapshotEvery == 0 {
		if err := s.sink.WriteSnapshots(s.snapshots()); err != nil {
			s.logger.Warn("telemetry sink rejected snapshots", "tick", s.tick, "error", err)
		}
	}
	if s.collector.ShouldFlush(s.tick) {
		stats := s.collector.Flush(s.tick, len(s.agents), s.utilities())
		if s.sink != nil {
			if err := s.sink.WriteStats(stats); err != nil {
				s.logger.Warn("telemetry sink rejected stats", "tick", s.tick, "error", err)
			}
		}
	}
}

// snapshots builds per-agent state rows in ascending identifier order.
func (s *Sim) snapshots() []telemetry.AgentSnapshot {
	snaps := make([]telemetry.AgentSnapshot, 0, len(s.agents))
	for _, ref := range s.agents {
		pos := s.posMap.Get(ref.entity)
		inv := s.invMap.Get(ref.entity)
		pref := s.prefMap.Get(ref.entity)
		pair := s.pairMap.Get(ref.entity)
		snaps = append(snaps, telemetry.AgentSnapshot{
			Tick:      s.tick,
			AgentID:   ref.id,
			X:         pos.X,
			Y:         pos.Y,
			Goods:     telemetry.FormatGoods(s.scn.Goods, inv.Goods),
			Money:     inv.Money,
			Paired:    pair.Active,
			PartnerID: pair.PartnerID,
			Utility:   pref.Fn.Eval(inv.Goods, inv.Money),
		})
	}
	return snaps
}

// utilities returns per-agent utility in ascending identifier order.
func (s *Sim) utilities() []float64 {
	out := make([]float64, 0, len(s.agents))
	for _, ref := range s.agents {
		inv := s.invMap.Get(ref.entity)
		pref := s.prefMap.Get(ref.entity)
		out = append(out, pref.Fn.Eval(inv.Goods, inv.Money))
	}
	return out
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
