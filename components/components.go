// Package components defines ECS components for the simulation.
package components

import "github.com/cmfunderburk/vmt-dev-sub002/utility"

// Agent identifies an agent entity. IDs are stable for the life of a run
// and never reused.
type Agent struct {
	ID uint32
}

// Position is an agent's grid position.
type Position struct {
	X, Y int
}

// Inventory holds integer-valued goods and an optional money balance.
// Goods is indexed by good index in scenario order. Dirty marks the cached
// quotes stale; every mutation of Goods or Money must set it.
type Inventory struct {
	Goods []int64
	Money int64
	Dirty bool
}

// Qty returns the held quantity of a good, 0 for out-of-range indices.
func (inv *Inventory) Qty(good int) int64 {
	if good < 0 || good >= len(inv.Goods) {
		return 0
	}
	return inv.Goods[good]
}

// CloneGoods returns a copy of the goods vector.
func (inv *Inventory) CloneGoods() []int64 {
	out := make([]int64, len(inv.Goods))
	copy(out, inv.Goods)
	return out
}

// NonNegative reports whether no quantity is below zero.
func (inv *Inventory) NonNegative() bool {
	for _, q := range inv.Goods {
		if q < 0 {
			return false
		}
	}
	return inv.Money >= 0
}

// Pref carries the agent's utility-function variant.
type Pref struct {
	Fn utility.Function
}

// Quotes caches one bid/ask entry per exchange pair, aligned with the
// run's pair table. Entries are recomputed in Housekeeping when the
// inventory is dirty and are never mutated between recomputations.
type Quotes struct {
	Entries []utility.Quote
	Valid   bool
}

// Pairing holds the agent's trade-pairing state. PartnerID is a weak
// reference by identifier; the partner entity is resolved through the
// simulation's ID table. Cooldowns maps partner IDs to the number of
// ticks remaining before re-pairing with them is allowed.
type Pairing struct {
	PartnerID uint32
	Active    bool
	Cooldowns map[uint32]int
}

// OnCooldown reports whether a cooldown against the given partner is active.
func (p *Pairing) OnCooldown(partner uint32) bool {
	return p.Cooldowns[partner] > 0
}

// Movement holds the agent's per-tick movement intent.
type Movement struct {
	TargetX, TargetY int
	HasTarget        bool
}
