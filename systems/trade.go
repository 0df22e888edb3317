package systems

import (
	"math"

	"github.com/cmfunderburk/vmt-dev-sub002/components"
	"github.com/cmfunderburk/vmt-dev-sub002/utility"
)

// Trader is the view of one agent the trade and ranking code operates
// on: identity, preferences, holdings, and the tick's cached quotes.
// Goods is a private copy; search never mutates the live inventory.
type Trader struct {
	ID     uint32
	Fn     *utility.Function
	Goods  []int64
	Money  int64
	Quotes []utility.Quote
}

// Candidate is one feasible trade found by the search: Buyer receives
// Qty units of the pair's Recv good and gives Counter units of the
// give-side (money or goods).
type Candidate struct {
	PairIdx    int
	BuyerID    uint32
	SellerID   uint32
	Qty        int64
	Counter    int64
	Price      float64
	GainBuyer  float64
	GainSeller float64
}

// Gain returns the summed utility gain of both parties.
func (c *Candidate) Gain() float64 {
	return c.GainBuyer + c.GainSeller
}

// RoundHalfUp rounds to the nearest integer, halves away from zero
// upward. This is the one rounding rule in the trade engine; it must
// never vary, or counter-quantities drift between runs.
func RoundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}

// FindBestTrade searches all permitted exchange pairs for the best
// mutually improving trade between two paired agents. Quantities run
// from 1 to maxQty with the counter-quantity priced at the bid/ask
// midpoint and rounded half-up. A candidate is feasible only when both
// parties gain strictly positive utility and no holding goes negative.
// Among feasible candidates the highest summed gain wins; ties fall to
// money pairs before goods pairs, then lexical pair label, then lower
// buyer identifier, then smaller quantity.
func FindBestTrade(a, b *Trader, pairs []utility.Pair, maxQty int64) (Candidate, bool) {
	var best Candidate
	found := false

	consider := func(c Candidate) {
		if !found || betterCandidate(&c, &best, pairs) {
			best = c
			found = true
		}
	}

	for idx, p := range pairs {
		// Goods pairs enumerate every ordered (recv, give) combination, so
		// fixing the buyer role to a still covers both flow directions. Money
		// pairs exist once per good and need both roles.
		searchDirection(a, b, idx, p, maxQty, consider)
		if p.Money {
			searchDirection(b, a, idx, p, maxQty, consider)
		}
	}
	return best, found
}

// searchDirection enumerates quantities for one (pair, buyer) direction.
func searchDirection(buyer, seller *Trader, idx int, p utility.Pair, maxQty int64, consider func(Candidate)) {
	bq := buyer.Quotes[idx]
	sq := seller.Quotes[idx]
	if !bq.OK || !sq.OK || bq.Bid < sq.Ask {
		return
	}
	price := (bq.Bid + sq.Ask) / 2

	buyerBase := buyer.Fn.Eval(buyer.Goods, buyer.Money)
	sellerBase := seller.Fn.Eval(seller.Goods, seller.Money)

	for qty := int64(1); qty <= maxQty; qty++ {
		if seller.Goods[p.Recv] < qty {
			return
		}
		counter := RoundHalfUp(price * float64(qty))

		var gainBuyer, gainSeller float64
		if p.Money {
			if buyer.Money < counter {
				return
			}
			gainBuyer = evalShifted(buyer, p.Recv, qty, -1, 0, -counter) - buyerBase
			gainSeller = evalShifted(seller, p.Recv, -qty, -1, 0, counter) - sellerBase
		} else {
			if buyer.Goods[p.Give] < counter {
				return
			}
			gainBuyer = evalShifted(buyer, p.Recv, qty, p.Give, -counter, 0) - buyerBase
			gainSeller = evalShifted(seller, p.Recv, -qty, p.Give, counter, 0) - sellerBase
		}

		if gainBuyer > 0 && gainSeller > 0 {
			consider(Candidate{
				PairIdx:    idx,
				BuyerID:    buyer.ID,
				SellerID:   seller.ID,
				Qty:        qty,
				Counter:    counter,
				Price:      price,
				GainBuyer:  gainBuyer,
				GainSeller: gainSeller,
			})
		}
	}
}

// evalShifted evaluates a trader's utility with the given deltas applied,
// mutating and restoring the scratch goods vector in place.
func evalShifted(t *Trader, recvGood int, dRecv int64, giveGood int, dGive int64, dMoney int64) float64 {
	t.Goods[recvGood] += dRecv
	if giveGood >= 0 {
		t.Goods[giveGood] += dGive
	}
	u := t.Fn.Eval(t.Goods, t.Money+dMoney)
	t.Goods[recvGood] -= dRecv
	if giveGood >= 0 {
		t.Goods[giveGood] -= dGive
	}
	return u
}

// betterCandidate reports whether a should replace b under the fixed
// deterministic ordering.
func betterCandidate(a, b *Candidate, pairs []utility.Pair) bool {
	if a.Gain() != b.Gain() {
		return a.Gain() > b.Gain()
	}
	pa, pb := pairs[a.PairIdx], pairs[b.PairIdx]
	if pa.Money != pb.Money {
		return pa.Money
	}
	if pa.Label != pb.Label {
		return pa.Label < pb.Label
	}
	if a.BuyerID != b.BuyerID {
		return a.BuyerID < b.BuyerID
	}
	return a.Qty < b.Qty
}

// Apply executes a candidate against the two live inventories and marks
// both dirty. The caller guarantees the candidate was searched against
// the same holdings this tick.
func Apply(c Candidate, p utility.Pair, buyerInv, sellerInv *components.Inventory) {
	buyerInv.Goods[p.Recv] += c.Qty
	sellerInv.Goods[p.Recv] -= c.Qty
	if p.Money {
		buyerInv.Money -= c.Counter
		sellerInv.Money += c.Counter
	} else {
		buyerInv.Goods[p.Give] -= c.Counter
		sellerInv.Goods[p.Give] += c.Counter
	}
	buyerInv.Dirty = true
	sellerInv.Dirty = true
}
