package systems

import "github.com/cmfunderburk/vmt-dev-sub002/utility"

// EstimateSurplus returns the best per-unit quote overlap between two
// agents across the pair table: the most optimistic (bid - ask) margin
// over every permitted direction, or 0 when no direction overlaps. It
// uses only the candidates' published quotes, never their private
// preferences, so ranking stays honest to what each side has disclosed.
func EstimateSurplus(self, other *Trader, pairs []utility.Pair) float64 {
	var best float64
	for i := range pairs {
		sq := self.Quotes[i]
		oq := other.Quotes[i]
		if !sq.OK || !oq.OK {
			continue
		}
		// self buys recv from other...
		if d := sq.Bid - oq.Ask; d > best {
			best = d
		}
		// ...or sells it. For goods pairs the sell direction is covered by
		// the mirrored ordered pair, but checking both here is harmless and
		// keeps money pairs symmetric.
		if d := oq.Bid - sq.Ask; d > best {
			best = d
		}
	}
	return best
}

// RankedCandidate pairs a candidate's identifier with its estimated
// surplus for ordering.
type RankedCandidate struct {
	ID      uint32
	Surplus float64
}

// BestCandidate picks the top-ranked feasible partner under the total
// order (surplus descending, then lower identifier). Candidates with
// zero or negative estimated surplus are not feasible. ok is false when
// no candidate qualifies.
func BestCandidate(cands []RankedCandidate) (best RankedCandidate, ok bool) {
	for _, c := range cands {
		if c.Surplus <= 0 {
			continue
		}
		if !ok || c.Surplus > best.Surplus || (c.Surplus == best.Surplus && c.ID < best.ID) {
			best = c
			ok = true
		}
	}
	return best, ok
}
