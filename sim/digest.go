package sim

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"math"
	"sort"
)

// Digest returns a SHA-256 hash over the complete simulation state in a
// canonical serialization: tick, then agents ascending by identifier,
// then resource cells row-major, then claims by cell index. Two runs of
// the same scenario must produce identical digests at every tick; any
// divergence is a determinism bug.
func (s *Sim) Digest() string {
	h := sha256.New()

	writeI64(h, s.tick)
	writeI64(h, int64(len(s.agents)))

	for _, ref := range s.agents {
		pos := s.posMap.Get(ref.entity)
		inv := s.invMap.Get(ref.entity)
		pair := s.pairMap.Get(ref.entity)
		mv := s.moveMap.Get(ref.entity)
		quotes := s.quoteMap.Get(ref.entity)

		writeU32(h, ref.id)
		writeI64(h, int64(pos.X))
		writeI64(h, int64(pos.Y))

		writeI64(h, int64(len(inv.Goods)))
		for _, q := range inv.Goods {
			writeI64(h, q)
		}
		writeI64(h, inv.Money)
		writeBool(h, inv.Dirty)

		writeBool(h, pair.Active)
		writeU32(h, pair.PartnerID)
		ids := make([]uint32, 0, len(pair.Cooldowns))
		for id := range pair.Cooldowns {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		writeI64(h, int64(len(ids)))
		for _, id := range ids {
			writeU32(h, id)
			writeI64(h, int64(pair.Cooldowns[id]))
		}

		writeBool(h, mv.HasTarget)
		writeI64(h, int64(mv.TargetX))
		writeI64(h, int64(mv.TargetY))

		writeBool(h, quotes.Valid)
		writeI64(h, int64(len(quotes.Entries)))
		for _, q := range quotes.Entries {
			writeBool(h, q.OK)
			writeF64(h, q.Bid)
			writeF64(h, q.Ask)
		}
	}

	cells := s.resources.Cells()
	writeI64(h, int64(len(cells)))
	for _, c := range cells {
		writeI64(h, int64(c.X))
		writeI64(h, int64(c.Y))
		writeI64(h, int64(c.Good))
		writeI64(h, c.Qty)
		writeI64(h, c.Max)
		writeI64(h, int64(c.RegenIn))
	}

	claims := s.resources.ClaimIndices()
	writeI64(h, int64(len(claims)))
	for _, idx := range claims {
		owner, _ := s.resources.Claimant(idx)
		writeI64(h, int64(idx))
		writeU32(h, owner)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}

func writeI64(h hash.Hash, v int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	h.Write(buf[:])
}

func writeU32(h hash.Hash, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	h.Write(buf[:])
}

func writeF64(h hash.Hash, v float64) {
	writeI64(h, int64(math.Float64bits(v)))
}

func writeBool(h hash.Hash, v bool) {
	if v {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
}
