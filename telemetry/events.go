// Package telemetry provides the event stream, window statistics, and
// CSV output for simulation runs. The core emits events through the
// narrow Sink interface and never owns persistence.
package telemetry

// EventType identifies telemetry events.
type EventType string

const (
	EventPairFormed      EventType = "pair_formed"
	EventPairDissolved   EventType = "pair_dissolved"
	EventTrade           EventType = "trade"
	EventForage          EventType = "forage"
	EventClaim           EventType = "claim"
	EventIntegrityRepair EventType = "integrity_repair"
)

// Event is a single structured telemetry record. The field set is the
// union over all event types; unused fields stay zero. The emission
// order is part of the determinism contract, so rows can be compared
// byte-for-byte across runs.
type Event struct {
	Tick    int64     `csv:"tick"`
	Type    EventType `csv:"type"`
	AgentID uint32    `csv:"agent_id"`
	OtherID uint32    `csv:"other_id"`
	Pair    string    `csv:"pair"`
	Qty     int64     `csv:"qty"`
	Counter int64     `csv:"counter"`
	GainA   float64   `csv:"gain_a"`
	GainB   float64   `csv:"gain_b"`
	X       int       `csv:"x"`
	Y       int       `csv:"y"`
	Note    string    `csv:"note"`
}

// NewPairFormedEvent records a mutual-consent pairing between two agents.
func NewPairFormedEvent(tick int64, a, b uint32) Event {
	return Event{Type: EventPairFormed, Tick: tick, AgentID: a, OtherID: b}
}

// NewPairDissolvedEvent records a pairing ending, with the reason.
func NewPairDissolvedEvent(tick int64, a, b uint32, reason string) Event {
	return Event{Type: EventPairDissolved, Tick: tick, AgentID: a, OtherID: b, Note: reason}
}

// NewTradeEvent records an executed trade. AgentID is the buyer of the
// pair's received good; GainA/GainB are the buyer's and seller's utility
// deltas.
func NewTradeEvent(tick int64, buyer, seller uint32, pair string, qty, counter int64, gainBuyer, gainSeller float64) Event {
	return Event{
		Type:    EventTrade,
		Tick:    tick,
		AgentID: buyer,
		OtherID: seller,
		Pair:    pair,
		Qty:     qty,
		Counter: counter,
		GainA:   gainBuyer,
		GainB:   gainSeller,
	}
}

// NewForageEvent records a harvest from a resource cell.
func NewForageEvent(tick int64, agent uint32, good string, qty int64, x, y int) Event {
	return Event{Type: EventForage, Tick: tick, AgentID: agent, Pair: good, Qty: qty, X: x, Y: y}
}

// NewClaimEvent records a resource-cell claim.
func NewClaimEvent(tick int64, agent uint32, x, y int) Event {
	return Event{Type: EventClaim, Tick: tick, AgentID: agent, X: x, Y: y}
}

// NewIntegrityRepairEvent records a defensive Housekeeping repair of a
// non-mutual or dangling reference. These indicate a prior logic fault
// and are logged, never fatal.
func NewIntegrityRepairEvent(tick int64, agent uint32, note string) Event {
	return Event{Type: EventIntegrityRepair, Tick: tick, AgentID: agent, Note: note}
}

// Sink receives everything the core emits. Implementations must be
// cheap per call; the tick loop never buffers on their behalf.
type Sink interface {
	Record(Event) error
	WriteStats(WindowStats) error
	WriteSnapshots([]AgentSnapshot) error
	Close() error
}
