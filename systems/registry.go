package systems

// PhaseInfo describes one phase of the tick protocol.
type PhaseInfo struct {
	ID          string // internal identifier (used for perf tracking)
	Name        string // display name
	Description string // what this phase does
}

// PhaseRegistry holds metadata about the fixed seven-phase protocol.
// The registration order is the execution order; nothing may reorder or
// skip a phase, though a phase may be a no-op on a given tick.
type PhaseRegistry struct {
	phases []PhaseInfo
	byID   map[string]PhaseInfo
}

// NewPhaseRegistry creates the registry with all phases in protocol order.
func NewPhaseRegistry() *PhaseRegistry {
	r := &PhaseRegistry{byID: make(map[string]PhaseInfo)}
	r.register(PhaseInfo{ID: "perception", Name: "Perception", Description: "Builds read-only neighbor and resource snapshots"})
	r.register(PhaseInfo{ID: "decision", Name: "Decision", Description: "Ranks candidates, forms pairings, claims resources"})
	r.register(PhaseInfo{ID: "movement", Name: "Movement", Description: "Steps agents toward their targets"})
	r.register(PhaseInfo{ID: "trade", Name: "Trade", Description: "Attempts one trade per pairing in range"})
	r.register(PhaseInfo{ID: "forage", Name: "Forage", Description: "Harvests resources under agents"})
	r.register(PhaseInfo{ID: "regen", Name: "Resource Regeneration", Description: "Regrows depleted resource cells"})
	r.register(PhaseInfo{ID: "housekeeping", Name: "Housekeeping", Description: "Recomputes quotes, repairs state, emits telemetry"})
	return r
}

func (r *PhaseRegistry) register(info PhaseInfo) {
	r.phases = append(r.phases, info)
	r.byID[info.ID] = info
}

// Get returns phase info by ID.
func (r *PhaseRegistry) Get(id string) (PhaseInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a phase ID, falling back to the
// ID itself.
func (r *PhaseRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// All returns all phases in execution order.
func (r *PhaseRegistry) All() []PhaseInfo {
	return r.phases
}

// IDs returns all phase IDs in execution order.
func (r *PhaseRegistry) IDs() []string {
	ids := make([]string, len(r.phases))
	for i, info := range r.phases {
		ids[i] = info.ID
	}
	return ids
}
