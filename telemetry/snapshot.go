package telemetry

import (
	"fmt"
	"strings"
)

// AgentSnapshot is one row of the per-tick agent state CSV.
type AgentSnapshot struct {
	Tick      int64   `csv:"tick"`
	AgentID   uint32  `csv:"agent_id"`
	X         int     `csv:"x"`
	Y         int     `csv:"y"`
	Goods     string  `csv:"goods"`
	Money     int64   `csv:"money"`
	Paired    bool    `csv:"paired"`
	PartnerID uint32  `csv:"partner_id"`
	Utility   float64 `csv:"utility"`
}

// FormatGoods renders a goods vector as "name=qty;..." in good order, so
// snapshot rows are stable and diffable across runs.
func FormatGoods(names []string, qty []int64) string {
	parts := make([]string, len(names))
	for i, name := range names {
		var q int64
		if i < len(qty) {
			q = qty[i]
		}
		parts[i] = fmt.Sprintf("%s=%d", name, q)
	}
	return strings.Join(parts, ";")
}
