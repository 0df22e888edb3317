package telemetry

// Collector accumulates event counts within stats windows and produces
// WindowStats rows. It sees every event the core emits; the Sink handles
// persistence separately.
type Collector struct {
	windowTicks int64
	windowStart int64

	trades         int
	tradeVolume    int64
	priceWeighted  float64
	pairsFormed    int
	pairsDissolved int
	forages        int
	claims         int
	repairs        int
}

// NewCollector creates a collector with the given window length in
// ticks. Windows shorter than one tick are clamped to one.
func NewCollector(windowTicks int64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks}
}

// Record counts one event into the current window.
func (c *Collector) Record(ev Event) {
	switch ev.Type {
	case EventTrade:
		c.trades++
		c.tradeVolume += ev.Qty
		// Counter/Qty approximates the realized unit price; weight by qty
		// so the window mean is volume-weighted.
		if ev.Qty > 0 {
			c.priceWeighted += float64(ev.Counter)
		}
	case EventPairFormed:
		c.pairsFormed++
	case EventPairDissolved:
		c.pairsDissolved++
	case EventForage:
		c.forages++
	case EventClaim:
		c.claims++
	case EventIntegrityRepair:
		c.repairs++
	}
}

// ShouldFlush reports whether the window ending at the given tick is
// complete.
func (c *Collector) ShouldFlush(tick int64) bool {
	return tick-c.windowStart >= c.windowTicks
}

// Flush produces the window's stats row and resets the counters. The
// caller supplies the population size and the per-agent utility values
// in ascending identifier order.
func (c *Collector) Flush(tick int64, agents int, utilities []float64) WindowStats {
	mean, p10, p50, p90 := ComputeUtilityStats(utilities)

	var meanPrice float64
	if c.tradeVolume > 0 {
		meanPrice = c.priceWeighted / float64(c.tradeVolume)
	}

	stats := WindowStats{
		WindowEnd:      tick,
		Agents:         agents,
		Trades:         c.trades,
		TradeVolume:    c.tradeVolume,
		PairsFormed:    c.pairsFormed,
		PairsDissolved: c.pairsDissolved,
		Forages:        c.forages,
		Claims:         c.claims,
		Repairs:        c.repairs,
		MeanPrice:      meanPrice,
		MeanUtility:    mean,
		UtilityP10:     p10,
		UtilityP50:     p50,
		UtilityP90:     p90,
	}

	c.windowStart = tick
	c.trades = 0
	c.tradeVolume = 0
	c.priceWeighted = 0
	c.pairsFormed = 0
	c.pairsDissolved = 0
	c.forages = 0
	c.claims = 0
	c.repairs = 0

	return stats
}
