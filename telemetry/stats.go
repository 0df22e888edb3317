package telemetry

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats is one row of the per-window statistics CSV.
type WindowStats struct {
	WindowEnd      int64   `csv:"window_end"`
	Agents         int     `csv:"agents"`
	Trades         int     `csv:"trades"`
	TradeVolume    int64   `csv:"trade_volume"`
	PairsFormed    int     `csv:"pairs_formed"`
	PairsDissolved int     `csv:"pairs_dissolved"`
	Forages        int     `csv:"forages"`
	Claims         int     `csv:"claims"`
	Repairs        int     `csv:"repairs"`
	MeanPrice      float64 `csv:"mean_price"`
	MeanUtility    float64 `csv:"mean_utility"`
	UtilityP10     float64 `csv:"utility_p10"`
	UtilityP50     float64 `csv:"utility_p50"`
	UtilityP90     float64 `csv:"utility_p90"`
}

// ComputeUtilityStats returns mean and p10/p50/p90 quantiles of a
// utility distribution. Empty input returns zeros.
func ComputeUtilityStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, p10, p50, p90
}
