package utility

import "fmt"

// Regime restricts which exchange pairs are permitted in a run.
type Regime uint8

const (
	// RegimeGoods permits only goods-for-goods exchange.
	RegimeGoods Regime = iota
	// RegimeMoney permits only goods-for-money exchange.
	RegimeMoney
	// RegimeMixed permits both.
	RegimeMixed
)

// String returns the regime name used in scenarios.
func (r Regime) String() string {
	switch r {
	case RegimeGoods:
		return "goods"
	case RegimeMoney:
		return "money"
	case RegimeMixed:
		return "mixed"
	default:
		return fmt.Sprintf("regime(%d)", uint8(r))
	}
}

// ParseRegime maps a scenario string to a Regime.
func ParseRegime(s string) (Regime, error) {
	switch s {
	case "goods":
		return RegimeGoods, nil
	case "money":
		return RegimeMoney, nil
	case "mixed":
		return RegimeMixed, nil
	default:
		return 0, fmt.Errorf("unknown exchange regime %q", s)
	}
}

// Pair describes one exchange pair from the quoting agent's point of
// view: the agent receives good Recv and gives good Give, or money when
// Money is set (Give is -1 then). Prices are always units of the given
// side per unit of the received good. Labels are stable across runs and
// used for telemetry and deterministic tie-breaking.
type Pair struct {
	Recv  int
	Give  int
	Money bool
	Label string
}

// EnumeratePairs builds the run's pair table from the goods list and the
// active regime. The order is fixed: all money pairs in good order, then
// all ordered goods pairs in (recv, give) order. Every agent's quote
// table and every telemetry pair label indexes into this slice.
func EnumeratePairs(goods []string, regime Regime) []Pair {
	var pairs []Pair
	if regime == RegimeMoney || regime == RegimeMixed {
		for i, name := range goods {
			pairs = append(pairs, Pair{
				Recv:  i,
				Give:  -1,
				Money: true,
				Label: "m:" + name,
			})
		}
	}
	if regime == RegimeGoods || regime == RegimeMixed {
		for i, recv := range goods {
			for j, give := range goods {
				if i == j {
					continue
				}
				pairs = append(pairs, Pair{
					Recv:  i,
					Give:  j,
					Label: "g:" + recv + "<-" + give,
				})
			}
		}
	}
	return pairs
}

// Quote is a cached reservation-price bound for one exchange pair. Bid is
// the most the agent will give per unit received; Ask is the least it
// will accept to give up a unit of the received good in the reverse
// direction. OK is false when the agent has no beneficial direction on
// this pair (non-positive marginals, no money valuation).
type Quote struct {
	Bid float64
	Ask float64
	OK  bool
}

// PriceEps floors quoted prices away from zero; the cap is its inverse.
// Keeps prices in a safe positive range at zero-inventory boundaries.
const PriceEps = 1e-6

func clampPrice(p float64) float64 {
	if p < PriceEps {
		return PriceEps
	}
	if p > 1/PriceEps {
		return 1 / PriceEps
	}
	return p
}

// ComputeQuotes derives the full quote table for an agent from its
// current holdings. The symmetric spread widens bid below and ask above
// the marginal-rate price. The result is valid until the inventory
// changes; callers cache it and must not mutate it mid-tick.
func ComputeQuotes(fn *Function, goods []int64, money int64, pairs []Pair, spread float64) []Quote {
	quotes := make([]Quote, len(pairs))
	for i, p := range pairs {
		var price float64
		var ok bool
		if p.Money {
			if fn.MoneyUtil > 0 {
				mu := fn.Marginal(goods, p.Recv)
				if mu > 0 {
					price = mu / fn.MoneyUtil
					ok = true
				}
			}
		} else {
			price, ok = fn.MRS(goods, p.Recv, p.Give)
		}
		if !ok {
			continue
		}
		quotes[i] = Quote{
			Bid: clampPrice(price * (1 - spread)),
			Ask: clampPrice(price * (1 + spread)),
			OK:  true,
		}
	}
	return quotes
}
