// Package utility implements the utility-function families agents use to
// value holdings, and the quote engine that derives reservation prices
// from them. It has no dependency on the ECS layer; everything operates
// on plain goods vectors.
package utility

import (
	"fmt"
	"math"
)

// Family selects a utility-function variant. The set is closed: adding a
// family means extending every switch in this file, which the compiler
// checks via the default panic.
type Family uint8

const (
	// CES is constant-elasticity-of-substitution utility.
	CES Family = iota
	// Linear is additive utility with constant marginals.
	Linear
	// Quadratic is quadratic utility with satiation: marginals decline
	// linearly and can reach zero or below.
	Quadratic
	// LogQuadratic is a flexible log-quadratic form.
	LogQuadratic
	// StoneGeary is subsistence-constrained log utility: quantities at or
	// below the subsistence floor are infeasible.
	StoneGeary
)

// String returns the family name used in scenarios and telemetry.
func (f Family) String() string {
	switch f {
	case CES:
		return "ces"
	case Linear:
		return "linear"
	case Quadratic:
		return "quadratic"
	case LogQuadratic:
		return "log_quadratic"
	case StoneGeary:
		return "stone_geary"
	default:
		return fmt.Sprintf("family(%d)", uint8(f))
	}
}

// ParseFamily maps a scenario string to a Family.
func ParseFamily(s string) (Family, error) {
	switch s {
	case "ces":
		return CES, nil
	case "linear":
		return Linear, nil
	case "quadratic":
		return Quadratic, nil
	case "log_quadratic":
		return LogQuadratic, nil
	case "stone_geary":
		return StoneGeary, nil
	default:
		return 0, fmt.Errorf("unknown utility family %q", s)
	}
}

// evalEps shifts zero quantities away from singular points in the CES
// form so marginals stay finite at empty inventories.
const evalEps = 1e-3

// Function is a tagged variant over the supported utility families.
// Alpha is required for every family; the other parameter slots are
// interpreted per family:
//
//	CES          Rho (exponent, <1 and != 0)
//	Quadratic    Beta (satiation slope per good)
//	LogQuadratic Beta (curvature per good)
//	StoneGeary   Gamma (subsistence floor per good)
//
// MoneyUtil is the constant marginal utility of money; zero means the
// agent places no value on money and never quotes money pairs.
type Function struct {
	Family    Family
	Alpha     []float64
	Beta      []float64
	Gamma     []float64
	Rho       float64
	MoneyUtil float64
}

// Validate checks the parameter payload against the run's good count.
// Violations are configuration errors and must fail before any tick runs.
func (f *Function) Validate(numGoods int) error {
	if len(f.Alpha) != numGoods {
		return fmt.Errorf("%s: alpha has %d entries, want %d", f.Family, len(f.Alpha), numGoods)
	}
	for i, a := range f.Alpha {
		if a <= 0 {
			return fmt.Errorf("%s: alpha[%d] = %v, must be positive", f.Family, i, a)
		}
	}
	if f.MoneyUtil < 0 {
		return fmt.Errorf("%s: money_util = %v, must be non-negative", f.Family, f.MoneyUtil)
	}
	switch f.Family {
	case CES:
		if f.Rho == 0 || f.Rho >= 1 {
			return fmt.Errorf("ces: rho = %v, must be nonzero and below 1", f.Rho)
		}
	case Linear:
		// Alpha only.
	case Quadratic:
		if len(f.Beta) != numGoods {
			return fmt.Errorf("quadratic: beta has %d entries, want %d", len(f.Beta), numGoods)
		}
		for i, b := range f.Beta {
			if b <= 0 {
				return fmt.Errorf("quadratic: beta[%d] = %v, must be positive", i, b)
			}
		}
	case LogQuadratic:
		if len(f.Beta) != numGoods {
			return fmt.Errorf("log_quadratic: beta has %d entries, want %d", len(f.Beta), numGoods)
		}
	case StoneGeary:
		if len(f.Gamma) != numGoods {
			return fmt.Errorf("stone_geary: gamma has %d entries, want %d", len(f.Gamma), numGoods)
		}
		for i, g := range f.Gamma {
			if g < 0 {
				return fmt.Errorf("stone_geary: gamma[%d] = %v, must be non-negative", i, g)
			}
		}
	default:
		return fmt.Errorf("unknown utility family %d", f.Family)
	}
	return nil
}

// Feasible reports whether the goods vector is admissible for this
// family. Only StoneGeary constrains it: every quantity must be strictly
// above its subsistence floor.
func (f *Function) Feasible(goods []int64) bool {
	if f.Family != StoneGeary {
		return true
	}
	for i, q := range goods {
		if float64(q) <= f.Gamma[i] {
			return false
		}
	}
	return true
}

// Eval returns total utility at the given holdings, including the linear
// money term. StoneGeary returns -Inf for infeasible holdings so callers
// can treat any trade into the infeasible region as strictly worsening.
func (f *Function) Eval(goods []int64, money int64) float64 {
	u := f.evalGoods(goods)
	return u + f.MoneyUtil*float64(money)
}

func (f *Function) evalGoods(goods []int64) float64 {
	switch f.Family {
	case CES:
		var sum float64
		for i, q := range goods {
			sum += f.Alpha[i] * math.Pow(float64(q)+evalEps, f.Rho)
		}
		return math.Pow(sum, 1/f.Rho)
	case Linear:
		var u float64
		for i, q := range goods {
			u += f.Alpha[i] * float64(q)
		}
		return u
	case Quadratic:
		var u float64
		for i, q := range goods {
			x := float64(q)
			u += f.Alpha[i]*x - 0.5*f.Beta[i]*x*x
		}
		return u
	case LogQuadratic:
		var u float64
		for i, q := range goods {
			l := math.Log(float64(q) + 1)
			u += f.Alpha[i]*l + 0.5*f.Beta[i]*l*l
		}
		return u
	case StoneGeary:
		var u float64
		for i, q := range goods {
			d := float64(q) - f.Gamma[i]
			if d <= 0 {
				return math.Inf(-1)
			}
			u += f.Alpha[i] * math.Log(d)
		}
		return u
	default:
		panic(fmt.Sprintf("utility: unknown family %d", f.Family))
	}
}

// Marginal returns the marginal utility of one more unit of the given
// good at current holdings. It can be zero or negative for families with
// satiation; callers must treat non-positive marginals as "no beneficial
// direction" rather than deriving a price from them.
func (f *Function) Marginal(goods []int64, good int) float64 {
	x := float64(goods[good])
	switch f.Family {
	case CES:
		var sum float64
		for i, q := range goods {
			sum += f.Alpha[i] * math.Pow(float64(q)+evalEps, f.Rho)
		}
		u := math.Pow(sum, 1/f.Rho)
		return f.Alpha[good] * math.Pow(x+evalEps, f.Rho-1) * math.Pow(u, 1-f.Rho)
	case Linear:
		return f.Alpha[good]
	case Quadratic:
		return f.Alpha[good] - f.Beta[good]*x
	case LogQuadratic:
		l := math.Log(x + 1)
		return (f.Alpha[good] + f.Beta[good]*l) / (x + 1)
	case StoneGeary:
		d := x - f.Gamma[good]
		if d <= 0 {
			return math.Inf(1) // below subsistence: will not part with it at any price
		}
		return f.Alpha[good] / d
	default:
		panic(fmt.Sprintf("utility: unknown family %d", f.Family))
	}
}

// MRS returns the marginal rate of substitution between the received and
// given good: how many units of give one unit of recv is worth at current
// holdings. ok is false when either marginal is non-positive or the ratio
// is not a usable price.
func (f *Function) MRS(goods []int64, recv, give int) (mrs float64, ok bool) {
	muRecv := f.Marginal(goods, recv)
	muGive := f.Marginal(goods, give)
	if muRecv <= 0 || muGive <= 0 {
		return 0, false
	}
	mrs = muRecv / muGive
	if math.IsNaN(mrs) || math.IsInf(mrs, 0) || mrs <= 0 {
		return 0, false
	}
	return mrs, true
}
