package systems

import (
	"testing"

	"github.com/cmfunderburk/vmt-dev-sub002/components"
	"github.com/cmfunderburk/vmt-dev-sub002/utility"
)

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		x    float64
		want int64
	}{
		{0, 0},
		{0.4, 0},
		{0.5, 1},
		{1.5, 2},
		{2.49, 2},
		{2.5, 3},
		{5.0, 5},
	}
	for _, tt := range tests {
		if got := RoundHalfUp(tt.x); got != tt.want {
			t.Errorf("RoundHalfUp(%v) = %d, want %d", tt.x, got, tt.want)
		}
	}
}

// newTrader builds a test trader with quotes derived from its own
// preferences, the way the tick loop does it.
func newTrader(id uint32, fn utility.Function, goods []int64, money int64, pairs []utility.Pair, spread float64) *Trader {
	f := fn
	return &Trader{
		ID:     id,
		Fn:     &f,
		Goods:  goods,
		Money:  money,
		Quotes: utility.ComputeQuotes(&f, goods, money, pairs, spread),
	}
}

func TestFindBestTradeBarter(t *testing.T) {
	pairs := utility.EnumeratePairs([]string{"x", "y"}, utility.RegimeGoods)

	// A values y three times x, B the reverse. Both hold 5 of each, so
	// shifting x toward B and y toward A improves both.
	a := newTrader(1, utility.Function{Family: utility.Linear, Alpha: []float64{1, 3}}, []int64{5, 5}, 0, pairs, 0)
	b := newTrader(2, utility.Function{Family: utility.Linear, Alpha: []float64{3, 1}}, []int64{5, 5}, 0, pairs, 0)

	cand, found := FindBestTrade(a, b, pairs, 5)
	if !found {
		t.Fatal("no trade found between complementary agents")
	}

	p := pairs[cand.PairIdx]
	if p.Label != "g:y<-x" {
		t.Errorf("pair = %q, want g:y<-x", p.Label)
	}
	if cand.BuyerID != 1 || cand.SellerID != 2 {
		t.Errorf("roles = buyer %d seller %d, want buyer 1 seller 2", cand.BuyerID, cand.SellerID)
	}
	// Midpoint of A's bid 3 and B's ask 1/3 is 5/3. Quantity 3 is the
	// largest whose rounded counter (5) the buyer can still cover.
	if cand.Qty != 3 || cand.Counter != 5 {
		t.Errorf("qty %d counter %d, want 3 and 5", cand.Qty, cand.Counter)
	}
	if cand.GainBuyer <= 0 || cand.GainSeller <= 0 {
		t.Errorf("gains (%v, %v), both must be strictly positive", cand.GainBuyer, cand.GainSeller)
	}
}

func TestFindBestTradeNoMutualGain(t *testing.T) {
	pairs := utility.EnumeratePairs([]string{"x", "y"}, utility.RegimeGoods)

	// Identical preferences: every swap is utility-neutral, and zero gain
	// is not a trade.
	a := newTrader(1, utility.Function{Family: utility.Linear, Alpha: []float64{1, 1}}, []int64{5, 5}, 0, pairs, 0)
	b := newTrader(2, utility.Function{Family: utility.Linear, Alpha: []float64{1, 1}}, []int64{5, 5}, 0, pairs, 0)

	if _, found := FindBestTrade(a, b, pairs, 5); found {
		t.Error("trade found between identical agents")
	}
}

func TestFindBestTradeMoney(t *testing.T) {
	pairs := utility.EnumeratePairs([]string{"x"}, utility.RegimeMoney)

	// A values the good at 10 money-units, B at 2; the midpoint splits the
	// 8-unit surplus.
	a := newTrader(1, utility.Function{Family: utility.Linear, Alpha: []float64{10}, MoneyUtil: 1}, []int64{0}, 20, pairs, 0)
	b := newTrader(2, utility.Function{Family: utility.Linear, Alpha: []float64{2}, MoneyUtil: 1}, []int64{5}, 0, pairs, 0)

	cand, found := FindBestTrade(a, b, pairs, 3)
	if !found {
		t.Fatal("no money trade found")
	}
	if cand.BuyerID != 1 {
		t.Errorf("buyer = %d, want 1", cand.BuyerID)
	}
	// Price 6, so the largest quantity within the cap and budget wins.
	if cand.Qty != 3 || cand.Counter != 18 {
		t.Errorf("qty %d counter %d, want 3 and 18", cand.Qty, cand.Counter)
	}
	if cand.GainBuyer != 12 || cand.GainSeller != 12 {
		t.Errorf("gains (%v, %v), want (12, 12)", cand.GainBuyer, cand.GainSeller)
	}
}

func TestFindBestTradeRespectsStock(t *testing.T) {
	pairs := utility.EnumeratePairs([]string{"x", "y"}, utility.RegimeGoods)

	// The seller holds a single unit of the wanted good; quantity search
	// must stop there no matter the cap.
	a := newTrader(1, utility.Function{Family: utility.Linear, Alpha: []float64{1, 3}}, []int64{10, 0}, 0, pairs, 0)
	b := newTrader(2, utility.Function{Family: utility.Linear, Alpha: []float64{3, 1}}, []int64{0, 1}, 0, pairs, 0)

	cand, found := FindBestTrade(a, b, pairs, 10)
	if !found {
		t.Fatal("no trade found")
	}
	if cand.Qty != 1 {
		t.Errorf("qty = %d, want 1 (seller stock)", cand.Qty)
	}
}

func TestFindBestTradeLeavesInputsUntouched(t *testing.T) {
	pairs := utility.EnumeratePairs([]string{"x", "y"}, utility.RegimeGoods)

	a := newTrader(1, utility.Function{Family: utility.Linear, Alpha: []float64{1, 3}}, []int64{5, 5}, 0, pairs, 0)
	b := newTrader(2, utility.Function{Family: utility.Linear, Alpha: []float64{3, 1}}, []int64{5, 5}, 0, pairs, 0)

	if _, found := FindBestTrade(a, b, pairs, 5); !found {
		t.Fatal("no trade found")
	}
	for i, q := range a.Goods {
		if q != 5 {
			t.Errorf("a.Goods[%d] = %d after search, want 5", i, q)
		}
	}
	for i, q := range b.Goods {
		if q != 5 {
			t.Errorf("b.Goods[%d] = %d after search, want 5", i, q)
		}
	}
}

func TestApplyConservesTotals(t *testing.T) {
	pairs := utility.EnumeratePairs([]string{"x", "y"}, utility.RegimeGoods)

	buyerInv := &components.Inventory{Goods: []int64{5, 5}}
	sellerInv := &components.Inventory{Goods: []int64{5, 5}}

	cand := Candidate{PairIdx: 1, BuyerID: 1, SellerID: 2, Qty: 3, Counter: 5}
	Apply(cand, pairs[1], buyerInv, sellerInv)

	if got := buyerInv.Goods[1] + sellerInv.Goods[1]; got != 10 {
		t.Errorf("total of received good = %d, want 10", got)
	}
	if got := buyerInv.Goods[0] + sellerInv.Goods[0]; got != 10 {
		t.Errorf("total of given good = %d, want 10", got)
	}
	if !buyerInv.Dirty || !sellerInv.Dirty {
		t.Error("inventories not marked dirty after trade")
	}
	if !buyerInv.NonNegative() || !sellerInv.NonNegative() {
		t.Error("negative holdings after trade")
	}
}

func TestApplyMoney(t *testing.T) {
	pairs := utility.EnumeratePairs([]string{"x"}, utility.RegimeMoney)

	buyerInv := &components.Inventory{Goods: []int64{0}, Money: 20}
	sellerInv := &components.Inventory{Goods: []int64{5}, Money: 0}

	cand := Candidate{PairIdx: 0, BuyerID: 1, SellerID: 2, Qty: 2, Counter: 12}
	Apply(cand, pairs[0], buyerInv, sellerInv)

	if buyerInv.Goods[0] != 2 || sellerInv.Goods[0] != 3 {
		t.Errorf("goods after = (%d, %d), want (2, 3)", buyerInv.Goods[0], sellerInv.Goods[0])
	}
	if buyerInv.Money != 8 || sellerInv.Money != 12 {
		t.Errorf("money after = (%d, %d), want (8, 12)", buyerInv.Money, sellerInv.Money)
	}
}
