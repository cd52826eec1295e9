package pricing

import (
	"github.com/shopspring/decimal"
)

// ChoosePrice picks one canonical price out of a scanned amount set when no
// rate control resolved. Amounts must be deduplicated and sorted ascending,
// as ScanAmounts produces them.
//
// Policy: nearest to the last known price, else nearest to the expected
// price, else the maximum (absent any anchor, the largest visible figure is
// assumed to be the full price rather than a per-night teaser). Pure
// function; ties resolve to the first amount in ascending order.
func ChoosePrice(amounts []decimal.Decimal, last, expected *decimal.Decimal) (decimal.Decimal, bool) {
	if len(amounts) == 0 {
		return decimal.Decimal{}, false
	}
	if last != nil {
		return nearest(amounts, *last), true
	}
	if expected != nil {
		return nearest(amounts, *expected), true
	}
	return amounts[len(amounts)-1], true
}

func nearest(amounts []decimal.Decimal, anchor decimal.Decimal) decimal.Decimal {
	best := amounts[0]
	bestDist := best.Sub(anchor).Abs()
	for _, amount := range amounts[1:] {
		dist := amount.Sub(anchor).Abs()
		if dist.Cmp(bestDist) < 0 {
			best = amount
			bestDist = dist
		}
	}
	return best
}
