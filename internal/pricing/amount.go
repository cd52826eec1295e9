package pricing

import (
	"regexp"
	"sort"

	"github.com/shopspring/decimal"
)

// gbpRe matches a sterling amount: symbol, optional whitespace, 1-5 integer
// digits, optional 2-digit pence part. Single-currency by convention.
var gbpRe = regexp.MustCompile(`(?i)£\s*([0-9]{1,5}(?:\.[0-9]{2})?)`)

// ScanAmounts extracts every GBP amount present in text. Matches that fail to
// parse are dropped, duplicates collapse after rounding to two decimals, and
// the result is sorted ascending. Empty text yields an empty slice.
func ScanAmounts(text string) []decimal.Decimal {
	if text == "" {
		return nil
	}

	seen := make(map[string]decimal.Decimal)
	for _, m := range gbpRe.FindAllStringSubmatch(text, -1) {
		value, err := decimal.NewFromString(m[1])
		if err != nil {
			continue
		}
		rounded := value.Round(2)
		seen[rounded.StringFixed(2)] = rounded
	}

	return sortedAmounts(seen)
}

// MergeAmounts unions several amount sets into one deduplicated ascending set.
func MergeAmounts(sets ...[]decimal.Decimal) []decimal.Decimal {
	seen := make(map[string]decimal.Decimal)
	for _, set := range sets {
		for _, value := range set {
			rounded := value.Round(2)
			seen[rounded.StringFixed(2)] = rounded
		}
	}
	return sortedAmounts(seen)
}

func sortedAmounts(seen map[string]decimal.Decimal) []decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, len(seen))
	for _, value := range seen {
		amounts = append(amounts, value)
	}
	sort.Slice(amounts, func(i, j int) bool {
		return amounts[i].Cmp(amounts[j]) < 0
	})
	return amounts
}
