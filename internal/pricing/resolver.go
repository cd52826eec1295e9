package pricing

import (
	"github.com/shopspring/decimal"
)

// Source labels which extraction path produced a canonical price. Recorded in
// history for auditing.
type Source string

const (
	SourceRateControl  Source = "rate_control"
	SourceRenderedText Source = "rendered_text"
	SourceRawMarkup    Source = "raw_markup"
	SourceFallback     Source = "fallback_heuristic"
	SourceNone         Source = "none"
)

// Candidate is an opaque handle to one rate-selection control on the page.
// Every accessor may fail; the resolver treats any failure as "strategy did
// not apply" and moves on.
type Candidate interface {
	// PriceParts locates the integer and pence sub-parts of the displayed
	// price, when the control renders them as separate nodes.
	PriceParts() (intPart, decPart string, err error)
	// Text returns the control's visible rendered text.
	Text() (string, error)
	// RawText returns the underlying text content, including text hidden by
	// styling.
	RawText() (string, error)
}

// rateStrategy attempts one extraction path against a candidate. A false
// result means the strategy failed or did not apply; strategies never error.
type rateStrategy func(Candidate) (decimal.Decimal, Source, bool)

// Strategies in descending confidence. Evaluated left to right, first hit
// wins.
var rateStrategies = []rateStrategy{
	splitPartsStrategy,
	renderedTextStrategy,
	rawMarkupStrategy,
}

// ResolveRate resolves a high-confidence price from the supplied candidates,
// which arrive in selector-priority order. For each candidate the strategies
// are tried in order and the first non-empty result across all of them is
// returned; candidates are never aggregated. ResolveRate never fails loudly:
// when nothing resolves it reports ok=false and the caller falls back to
// free-text scanning.
func ResolveRate(candidates []Candidate) (decimal.Decimal, Source, bool) {
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		for _, strategy := range rateStrategies {
			if price, source, ok := strategy(candidate); ok {
				return price, source, true
			}
		}
	}
	return decimal.Decimal{}, SourceNone, false
}

// splitPartsStrategy reads the integer and pence sub-parts. Both must exist
// and be all digits; this sidesteps free-text ambiguity entirely.
func splitPartsStrategy(c Candidate) (decimal.Decimal, Source, bool) {
	intPart, decPart, err := c.PriceParts()
	if err != nil {
		return decimal.Decimal{}, SourceNone, false
	}
	if !allDigits(intPart) || !allDigits(decPart) {
		return decimal.Decimal{}, SourceNone, false
	}
	price, err := decimal.NewFromString(intPart + "." + decPart)
	if err != nil {
		return decimal.Decimal{}, SourceNone, false
	}
	return price, SourceRateControl, true
}

// renderedTextStrategy scans the visible text and takes the maximum amount: a
// rate control showing both a nightly rate and a struck-through total should
// yield the total.
func renderedTextStrategy(c Candidate) (decimal.Decimal, Source, bool) {
	text, err := c.Text()
	if err != nil {
		return decimal.Decimal{}, SourceNone, false
	}
	amounts := ScanAmounts(text)
	if len(amounts) == 0 {
		return decimal.Decimal{}, SourceNone, false
	}
	return amounts[len(amounts)-1], SourceRenderedText, true
}

// rawMarkupStrategy is the last resort for text hidden by styling.
func rawMarkupStrategy(c Candidate) (decimal.Decimal, Source, bool) {
	raw, err := c.RawText()
	if err != nil {
		return decimal.Decimal{}, SourceNone, false
	}
	amounts := ScanAmounts(raw)
	if len(amounts) == 0 {
		return decimal.Decimal{}, SourceNone, false
	}
	return amounts[len(amounts)-1], SourceRawMarkup, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
