package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AlertKind 标记一次检查触发的告警类别。
type AlertKind string

const (
	AlertUndetected  AlertKind = "undetected"
	AlertBelowTarget AlertKind = "below_target"
	AlertPriceDrop   AlertKind = "price_drop"
)

// AlertReason carries the numeric evidence behind one fired alert rule.
type AlertReason struct {
	Kind    AlertKind
	Chosen  decimal.Decimal
	Target  decimal.Decimal // below_target only
	Prior   decimal.Decimal // price_drop only
	DropPct decimal.Decimal // price_drop only
}

// Describe renders the reason as a human-readable alert line.
func (r AlertReason) Describe(name string) string {
	switch r.Kind {
	case AlertBelowTarget:
		return fmt.Sprintf("%s: <= target (£%s <= £%s)", name, r.Chosen.StringFixed(2), r.Target.StringFixed(2))
	case AlertPriceDrop:
		return fmt.Sprintf("%s: dropped %s%% (£%s -> £%s)", name, r.DropPct.StringFixed(1), r.Prior.StringFixed(2), r.Chosen.StringFixed(2))
	default:
		return fmt.Sprintf("%s: ERROR no price detected", name)
	}
}

// Detection is the outcome of one change-detection pass.
type Detection struct {
	Reasons []AlertReason
	// NewPrice is the price to persist as last-known. Persist is false when
	// no price resolved, so a transient extraction failure never erases the
	// prior state.
	NewPrice decimal.Decimal
	Persist  bool
}

var hundred = decimal.NewFromInt(100)

// Detect evaluates the alert rules for one check. chosen is nil when no
// canonical price resolved; prior is nil on first run; target is nil when no
// alert ceiling is configured. The rules are independent: a target breach and
// a percentage drop may both fire in the same check.
func Detect(chosen, prior, target *decimal.Decimal, dropThresholdPct decimal.Decimal) Detection {
	if chosen == nil {
		return Detection{Reasons: []AlertReason{{Kind: AlertUndetected}}}
	}

	var reasons []AlertReason

	if target != nil && chosen.Cmp(*target) <= 0 {
		reasons = append(reasons, AlertReason{
			Kind:   AlertBelowTarget,
			Chosen: *chosen,
			Target: *target,
		})
	}

	if prior != nil && prior.Sign() > 0 {
		dropPct := prior.Sub(*chosen).Div(*prior).Mul(hundred)
		if dropPct.Cmp(dropThresholdPct) >= 0 {
			reasons = append(reasons, AlertReason{
				Kind:    AlertPriceDrop,
				Chosen:  *chosen,
				Prior:   *prior,
				DropPct: dropPct,
			})
		}
	}

	return Detection{Reasons: reasons, NewPrice: *chosen, Persist: true}
}
