package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"hotel-price-watch/internal/alerting"
	"hotel-price-watch/internal/pricing"
)

// SimulateOptions feed canned inputs through the decision pipeline.
type SimulateOptions struct {
	// Amounts is the simulated scanned amount set, e.g. "80,95.00,130".
	Amounts  []float64
	Last     *float64
	Expected *float64
	Target   *float64
	DropPct  *float64
	// Notify dispatches any fired alerts to the configured channel instead
	// of only printing them.
	Notify bool
}

// SimulateAlert 用给定金额集合走一遍选择与变更检测, 便于核对告警文案。
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if len(opts.Amounts) == 0 {
		return errors.New("--amounts 不能为空")
	}

	raw := make([]decimal.Decimal, 0, len(opts.Amounts))
	for _, v := range opts.Amounts {
		raw = append(raw, decimal.NewFromFloat(v))
	}
	amounts := pricing.MergeAmounts(raw)

	var last, expected, target *decimal.Decimal
	if opts.Last != nil {
		d := decimal.NewFromFloat(*opts.Last)
		last = &d
	}
	if opts.Expected != nil {
		d := decimal.NewFromFloat(*opts.Expected)
		expected = &d
	}
	if opts.Target != nil {
		d := decimal.NewFromFloat(*opts.Target)
		target = &d
	}

	dropPct := a.Config.Monitor.DefaultDropPct
	if opts.DropPct != nil {
		dropPct = *opts.DropPct
	}

	var chosen *decimal.Decimal
	if price, ok := pricing.ChoosePrice(amounts, last, expected); ok {
		chosen = &price
	}

	detection := pricing.Detect(chosen, last, target, decimal.NewFromFloat(dropPct))

	if chosen != nil {
		fmt.Fprintf(os.Stdout, "chosen=£%s out of [%s]\n", chosen.StringFixed(2), joinAmounts(amounts))
	} else {
		fmt.Fprintln(os.Stdout, "no price chosen")
	}

	if len(detection.Reasons) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts fired")
		return nil
	}

	entries := make([]string, 0, len(detection.Reasons))
	for _, reason := range detection.Reasons {
		line := reason.Describe("simulated")
		entries = append(entries, line)
		fmt.Fprintln(os.Stdout, "ALERT: "+line)
	}

	if opts.Notify {
		notifier := a.newNotifier()
		if notifier == nil {
			return errors.New("未配置任何告警通道")
		}
		note := alerting.Notification{Subject: a.Config.Alerting.Subject, Entries: entries}
		return notifier.Notify(ctx, note)
	}
	return nil
}

func joinAmounts(amounts []decimal.Decimal) string {
	parts := make([]string, 0, len(amounts))
	for _, amount := range amounts {
		parts = append(parts, amount.StringFixed(2))
	}
	return strings.Join(parts, ",")
}
