package pricing

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

var defaultThreshold = decimal.NewFromFloat(5.0)

func TestDetectUndetectedPreservesState(t *testing.T) {
	prior := decPtr(t, "50.00")
	det := Detect(nil, prior, nil, defaultThreshold)

	if det.Persist {
		t.Fatal("未检出价格时不应覆盖状态")
	}
	if len(det.Reasons) != 1 || det.Reasons[0].Kind != AlertUndetected {
		t.Fatalf("应只触发 undetected, 实际 %v", det.Reasons)
	}
}

func TestDetectBelowTargetInclusive(t *testing.T) {
	target := decPtr(t, "90.00")

	det := Detect(decPtr(t, "90.00"), nil, target, defaultThreshold)
	if len(det.Reasons) != 1 || det.Reasons[0].Kind != AlertBelowTarget {
		t.Fatalf("等于目标价应触发 below_target, 实际 %v", det.Reasons)
	}

	det = Detect(decPtr(t, "90.01"), nil, target, defaultThreshold)
	if len(det.Reasons) != 0 {
		t.Fatalf("高于目标价一分钱不应触发, 实际 %v", det.Reasons)
	}
}

func TestDetectPriceDropThreshold(t *testing.T) {
	prior := decPtr(t, "100.00")

	det := Detect(decPtr(t, "92.00"), prior, nil, defaultThreshold)
	if len(det.Reasons) != 1 || det.Reasons[0].Kind != AlertPriceDrop {
		t.Fatalf("8%% 跌幅应触发 price_drop, 实际 %v", det.Reasons)
	}
	if det.Reasons[0].DropPct.StringFixed(1) != "8.0" {
		t.Fatalf("期望跌幅 8.0, 实际 %s", det.Reasons[0].DropPct.StringFixed(1))
	}

	det = Detect(decPtr(t, "96.00"), prior, nil, defaultThreshold)
	if len(det.Reasons) != 0 {
		t.Fatalf("4%% 跌幅不应触发, 实际 %v", det.Reasons)
	}
}

func TestDetectDropExactlyAtThresholdFires(t *testing.T) {
	det := Detect(decPtr(t, "95.00"), decPtr(t, "100.00"), nil, defaultThreshold)
	if len(det.Reasons) != 1 || det.Reasons[0].Kind != AlertPriceDrop {
		t.Fatalf("恰好达到阈值应触发, 实际 %v", det.Reasons)
	}
}

func TestDetectIncreaseNeverFires(t *testing.T) {
	det := Detect(decPtr(t, "120.00"), decPtr(t, "100.00"), nil, defaultThreshold)
	if len(det.Reasons) != 0 {
		t.Fatalf("涨价不应触发 price_drop, 实际 %v", det.Reasons)
	}
	if !det.Persist || det.NewPrice.StringFixed(2) != "120.00" {
		t.Fatalf("状态仍应更新为新价格: %v", det)
	}
}

func TestDetectZeroPriorSkipsDropRule(t *testing.T) {
	det := Detect(decPtr(t, "10.00"), decPtr(t, "0.00"), nil, defaultThreshold)
	if len(det.Reasons) != 0 {
		t.Fatalf("prior=0 不应参与跌幅计算, 实际 %v", det.Reasons)
	}
}

func TestDetectBothRulesFireIndependently(t *testing.T) {
	det := Detect(decPtr(t, "85.00"), decPtr(t, "100.00"), decPtr(t, "90.00"), defaultThreshold)
	if len(det.Reasons) != 2 {
		t.Fatalf("目标价与跌幅应同时触发, 实际 %v", det.Reasons)
	}
	if det.Reasons[0].Kind != AlertBelowTarget || det.Reasons[1].Kind != AlertPriceDrop {
		t.Fatalf("告警顺序不符: %v", det.Reasons)
	}
}

func TestDetectStateOverwrittenOnSuccess(t *testing.T) {
	det := Detect(decPtr(t, "96.00"), decPtr(t, "100.00"), nil, defaultThreshold)
	if !det.Persist {
		t.Fatal("成功检出后必须持久化新状态")
	}
	if det.NewPrice.StringFixed(2) != "96.00" {
		t.Fatalf("期望新状态 96.00, 实际 %s", det.NewPrice.StringFixed(2))
	}
}

func TestAlertReasonDescribe(t *testing.T) {
	below := AlertReason{Kind: AlertBelowTarget, Chosen: *decPtr(t, "89.50"), Target: *decPtr(t, "90.00")}
	if got := below.Describe("Brighton Seafront"); got != "Brighton Seafront: <= target (£89.50 <= £90.00)" {
		t.Fatalf("below_target 文案不符: %q", got)
	}

	drop := AlertReason{Kind: AlertPriceDrop, Chosen: *decPtr(t, "92.00"), Prior: *decPtr(t, "100.00"), DropPct: *decPtr(t, "8")}
	if got := drop.Describe("Brighton Seafront"); got != "Brighton Seafront: dropped 8.0% (£100.00 -> £92.00)" {
		t.Fatalf("price_drop 文案不符: %q", got)
	}

	und := AlertReason{Kind: AlertUndetected}
	if got := und.Describe("x"); !strings.Contains(got, "no price detected") {
		t.Fatalf("undetected 文案不符: %q", got)
	}
}
