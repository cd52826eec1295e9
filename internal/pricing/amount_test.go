package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestScanAmountsEmpty(t *testing.T) {
	if got := ScanAmounts(""); len(got) != 0 {
		t.Fatalf("空文本应返回空集, 实际 %v", got)
	}
	if got := ScanAmounts("no prices here"); len(got) != 0 {
		t.Fatalf("无金额文本应返回空集, 实际 %v", got)
	}
}

func TestScanAmountsDedupeAndSort(t *testing.T) {
	text := "Was £120.00, now £89.99! Book for £89.99 or from £ 45"
	got := ScanAmounts(text)

	want := []string{"45.00", "89.99", "120.00"}
	if len(got) != len(want) {
		t.Fatalf("期望 %d 个金额, 实际 %d: %v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].StringFixed(2) != w {
			t.Fatalf("位置 %d 期望 %s, 实际 %s", i, w, got[i].StringFixed(2))
		}
	}
}

func TestScanAmountsWhitespaceAfterSymbol(t *testing.T) {
	got := ScanAmounts("total £  92.50")
	if len(got) != 1 || got[0].StringFixed(2) != "92.50" {
		t.Fatalf("符号后空白应被接受: %v", got)
	}
}

func TestScanAmountsIgnoresBareNumbers(t *testing.T) {
	got := ScanAmounts("room 101 sleeps 2, from £59.99")
	if len(got) != 1 || got[0].StringFixed(2) != "59.99" {
		t.Fatalf("无货币符号的数字不应匹配: %v", got)
	}
}

func TestScanAmountsIntegerOnly(t *testing.T) {
	// No pence part rounds to .00 and dedupes against the explicit form.
	got := ScanAmounts("£75 or £75.00")
	if len(got) != 1 || got[0].StringFixed(2) != "75.00" {
		t.Fatalf("£75 与 £75.00 应合并为一个值: %v", got)
	}
}

func TestMergeAmounts(t *testing.T) {
	a := ScanAmounts("£10.00 £30.00")
	b := ScanAmounts("£30.00 £20.00")
	got := MergeAmounts(a, b)

	want := []string{"10.00", "20.00", "30.00"}
	if len(got) != len(want) {
		t.Fatalf("合并后期望 %d 个值, 实际 %v", len(want), got)
	}
	for i, w := range want {
		if got[i].StringFixed(2) != w {
			t.Fatalf("位置 %d 期望 %s, 实际 %s", i, w, got[i].StringFixed(2))
		}
	}
}

func amountsOf(t *testing.T, values ...string) []decimal.Decimal {
	t.Helper()
	out := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil {
			t.Fatalf("bad test amount %q: %v", v, err)
		}
		out = append(out, d)
	}
	return out
}
