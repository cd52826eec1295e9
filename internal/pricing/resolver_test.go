package pricing

import (
	"errors"
	"testing"
)

// fakeCandidate scripts each accessor for resolver tests.
type fakeCandidate struct {
	intPart, decPart string
	partsErr         error
	text             string
	textErr          error
	raw              string
	rawErr           error
}

func (f *fakeCandidate) PriceParts() (string, string, error) {
	return f.intPart, f.decPart, f.partsErr
}

func (f *fakeCandidate) Text() (string, error)    { return f.text, f.textErr }
func (f *fakeCandidate) RawText() (string, error) { return f.raw, f.rawErr }

var errMissing = errors.New("element not found")

func TestResolveRateSplitPartsWins(t *testing.T) {
	// 拆分节点有效时必须胜出, 即使可见文本含更大的金额。
	c := &fakeCandidate{intPart: "92", decPart: "50", text: "Saver rate £92.50 was £140.00"}
	price, source, ok := ResolveRate([]Candidate{c})
	if !ok {
		t.Fatal("应解析出价格")
	}
	if price.StringFixed(2) != "92.50" {
		t.Fatalf("期望 92.50, 实际 %s", price.StringFixed(2))
	}
	if source != SourceRateControl {
		t.Fatalf("来源应为 rate_control, 实际 %s", source)
	}
}

func TestResolveRateNonDigitPartsFallThrough(t *testing.T) {
	c := &fakeCandidate{intPart: "92", decPart: "5x", text: "from £88.00"}
	price, source, ok := ResolveRate([]Candidate{c})
	if !ok || source != SourceRenderedText {
		t.Fatalf("非数字拆分应回落到可见文本, 实际 source=%s ok=%v", source, ok)
	}
	if price.StringFixed(2) != "88.00" {
		t.Fatalf("期望 88.00, 实际 %s", price.StringFixed(2))
	}
}

func TestResolveRateRenderedTextPicksMax(t *testing.T) {
	c := &fakeCandidate{partsErr: errMissing, text: "£75.00 per night, £150.00 total"}
	price, source, ok := ResolveRate([]Candidate{c})
	if !ok || source != SourceRenderedText {
		t.Fatalf("unexpected source=%s ok=%v", source, ok)
	}
	if price.StringFixed(2) != "150.00" {
		t.Fatalf("可见文本应取最大金额, 实际 %s", price.StringFixed(2))
	}
}

func TestResolveRateRawMarkupLastResort(t *testing.T) {
	c := &fakeCandidate{partsErr: errMissing, textErr: errMissing, raw: `<span hidden>£64.00</span>`}
	price, source, ok := ResolveRate([]Candidate{c})
	if !ok || source != SourceRawMarkup {
		t.Fatalf("unexpected source=%s ok=%v", source, ok)
	}
	if price.StringFixed(2) != "64.00" {
		t.Fatalf("期望 64.00, 实际 %s", price.StringFixed(2))
	}
}

func TestResolveRateCandidatePriorityOrder(t *testing.T) {
	// First candidate resolves via its weakest strategy; the second is never
	// consulted even though it has high-confidence parts.
	first := &fakeCandidate{partsErr: errMissing, text: "£99.00"}
	second := &fakeCandidate{intPart: "10", decPart: "00"}
	price, _, ok := ResolveRate([]Candidate{first, second})
	if !ok || price.StringFixed(2) != "99.00" {
		t.Fatalf("应返回第一个候选的结果, 实际 %s", price.StringFixed(2))
	}
}

func TestResolveRateAllFail(t *testing.T) {
	c := &fakeCandidate{partsErr: errMissing, textErr: errMissing, rawErr: errMissing}
	if _, source, ok := ResolveRate([]Candidate{c, nil}); ok || source != SourceNone {
		t.Fatalf("全部失败应返回 none, 实际 source=%s ok=%v", source, ok)
	}
}

func TestResolveRateNoCandidates(t *testing.T) {
	if _, _, ok := ResolveRate(nil); ok {
		t.Fatal("无候选时不应解析出价格")
	}
}

func TestResolveRateEmptyPartsRejected(t *testing.T) {
	c := &fakeCandidate{intPart: "", decPart: "50", textErr: errMissing, rawErr: errMissing}
	if _, _, ok := ResolveRate([]Candidate{c}); ok {
		t.Fatal("空的整数部分不应通过拆分策略")
	}
}
