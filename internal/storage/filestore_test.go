package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTargetKey(t *testing.T) {
	cases := map[string]string{
		"Brighton Seafront":    "brighton_seafront",
		"  London -- Central ": "london_central",
		"":                     "item",
		"!!!":                  "item",
	}
	for in, want := range cases {
		if got := TargetKey(in); got != want {
			t.Fatalf("TargetKey(%q) = %q, 期望 %q", in, got, want)
		}
	}

	long := strings.Repeat("a", 120)
	if got := TargetKey(long); len(got) != 80 {
		t.Fatalf("长名称应截断到 80, 实际 %d", len(got))
	}
}

func TestFileStoreStateRoundTrip(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	state, err := fs.LoadState(ctx, "missing")
	if err != nil || state != nil {
		t.Fatalf("无状态文件应返回 nil,nil: %v %v", state, err)
	}

	price := decimal.RequireFromString("92.50")
	saved := MonitorState{
		TargetKey:   "brighton",
		LastPrice:   price,
		LastChecked: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	if err := fs.SaveState(ctx, saved); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	loaded, err := fs.LoadState(ctx, "brighton")
	if err != nil || loaded == nil {
		t.Fatalf("LoadState: %v %v", loaded, err)
	}
	if !loaded.LastPrice.Equal(price) {
		t.Fatalf("价格往返不一致: %s", loaded.LastPrice)
	}
	if !loaded.LastChecked.Equal(saved.LastChecked) {
		t.Fatalf("时间戳往返不一致: %s", loaded.LastChecked)
	}
}

func TestFileStoreCorruptStateReadsAsAbsent(t *testing.T) {
	fs := newTestStore(t)
	path := fs.statePath("broken")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	state, err := fs.LoadState(context.Background(), "broken")
	if err != nil || state != nil {
		t.Fatalf("损坏的状态文件应视为缺失: %v %v", state, err)
	}
}

func TestFileStoreHistoryAppendAndList(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		price := decimal.NewFromInt(int64(90 + i))
		rec := HistoryRecord{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Price:     &price,
			Source:    "rate_control",
			Amounts:   []decimal.Decimal{price, price.Add(decimal.NewFromInt(30))},
			URL:       "https://example.test/hotel",
		}
		if err := fs.AppendHistory(ctx, "brighton", rec); err != nil {
			t.Fatalf("AppendHistory %d: %v", i, err)
		}
	}

	// Header written exactly once.
	raw, err := os.ReadFile(fs.historyPath("brighton"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(raw), "timestamp_utc"); got != 1 {
		t.Fatalf("CSV 头应只出现一次, 实际 %d", got)
	}

	recent, err := fs.ListRecentHistory(ctx, "brighton", 2)
	if err != nil {
		t.Fatalf("ListRecentHistory: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("期望 2 行, 实际 %d", len(recent))
	}
	if !recent[0].Timestamp.After(recent[1].Timestamp) {
		t.Fatal("ListRecentHistory 应按时间倒序")
	}
	if recent[0].Price == nil || recent[0].Price.StringFixed(2) != "92.00" {
		t.Fatalf("最新一行价格不符: %v", recent[0].Price)
	}
	if len(recent[0].Amounts) != 2 {
		t.Fatalf("金额集合往返失败: %v", recent[0].Amounts)
	}

	window, err := fs.ListHistoryBetween(ctx, "brighton", base, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("ListHistoryBetween: %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("窗口内期望 2 行, 实际 %d", len(window))
	}
}

func TestFileStoreHistoryNilPrice(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	rec := HistoryRecord{
		Timestamp: time.Now().UTC(),
		Source:    "none",
		URL:       "https://example.test/hotel",
	}
	if err := fs.AppendHistory(ctx, "gone", rec); err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}

	got, err := fs.ListRecentHistory(ctx, "gone", 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("ListRecentHistory: %v %v", got, err)
	}
	if got[0].Price != nil {
		t.Fatalf("未检出价格应记录为空: %v", got[0].Price)
	}
}

func TestFileStoreMissingHistoryIsEmpty(t *testing.T) {
	fs := newTestStore(t)
	got, err := fs.ListRecentHistory(context.Background(), "never", 10)
	if err != nil || len(got) != 0 {
		t.Fatalf("缺失历史文件应返回空: %v %v", got, err)
	}
}

func TestFormatParseAmounts(t *testing.T) {
	amounts := []decimal.Decimal{
		decimal.RequireFromString("45"),
		decimal.RequireFromString("89.99"),
	}
	joined := FormatAmounts(amounts)
	if joined != "45.00,89.99" {
		t.Fatalf("FormatAmounts: %q", joined)
	}
	back := ParseAmounts(joined)
	if len(back) != 2 || back[1].StringFixed(2) != "89.99" {
		t.Fatalf("ParseAmounts: %v", back)
	}
	if got := ParseAmounts(""); got != nil {
		t.Fatalf("空串应返回 nil: %v", got)
	}
}

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return fs
}
