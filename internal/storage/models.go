package storage

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MonitorState is the per-target persisted state, read once before a check
// and written once after a successful one.
type MonitorState struct {
	TargetKey   string
	LastPrice   decimal.Decimal
	LastChecked time.Time
}

// HistoryRecord is one append-only log entry per check. Price is nil when no
// canonical price resolved that round.
type HistoryRecord struct {
	Timestamp time.Time
	Price     *decimal.Decimal
	Source    string
	Amounts   []decimal.Decimal
	URL       string
}

// AlertRecord captures an emitted alert for auditing.
type AlertRecord struct {
	ID        int64
	TargetKey string
	CheckTS   time.Time
	Kind      string
	Message   string
	CreatedAt time.Time
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// TargetKey slugs a target display name into a stable storage key: lowercase,
// non-alphanumeric runs collapsed to underscores, capped at 80 characters.
func TargetKey(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonAlnumRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "item"
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

// FormatAmounts renders an amount set as the comma-joined 2-decimal list used
// in history rows.
func FormatAmounts(amounts []decimal.Decimal) string {
	parts := make([]string, 0, len(amounts))
	for _, a := range amounts {
		parts = append(parts, a.StringFixed(2))
	}
	return strings.Join(parts, ",")
}

// ParseAmounts is the inverse of FormatAmounts. Unparseable entries are
// dropped.
func ParseAmounts(joined string) []decimal.Decimal {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	amounts := make([]decimal.Decimal, 0, len(parts))
	for _, p := range parts {
		value, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		amounts = append(amounts, value)
	}
	return amounts
}
