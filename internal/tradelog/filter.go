package tradelog

import (
	"strings"

	"tradejournal/internal/domain"
)

// Matches reports whether t passes every active filter category.
// Categories are AND'd; the direction multi-select is OR'd within itself.
// Efficiency bounds compare the unclamped value; a nil efficiency never
// satisfies an active bound.
func Matches(t *domain.TradeRecord, f domain.FilterState) bool {
	if !f.HasDirection(t.Direction) {
		return false
	}
	day := domain.DateOf(t.Date)
	if f.DateRange.From != nil && day.Before(domain.DateOf(*f.DateRange.From)) {
		return false
	}
	if f.DateRange.To != nil && day.After(domain.DateOf(*f.DateRange.To)) {
		return false
	}
	if f.Efficiency.Active() {
		if t.Efficiency == nil {
			return false
		}
		eff := *t.Efficiency
		if f.Efficiency.Min != nil && eff < *f.Efficiency.Min {
			return false
		}
		if f.Efficiency.Max != nil && eff > *f.Efficiency.Max {
			return false
		}
	}
	return true
}

// Filter returns the records that pass f, preserving their order.
func Filter(records []domain.TradeRecord, f domain.FilterState) []domain.TradeRecord {
	out := make([]domain.TradeRecord, 0, len(records))
	for i := range records {
		if Matches(&records[i], f) {
			out = append(out, records[i])
		}
	}
	return out
}

// SymbolMatcher matches the live search text against a symbol.
type SymbolMatcher struct {
	needle        string
	caseSensitive bool
}

// NewSymbolMatcher builds a matcher for text. Blank text matches everything.
func NewSymbolMatcher(text string, caseSensitive bool) SymbolMatcher {
	needle := strings.TrimSpace(text)
	if !caseSensitive {
		needle = strings.ToLower(needle)
	}
	return SymbolMatcher{needle: needle, caseSensitive: caseSensitive}
}

// Match reports whether symbol contains the search text.
func (m SymbolMatcher) Match(symbol string) bool {
	if m.needle == "" {
		return true
	}
	if !m.caseSensitive {
		symbol = strings.ToLower(symbol)
	}
	return strings.Contains(symbol, m.needle)
}

// Search returns the records whose symbol matches text, preserving order.
func Search(records []domain.TradeRecord, text string, caseSensitive bool) []domain.TradeRecord {
	m := NewSymbolMatcher(text, caseSensitive)
	out := make([]domain.TradeRecord, 0, len(records))
	for _, r := range records {
		if m.Match(r.Symbol) {
			out = append(out, r)
		}
	}
	return out
}
