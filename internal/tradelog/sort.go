package tradelog

import (
	"sort"
	"strings"

	"tradejournal/internal/domain"
	"tradejournal/internal/risk"
)

// Sort orders rows in place by a single column. The sort is stable, so rows
// with equal keys keep their incoming relative order. Rows whose key is nil
// go last regardless of order.
func Sort(rows []Row, spec domain.SortSpec) {
	if spec.Field == "" {
		spec.Field = domain.SortByDate
	}
	desc := spec.Order != domain.Ascending

	switch spec.Field {
	case domain.SortBySymbol:
		sortStable(rows, desc, func(a, b *Row) int {
			return strings.Compare(a.Trade.Symbol, b.Trade.Symbol)
		})
	case domain.SortByDirection:
		sortStable(rows, desc, func(a, b *Row) int {
			return strings.Compare(string(a.Trade.Direction), string(b.Trade.Direction))
		})
	case domain.SortByProjectedEntry:
		sortStable(rows, desc, func(a, b *Row) int {
			return compareFloat(a.Trade.ProjectedEntry, b.Trade.ProjectedEntry)
		})
	case domain.SortByActualPL:
		sortNullable(rows, desc, func(r *Row) *float64 { return r.Trade.ActualPL })
	case domain.SortByEfficiency:
		sortNullable(rows, desc, func(r *Row) *float64 { return r.Trade.Efficiency })
	case domain.SortByRiskReward:
		sortNullable(rows, desc, func(r *Row) *float64 { return risk.RiskRewardRatio(&r.Trade) })
	default:
		sortStable(rows, desc, func(a, b *Row) int {
			return a.Trade.Date.Compare(b.Trade.Date)
		})
	}
}

func sortStable(rows []Row, desc bool, cmp func(a, b *Row) int) {
	sort.SliceStable(rows, func(i, j int) bool {
		c := cmp(&rows[i], &rows[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func sortNullable(rows []Row, desc bool, key func(*Row) *float64) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := key(&rows[i]), key(&rows[j])
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case desc:
			return *a > *b
		default:
			return *a < *b
		}
	})
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
