package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultPageSize is used when a PageRequest does not carry a size.
const DefaultPageSize = 10

// DateRange bounds a trade date, both ends inclusive. A nil end does not constrain.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// EfficiencyRange bounds efficiency in percent, both ends inclusive.
type EfficiencyRange struct {
	Min *float64
	Max *float64
}

// Active reports whether either bound is set.
func (r EfficiencyRange) Active() bool {
	return r.Min != nil || r.Max != nil
}

// FilterState is the user's current predicate selection. It is never persisted.
type FilterState struct {
	Directions []Direction // empty means every direction
	DateRange  DateRange
	Efficiency EfficiencyRange
}

// HasDirection reports whether d passes the direction multi-select.
func (f FilterState) HasDirection(d Direction) bool {
	if len(f.Directions) == 0 {
		return true
	}
	for _, want := range f.Directions {
		if want == d {
			return true
		}
	}
	return false
}

// SortField names a sortable trade-log column.
type SortField string

const (
	SortByDate           SortField = "date"
	SortBySymbol         SortField = "symbol"
	SortByDirection      SortField = "direction"
	SortByProjectedEntry SortField = "projectedEntry"
	SortByActualPL       SortField = "actualPL"
	SortByEfficiency     SortField = "efficiency"
	SortByRiskReward     SortField = "riskReward"
)

var sortFields = []SortField{
	SortByDate, SortBySymbol, SortByDirection, SortByProjectedEntry,
	SortByActualPL, SortByEfficiency, SortByRiskReward,
}

// ParseSortField matches s against the known columns, ignoring case.
func ParseSortField(s string) (SortField, error) {
	if strings.TrimSpace(s) == "" {
		return SortByDate, nil
	}
	for _, f := range sortFields {
		if strings.EqualFold(string(f), strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// SortOrder is ascending or descending.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// ParseSortOrder accepts asc/desc (any case); empty means descending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// SortSpec is a single-column sort.
type SortSpec struct {
	Field SortField
	Order SortOrder
}

// DefaultSort orders by date, newest first.
func DefaultSort() SortSpec {
	return SortSpec{Field: SortByDate, Order: Descending}
}

// PageRequest asks for a zero-based page of Size rows.
type PageRequest struct {
	Index int
	Size  int
}

// Query is everything the trade-log pipeline needs besides the records.
type Query struct {
	Filter FilterState
	Search string
	Sort   SortSpec
	Page   PageRequest
}

// DefaultQuery returns the unfiltered first page sorted by date descending.
func DefaultQuery() Query {
	return Query{
		Sort: DefaultSort(),
		Page: PageRequest{Index: 0, Size: DefaultPageSize},
	}
}
