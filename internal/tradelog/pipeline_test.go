package tradelog

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain"
	"tradejournal/internal/risk"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func trade(id string, d int, dir domain.Direction, symbol string) domain.TradeRecord {
	return domain.TradeRecord{
		ID:             id,
		AccountID:      "acc-1",
		Date:           day(d),
		Symbol:         symbol,
		Direction:      dir,
		ProjectedEntry: 100,
		DidHitTP:       domain.TPUnknown,
	}
}

// closed sets P/L so that efficiency equals eff.
func closed(t domain.TradeRecord, eff float64) domain.TradeRecord {
	t.ActualPL = domain.Float(eff)
	t.MaxPossiblePL = domain.Float(100)
	t.ActualExit = domain.Float(101)
	return t
}

func ids(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Trade.ID
	}
	return out
}

func newTestPipeline() *Pipeline {
	return NewPipeline(risk.NewCalculator(risk.Config{}), Options{})
}

func TestRun_DirectionAndEfficiencyFilter(t *testing.T) {
	records := []domain.TradeRecord{
		closed(trade("short-1", 1, domain.Short, "ETHUSDT"), 40),
		closed(trade("short-2", 2, domain.Short, "BTCUSDT"), 80),
		trade("long-open", 3, domain.Long, "ETHUSDT"),
		closed(trade("long-win", 4, domain.Long, "SOLUSDT"), 60),
		closed(trade("long-loss", 5, domain.Long, "ETHUSDT"), -25),
	}
	q := domain.DefaultQuery()
	q.Filter = domain.FilterState{
		Directions: []domain.Direction{domain.Long},
		Efficiency: domain.EfficiencyRange{Min: domain.Float(0)},
	}

	view := newTestPipeline().Run(records, q)

	assert.Equal(t, []string{"long-win"}, ids(view.Rows))
	assert.Equal(t, 1, view.TotalFilteredCount)
	assert.Equal(t, 1, view.PageCount)
}

func TestRun_EfficiencyMaxOnlyExcludesNil(t *testing.T) {
	records := []domain.TradeRecord{
		trade("open", 1, domain.Long, "ETHUSDT"),
		closed(trade("low", 2, domain.Long, "ETHUSDT"), 10),
		closed(trade("high", 3, domain.Long, "ETHUSDT"), 90),
	}
	q := domain.DefaultQuery()
	q.Filter.Efficiency.Max = domain.Float(50)

	view := newTestPipeline().Run(records, q)
	assert.Equal(t, []string{"low"}, ids(view.Rows))
}

func TestRun_EfficiencyBoundsUseUnclampedValue(t *testing.T) {
	records := []domain.TradeRecord{
		closed(trade("over", 1, domain.Long, "ETHUSDT"), 150),
		closed(trade("exact", 2, domain.Long, "ETHUSDT"), 100),
	}
	q := domain.DefaultQuery()
	q.Filter.Efficiency.Max = domain.Float(100)

	view := newTestPipeline().Run(records, q)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "exact", view.Rows[0].Trade.ID)
}

func TestRun_DateRangeInclusive(t *testing.T) {
	records := []domain.TradeRecord{
		trade("d1", 1, domain.Long, "ETHUSDT"),
		trade("d2", 2, domain.Long, "ETHUSDT"),
		trade("d3", 3, domain.Long, "ETHUSDT"),
		trade("d4", 4, domain.Long, "ETHUSDT"),
	}
	from, to := day(2), day(3).Add(15*time.Hour)
	q := domain.DefaultQuery()
	q.Filter.DateRange = domain.DateRange{From: &from, To: &to}

	view := newTestPipeline().Run(records, q)
	assert.Equal(t, []string{"d3", "d2"}, ids(view.Rows))
}

func TestRun_Search(t *testing.T) {
	records := []domain.TradeRecord{
		trade("eth", 1, domain.Long, "ETHUSDT"),
		trade("btc", 2, domain.Long, "BTCUSDT"),
		trade("ethbtc", 3, domain.Short, "ETHBTC"),
	}

	q := domain.DefaultQuery()
	q.Search = "eth"
	view := newTestPipeline().Run(records, q)
	assert.Equal(t, []string{"ethbtc", "eth"}, ids(view.Rows))

	sensitive := NewPipeline(nil, Options{CaseSensitiveSearch: true})
	assert.Empty(t, sensitive.Run(records, q).Rows)

	q.Search = "ETH"
	assert.Len(t, sensitive.Run(records, q).Rows, 2)

	q.Search = "   "
	assert.Len(t, newTestPipeline().Run(records, q).Rows, 3)
}

func TestRun_PageBeyondRange(t *testing.T) {
	records := make([]domain.TradeRecord, 10)
	for i := range records {
		records[i] = trade(fmt.Sprintf("t%02d", i), i+1, domain.Long, "ETHUSDT")
	}
	q := domain.DefaultQuery()
	q.Page = domain.PageRequest{Index: 1, Size: 10}

	view := newTestPipeline().Run(records, q)

	assert.NotNil(t, view.Rows)
	assert.Empty(t, view.Rows)
	assert.Equal(t, 1, view.PageCount)
	assert.Equal(t, 10, view.TotalFilteredCount)
	assert.Equal(t, 1, view.CurrentPage)
}

func TestRun_DefaultPageSizeAndLastPage(t *testing.T) {
	records := make([]domain.TradeRecord, 23)
	for i := range records {
		records[i] = trade(fmt.Sprintf("t%02d", i), 1+i%28, domain.Long, "ETHUSDT")
	}
	q := domain.Query{Page: domain.PageRequest{Index: 2}}

	view := NewPipeline(nil, Options{PageSize: 10}).Run(records, q)
	assert.Equal(t, 3, view.PageCount)
	assert.Len(t, view.Rows, 3)
	assert.Equal(t, 10, view.PageSize)

	q.Page.Index = -1
	assert.Empty(t, NewPipeline(nil, Options{}).Run(records, q).Rows)
}

func TestRun_PopulatesMetricsAndRecomputesEfficiency(t *testing.T) {
	rec := closed(trade("t1", 1, domain.Long, "ETHUSDT"), 60)
	rec.ProjectedSL = domain.Float(95)
	rec.ProjectedTP = domain.Float(115)
	rec.Efficiency = domain.Float(-1) // stale stored value

	view := newTestPipeline().Run([]domain.TradeRecord{rec}, domain.DefaultQuery())
	require.Len(t, view.Rows, 1)
	row := view.Rows[0]
	require.NotNil(t, row.Trade.Efficiency)
	assert.Equal(t, 60.0, *row.Trade.Efficiency)
	require.NotNil(t, row.Metrics.RiskRewardRatio)
	assert.Equal(t, 3.0, *row.Metrics.RiskRewardRatio)
	assert.Equal(t, -1.0, *rec.Efficiency, "input must not be mutated")
}

func TestSort_StableAndNullsLast(t *testing.T) {
	records := []domain.TradeRecord{
		closed(trade("a", 2, domain.Long, "ETHUSDT"), 10),
		trade("open-1", 2, domain.Long, "ETHUSDT"),
		closed(trade("b", 1, domain.Long, "ETHUSDT"), 50),
		closed(trade("c", 3, domain.Long, "ETHUSDT"), 10),
		trade("open-2", 1, domain.Long, "ETHUSDT"),
	}
	p := newTestPipeline()

	tests := []struct {
		name string
		spec domain.SortSpec
		want []string
	}{
		{name: "date desc keeps ties in input order", spec: domain.DefaultSort(), want: []string{"c", "a", "open-1", "b", "open-2"}},
		{name: "date asc keeps ties in input order", spec: domain.SortSpec{Field: domain.SortByDate, Order: domain.Ascending}, want: []string{"b", "open-2", "a", "open-1", "c"}},
		{name: "efficiency desc nulls last", spec: domain.SortSpec{Field: domain.SortByEfficiency, Order: domain.Descending}, want: []string{"b", "a", "c", "open-1", "open-2"}},
		{name: "efficiency asc nulls last", spec: domain.SortSpec{Field: domain.SortByEfficiency, Order: domain.Ascending}, want: []string{"a", "c", "b", "open-1", "open-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := domain.DefaultQuery()
			q.Sort = tt.spec
			assert.Equal(t, tt.want, ids(p.Run(records, q).Rows))
		})
	}
}

func TestSort_Symbol(t *testing.T) {
	rows := []Row{
		{Trade: trade("1", 1, domain.Long, "SOLUSDT")},
		{Trade: trade("2", 1, domain.Long, "BTCUSDT")},
		{Trade: trade("3", 1, domain.Long, "ETHUSDT")},
	}
	Sort(rows, domain.SortSpec{Field: domain.SortBySymbol, Order: domain.Ascending})
	assert.Equal(t, []string{"2", "3", "1"}, ids(rows))
}

func TestMatches_RecordTimeOfDayWithinBounds(t *testing.T) {
	afternoon := trade("pm", 3, domain.Long, "ETHUSDT")
	afternoon.Date = day(3).Add(15 * time.Hour)

	tests := []struct {
		name     string
		from, to time.Time
		want     bool
	}{
		{"same day as upper bound", day(1), day(3), true},
		{"same day as lower bound", day(3), day(5), true},
		{"before lower bound", day(4), day(5), false},
		{"after upper bound", day(1), day(2), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := tt.from, tt.to
			f := domain.FilterState{DateRange: domain.DateRange{From: &from, To: &to}}
			assert.Equal(t, tt.want, Matches(&afternoon, f))
		})
	}
}

func TestFilter_StoredEfficiency(t *testing.T) {
	withEff := trade("e", 1, domain.Long, "ETHUSDT")
	withEff.Efficiency = domain.Float(20)
	records := []domain.TradeRecord{withEff, trade("n", 2, domain.Long, "ETHUSDT")}

	out := Filter(records, domain.FilterState{Efficiency: domain.EfficiencyRange{Min: domain.Float(20), Max: domain.Float(20)}})
	require.Len(t, out, 1)
	assert.Equal(t, "e", out[0].ID)

	assert.Len(t, Filter(records, domain.FilterState{}), 2)
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, Page(items, 0, 2))
	assert.Equal(t, []int{5}, Page(items, 2, 2))
	assert.Equal(t, []int{}, Page(items, 3, 2))
	assert.Equal(t, 3, PageCount(5, 2))
	assert.Equal(t, 0, PageCount(0, 2))
}
