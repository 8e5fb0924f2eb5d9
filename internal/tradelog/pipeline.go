// Package tradelog reduces a collection of journaled trades to the page a
// user should see: derive metrics, filter, search, sort and paginate.
// Everything here is pure and synchronous.
package tradelog

import (
	"tradejournal/internal/domain"
	"tradejournal/internal/risk"
)

// Row is a trade together with its derived metrics.
type Row struct {
	Trade   domain.TradeRecord
	Metrics risk.Metrics
}

// View is the page handed to the rendering layer.
type View struct {
	Rows               []Row
	TotalFilteredCount int
	PageCount          int
	CurrentPage        int
	PageSize           int
}

// Options configures a Pipeline.
type Options struct {
	PageSize            int  // default page size when a query carries none
	CaseSensitiveSearch bool // symbol search case handling
}

// Pipeline is the trade-log reducer. It holds configuration only, no state.
type Pipeline struct {
	calc *risk.Calculator
	opts Options
}

// NewPipeline creates a pipeline using calc for derived metrics.
func NewPipeline(calc *risk.Calculator, opts Options) *Pipeline {
	if calc == nil {
		calc = risk.NewCalculator(risk.Config{})
	}
	if opts.PageSize <= 0 {
		opts.PageSize = domain.DefaultPageSize
	}
	return &Pipeline{calc: calc, opts: opts}
}

// Rows enriches, filters, searches and sorts records without paginating.
// The input slice is not modified.
func (p *Pipeline) Rows(records []domain.TradeRecord, q domain.Query) []Row {
	search := NewSymbolMatcher(q.Search, p.opts.CaseSensitiveSearch)

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		enriched := p.calc.Enrich(rec)
		if !Matches(&enriched, q.Filter) || !search.Match(enriched.Symbol) {
			continue
		}
		rows = append(rows, Row{Trade: enriched, Metrics: p.calc.Compute(&enriched)})
	}

	sortSpec := q.Sort
	if sortSpec.Field == "" {
		sortSpec = domain.DefaultSort()
	}
	Sort(rows, sortSpec)
	return rows
}

// Run produces the requested page of the filtered, sorted trade log.
func (p *Pipeline) Run(records []domain.TradeRecord, q domain.Query) View {
	size := q.Page.Size
	if size <= 0 {
		size = p.opts.PageSize
	}
	rows := p.Rows(records, q)
	return View{
		Rows:               Page(rows, q.Page.Index, size),
		TotalFilteredCount: len(rows),
		PageCount:          PageCount(len(rows), size),
		CurrentPage:        q.Page.Index,
		PageSize:           size,
	}
}
