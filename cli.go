package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"tradejournal/config"
	"tradejournal/internal/analytics"
	"tradejournal/internal/app"
	"tradejournal/internal/domain"
	"tradejournal/internal/risk"
	"tradejournal/internal/tradelog"
	"tradejournal/internal/utils"
)

var errUsage = errors.New("usage: tradejournal <log|execute|close|notes|delete|list|stats> [flags]")

const allAccounts = "all"

// CLI dispatches journal subcommands.
type CLI struct {
	journal *app.JournalService
	cfg     *config.Config
	out     io.Writer
	now     func() time.Time
}

// Run executes the subcommand named by args[0].
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "log":
		err = c.logTrade(ctx, rest)
	case "execute":
		err = c.executeTrade(ctx, rest)
	case "close":
		err = c.closeTrade(ctx, rest)
	case "notes":
		err = c.updateNotes(ctx, rest)
	case "delete":
		err = c.deleteTrade(ctx, rest)
	case "list":
		err = c.list(ctx, rest)
	case "stats":
		err = c.stats(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprintln(c.out, errUsage.Error())
		return nil
	default:
		return fmt.Errorf("%w (unknown command %q)", errUsage, cmd)
	}
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func (c *CLI) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

func (c *CLI) today() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// --- Lifecycle commands ---

func (c *CLI) logTrade(ctx context.Context, args []string) error {
	fs := c.flagSet("log")
	id := fs.String("id", "", "trade ID (generated when empty)")
	account := fs.String("account", c.cfg.AccountID, "account ID")
	date := fs.String("date", c.today().Format(domain.DateLayout), "trade date (YYYY-MM-DD)")
	symbol := fs.String("symbol", "", "instrument symbol")
	direction := fs.String("direction", "", "long or short")
	entry := fs.Float64("entry", 0, "projected entry price")
	var sl, tp, qty optionalFloat
	fs.Var(&sl, "sl", "projected stop loss")
	fs.Var(&tp, "tp", "projected take profit")
	fs.Var(&qty, "qty", "position size")
	notes := fs.String("notes", "", "free-form notes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	d, err := domain.ParseDate(*date)
	if err != nil {
		return err
	}
	dir, err := domain.ParseDirection(*direction)
	if err != nil {
		return err
	}

	rec, err := c.journal.LogTrade(ctx, domain.TradeRecord{
		ID:             *id,
		AccountID:      *account,
		Date:           d,
		Symbol:         *symbol,
		Direction:      dir,
		ProjectedEntry: *entry,
		ProjectedSL:    sl.v,
		ProjectedTP:    tp.v,
		Quantity:       qty.v,
		Notes:          *notes,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Logged trade %s (%s %s)\n", rec.ID, rec.Direction, rec.Symbol)
	return nil
}

func (c *CLI) executeTrade(ctx context.Context, args []string) error {
	fs := c.flagSet("execute")
	id := fs.String("id", "", "trade ID")
	entry := fs.Float64("entry", 0, "actual entry price")
	var qty, sl optionalFloat
	fs.Var(&qty, "qty", "filled position size")
	fs.Var(&sl, "sl", "revised stop loss")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("%w: execute: -id is required", errUsage)
	}

	rec, err := c.journal.ExecuteTrade(ctx, *id, app.ExecuteRequest{
		ActualEntry: *entry,
		Quantity:    qty.v,
		StopLoss:    sl.v,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Executed trade %s at %s\n", rec.ID, formatNumber(rec.ActualEntry, 2))
	return nil
}

func (c *CLI) closeTrade(ctx context.Context, args []string) error {
	fs := c.flagSet("close")
	id := fs.String("id", "", "trade ID")
	var exit, pl, maxPL optionalFloat
	fs.Var(&exit, "exit", "actual exit price")
	fs.Var(&pl, "pl", "realized P/L in account currency")
	fs.Var(&maxPL, "max", "maximum possible P/L over the holding window")
	hit := fs.String("tp-hit", "", "take profit hit: hit, not_hit or unknown")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id == "" || pl.v == nil {
		return fmt.Errorf("%w: close: -id and -pl are required", errUsage)
	}
	status, err := domain.ParseTPStatus(*hit)
	if err != nil {
		return err
	}

	rec, err := c.journal.CloseTrade(ctx, *id, app.CloseRequest{
		ActualExit:    exit.v,
		ActualPL:      *pl.v,
		MaxPossiblePL: maxPL.v,
		DidHitTP:      status,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Closed trade %s: P/L %s, efficiency %s\n",
		rec.ID, formatNumber(rec.ActualPL, 2), formatPercent(rec.Efficiency))
	return nil
}

func (c *CLI) updateNotes(ctx context.Context, args []string) error {
	fs := c.flagSet("notes")
	id := fs.String("id", "", "trade ID")
	text := fs.String("text", "", "replacement notes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("%w: notes: -id is required", errUsage)
	}
	if _, err := c.journal.UpdateNotes(ctx, *id, *text); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Updated notes of trade %s\n", *id)
	return nil
}

func (c *CLI) deleteTrade(ctx context.Context, args []string) error {
	fs := c.flagSet("delete")
	id := fs.String("id", "", "trade ID")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("%w: delete: -id is required", errUsage)
	}
	if err := c.journal.DeleteTrade(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Deleted trade %s\n", *id)
	return nil
}

// --- Trade log commands ---

type queryFlags struct {
	account   string
	direction string
	from      string
	to        string
	minEff    optionalFloat
	maxEff    optionalFloat
	search    string
	sortField string
	order     string
	page      int
	size      int
	preset    string
}

func (c *CLI) registerQueryFlags(fs *flag.FlagSet) *queryFlags {
	qf := &queryFlags{}
	fs.StringVar(&qf.account, "account", c.cfg.AccountID, "account ID, or \"all\"")
	fs.StringVar(&qf.direction, "direction", "", "comma-separated directions (long,short)")
	fs.StringVar(&qf.from, "from", "", "earliest trade date (YYYY-MM-DD)")
	fs.StringVar(&qf.to, "to", "", "latest trade date (YYYY-MM-DD)")
	fs.Var(&qf.minEff, "min-eff", "minimum efficiency in percent")
	fs.Var(&qf.maxEff, "max-eff", "maximum efficiency in percent")
	fs.StringVar(&qf.search, "search", "", "symbol substring")
	fs.StringVar(&qf.sortField, "sort", string(domain.SortByDate), "sort column")
	fs.StringVar(&qf.order, "order", string(domain.Descending), "asc or desc")
	fs.IntVar(&qf.page, "page", 1, "page number, starting at 1")
	fs.IntVar(&qf.size, "size", c.cfg.PageSize, "rows per page")
	fs.StringVar(&qf.preset, "preset", "", "saved query to start from")
	return qf
}

// query starts from the preset (or the default query) and applies every
// flag given explicitly on the command line.
func (c *CLI) query(fs *flag.FlagSet, qf *queryFlags) (string, domain.Query, error) {
	q := domain.DefaultQuery()
	q.Page.Size = c.cfg.PageSize
	if qf.preset != "" {
		var err error
		if q, err = c.journal.PresetQuery(qf.preset); err != nil {
			return "", domain.Query{}, err
		}
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "direction":
			q.Filter.Directions = nil
			for _, part := range strings.Split(qf.direction, ",") {
				if strings.TrimSpace(part) == "" {
					continue
				}
				var d domain.Direction
				if d, err = domain.ParseDirection(part); err != nil {
					return
				}
				q.Filter.Directions = append(q.Filter.Directions, d)
			}
		case "from":
			q.Filter.DateRange.From, err = optionalDate(qf.from)
		case "to":
			q.Filter.DateRange.To, err = optionalDate(qf.to)
		case "min-eff":
			q.Filter.Efficiency.Min = qf.minEff.v
		case "max-eff":
			q.Filter.Efficiency.Max = qf.maxEff.v
		case "search":
			q.Search = qf.search
		case "sort":
			q.Sort.Field, err = domain.ParseSortField(qf.sortField)
		case "order":
			q.Sort.Order, err = domain.ParseSortOrder(qf.order)
		case "size":
			if qf.size <= 0 {
				err = fmt.Errorf("%w: -size must be positive", errUsage)
			}
			q.Page.Size = qf.size
		}
	})
	if err != nil {
		return "", domain.Query{}, err
	}
	q.Page.Index = qf.page - 1

	account := qf.account
	if strings.EqualFold(account, allAccounts) {
		account = ""
	}
	return account, q, nil
}

func (c *CLI) list(ctx context.Context, args []string) error {
	fs := c.flagSet("list")
	qf := c.registerQueryFlags(fs)
	csvPath := fs.String("csv", "", "export every matching trade to this CSV file instead of printing a page")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	account, q, err := c.query(fs, qf)
	if err != nil {
		return err
	}

	if *csvPath != "" {
		rows, err := c.journal.FilteredRows(ctx, account, q)
		if err != nil {
			return err
		}
		if err := utils.WriteTradeLogCSVFile(rows, *csvPath); err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
		fmt.Fprintf(c.out, "Exported %d trades to %s\n", len(rows), *csvPath)
		return nil
	}

	view, err := c.journal.TradeLog(ctx, account, q)
	if err != nil {
		return err
	}
	renderView(c.out, view)
	return nil
}

func (c *CLI) stats(ctx context.Context, args []string) error {
	fs := c.flagSet("stats")
	qf := c.registerQueryFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	account, q, err := c.query(fs, qf)
	if err != nil {
		return err
	}
	summary, err := c.journal.Summary(ctx, account, q)
	if err != nil {
		return err
	}
	renderSummary(c.out, summary)
	return nil
}

// --- Rendering ---

func renderView(out io.Writer, view tradelog.View) {
	if view.TotalFilteredCount == 0 {
		fmt.Fprintln(out, "No trades match.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tSYMBOL\tDIR\tENTRY\tSL\tTP\tEXEC TP\tR:R\tRISK%\tP/L\tEFF%\tTP HIT\t")
	for _, r := range view.Rows {
		t, m := r.Trade, r.Metrics
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			shortID(t.ID),
			t.Date.Format(domain.DateLayout),
			t.Symbol,
			t.Direction,
			formatNumber(&t.ProjectedEntry, 2),
			formatNumber(t.ProjectedSL, 2),
			formatNumber(t.ProjectedTP, 2),
			formatNumber(m.EffectiveTPExit, 2),
			formatNumber(m.RiskRewardRatio, 2),
			formatNumber(m.RiskPercent, 2),
			formatPL(m.PL),
			formatPercent(m.DisplayEfficiency),
			t.DidHitTP,
		)
	}
	w.Flush()

	if len(view.Rows) == 0 {
		fmt.Fprintf(out, "Page %d is out of range.\n", view.CurrentPage+1)
	}
	fmt.Fprintf(out, "Page %d of %d, %d trades\n", view.CurrentPage+1, view.PageCount, view.TotalFilteredCount)
}

func renderSummary(out io.Writer, s *analytics.PerformanceSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Closed trades\t%d\n", s.TotalTrades)
	fmt.Fprintf(w, "Wins / losses / breakeven\t%d / %d / %d\n", s.WinningTrades, s.LosingTrades, s.BreakevenTrades)
	fmt.Fprintf(w, "Win rate\t%.1f%%\n", s.WinRate*100)
	fmt.Fprintf(w, "Total P/L\t%.2f\n", s.TotalPL)
	fmt.Fprintf(w, "Average win / loss\t%.2f / %.2f\n", s.AverageWin, s.AverageLoss)
	fmt.Fprintf(w, "Profit factor\t%.2f\n", s.ProfitFactor)
	fmt.Fprintf(w, "Expectancy\t%.2f\n", s.Expectancy)
	fmt.Fprintf(w, "Best / worst trade\t%.2f / %.2f\n", s.BestTrade, s.WorstTrade)
	fmt.Fprintf(w, "Average efficiency\t%s (%d samples)\n", formatPercent(s.AverageEfficiency), s.EfficiencySamples)
	fmt.Fprintf(w, "Max consecutive wins / losses\t%d / %d\n", s.MaxConsecutiveWins, s.MaxConsecutiveLosses)
	fmt.Fprintf(w, "Max drawdown\t%.2f (%s)\n", s.MaxDrawdown, formatPercent(s.MaxDrawdownPercent))
	w.Flush()

	if monthly := s.GetMonthlyPL(); len(monthly) > 0 {
		fmt.Fprintln(out, "\nMonthly P/L")
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
		for _, m := range monthly {
			fmt.Fprintf(w, "%s\t%.2f\t\n", m.Month.Format("2006-01"), m.PL)
		}
		w.Flush()
	}
}

// --- Helpers ---

type optionalFloat struct {
	v *float64
}

func (o *optionalFloat) String() string {
	if o == nil || o.v == nil {
		return ""
	}
	return strconv.FormatFloat(*o.v, 'f', -1, 64)
}

func (o *optionalFloat) Set(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	o.v = &f
	return nil
}

func optionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatNumber(v *float64, prec int) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func formatPercent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64) + "%"
}

func formatPL(pl *risk.PLDisplay) string {
	if pl == nil {
		return "n/a"
	}
	return pl.Indicator + strconv.FormatFloat(pl.Magnitude, 'f', 2, 64)
}
