package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"tradejournal/config"
	"tradejournal/internal/adapters/logger"
	"tradejournal/internal/adapters/sqlite"
	"tradejournal/internal/analytics"
	"tradejournal/internal/app"
	"tradejournal/internal/domain"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration: %v", err)
		return 1
	}

	account := flag.String("account", cfg.AccountID, "account ID, or \"all\"")
	from := flag.String("from", "", "earliest trade date (YYYY-MM-DD)")
	to := flag.String("to", "", "latest trade date (YYYY-MM-DD)")
	flag.Parse()

	appLogger := logger.NewStdLogger(cfg.LogLevel)

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Printf("Error opening journal: %v", err)
		return 1
	}
	defer repo.Close()

	journal, err := app.NewJournalService(cfg, appLogger, repo, nil, nil)
	if err != nil {
		log.Printf("Error creating journal service: %v", err)
		return 1
	}

	q := domain.DefaultQuery()
	if q.Filter.DateRange, err = dateRange(*from, *to); err != nil {
		log.Printf("Error parsing dates: %v", err)
		return 2
	}
	accountID := *account
	if strings.EqualFold(accountID, "all") {
		accountID = ""
	}

	ctx := context.Background()
	bySymbol, err := journal.SummaryBySymbol(ctx, accountID, q)
	if err != nil {
		log.Printf("Error computing per-symbol statistics: %v", err)
		return 1
	}
	if len(bySymbol) == 0 {
		log.Println("No trades found. Log or import some trades first.")
		return 0
	}
	overall, err := journal.Summary(ctx, accountID, q)
	if err != nil {
		log.Printf("Error computing statistics: %v", err)
		return 1
	}

	writeSymbolTable(os.Stdout, bySymbol, overall)

	fmt.Println("\n## Monthly P/L")
	writeMonthlyTable(os.Stdout, overall)
	return 0
}

func dateRange(from, to string) (domain.DateRange, error) {
	var r domain.DateRange
	if from != "" {
		d, err := domain.ParseDate(from)
		if err != nil {
			return r, err
		}
		r.From = &d
	}
	if to != "" {
		d, err := domain.ParseDate(to)
		if err != nil {
			return r, err
		}
		r.To = &d
	}
	return r, nil
}

// writeSymbolTable prints one row per symbol followed by the overall row.
func writeSymbolTable(out io.Writer, bySymbol []app.SymbolSummary, overall *analytics.PerformanceSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Symbol\tTrades\tWinRate\tAvgWin\tAvgLoss\tTotalPnL\tPF\tAvgEff\tMaxDD\t")
	for _, s := range bySymbol {
		writeSummaryRow(w, s.Symbol, s.Summary)
	}
	writeSummaryRow(w, "ALL", overall)
	w.Flush()
}

func writeSummaryRow(w io.Writer, label string, s *analytics.PerformanceSummary) {
	avgEff := "n/a"
	if s.AverageEfficiency != nil {
		avgEff = fmt.Sprintf("%.1f", *s.AverageEfficiency)
	}
	fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%.2f\t\n",
		label,
		s.TotalTrades,
		s.WinRate*100,
		s.AverageWin,
		s.AverageLoss,
		s.TotalPL,
		s.ProfitFactor,
		avgEff,
		s.MaxDrawdown,
	)
}

func writeMonthlyTable(out io.Writer, s *analytics.PerformanceSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Month\tPnL\t")
	for _, m := range s.GetMonthlyPL() {
		fmt.Fprintf(w, "%s\t%.2f\t\n", m.Month.Format("2006-01"), m.PL)
	}
	w.Flush()
}
