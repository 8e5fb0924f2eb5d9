package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradejournal/internal/domain"
	"tradejournal/internal/risk"
)

// PerformanceSummary holds the dashboard figures for a set of closed trades.
type PerformanceSummary struct {
	// Basic Metrics
	TotalTrades     int
	WinningTrades   int
	LosingTrades    int
	BreakevenTrades int
	WinRate         float64
	TotalPL         float64
	GrossProfit     float64
	GrossLoss       float64 // negative or zero
	AverageWin      float64
	AverageLoss     float64 // negative or zero
	ProfitFactor    float64 // GrossProfit / |GrossLoss|, 0 when there are no losses
	Expectancy      float64 // average P/L per trade
	BestTrade       float64
	WorstTrade      float64

	// Efficiency
	EfficiencySamples int
	AverageEfficiency *float64 // unclamped mean, nil without samples

	// Streaks and equity
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	MaxDrawdown          float64 // largest peak-to-trough decline in account currency
	MaxDrawdownPercent   *float64
	FinalBalance         float64
	EquityCurve          []EquityPoint
	MonthlyPL            map[string]float64
}

// EquityPoint is the running balance after a trade.
type EquityPoint struct {
	Date     time.Time
	TradeID  string
	Balance  float64
	Drawdown float64
}

// MonthlyPL is the P/L realized within one calendar month.
type MonthlyPL struct {
	Month time.Time
	PL    float64
}

// Summarize computes a PerformanceSummary over the closed trades in trades.
// Open and soft-deleted trades are ignored. startingBalance seeds the equity
// curve; drawdown percentages are only reported when it is positive.
func Summarize(trades []domain.TradeRecord, startingBalance float64) *PerformanceSummary {
	summary := &PerformanceSummary{
		FinalBalance: startingBalance,
		MonthlyPL:    make(map[string]float64),
		EquityCurve:  make([]EquityPoint, 0),
	}

	closed := make([]domain.TradeRecord, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() && !t.IsDeleted() {
			closed = append(closed, t)
		}
	}
	if len(closed) == 0 {
		return summary
	}

	// Chronological order; ties keep their incoming order.
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].Date.Before(closed[j].Date)
	})

	start := decimal.NewFromFloat(startingBalance)
	balance, peak := start, start
	grossProfit, grossLoss := decimal.Zero, decimal.Zero
	maxDrawdown := decimal.Zero
	effSum := 0.0
	monthly := make(map[string]decimal.Decimal)
	var consecutiveWins, consecutiveLosses int

	for i, t := range closed {
		pl := decimal.NewFromFloat(*t.ActualPL)
		summary.TotalTrades++

		switch pl.Sign() {
		case 1:
			summary.WinningTrades++
			grossProfit = grossProfit.Add(pl)
			consecutiveWins++
			consecutiveLosses = 0
		case -1:
			summary.LosingTrades++
			grossLoss = grossLoss.Add(pl)
			consecutiveLosses++
			consecutiveWins = 0
		default:
			summary.BreakevenTrades++
			consecutiveWins, consecutiveLosses = 0, 0
		}
		summary.MaxConsecutiveWins = max(summary.MaxConsecutiveWins, consecutiveWins)
		summary.MaxConsecutiveLosses = max(summary.MaxConsecutiveLosses, consecutiveLosses)

		if i == 0 || *t.ActualPL > summary.BestTrade {
			summary.BestTrade = *t.ActualPL
		}
		if i == 0 || *t.ActualPL < summary.WorstTrade {
			summary.WorstTrade = *t.ActualPL
		}

		if eff := risk.Efficiency(&t); eff != nil {
			summary.EfficiencySamples++
			effSum += *eff
		}

		monthKey := t.Date.Format("2006-01")
		monthly[monthKey] = monthly[monthKey].Add(pl)

		balance = balance.Add(pl)
		if balance.GreaterThan(peak) {
			peak = balance
		}
		drawdown := peak.Sub(balance)
		if drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
			if peak.IsPositive() && start.IsPositive() {
				pct := drawdown.Div(peak).Mul(decimal.NewFromInt(100)).InexactFloat64()
				summary.MaxDrawdownPercent = &pct
			}
		}

		summary.EquityCurve = append(summary.EquityCurve, EquityPoint{
			Date:     t.Date,
			TradeID:  t.ID,
			Balance:  balance.InexactFloat64(),
			Drawdown: drawdown.InexactFloat64(),
		})
	}

	total := grossProfit.Add(grossLoss)
	summary.TotalPL = total.InexactFloat64()
	summary.GrossProfit = grossProfit.InexactFloat64()
	summary.GrossLoss = grossLoss.InexactFloat64()
	summary.FinalBalance = balance.InexactFloat64()
	summary.MaxDrawdown = maxDrawdown.InexactFloat64()
	summary.WinRate = float64(summary.WinningTrades) / float64(summary.TotalTrades)
	summary.Expectancy = total.Div(decimal.NewFromInt(int64(summary.TotalTrades))).InexactFloat64()

	if summary.WinningTrades > 0 {
		summary.AverageWin = grossProfit.Div(decimal.NewFromInt(int64(summary.WinningTrades))).InexactFloat64()
	}
	if summary.LosingTrades > 0 {
		summary.AverageLoss = grossLoss.Div(decimal.NewFromInt(int64(summary.LosingTrades))).InexactFloat64()
		summary.ProfitFactor = grossProfit.Div(grossLoss.Abs()).InexactFloat64()
	}
	if summary.EfficiencySamples > 0 {
		avg := effSum / float64(summary.EfficiencySamples)
		summary.AverageEfficiency = &avg
	}
	for month, pl := range monthly {
		summary.MonthlyPL[month] = pl.InexactFloat64()
	}

	return summary
}

// GetMonthlyPL returns the monthly P/L sorted by month.
func (s *PerformanceSummary) GetMonthlyPL() []MonthlyPL {
	out := make([]MonthlyPL, 0, len(s.MonthlyPL))
	for month, pl := range s.MonthlyPL {
		date, _ := time.Parse("2006-01", month)
		out = append(out, MonthlyPL{Month: date, PL: pl})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month.Before(out[j].Month)
	})
	return out
}
