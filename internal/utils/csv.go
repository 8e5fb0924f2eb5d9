package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"tradejournal/internal/domain"
	"tradejournal/internal/tradelog"
)

var tradeLogHeader = []string{
	"id", "date", "symbol", "direction",
	"projected_entry", "projected_sl", "projected_tp", "quantity",
	"actual_entry", "actual_exit", "did_hit_tp", "effective_tp_exit",
	"actual_pl", "max_possible_pl", "efficiency", "display_efficiency",
	"risk_amount", "reward_amount", "risk_reward", "risk_percent",
	"notes", "source",
}

// WriteTradeLogCSV writes rows with their derived metrics. Unknown values are
// written as empty cells.
func WriteTradeLogCSV(w io.Writer, rows []tradelog.Row) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(tradeLogHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		t, m := r.Trade, r.Metrics
		record := []string{
			t.ID,
			t.Date.Format(domain.DateLayout),
			t.Symbol,
			string(t.Direction),
			formatFloat(t.ProjectedEntry),
			formatOptional(t.ProjectedSL),
			formatOptional(t.ProjectedTP),
			formatOptional(t.Quantity),
			formatOptional(t.ActualEntry),
			formatOptional(t.ActualExit),
			string(t.DidHitTP),
			formatOptional(m.EffectiveTPExit),
			formatOptional(t.ActualPL),
			formatOptional(t.MaxPossiblePL),
			formatOptional(m.Efficiency),
			formatOptional(m.DisplayEfficiency),
			formatOptional(m.RiskAmount),
			formatOptional(m.RewardAmount),
			formatOptional(m.RiskRewardRatio),
			formatOptional(m.RiskPercent),
			t.Notes,
			string(t.Source),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", t.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTradeLogCSVFile creates filename and writes rows to it.
func WriteTradeLogCSVFile(rows []tradelog.Row, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteTradeLogCSV(file, rows)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
