// Package importer rebuilds journal entries from an exchange's fill history.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
	"tradejournal/internal/risk"
)

const defaultKlineInterval = "1m"

// Config holds configuration for the Importer.
type Config struct {
	Source        ports.TradeHistorySource
	Logger        ports.Logger
	Origin        domain.TradeSource // recorded on every imported trade
	KlineInterval string             // resolution used for max possible P/L
}

// Importer converts fills into TradeRecords.
type Importer struct {
	source   ports.TradeHistorySource
	logger   ports.Logger
	origin   domain.TradeSource
	interval string
}

// New creates an Importer.
func New(cfg Config) (*Importer, error) {
	if cfg.Source == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("source and logger are required for importer")
	}
	if cfg.Origin == "" {
		cfg.Origin = domain.SourceBinance
	}
	if cfg.KlineInterval == "" {
		cfg.KlineInterval = defaultKlineInterval
	}
	return &Importer{
		source:   cfg.Source,
		logger:   cfg.Logger,
		origin:   cfg.Origin,
		interval: cfg.KlineInterval,
	}, nil
}

// Import fetches symbol's fills in [start, end] and returns one TradeRecord per
// round trip. Closed trips get their outcome, max possible P/L and efficiency.
func (im *Importer) Import(ctx context.Context, accountID, symbol string, start, end time.Time) ([]domain.TradeRecord, error) {
	fills, err := im.source.ListFills(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list fills for %s: %w", symbol, err)
	}
	trips := BuildRoundTrips(fills)
	im.logger.Info(ctx, "Fills grouped into round trips", map[string]interface{}{
		"symbol": symbol, "fills": len(fills), "roundTrips": len(trips),
	})

	records := make([]domain.TradeRecord, 0, len(trips))
	for _, trip := range trips {
		rec := im.toRecord(accountID, trip)

		if trip.Closed() {
			klines, err := im.source.GetKlinesRange(ctx, trip.Symbol, im.interval, trip.OpenTime, trip.CloseTime)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch klines for round trip %s: %w", rec.ID, err)
			}
			if maxPnL, ok := MaxPossiblePnL(trip, klines); ok {
				v := maxPnL.InexactFloat64()
				rec.MaxPossiblePL = &v
			} else {
				im.logger.Warn(ctx, "No klines cover round trip; max possible P/L left empty", map[string]interface{}{
					"tradeID": rec.ID, "symbol": trip.Symbol,
				})
			}
			rec.Efficiency = risk.Efficiency(&rec)
		}
		records = append(records, rec)
	}
	return records, nil
}

// TradeID derives a stable ID from the opening order so re-imports collide
// with existing rows instead of duplicating them.
func TradeID(origin domain.TradeSource, symbol string, openOrderID int64) string {
	name := fmt.Sprintf("tradejournal/%s/%s/%d", origin, symbol, openOrderID)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func (im *Importer) toRecord(accountID string, trip *RoundTrip) domain.TradeRecord {
	entry := trip.EntryPrice().InexactFloat64()
	qty := trip.Quantity().InexactFloat64()

	rec := domain.TradeRecord{
		ID:             TradeID(im.origin, trip.Symbol, trip.OpenOrderID),
		AccountID:      accountID,
		Date:           domain.DateOf(trip.OpenTime),
		Symbol:         trip.Symbol,
		Direction:      trip.Direction,
		ProjectedEntry: entry,
		ActualEntry:    &entry,
		Quantity:       &qty,
		DidHitTP:       domain.TPUnknown,
		Source:         im.origin,
		Notes:          fmt.Sprintf("Imported from %s (%d fills)", im.origin, trip.Fills),
	}
	if trip.Closed() {
		exit := trip.ExitPrice().InexactFloat64()
		pnl := trip.NetPnL().InexactFloat64()
		rec.ActualExit = &exit
		rec.ActualPL = &pnl
	}
	rec.Normalize()
	return rec
}
