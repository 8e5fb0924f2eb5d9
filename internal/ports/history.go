package ports

import (
	"context"
	"time"

	"tradejournal/internal/domain"
)

// TradeHistorySource supplies the account's executions and the market data
// needed to reconstruct journal entries from them.
type TradeHistorySource interface {
	// ListFills returns the account's fills for symbol in [start, end], oldest first.
	ListFills(ctx context.Context, symbol string, start, end time.Time) ([]domain.Fill, error)

	// GetKlinesRange returns all klines for symbol/interval between start and end.
	GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error)
}
