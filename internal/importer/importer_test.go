package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain"
)

type mockLogger struct {
	warnMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockSource struct {
	fills     []domain.Fill
	fillsErr  error
	klines    []*domain.Kline
	klinesErr error
	calls     int
}

func (m *mockSource) ListFills(ctx context.Context, symbol string, start, end time.Time) ([]domain.Fill, error) {
	return m.fills, m.fillsErr
}

func (m *mockSource) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error) {
	m.calls++
	return m.klines, m.klinesErr
}

var t0 = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fill(id, order int64, side domain.OrderSide, qty, price, pnl, fee string, at time.Duration) domain.Fill {
	return domain.Fill{
		ID:          id,
		OrderID:     order,
		Symbol:      "ETHUSDT",
		Side:        side,
		Quantity:    dec(qty),
		Price:       dec(price),
		RealizedPnL: dec(pnl),
		Commission:  dec(fee),
		Time:        t0.Add(at),
	}
}

func kline(at time.Duration, high, low float64) *domain.Kline {
	return &domain.Kline{
		OpenTime:  t0.Add(at),
		CloseTime: t0.Add(at + time.Minute - time.Millisecond),
		Symbol:    "ETHUSDT",
		Interval:  "1m",
		High:      high,
		Low:       low,
	}
}

func TestBuildRoundTrips_ScaleInAndClose(t *testing.T) {
	fills := []domain.Fill{
		fill(3, 30, domain.Sell, "2", "120", "30", "0.2", 10*time.Minute),
		fill(1, 10, domain.Buy, "1", "100", "0", "0.1", 0),
		fill(2, 20, domain.Buy, "1", "110", "0", "0.1", 5*time.Minute),
	}

	trips := BuildRoundTrips(fills)
	require.Len(t, trips, 1)
	trip := trips[0]

	assert.Equal(t, domain.Long, trip.Direction)
	assert.Equal(t, int64(10), trip.OpenOrderID)
	assert.True(t, trip.Closed())
	assert.Equal(t, t0.Add(10*time.Minute), trip.CloseTime)
	assert.True(t, trip.EntryPrice().Equal(dec("105")), "entry %s", trip.EntryPrice())
	assert.True(t, trip.ExitPrice().Equal(dec("120")))
	assert.True(t, trip.Quantity().Equal(dec("2")))
	assert.True(t, trip.NetPnL().Equal(dec("29.6")), "net %s", trip.NetPnL())
	assert.Equal(t, 3, trip.Fills)
}

func TestBuildRoundTrips_FlipOpensNewTrip(t *testing.T) {
	fills := []domain.Fill{
		fill(1, 10, domain.Sell, "1", "200", "0", "0", 0),
		fill(2, 20, domain.Buy, "3", "190", "10", "0.3", time.Minute),
	}

	trips := BuildRoundTrips(fills)
	require.Len(t, trips, 2)

	short, long := trips[0], trips[1]
	assert.Equal(t, domain.Short, short.Direction)
	assert.True(t, short.Closed())
	assert.True(t, short.ExitPrice().Equal(dec("190")))
	assert.True(t, short.NetPnL().Equal(dec("9.9")), "net %s", short.NetPnL())

	assert.Equal(t, domain.Long, long.Direction)
	assert.False(t, long.Closed())
	assert.Equal(t, int64(20), long.OpenOrderID)
	assert.True(t, long.Quantity().Equal(dec("2")))
	assert.True(t, long.EntryPrice().Equal(dec("190")))
	assert.True(t, long.NetPnL().Equal(dec("-0.2")), "net %s", long.NetPnL())
}

func TestBuildRoundTrips_SkipsCloseOfEarlierPosition(t *testing.T) {
	fills := []domain.Fill{
		fill(1, 10, domain.Sell, "1", "110", "10", "0", 0), // closes a long opened before the window
		fill(2, 20, domain.Buy, "1", "100", "0", "0", time.Minute),
		fill(3, 30, domain.Sell, "1", "105", "5", "0", 2*time.Minute),
	}
	trips := BuildRoundTrips(fills)
	require.Len(t, trips, 1)

	trip := trips[0]
	assert.Equal(t, domain.Long, trip.Direction)
	assert.Equal(t, int64(20), trip.OpenOrderID)
	assert.True(t, trip.Closed())
	assert.True(t, trip.EntryPrice().Equal(dec("100")), "entry %s", trip.EntryPrice())
	assert.True(t, trip.ExitPrice().Equal(dec("105")), "exit %s", trip.ExitPrice())
	assert.True(t, trip.NetPnL().Equal(dec("5")), "net %s", trip.NetPnL())
}

func TestBuildRoundTrips_PartialCloseStaysOpen(t *testing.T) {
	fills := []domain.Fill{
		fill(1, 10, domain.Buy, "2", "100", "0", "0", 0),
		fill(2, 11, domain.Sell, "1", "105", "5", "0", time.Minute),
	}
	trips := BuildRoundTrips(fills)
	require.Len(t, trips, 1)
	assert.False(t, trips[0].Closed())
}

func TestMaxPossiblePnL(t *testing.T) {
	long := BuildRoundTrips([]domain.Fill{
		fill(1, 10, domain.Buy, "2", "105", "0", "0", 0),
		fill(2, 11, domain.Sell, "2", "120", "30", "0", 10*time.Minute),
	})[0]
	klines := []*domain.Kline{
		kline(-5*time.Minute, 500, 1), // before the trade
		kline(0, 110, 100),
		kline(5*time.Minute, 130, 104),
		kline(10*time.Minute, 121, 115),
		kline(20*time.Minute, 900, 1), // after the trade
	}

	got, ok := MaxPossiblePnL(long, klines)
	require.True(t, ok)
	assert.True(t, got.Equal(dec("50")), "got %s", got)

	short := BuildRoundTrips([]domain.Fill{
		fill(1, 10, domain.Sell, "1", "200", "0", "0", 0),
		fill(2, 11, domain.Buy, "1", "190", "10", "0", 10*time.Minute),
	})[0]
	shortKlines := []*domain.Kline{kline(0, 205, 195), kline(5*time.Minute, 199, 180)}
	got, ok = MaxPossiblePnL(short, shortKlines)
	require.True(t, ok)
	assert.True(t, got.Equal(dec("20")), "got %s", got)

	_, ok = MaxPossiblePnL(long, nil)
	assert.False(t, ok)
}

func TestImporter_Import(t *testing.T) {
	source := &mockSource{
		fills: []domain.Fill{
			fill(1, 10, domain.Buy, "1", "100", "0", "0.1", 0),
			fill(2, 20, domain.Buy, "1", "110", "0", "0.1", 5*time.Minute),
			fill(3, 30, domain.Sell, "2", "120", "30", "0.2", 10*time.Minute),
			fill(4, 40, domain.Sell, "1", "125", "0", "0", 20*time.Minute),
		},
		klines: []*domain.Kline{kline(0, 110, 100), kline(5*time.Minute, 130, 104)},
	}
	logger := &mockLogger{}
	im, err := New(Config{Source: source, Logger: logger})
	require.NoError(t, err)

	records, err := im.Import(context.Background(), "acc-1", "ETHUSDT", t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, source.calls, "klines are only fetched for closed trips")

	closedRec := records[0]
	assert.Equal(t, TradeID(domain.SourceBinance, "ETHUSDT", 10), closedRec.ID)
	assert.Equal(t, "acc-1", closedRec.AccountID)
	assert.Equal(t, domain.DateOf(t0), closedRec.Date)
	assert.Equal(t, domain.SourceBinance, closedRec.Source)
	assert.Equal(t, 105.0, closedRec.ProjectedEntry)
	require.NotNil(t, closedRec.ActualExit)
	assert.Equal(t, 120.0, *closedRec.ActualExit)
	require.NotNil(t, closedRec.ActualPL)
	assert.InDelta(t, 29.6, *closedRec.ActualPL, 1e-9)
	require.NotNil(t, closedRec.MaxPossiblePL)
	assert.InDelta(t, 50.0, *closedRec.MaxPossiblePL, 1e-9)
	require.NotNil(t, closedRec.Efficiency)
	assert.InDelta(t, 59.2, *closedRec.Efficiency, 1e-9)
	assert.NoError(t, closedRec.Validate())

	openRec := records[1]
	assert.Equal(t, domain.Short, openRec.Direction)
	assert.Nil(t, openRec.ActualPL)
	assert.Nil(t, openRec.Efficiency)
	assert.NoError(t, openRec.Validate())
}

func TestImporter_Errors(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	boom := errors.New("boom")
	im, err := New(Config{Source: &mockSource{fillsErr: boom}, Logger: &mockLogger{}})
	require.NoError(t, err)
	_, err = im.Import(context.Background(), "acc-1", "ETHUSDT", t0, t0)
	assert.ErrorIs(t, err, boom)

	source := &mockSource{
		fills: []domain.Fill{
			fill(1, 10, domain.Buy, "1", "100", "0", "0", 0),
			fill(2, 11, domain.Sell, "1", "101", "1", "0", time.Minute),
		},
		klinesErr: boom,
	}
	im, err = New(Config{Source: source, Logger: &mockLogger{}})
	require.NoError(t, err)
	_, err = im.Import(context.Background(), "acc-1", "ETHUSDT", t0, t0.Add(time.Hour))
	assert.ErrorIs(t, err, boom)
}

func TestImporter_NoKlinesLeavesMaxEmpty(t *testing.T) {
	source := &mockSource{
		fills: []domain.Fill{
			fill(1, 10, domain.Buy, "1", "100", "0", "0", 0),
			fill(2, 11, domain.Sell, "1", "101", "1", "0", time.Minute),
		},
	}
	logger := &mockLogger{}
	im, err := New(Config{Source: source, Logger: logger})
	require.NoError(t, err)

	records, err := im.Import(context.Background(), "acc-1", "ETHUSDT", t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].MaxPossiblePL)
	assert.Nil(t, records[0].Efficiency)
	assert.Len(t, logger.warnMsgs, 1)
}

func TestTradeID_Deterministic(t *testing.T) {
	a := TradeID(domain.SourceBinance, "ETHUSDT", 42)
	assert.Equal(t, a, TradeID(domain.SourceBinance, "ETHUSDT", 42))
	assert.NotEqual(t, a, TradeID(domain.SourceBinance, "ETHUSDT", 43))
	assert.NotEqual(t, a, TradeID(domain.SourceBinance, "BTCUSDT", 42))
}
