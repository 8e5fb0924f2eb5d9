package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	// Binance rejects account trade queries spanning more than seven days.
	maxTradeWindow = 7 * 24 * time.Hour
	tradePageLimit = 1000
	klinePageLimit = 1500
)

var _ ports.TradeHistorySource = (*Client)(nil)

// Client implements ports.TradeHistorySource using the go-binance library.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		// Klines are public; account trades will fail with an auth error.
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global futures.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	return &Client{
		futuresClient: client,
		logger:        cfg.Logger,
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mapAPIError(apiErr.Code), err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") ||
		strings.Contains(err.Error(), "no such host") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		// Default for other errors (e.g., parsing errors within the adapter)
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// mapAPIError maps Binance error codes onto ports errors.
func mapAPIError(code int64) error {
	switch code {
	case -1003: // Too many requests
		return ports.ErrRateLimited
	case -1021: // Timestamp for this request is outside of the recvWindow
		return ports.ErrTimeout
	case -1022: // Signature for this request is not valid
		return ports.ErrAuthenticationFailed
	case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1120, -1121, -1127, -1130:
		return ports.ErrInvalidRequest
	case -2014, -2015: // API-key format invalid / invalid key, IP or permissions
		return ports.ErrInvalidAPIKeys
	case -1001, -1007: // Disconnected / backend timeout
		return ports.ErrExchangeUnavailable
	default:
		return ports.ErrUnknown
	}
}

// Ping checks connectivity to the Binance API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	err := c.futuresClient.NewPingService().Do(ctx)
	if err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// ListFills returns the account's fills for symbol in [start, end], oldest
// first. The range is walked in seven-day windows.
func (c *Client) ListFills(ctx context.Context, symbol string, start, end time.Time) ([]domain.Fill, error) {
	op := "ListFills"
	if end.Before(start) {
		return nil, fmt.Errorf("%s: end %s before start %s: %w", op, end, start, ports.ErrInvalidRequest)
	}

	var fills []domain.Fill
	seen := make(map[int64]struct{})

	for windowStart := start; !windowStart.After(end); windowStart = windowStart.Add(maxTradeWindow) {
		windowEnd := windowStart.Add(maxTradeWindow - time.Millisecond)
		if windowEnd.After(end) {
			windowEnd = end
		}

		from := windowStart.UnixMilli()
		for {
			trades, err := c.futuresClient.NewListAccountTradeService().
				Symbol(symbol).
				StartTime(from).
				EndTime(windowEnd.UnixMilli()).
				Limit(tradePageLimit).
				Do(ctx)
			if err != nil {
				return nil, c.handleError(ctx, err, op)
			}
			for _, at := range trades {
				if _, dup := seen[at.ID]; dup {
					continue
				}
				f, err := translateAccountTrade(at)
				if err != nil {
					return nil, c.handleError(ctx, fmt.Errorf("failed to translate account trade: %w", err), op)
				}
				seen[at.ID] = struct{}{}
				fills = append(fills, f)
			}
			if len(trades) < tradePageLimit {
				break
			}
			// Restart at the last timestamp; fills sharing it are deduplicated by ID.
			last := trades[len(trades)-1].Time
			if last <= from {
				last = from + 1
			}
			from = last
		}
	}

	c.logger.Debug(ctx, op+" completed", map[string]interface{}{"symbol": symbol, "fills": len(fills)})
	return fills, nil
}

// GetKlinesRange fetches klines for symbol covering [start, end].
func (c *Client) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error) {
	op := "GetKlinesRange"
	var allKlines []*domain.Kline
	from := start

	for {
		klines, err := c.futuresClient.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(klinePageLimit).
			Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		for _, bk := range klines {
			dk, err := translateBinanceKline(bk, symbol, interval)
			if err != nil {
				return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline range: %w", err), op)
			}
			allKlines = append(allKlines, dk)
		}
		last := klines[len(klines)-1]
		from = time.UnixMilli(last.CloseTime + 1)
		if from.After(end) || len(klines) < klinePageLimit {
			break
		}
	}

	return allKlines, nil
}

// --- Translation Helpers ---

func translateAccountTrade(at *futures.AccountTrade) (domain.Fill, error) {
	if at == nil {
		return domain.Fill{}, errors.New("received nil account trade")
	}
	price, err := decimal.NewFromString(at.Price)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("parsing price '%s': %w", at.Price, err)
	}
	qty, err := decimal.NewFromString(at.Quantity)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("parsing quantity '%s': %w", at.Quantity, err)
	}
	pnl, err := decimal.NewFromString(at.RealizedPnl)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("parsing realized pnl '%s': %w", at.RealizedPnl, err)
	}
	fee := decimal.Zero
	if at.Commission != "" {
		if fee, err = decimal.NewFromString(at.Commission); err != nil {
			return domain.Fill{}, fmt.Errorf("parsing commission '%s': %w", at.Commission, err)
		}
	}

	var side domain.OrderSide
	switch at.Side {
	case futures.SideTypeBuy:
		side = domain.Buy
	case futures.SideTypeSell:
		side = domain.Sell
	default:
		return domain.Fill{}, fmt.Errorf("unknown trade side '%s'", at.Side)
	}

	return domain.Fill{
		ID:          at.ID,
		OrderID:     at.OrderID,
		Symbol:      at.Symbol,
		Side:        side,
		Price:       price,
		Quantity:    qty,
		RealizedPnL: pnl,
		Commission:  fee,
		Time:        time.UnixMilli(at.Time).UTC(),
	}, nil
}

func translateBinanceKline(bk *futures.Kline, symbol, interval string) (*domain.Kline, error) {
	if bk == nil {
		return nil, errors.New("received nil historical kline")
	}
	open, err := strconv.ParseFloat(bk.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", bk.Open, err)
	}
	high, err := strconv.ParseFloat(bk.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", bk.High, err)
	}
	low, err := strconv.ParseFloat(bk.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", bk.Low, err)
	}
	cls, err := strconv.ParseFloat(bk.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", bk.Close, err)
	}
	vol, err := strconv.ParseFloat(bk.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", bk.Volume, err)
	}

	return &domain.Kline{
		OpenTime:  time.UnixMilli(bk.OpenTime).UTC(),
		CloseTime: time.UnixMilli(bk.CloseTime).UTC(),
		Symbol:    symbol,   // Use passed symbol as it's not in futures.Kline
		Interval:  interval, // Use passed interval
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
	}, nil
}
