package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is a single execution reported by an exchange for the journal owner's account.
// Amounts stay in decimal form until a round trip is assembled from them.
type Fill struct {
	ID          int64
	OrderID     int64
	Symbol      string
	Side        OrderSide
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	RealizedPnL decimal.Decimal // realized P/L reported by the exchange for this fill
	Commission  decimal.Decimal // fee charged in the quote asset
	Time        time.Time
}
