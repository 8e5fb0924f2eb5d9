package importer

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradejournal/internal/domain"
)

// RoundTrip is a position from the moment it leaves flat until it returns
// to flat, assembled from exchange fills.
type RoundTrip struct {
	Symbol      string
	Direction   domain.Direction
	OpenOrderID int64
	OpenTime    time.Time
	CloseTime   time.Time // zero while the position is still open
	Fills       int

	entryQty      decimal.Decimal
	entryNotional decimal.Decimal
	exitQty       decimal.Decimal
	exitNotional  decimal.Decimal
	realizedPnL   decimal.Decimal
	commission    decimal.Decimal
}

// Closed reports whether the position returned to flat.
func (r *RoundTrip) Closed() bool {
	return !r.CloseTime.IsZero()
}

// Quantity is the total quantity opened.
func (r *RoundTrip) Quantity() decimal.Decimal {
	return r.entryQty
}

// EntryPrice is the quantity-weighted average opening price.
func (r *RoundTrip) EntryPrice() decimal.Decimal {
	if r.entryQty.IsZero() {
		return decimal.Zero
	}
	return r.entryNotional.Div(r.entryQty)
}

// ExitPrice is the quantity-weighted average closing price.
func (r *RoundTrip) ExitPrice() decimal.Decimal {
	if r.exitQty.IsZero() {
		return decimal.Zero
	}
	return r.exitNotional.Div(r.exitQty)
}

// NetPnL is realized P/L net of commissions.
func (r *RoundTrip) NetPnL() decimal.Decimal {
	return r.realizedPnL.Sub(r.commission)
}

func (r *RoundTrip) addEntry(qty, price, commission decimal.Decimal) {
	r.entryQty = r.entryQty.Add(qty)
	r.entryNotional = r.entryNotional.Add(qty.Mul(price))
	r.commission = r.commission.Add(commission)
	r.Fills++
}

func (r *RoundTrip) addExit(qty, price, pnl, commission decimal.Decimal) {
	r.exitQty = r.exitQty.Add(qty)
	r.exitNotional = r.exitNotional.Add(qty.Mul(price))
	r.realizedPnL = r.realizedPnL.Add(pnl)
	r.commission = r.commission.Add(commission)
	r.Fills++
}

func openTrip(f domain.Fill) *RoundTrip {
	dir := domain.Long
	if f.Side == domain.Sell {
		dir = domain.Short
	}
	return &RoundTrip{
		Symbol:      f.Symbol,
		Direction:   dir,
		OpenOrderID: f.OrderID,
		OpenTime:    f.Time,
	}
}

// BuildRoundTrips groups one symbol's fills into round trips. A trade opens
// when the net position leaves zero and closes when it returns to zero. A fill
// that flips the position closes the current trip and opens the next one with
// the remainder; its commission is split pro rata.
//
// While flat, a fill carrying realized P/L closes a position opened before the
// first fill and is skipped, since its entry is unknown.
func BuildRoundTrips(fills []domain.Fill) []*RoundTrip {
	ordered := make([]domain.Fill, len(fills))
	copy(ordered, fills)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Time.Equal(ordered[j].Time) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Time.Before(ordered[j].Time)
	})

	var trips []*RoundTrip
	var current *RoundTrip
	position := decimal.Zero // signed: long > 0, short < 0

	for _, f := range ordered {
		if !f.Quantity.IsPositive() {
			continue
		}
		signed := f.Quantity
		if f.Side == domain.Sell {
			signed = signed.Neg()
		}

		if current == nil {
			if !f.RealizedPnL.IsZero() {
				continue
			}
			current = openTrip(f)
			current.addEntry(f.Quantity, f.Price, f.Commission)
			position = signed
			continue
		}

		if position.Sign() == signed.Sign() {
			current.addEntry(f.Quantity, f.Price, f.Commission)
			position = position.Add(signed)
			continue
		}

		closeQty := decimal.Min(f.Quantity, position.Abs())
		remainder := f.Quantity.Sub(closeQty)
		closeCommission := f.Commission.Mul(closeQty).Div(f.Quantity)

		current.addExit(closeQty, f.Price, f.RealizedPnL, closeCommission)
		position = position.Add(signed)

		if position.IsZero() || remainder.IsPositive() {
			current.CloseTime = f.Time
			trips = append(trips, current)
			current = nil
		}
		if remainder.IsPositive() {
			current = openTrip(f)
			current.addEntry(remainder, f.Price, f.Commission.Sub(closeCommission))
		}
	}
	if current != nil {
		trips = append(trips, current)
	}
	return trips
}

// MaxPossiblePnL is the P/L the trip would have realized at the most favorable
// price reached while it was open, according to klines. Returns false when no
// kline overlaps the holding window.
func MaxPossiblePnL(trip *RoundTrip, klines []*domain.Kline) (decimal.Decimal, bool) {
	end := trip.CloseTime
	if end.IsZero() {
		return decimal.Zero, false
	}

	var best decimal.Decimal
	found := false
	for _, k := range klines {
		if k == nil || k.CloseTime.Before(trip.OpenTime) || k.OpenTime.After(end) {
			continue
		}
		high, low := decimal.NewFromFloat(k.High), decimal.NewFromFloat(k.Low)
		switch {
		case !found && trip.Direction == domain.Long:
			best = high
		case !found:
			best = low
		case trip.Direction == domain.Long && high.GreaterThan(best):
			best = high
		case trip.Direction == domain.Short && low.LessThan(best):
			best = low
		}
		found = true
	}
	if !found {
		return decimal.Zero, false
	}

	move := best.Sub(trip.EntryPrice())
	if trip.Direction == domain.Short {
		move = move.Neg()
	}
	maxPnL := move.Mul(trip.Quantity())
	if maxPnL.IsNegative() {
		maxPnL = decimal.Zero
	}
	return maxPnL, true
}
