package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted on input and used in exports.
const DateLayout = "2006-01-02"

// TradeRecord is one journaled trade: the plan (projected prices) and the
// outcome (actual prices and P/L). Nullable numbers are nil until known.
type TradeRecord struct {
	ID        string    // UUID
	AccountID string    // owning trading account
	Date      time.Time // calendar date the trade occurred, UTC midnight
	Symbol    string    // instrument, uppercase by convention
	Direction Direction

	// Plan
	ProjectedEntry float64  // required, > 0
	ProjectedSL    *float64 // nil means "no stop loss"
	ProjectedTP    *float64

	// Execution and outcome
	Quantity      *float64 // position size, when known
	ActualEntry   *float64 // nil until executed
	ActualExit    *float64 // nil until closed
	DidHitTP      TPStatus
	ActualPL      *float64 // realized P/L in account currency, nil while open
	MaxPossiblePL *float64 // best-case P/L over the holding window
	Efficiency    *float64 // derived: ActualPL / MaxPossiblePL * 100

	Notes     string
	Source    TradeSource
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // soft delete marker
}

// IsClosed reports whether the trade has a realized P/L.
func (t *TradeRecord) IsClosed() bool {
	return t.ActualPL != nil
}

// IsExecuted reports whether the trade has been entered.
func (t *TradeRecord) IsExecuted() bool {
	return t.ActualEntry != nil
}

// IsDeleted reports whether the trade was soft-deleted.
func (t *TradeRecord) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Validate checks the invariants every record must satisfy before it enters
// the pipeline or the repository. It returns a *ValidationError naming the
// first offending field.
func (t *TradeRecord) Validate() error {
	if !isPositive(t.ProjectedEntry) {
		return &ValidationError{Field: "projectedEntry", Reason: fmt.Sprintf("must be a positive number, got %v", t.ProjectedEntry)}
	}
	if !t.Direction.Valid() {
		return &ValidationError{Field: "direction", Reason: fmt.Sprintf("must be %s or %s, got %q", Long, Short, t.Direction)}
	}
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "must be a valid calendar date"}
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if !t.DidHitTP.Valid() {
		return &ValidationError{Field: "didHitTP", Reason: fmt.Sprintf("unknown take-profit status %q", t.DidHitTP)}
	}

	prices := []struct {
		name string
		v    *float64
	}{
		{"projectedSL", t.ProjectedSL},
		{"projectedTP", t.ProjectedTP},
		{"actualEntry", t.ActualEntry},
		{"actualExit", t.ActualExit},
		{"quantity", t.Quantity},
	}
	for _, p := range prices {
		if p.v != nil && !isPositive(*p.v) {
			return &ValidationError{Field: p.name, Reason: fmt.Sprintf("must be a positive number when set, got %v", *p.v)}
		}
	}

	amounts := []struct {
		name string
		v    *float64
	}{
		{"actualPL", t.ActualPL},
		{"maxPossiblePL", t.MaxPossiblePL},
	}
	for _, a := range amounts {
		if a.v != nil && !isFinite(*a.v) {
			return &ValidationError{Field: a.name, Reason: "must be a finite number when set"}
		}
	}
	return nil
}

// Normalize upper-cases the symbol, truncates Date to a calendar day and
// defaults an empty TP status to unknown.
func (t *TradeRecord) Normalize() {
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	if !t.Date.IsZero() {
		t.Date = DateOf(t.Date)
	}
	if t.DidHitTP == "" {
		t.DidHitTP = TPUnknown
	}
	if t.Source == "" {
		t.Source = SourceManual
	}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not a valid calendar date", s)}
	}
	return d, nil
}

// DateOf returns the UTC calendar day containing t.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Float returns a pointer to v, for populating nullable fields.
func Float(v float64) *float64 {
	return &v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isPositive(v float64) bool {
	return isFinite(v) && v > 0
}
