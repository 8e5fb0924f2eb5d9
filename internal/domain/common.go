package domain

import (
	"fmt"
	"strings"
)

// Direction is the side of a journaled trade.
type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// ParseDirection converts user input ("long", "SHORT", ...) to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	default:
		return "", &ValidationError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", s)}
	}
}

// TPStatus records whether the take-profit level was touched before exit.
// Unknown is its own state so it can never be mistaken for NotHit.
type TPStatus string

const (
	TPUnknown TPStatus = "unknown"
	TPHit     TPStatus = "hit"
	TPNotHit  TPStatus = "not_hit"
)

// Valid reports whether s is one of the three states.
func (s TPStatus) Valid() bool {
	return s == TPUnknown || s == TPHit || s == TPNotHit
}

// ParseTPStatus accepts hit/not_hit/unknown as well as yes/no/true/false and an empty string.
func ParseTPStatus(s string) (TPStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "null":
		return TPUnknown, nil
	case "hit", "yes", "true":
		return TPHit, nil
	case "not_hit", "no", "false":
		return TPNotHit, nil
	default:
		return "", &ValidationError{Field: "didHitTP", Reason: fmt.Sprintf("unknown take-profit status %q", s)}
	}
}

// TradeSource indicates where a TradeRecord came from.
type TradeSource string

const (
	SourceManual  TradeSource = "manual"
	SourceBinance TradeSource = "binance"
)

// OrderSide represents the side of an exchange fill (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)
