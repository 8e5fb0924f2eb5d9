package domain

import "time"

// Kline represents a single candlestick data point.
// The importer uses the High/Low range of the klines covering a holding window
// to derive the best price a trade could have been closed at.
type Kline struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Symbol    string
	Interval  string // e.g. "1m", "1h"
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}
