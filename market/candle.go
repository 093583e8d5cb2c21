package market

import "time"

// Candle is one OHLCV row of a CandleTable.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Column names in table order.
const (
	ColTimestamp = "timestamp"
	ColOpen      = "open"
	ColHigh      = "high"
	ColLow       = "low"
	ColClose     = "close"
	ColVolume    = "volume"
)

// Columns lists the table columns in the order they are written out.
var Columns = []string{ColTimestamp, ColOpen, ColHigh, ColLow, ColClose, ColVolume}

// Value returns the numeric field named by col.
func (c Candle) Value(col string) (float64, bool) {
	switch col {
	case ColOpen:
		return c.Open, true
	case ColHigh:
		return c.High, true
	case ColLow:
		return c.Low, true
	case ColClose:
		return c.Close, true
	case ColVolume:
		return c.Volume, true
	}
	return 0, false
}
