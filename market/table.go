package market

import (
	"fmt"
	"sort"
	"time"
)

// CandleTable is an ordered, read-only set of candles for one symbol and
// interval. Rows are ascending by timestamp and addressed by a zero-based
// position.
type CandleTable struct {
	symbol   string
	interval string
	rows     []Candle
}

// NewCandleTable copies rows, sorts them ascending by timestamp and returns
// the table. Equal timestamps keep their input order; duplicates are not
// removed.
func NewCandleTable(symbol, interval string, rows []Candle) *CandleTable {
	cp := make([]Candle, len(rows))
	copy(cp, rows)
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].Timestamp.Before(cp[j].Timestamp)
	})
	return &CandleTable{symbol: symbol, interval: interval, rows: cp}
}

// Symbol returns the instrument the rows belong to.
func (t *CandleTable) Symbol() string { return t.symbol }

// Interval returns the bar interval as sent to the exchange.
func (t *CandleTable) Interval() string { return t.interval }

// Len returns the number of rows.
func (t *CandleTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns the candle at position i. It panics if i is out of range,
// like a slice index.
func (t *CandleTable) Row(i int) Candle {
	return t.rows[i]
}

// Rows returns a copy of all rows in table order.
func (t *CandleTable) Rows() []Candle {
	out := make([]Candle, len(t.rows))
	copy(out, t.rows)
	return out
}

// Timestamps returns the timestamp column.
func (t *CandleTable) Timestamps() []time.Time {
	out := make([]time.Time, len(t.rows))
	for i, c := range t.rows {
		out[i] = c.Timestamp
	}
	return out
}

// Column returns one of the numeric columns by name.
func (t *CandleTable) Column(name string) ([]float64, error) {
	if _, ok := (Candle{}).Value(name); !ok {
		return nil, fmt.Errorf("market: unknown column %q", name)
	}
	out := make([]float64, len(t.rows))
	for i, c := range t.rows {
		out[i], _ = c.Value(name)
	}
	return out, nil
}

// Span returns the first and last timestamps. ok is false for an empty
// table.
func (t *CandleTable) Span() (first, last time.Time, ok bool) {
	if t.Len() == 0 {
		return time.Time{}, time.Time{}, false
	}
	return t.rows[0].Timestamp, t.rows[len(t.rows)-1].Timestamp, true
}

// IsSorted reports whether timestamps are non-decreasing.
func (t *CandleTable) IsSorted() bool {
	for i := 1; i < len(t.rows); i++ {
		if t.rows[i].Timestamp.Before(t.rows[i-1].Timestamp) {
			return false
		}
	}
	return true
}
