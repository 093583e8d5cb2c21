// journal/journal.go
package journal

import (
	"time"

	"github.com/rustyeddy/ohlcv/market"
)

// FetchRecord describes one completed kline load.
type FetchRecord struct {
	FetchID   string
	Symbol    string
	Interval  string
	Limit     int // requested
	Rows      int // received
	First     time.Time
	Last      time.Time
	FetchedAt time.Time
}

// NewFetchRecord summarizes tbl. First and Last stay zero for an empty
// table.
func NewFetchRecord(fetchID string, limit int, tbl *market.CandleTable, at time.Time) FetchRecord {
	rec := FetchRecord{
		FetchID:   fetchID,
		Symbol:    tbl.Symbol(),
		Interval:  tbl.Interval(),
		Limit:     limit,
		Rows:      tbl.Len(),
		FetchedAt: at.UTC(),
	}
	if first, last, ok := tbl.Span(); ok {
		rec.First, rec.Last = first, last
	}
	return rec
}

// Short reports whether fewer rows arrived than were requested, which is
// what happens when limit exceeds the upstream per-interval cap.
func (r FetchRecord) Short() bool { return r.Rows < r.Limit }

type Journal interface {
	RecordFetch(FetchRecord, *market.CandleTable) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordFetch(FetchRecord, *market.CandleTable) error { return nil }
func (Nop) Close() error                                       { return nil }
