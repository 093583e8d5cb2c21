// journal/csv.go
package journal

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rustyeddy/ohlcv/market"
)

// TimeLayout is RFC 3339 with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

var fetchHeader = []string{"fetch_id", "symbol", "interval"}

// WriteTable writes tbl as CSV with a header row of market.Columns.
func WriteTable(w io.Writer, tbl *market.CandleTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(market.Columns); err != nil {
		return err
	}
	for i := 0; i < tbl.Len(); i++ {
		if err := cw.Write(candleRow(tbl.Row(i))); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteColumn writes the timestamp column and one numeric column of tbl
// as CSV.
func WriteColumn(w io.Writer, tbl *market.CandleTable, name string) error {
	vals, err := tbl.Column(name)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{market.ColTimestamp, name}); err != nil {
		return err
	}
	for i, ts := range tbl.Timestamps() {
		if err := cw.Write([]string{ts.UTC().Format(TimeLayout), f(vals[i])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVJournal appends every recorded row to a single CSV file, tagged with
// the fetch it came from.
type CSVJournal struct {
	w *csv.Writer
	f *os.File
}

// NewCSV opens path for appending. The header is written only when the
// file is new or empty.
func NewCSV(path string) (*CSVJournal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(append(append([]string{}, fetchHeader...), market.Columns...)); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &CSVJournal{w: w, f: f}, nil
}

func (j *CSVJournal) RecordFetch(rec FetchRecord, tbl *market.CandleTable) error {
	for i := 0; i < tbl.Len(); i++ {
		row := append([]string{rec.FetchID, rec.Symbol, rec.Interval}, candleRow(tbl.Row(i))...)
		if err := j.w.Write(row); err != nil {
			return err
		}
	}
	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}

func candleRow(c market.Candle) []string {
	return []string{
		c.Timestamp.UTC().Format(TimeLayout),
		f(c.Open),
		f(c.High),
		f(c.Low),
		f(c.Close),
		f(c.Volume),
	}
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
