package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rustyeddy/ohlcv/market"
)

const fetchColumns = `fetch_id, symbol, interval, requested_limit, row_count, first_ms, last_ms, fetched_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanFetch(s scanner) (FetchRecord, error) {
	var (
		rec         FetchRecord
		first, last sql.NullInt64
	)
	err := s.Scan(
		&rec.FetchID,
		&rec.Symbol,
		&rec.Interval,
		&rec.Limit,
		&rec.Rows,
		&first,
		&last,
		&rec.FetchedAt,
	)
	if err != nil {
		return FetchRecord{}, err
	}
	if first.Valid {
		rec.First = time.UnixMilli(first.Int64).UTC()
	}
	if last.Valid {
		rec.Last = time.UnixMilli(last.Int64).UTC()
	}
	return rec, nil
}

// GetFetch returns a single fetch record by ID.
func (j *SQLite) GetFetch(fetchID string) (FetchRecord, error) {
	row := j.db.QueryRow(`SELECT `+fetchColumns+` FROM fetches WHERE fetch_id = ?`, fetchID)

	rec, err := scanFetch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return FetchRecord{}, fmt.Errorf("fetch %q not found", fetchID)
		}
		return FetchRecord{}, err
	}
	return rec, nil
}

// ListFetches returns recorded fetches oldest first. An empty symbol
// lists all of them.
func (j *SQLite) ListFetches(symbol string) ([]FetchRecord, error) {
	q := `SELECT ` + fetchColumns + ` FROM fetches`
	var args []any
	if symbol != "" {
		q += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	q += ` ORDER BY fetched_at ASC, fetch_id ASC`

	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FetchRecord
	for rows.Next() {
		rec, err := scanFetch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadTable rebuilds the candle table stored for fetchID.
func (j *SQLite) LoadTable(fetchID string) (*market.CandleTable, error) {
	rec, err := j.GetFetch(fetchID)
	if err != nil {
		return nil, err
	}

	rows, err := j.db.Query(`
		SELECT open_time_ms, open, high, low, close, volume
		FROM candles
		WHERE fetch_id = ?
		ORDER BY pos ASC`, fetchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candles := make([]market.Candle, 0, rec.Rows)
	for rows.Next() {
		var (
			c  market.Candle
			ms int64
		)
		if err := rows.Scan(&ms, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		c.Timestamp = time.UnixMilli(ms).UTC()
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return market.NewCandleTable(rec.Symbol, rec.Interval, candles), nil
}
