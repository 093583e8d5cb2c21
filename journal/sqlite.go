package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/ohlcv/market"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// RecordFetch stores the fetch summary and every row in one transaction.
func (j *SQLite) RecordFetch(rec FetchRecord, tbl *market.CandleTable) (err error) {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var first, last sql.NullInt64
	if rec.Rows > 0 {
		first = sql.NullInt64{Int64: rec.First.UnixMilli(), Valid: true}
		last = sql.NullInt64{Int64: rec.Last.UnixMilli(), Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO fetches
		(fetch_id, symbol, interval, requested_limit, row_count, first_ms, last_ms, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FetchID, rec.Symbol, rec.Interval, rec.Limit, rec.Rows, first, last, rec.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("journal: insert fetch %s: %w", rec.FetchID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO candles
		(fetch_id, pos, open_time_ms, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < tbl.Len(); i++ {
		c := tbl.Row(i)
		if _, err = stmt.Exec(rec.FetchID, i, c.Timestamp.UnixMilli(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("journal: insert candle %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
