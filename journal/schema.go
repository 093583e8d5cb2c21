// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS fetches (
	fetch_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	interval TEXT NOT NULL,
	requested_limit INTEGER NOT NULL,
	row_count INTEGER NOT NULL,
	first_ms INTEGER,
	last_ms INTEGER,
	fetched_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS candles (
	fetch_id TEXT NOT NULL REFERENCES fetches(fetch_id),
	pos INTEGER NOT NULL,
	open_time_ms INTEGER NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	PRIMARY KEY (fetch_id, pos)
);

CREATE INDEX IF NOT EXISTS idx_fetches_symbol ON fetches(symbol, interval);
`
