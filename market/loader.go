package market

import "context"

// CandleLoader fetches one page of candles for a symbol and interval.
type CandleLoader interface {
	Load(ctx context.Context, symbol, timeframe string, limit int) (*CandleTable, error)
}
