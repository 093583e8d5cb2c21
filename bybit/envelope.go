package bybit

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/rustyeddy/ohlcv/market"
)

// rowWidth is the fixed width of a kline row:
//
//	[0] startTime (ms)
//	[1] openPrice
//	[2] highPrice
//	[3] lowPrice
//	[4] closePrice
//	[5] volume   (base coin)
//	[6] turnover (quote coin), dropped
const rowWidth = 7

var fieldNames = [rowWidth - 1]string{
	market.ColTimestamp,
	market.ColOpen,
	market.ColHigh,
	market.ColLow,
	market.ColClose,
	market.ColVolume,
}

type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

type klineResult struct {
	List json.RawMessage `json:"list"`
}

// decodeEnvelope extracts result.list from a kline response body. Every
// failure is an ErrEnvelope.
func decodeEnvelope(body []byte) ([][]json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, envelopeErrorf("decode response: %v", err)
	}
	if env.RetCode != 0 {
		return nil, envelopeErrorf("api error %d: %s", env.RetCode, env.RetMsg)
	}
	if isAbsent(env.Result) {
		return nil, envelopeErrorf("missing result")
	}

	var res klineResult
	if err := json.Unmarshal(env.Result, &res); err != nil {
		return nil, envelopeErrorf("decode result: %v", err)
	}
	if isAbsent(res.List) {
		return nil, envelopeErrorf("missing result.list")
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(res.List, &rows); err != nil {
		return nil, envelopeErrorf("decode result.list: %v", err)
	}
	for i, r := range rows {
		if len(r) != rowWidth {
			return nil, envelopeErrorf("kline[%d] has %d fields, want %d", i, len(r), rowWidth)
		}
	}
	return rows, nil
}

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// parseRows converts raw kline rows into candles in upstream order.
func parseRows(rows [][]json.RawMessage) ([]market.Candle, error) {
	out := make([]market.Candle, 0, len(rows))
	for i, r := range rows {
		openMs, err := ParseMillis(r[0])
		if err != nil {
			return nil, &ConversionError{Row: i, Field: fieldNames[0], Value: string(r[0]), Err: err}
		}

		var v [rowWidth - 2]float64
		for j := range v {
			f, err := ParseNumeric(r[j+1])
			if err != nil {
				return nil, &ConversionError{Row: i, Field: fieldNames[j+1], Value: string(r[j+1]), Err: err}
			}
			v[j] = f
		}

		out = append(out, market.Candle{
			Timestamp: time.UnixMilli(openMs).UTC(),
			Open:      v[0],
			High:      v[1],
			Low:       v[2],
			Close:     v[3],
			Volume:    v[4],
		})
	}
	return out, nil
}
