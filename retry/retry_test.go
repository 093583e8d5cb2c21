package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ohlcv/bybit"
	"github.com/rustyeddy/ohlcv/market"
)

type scriptedLoader struct {
	errs  []error
	calls int
	table *market.CandleTable
}

func (s *scriptedLoader) Load(ctx context.Context, symbol, timeframe string, limit int) (*market.CandleTable, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.table, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func noSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

var transportErr = fmt.Errorf("%w: dial tcp: connection refused", bybit.ErrTransport)

func sampleTable() *market.CandleTable {
	return market.NewCandleTable("BTCUSDT", "1", []market.Candle{{Timestamp: time.UnixMilli(1000).UTC(), Close: 1}})
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", transportErr, true},
		{"429", &bybit.StatusError{Code: 429}, true},
		{"503", &bybit.StatusError{Code: 503}, true},
		{"404", &bybit.StatusError{Code: 404}, false},
		{"envelope", fmt.Errorf("%w: missing result", bybit.ErrEnvelope), false},
		{"conversion", &bybit.ConversionError{Field: "open", Err: errors.New("bad")}, false},
		{"canceled", fmt.Errorf("%w: %w", bybit.ErrTransport, context.Canceled), false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestLoad_DefaultIsSingleShot(t *testing.T) {
	t.Parallel()

	next := &scriptedLoader{errs: []error{transportErr}}
	l := Wrap(next, DefaultConfig(), quietLogger())

	_, err := l.Load(context.Background(), "BTCUSDT", "1", 10)
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Same(t, transportErr, err)
}

func TestLoad_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	want := sampleTable()
	next := &scriptedLoader{
		errs:  []error{transportErr, &bybit.StatusError{Code: 429}},
		table: want,
	}

	cfg := Config{MaxAttempts: 5, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	l := Wrap(next, cfg, quietLogger())
	var delays []time.Duration
	l.sleep = noSleep(&delays)

	got, err := l.Load(context.Background(), "BTCUSDT", "1", 10)
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, delays)
}

func TestLoad_PermanentErrorStopsImmediately(t *testing.T) {
	t.Parallel()

	envErr := fmt.Errorf("%w: missing result", bybit.ErrEnvelope)
	next := &scriptedLoader{errs: []error{envErr}}

	l := Wrap(next, Config{MaxAttempts: 4}, quietLogger())
	var delays []time.Duration
	l.sleep = noSleep(&delays)

	_, err := l.Load(context.Background(), "BTCUSDT", "1", 10)
	require.ErrorIs(t, err, bybit.ErrEnvelope)
	assert.Equal(t, 1, next.calls)
	assert.Empty(t, delays)
}

func TestLoad_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	next := &scriptedLoader{errs: []error{transportErr, transportErr, transportErr}}
	l := Wrap(next, Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, quietLogger())
	var delays []time.Duration
	l.sleep = noSleep(&delays)

	_, err := l.Load(context.Background(), "BTCUSDT", "1", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, bybit.ErrTransport)
	assert.Contains(t, err.Error(), "max attempts (3) exceeded")
	assert.Equal(t, 3, next.calls)
	assert.Len(t, delays, 2)
}

func TestLoad_ContextCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	next := &scriptedLoader{errs: []error{transportErr, transportErr}}
	l := Wrap(next, Config{MaxAttempts: 5, BaseDelay: time.Hour}, quietLogger())
	l.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepCtx(ctx, d)
	}

	_, err := l.Load(ctx, "BTCUSDT", "1", 10)
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "last error")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, next.calls)
}

func TestDelay_CappedAndJittered(t *testing.T) {
	t.Parallel()

	l := Wrap(&scriptedLoader{}, Config{
		MaxAttempts: 10,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		Multiplier:  2,
		JitterRange: 0.5,
	}, quietLogger())

	for attempt := 1; attempt <= 10; attempt++ {
		d := l.delay(attempt)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, time.Second)
	}
}

func TestWrap_NormalizesConfig(t *testing.T) {
	t.Parallel()

	l := Wrap(&scriptedLoader{}, Config{JitterRange: 3, Multiplier: 0.5}, nil)
	def := DefaultConfig()
	assert.Equal(t, def.MaxAttempts, l.config.MaxAttempts)
	assert.Equal(t, def.BaseDelay, l.config.BaseDelay)
	assert.Equal(t, def.MaxDelay, l.config.MaxDelay)
	assert.Equal(t, def.Multiplier, l.config.Multiplier)
	assert.Equal(t, def.JitterRange, l.config.JitterRange)
	assert.Nil(t, l.limiter)
	assert.NotNil(t, l.logger)
}

func TestLoad_RateLimited(t *testing.T) {
	t.Parallel()

	next := &scriptedLoader{table: sampleTable()}
	l := Wrap(next, Config{MaxAttempts: 1, RequestsPerSecond: 20, Burst: 1}, quietLogger())
	require.NotNil(t, l.limiter)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := l.Load(context.Background(), "BTCUSDT", "1", 10)
		require.NoError(t, err)
	}
	// burst 1 at 20/s: the 2nd and 3rd calls wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, 3, next.calls)
}

func TestLoad_WrapsBybitClientEndToEnd(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"result":{"list":[["2000","2","2","2","2","2","0"],["1000","1","1","1","1","1","0"]]}}`)
	}))
	defer srv.Close()

	client := &bybit.Client{BaseURL: srv.URL, Log: quietLogger()}
	l := Wrap(client, Config{MaxAttempts: 2, BaseDelay: time.Millisecond}, quietLogger())

	tbl, err := l.Load(context.Background(), "BTCUSDT", "1", 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, int64(1000), tbl.Row(0).Timestamp.UnixMilli())
}
