// Package retry wraps a market.CandleLoader with retries, exponential
// backoff and an optional request rate limit. The wrapped loader stays a
// single-shot request; all resilience policy lives here.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/ohlcv/bybit"
	"github.com/rustyeddy/ohlcv/market"
)

// Config holds the retry and rate-limit policy.
type Config struct {
	MaxAttempts int           // total attempts, 1 disables retries
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // upper bound on any single delay
	Multiplier  float64       // backoff growth per attempt
	JitterRange float64       // 0.0 to 1.0, fraction of the delay

	// RequestsPerSecond enables a token bucket in front of every attempt
	// when > 0.
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig performs a single attempt with no rate limit.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 1,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
		JitterRange: 0.1,
		Burst:       1,
	}
}

// Loader retries a wrapped CandleLoader.
type Loader struct {
	next    market.CandleLoader
	config  Config
	limiter *rate.Limiter
	logger  logrus.FieldLogger

	mu  sync.Mutex
	rng *rand.Rand

	// sleep waits for d or until ctx is done; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Wrap returns a Loader around next. Out-of-range config values fall back
// to DefaultConfig values.
func Wrap(next market.CandleLoader, config Config, logger logrus.FieldLogger) *Loader {
	def := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = def.BaseDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = def.MaxDelay
	}
	if config.MaxDelay < config.BaseDelay {
		config.MaxDelay = config.BaseDelay
	}
	if config.Multiplier < 1.0 {
		config.Multiplier = def.Multiplier
	}
	if config.JitterRange < 0 || config.JitterRange > 1.0 {
		config.JitterRange = def.JitterRange
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	l := &Loader{
		next:   next,
		config: config,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:  sleepCtx,
	}
	if config.RequestsPerSecond > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
	}
	return l
}

// Load calls the wrapped loader until it succeeds, returns a permanent
// error, or attempts run out.
func (l *Loader) Load(ctx context.Context, symbol, timeframe string, limit int) (*market.CandleTable, error) {
	log := l.logger.WithFields(logrus.Fields{"symbol": symbol, "interval": timeframe})

	var lastErr error
	for attempt := 1; attempt <= l.config.MaxAttempts; attempt++ {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("retry: rate limiter: %w", err)
			}
		}

		tbl, err := l.next.Load(ctx, symbol, timeframe, limit)
		if err == nil {
			if attempt > 1 {
				log.WithField("attempt", attempt).Info("klines loaded after retry")
			}
			return tbl, nil
		}
		lastErr = err

		if l.config.MaxAttempts == 1 {
			return nil, err
		}
		if !Retryable(err) || ctx.Err() != nil {
			log.WithError(err).Debug("permanent error, not retrying")
			return nil, err
		}
		if attempt == l.config.MaxAttempts {
			log.WithError(err).Errorf("all %d attempts failed", attempt)
			break
		}

		delay := l.delay(attempt)
		log.WithError(err).WithField("attempt", attempt).Warnf("load failed, retrying in %v", delay)
		if err := l.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("retry: %w (last error: %v)", err, lastErr)
		}
	}

	return nil, fmt.Errorf("retry: max attempts (%d) exceeded: %w", l.config.MaxAttempts, lastErr)
}

// Retryable reports whether err is worth another attempt: transport
// failures, HTTP 429 and 5xx responses. Envelope and conversion errors
// are permanent.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *bybit.StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return errors.Is(err, bybit.ErrTransport)
}

// delay returns BaseDelay * Multiplier^(attempt-1), capped at MaxDelay,
// with jitter applied.
func (l *Loader) delay(attempt int) time.Duration {
	d := float64(l.config.BaseDelay) * math.Pow(l.config.Multiplier, float64(attempt-1))
	if d > float64(l.config.MaxDelay) {
		d = float64(l.config.MaxDelay)
	}

	if l.config.JitterRange > 0 {
		l.mu.Lock()
		jitter := l.rng.Float64() * l.config.JitterRange * d
		if l.rng.Float64() < 0.5 {
			d -= jitter
		} else {
			d += jitter
		}
		l.mu.Unlock()
	}

	if d < float64(l.config.BaseDelay) {
		d = float64(l.config.BaseDelay)
	}
	if d > float64(l.config.MaxDelay) {
		d = float64(l.config.MaxDelay)
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ market.CandleLoader = (*Loader)(nil)
