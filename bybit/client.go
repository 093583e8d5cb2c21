package bybit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/ohlcv/market"
)

const (
	// KlineURL is the Bybit v5 public kline endpoint.
	KlineURL = "https://api.bybit.com/v5/market/kline"

	// DefaultLimit is used when Load is called with limit 0. Bybit caps
	// the page size per interval; larger values are sent as-is and the
	// response is simply shorter.
	DefaultLimit = 5000

	// DefaultTimeout bounds one Load call.
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 64 * 1024
)

// Client loads klines from a single endpoint. The zero value is usable and
// talks to KlineURL with DefaultTimeout.
type Client struct {
	BaseURL string
	Timeout time.Duration
	HTTP    *http.Client
	Log     logrus.FieldLogger
}

// NewClient returns a client for the public Bybit endpoint.
func NewClient() *Client {
	return &Client{
		BaseURL: KlineURL,
		Timeout: DefaultTimeout,
		HTTP:    &http.Client{},
	}
}

var defaultClient = NewClient()

// Load fetches klines with the default client.
func Load(ctx context.Context, symbol, timeframe string, limit int) (*market.CandleTable, error) {
	return defaultClient.Load(ctx, symbol, timeframe, limit)
}

// Load issues one GET for symbol/timeframe/limit and returns the candles
// sorted ascending by open time. symbol and timeframe are passed through
// unvalidated. Any failure returns a nil table.
func (c *Client) Load(ctx context.Context, symbol, timeframe string, limit int) (*market.CandleTable, error) {
	if limit == 0 {
		limit = DefaultLimit
	}

	u, err := url.Parse(c.baseURL())
	if err != nil {
		return nil, fmt.Errorf("bybit: parse url: %w", err)
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", timeframe)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("bybit: build request: %w", err)
	}

	log := c.logger().WithFields(logrus.Fields{
		"symbol":   symbol,
		"interval": timeframe,
		"limit":    limit,
	})
	log.Debug("bybit: requesting klines")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	rows, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	candles, err := parseRows(rows)
	if err != nil {
		return nil, err
	}

	tbl := market.NewCandleTable(symbol, timeframe, candles)
	log.WithField("rows", tbl.Len()).Debug("bybit: klines loaded")
	return tbl, nil
}

func (c *Client) baseURL() string {
	if c.BaseURL == "" {
		return KlineURL
	}
	return c.BaseURL
}

func (c *Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c *Client) logger() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

var _ market.CandleLoader = (*Client)(nil)
