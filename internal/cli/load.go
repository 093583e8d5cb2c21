package cli

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/ohlcv/bybit"
	"github.com/rustyeddy/ohlcv/journal"
	"github.com/rustyeddy/ohlcv/market"
	"github.com/rustyeddy/ohlcv/pkg/id"
	"github.com/rustyeddy/ohlcv/retry"
)

func newLoadCmd(rc *RootConfig) *cobra.Command {
	var (
		symbols  []string
		interval string
		limit    int
		outPath  string
		baseURL  string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load Bybit klines for one or more symbols",
		Long: `Load fetches one page of klines per symbol from the Bybit v5 market API,
prints a summary line for each, optionally writes the table as CSV and
records the fetch in the configured journal.

Examples:
  ohlcv load --symbol BTCUSDT --interval 60 --limit 200
  ohlcv load --symbol BTCUSDT --symbol ETHUSDT --interval D --out daily.csv
  ohlcv load --symbol SOLUSDT --out - --db ./ohlcv.sqlite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(symbols) == 0 {
				return fmt.Errorf("missing --symbol (e.g. BTCUSDT)")
			}
			if interval == "" {
				return fmt.Errorf("missing --interval (e.g. 1, 60, D)")
			}

			cfg := rc.Config
			if limit == 0 {
				limit = cfg.Bybit.Limit
			}
			if limit == 0 {
				limit = bybit.DefaultLimit
			}

			if baseURL == "" {
				baseURL = cfg.Bybit.BaseURL
			}
			if timeout == 0 {
				var err error
				timeout, err = cfg.Bybit.ParseTimeout()
				if err != nil {
					return fmt.Errorf("bybit.timeout: %w", err)
				}
			}
			policy, err := cfg.Retry.Policy()
			if err != nil {
				return err
			}

			client := &bybit.Client{
				BaseURL: baseURL,
				Timeout: timeout,
				HTTP:    &http.Client{},
				Log:     rc.Log,
			}
			loader := retry.Wrap(client, policy, rc.Log)

			j, err := rc.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			out := cmd.OutOrStdout()
			for _, sym := range symbols {
				tbl, err := loader.Load(cmd.Context(), sym, interval, limit)
				if err != nil {
					return fmt.Errorf("load %s: %w", sym, err)
				}

				rec := journal.NewFetchRecord(id.New(), limit, tbl, time.Now())
				log := rc.Log.WithFields(logrus.Fields{
					"fetch_id": rec.FetchID,
					"symbol":   rec.Symbol,
					"interval": rec.Interval,
					"rows":     rec.Rows,
				})
				if rec.Short() {
					log.WithField("limit", limit).Warn("received fewer rows than requested")
				}

				if err := j.RecordFetch(rec, tbl); err != nil {
					return fmt.Errorf("record fetch: %w", err)
				}
				log.Info("fetch recorded")

				fmt.Fprintln(out, summary(rec))

				switch outPath {
				case "":
				case "-":
					if err := journal.WriteTable(out, tbl); err != nil {
						return err
					}
				default:
					path := tablePath(outPath, sym, len(symbols) > 1)
					if err := writeTableFile(path, tbl); err != nil {
						return err
					}
					log.WithField("path", path).Info("csv written")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&symbols, "symbol", nil, "Symbol(s) to load (repeatable, e.g. BTCUSDT)")
	cmd.Flags().StringVar(&interval, "interval", "60", "Bybit interval: 1,3,5,15,30,60,120,240,360,720,D,W,M")
	cmd.Flags().IntVar(&limit, "limit", 0, "Rows to request (0 uses bybit.limit from config)")
	cmd.Flags().StringVar(&outPath, "out", "", "Write CSV to this path, or - for stdout")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Override kline endpoint URL (for testing)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-request timeout (0 uses bybit.timeout from config)")

	return cmd
}

func summary(rec journal.FetchRecord) string {
	if rec.Rows == 0 {
		return fmt.Sprintf("%s %s interval=%s rows=0", rec.FetchID, rec.Symbol, rec.Interval)
	}
	return fmt.Sprintf("%s %s interval=%s rows=%d first=%s last=%s",
		rec.FetchID, rec.Symbol, rec.Interval, rec.Rows,
		rec.First.Format(journal.TimeLayout), rec.Last.Format(journal.TimeLayout))
}

// tablePath inserts the symbol before the extension when several symbols
// share one --out path.
func tablePath(path, symbol string, multi bool) string {
	if !multi {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + symbol + ext
}

func writeTableFile(path string, tbl *market.CandleTable) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := journal.WriteTable(f, tbl); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (rc *RootConfig) openJournal() (journal.Journal, error) {
	if rc.DBPath != "" {
		return journal.NewSQLite(rc.DBPath)
	}
	jc := rc.Config.Journal
	switch jc.Type {
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	case "csv":
		return journal.NewCSV(jc.CSVFile)
	}
	return journal.Nop{}, nil
}
