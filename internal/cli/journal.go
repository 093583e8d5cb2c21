package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ohlcv/journal"
	"github.com/rustyeddy/ohlcv/pkg/id"
)

func newJournalCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query the SQLite fetch journal",
		Long: `Query fetches recorded by "ohlcv load" in a SQLite journal.

Subcommands:
  list  - List recorded fetches
  show  - Print the candles of one fetch as CSV

Examples:
  ohlcv journal list --db ./ohlcv.sqlite --symbol BTCUSDT
  ohlcv journal show 01HF3J8Y2N9W5ZK0Q4R7T6V1XA --db ./ohlcv.sqlite`,
	}

	cmd.AddCommand(newJournalListCmd(rc), newJournalShowCmd(rc))
	return cmd
}

func newJournalListCmd(rc *RootConfig) *cobra.Command {
	var symbol string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded fetches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := rc.openSQLite()
			if err != nil {
				return err
			}
			defer j.Close()

			recs, err := j.ListFetches(symbol)
			if err != nil {
				return fmt.Errorf("query fetches: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FETCH ID\tSYMBOL\tINTERVAL\tLIMIT\tROWS\tFETCHED AT")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					r.FetchID, r.Symbol, r.Interval, r.Limit, r.Rows, r.FetchedAt.Format(journal.TimeLayout))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "Only list fetches for this symbol")
	return cmd
}

func newJournalShowCmd(rc *RootConfig) *cobra.Command {
	var column string

	cmd := &cobra.Command{
		Use:   "show <fetch-id>",
		Short: "Print the candles of a recorded fetch as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issued, err := id.Time(args[0])
			if err != nil {
				return fmt.Errorf("invalid fetch id: %w", err)
			}
			rc.Log.WithField("fetch_id", args[0]).Debugf("fetch id issued at %s", issued.Format(journal.TimeLayout))

			j, err := rc.openSQLite()
			if err != nil {
				return err
			}
			defer j.Close()

			tbl, err := j.LoadTable(args[0])
			if err != nil {
				return fmt.Errorf("load fetch: %w", err)
			}
			if column != "" {
				return journal.WriteColumn(cmd.OutOrStdout(), tbl, column)
			}
			return journal.WriteTable(cmd.OutOrStdout(), tbl)
		},
	}

	cmd.Flags().StringVar(&column, "column", "", "Print only the timestamp and this column (open|high|low|close|volume)")
	return cmd
}

func (rc *RootConfig) openSQLite() (*journal.SQLite, error) {
	path := rc.DBPath
	if path == "" && rc.Config.Journal.Type == "sqlite" {
		path = rc.Config.Journal.DBPath
	}
	if path == "" {
		return nil, fmt.Errorf("no sqlite journal: set --db or journal.db_path")
	}

	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}
