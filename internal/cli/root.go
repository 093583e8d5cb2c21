package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/ohlcv/config"
)

// RootConfig carries global flags and the state built from them in
// PersistentPreRunE.
type RootConfig struct {
	ConfigPath string
	DBPath     string
	LogLevel   string

	Config *config.Config
	Log    *logrus.Logger
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:           "ohlcv",
		Short:         "ohlcv: Bybit kline loader and fetch journal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.DBPath, "db", "", "SQLite fetch journal (overrides journal config)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "", "Log level: debug|info|warn|error")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return rc.setup(cmd.ErrOrStderr())
	}

	cmd.AddCommand(
		newLoadCmd(rc),
		newJournalCmd(rc),
		newConfigCmd(),
		newVersionCmd(),
	)

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (rc *RootConfig) setup(logOut io.Writer) error {
	cfg := config.Default()
	if rc.ConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(rc.ConfigPath)
		if err != nil {
			return err
		}
	}
	if rc.LogLevel != "" {
		cfg.Log.Level = rc.LogLevel
	}
	rc.Config = cfg

	log, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return err
	}
	rc.Log = log
	return nil
}

func newLogger(lc config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(out)

	level := logrus.InfoLevel
	if lc.Level != "" {
		var err error
		level, err = logrus.ParseLevel(lc.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	l.SetLevel(level)

	if lc.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}
