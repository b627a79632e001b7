package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pable/go-match-telemetry/internal/config"
	"github.com/pable/go-match-telemetry/internal/logger"
	"github.com/pable/go-match-telemetry/internal/storage"
)

var (
	dbPath   string
	logLevel string

	cfg config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "matchtel",
	Short: "Match telemetry tracker",
	Long: `Ingest in-game telemetry (roster, kill feed, match lifecycle), keep the
live match state, and store finished matches with their rounds, character
sessions, rating history and encountered players.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "path to SQLite database (env MATCHTEL_DB)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error (env MATCHTEL_LOG_LEVEL)")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(roundsCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(eloCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(shellCmd)
}

// setup loads the environment config; explicit flags win over it.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	} else {
		dbPath = cfg.DBPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	log, err = logger.New(cfg.LogLevel)
	return err
}

// openDB opens the configured database, creating its directory first when
// the command writes to it.
func openDB(create bool) (*storage.DB, error) {
	if create {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}
