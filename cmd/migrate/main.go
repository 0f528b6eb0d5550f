package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dvloznov/personal-finance/internal/config"
	"github.com/dvloznov/personal-finance/internal/infra/sqlite"
	"github.com/dvloznov/personal-finance/internal/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var (
	configPath = flag.String("config", os.Getenv("FINANCE_TRACKER_CONFIG"), "Path to YAML config file (optional)")
	dbPath     = flag.String("db", "", "Database file (overrides config)")
	status     = flag.Bool("status", false, "Only list pending migrations")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := logger.Default()
		fallback.Fatal().Err(err).Msg("Failed to load config")
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Out: os.Stderr})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// OpenDSN, not Open: Open would migrate before -status could report.
	db, err := sqlite.OpenDSN(ctx, sqlite.DSN(cfg.DBPath), log)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("Failed to open database")
	}
	defer sqlite.Close(db)

	log.Info().Str("db_path", cfg.DBPath).Msg("Connected to database")

	if err := run(ctx, db, *status, os.Stdout, log); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

// run prints the pending migrations and, unless statusOnly is set, applies
// them.
func run(ctx context.Context, db *gorm.DB, statusOnly bool, out io.Writer, log zerolog.Logger) error {
	pending, err := sqlite.Pending(ctx, db)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(out, "No new migrations to apply. Database is up to date.")
		return nil
	}

	for _, m := range pending {
		fmt.Fprintf(out, "  [PENDING] %04d_%s\n", m.Version, m.Name)
	}
	if statusOnly {
		return nil
	}

	if err := sqlite.Migrate(ctx, db, log); err != nil {
		return err
	}
	fmt.Fprintf(out, "Successfully applied %d migration(s)\n", len(pending))
	return nil
}
