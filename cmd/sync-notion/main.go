package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/personal-finance/internal/config"
	"github.com/dvloznov/personal-finance/internal/infra/sqlite"
	"github.com/dvloznov/personal-finance/internal/logger"
	"github.com/dvloznov/personal-finance/internal/notionsync"
	"github.com/dvloznov/personal-finance/internal/worker"
)

func main() {
	configPath := flag.String("config", os.Getenv("FINANCE_TRACKER_CONFIG"), "Path to YAML config file (optional)")
	userID := flag.String("user", "", "User whose transactions are synced (required)")
	fromStr := flag.String("from", "", "Start date in YYYY-MM-DD format")
	toStr := flag.String("to", "", "End date in YYYY-MM-DD format")
	notionToken := flag.String("notion-token", "", "Notion API token (overrides config)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := logger.Default()
		fallback.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Out: os.Stderr})

	if *notionToken != "" {
		cfg.Notion.Token = *notionToken
	}
	if *notionDBID != "" {
		cfg.Notion.DatabaseID = *notionDBID
	}

	if *userID == "" {
		log.Fatal().Msg("Error: -user is required")
	}
	if cfg.Notion.Token == "" {
		log.Fatal().Msg("Error: Notion token is required (-notion-token or NOTION_TOKEN)")
	}
	if cfg.Notion.DatabaseID == "" {
		log.Fatal().Msg("Error: Notion database ID is required (-notion-db-id or NOTION_DB_ID)")
	}

	filter, err := worker.FilterFromParams(map[string]string{"from": *fromStr, "to": *toStr})
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid date range")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("user_id", *userID).
		Str("from", *fromStr).
		Str("to", *toStr).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	db, err := sqlite.Open(ctx, cfg.DBPath, log)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("Failed to open database")
	}
	defer sqlite.Close(db)

	repo := sqlite.NewTransactionRepository(db, nil)
	client := notionsync.NewNotionClient(cfg.Notion.Token)

	stats, err := notionsync.SyncTransactions(ctx, repo, client, cfg.Notion.DatabaseID, *userID, filter, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %s\n", stats)
}
