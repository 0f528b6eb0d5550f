package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/personal-finance/internal/api"
	"github.com/dvloznov/personal-finance/internal/backup"
	"github.com/dvloznov/personal-finance/internal/categorize"
	"github.com/dvloznov/personal-finance/internal/config"
	"github.com/dvloznov/personal-finance/internal/infra/bigquery"
	"github.com/dvloznov/personal-finance/internal/infra/sqlite"
	"github.com/dvloznov/personal-finance/internal/jobs/inmemory"
	"github.com/dvloznov/personal-finance/internal/logger"
	"github.com/dvloznov/personal-finance/internal/notionsync"
	"github.com/dvloznov/personal-finance/internal/worker"
)

func main() {
	configPath := flag.String("config", os.Getenv("FINANCE_TRACKER_CONFIG"), "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := logger.Default()
		fallback.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	ctx := logger.WithContext(context.Background(), log)

	db, err := sqlite.Open(ctx, cfg.DBPath, log)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("Failed to open database")
	}
	defer sqlite.Close(db)

	audit := logger.NewAuditLog(log)
	templates := sqlite.NewTemplateRepository(db, audit)
	transactions := sqlite.NewTransactionRepository(db, audit)
	netWorth := sqlite.NewNetWorthRepository(db, audit)
	budgets := sqlite.NewBudgetRepository(db, audit)

	wd := worker.Deps{
		Transactions: transactions,
		DB:           db,
		BackupDir:    cfg.Backup.Dir,
		BackupBucket: cfg.Backup.Bucket,
		NotionDBID:   cfg.Notion.DatabaseID,
	}

	if cfg.BigQuery.Project != "" {
		exporter, err := bigquery.NewTransactionExporter(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery exporter")
		}
		defer exporter.Close()
		if err := exporter.EnsureTable(ctx); err != nil {
			log.Warn().Err(err).Msg("Could not ensure BigQuery transactions table")
		}
		wd.Exporter = exporter
	} else {
		log.Warn().Msg("No BigQuery project configured - exports will be disabled")
	}

	if cfg.Backup.Bucket != "" {
		uploader, err := backup.NewUploader(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer uploader.Close()
		wd.Uploader = uploader
	}

	if cfg.Notion.Token != "" {
		wd.Notion = notionsync.NewNotionClient(cfg.Notion.Token)
	}

	deps := api.Deps{
		Templates:    templates,
		Transactions: transactions,
		NetWorth:     netWorth,
		Budgets:      budgets,
	}
	if cfg.Gemini.Project != "" {
		gen, err := categorize.NewGeminiGenerator(ctx, cfg.Gemini.Project, cfg.Gemini.Location, cfg.Gemini.Model)
		if err != nil {
			log.Warn().Err(err).Msg("Category suggestions disabled")
		} else {
			deps.Suggester = categorize.NewSuggester(gen)
		}
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore, inmemory.WithLogger(log))
	deps.Publisher = jobQueue
	deps.Jobs = jobStore

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Msg("Starting job worker")
	if err := jobQueue.Start(workerCtx, worker.NewRouter(wd).Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.NewHandler(deps, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("db_path", cfg.DBPath).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
