package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dvloznov/personal-finance/internal/backup"
	"github.com/dvloznov/personal-finance/internal/config"
	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/dvloznov/personal-finance/internal/infra/bigquery"
	"github.com/dvloznov/personal-finance/internal/infra/sqlite"
	"github.com/dvloznov/personal-finance/internal/logger"
	"github.com/dvloznov/personal-finance/internal/summary"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "templates":
		runTemplates(os.Args[2:])
	case "tx":
		runTx(os.Args[2:])
	case "summary":
		runSummary(os.Args[2:])
	case "backup":
		runBackup(os.Args[2:])
	case "export":
		runExport(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Personal Finance CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [action] -user ID [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  templates seed|list   Seed the starter templates or list templates")
	fmt.Println("  tx add|list           Add a transaction or list transactions")
	fmt.Println("  summary               Show dashboard figures")
	fmt.Println("  backup                Snapshot the database (and upload it when a bucket is set)")
	fmt.Println("  export                Export transactions to BigQuery (-totals prints monthly totals)")
	fmt.Println("  help                  Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// env is what every command needs once its flags are parsed.
type env struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	log    zerolog.Logger
	db     *gorm.DB
	userID string
}

type commonFlags struct {
	fs         *flag.FlagSet
	configPath *string
	userID     *string
}

func newFlags(name string) commonFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return commonFlags{
		fs:         fs,
		configPath: fs.String("config", os.Getenv("FINANCE_TRACKER_CONFIG"), "Path to YAML config file (optional)"),
		userID:     fs.String("user", "", "User id to act as (required)"),
	}
}

// open parses args, loads config and opens the database. It exits on error.
func (c commonFlags) open(args []string) *env {
	c.fs.Parse(args)

	cfg, err := config.Load(*c.configPath)
	if err != nil {
		fallback := logger.Default()
		fallback.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Out: os.Stderr})

	if err := domain.RequireUser(*c.userID); err != nil {
		log.Fatal().Msg("Error: -user is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	ctx = logger.WithContext(ctx, log)

	db, err := sqlite.Open(ctx, cfg.DBPath, log)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("Failed to open database")
	}
	return &env{ctx: ctx, cancel: cancel, cfg: cfg, log: log, db: db, userID: strings.TrimSpace(*c.userID)}
}

func (e *env) close() {
	sqlite.Close(e.db)
	e.cancel()
}

func action(args []string, cmd string, allowed ...string) (string, []string) {
	if len(args) > 0 {
		for _, a := range allowed {
			if args[0] == a {
				return a, args[1:]
			}
		}
	}
	fmt.Fprintf(os.Stderr, "Usage: cli %s %s -user ID [options]\n", cmd, strings.Join(allowed, "|"))
	os.Exit(1)
	return "", nil
}

func runTemplates(args []string) {
	act, rest := action(args, "templates", "seed", "list")
	f := newFlags("templates " + act)
	all := f.fs.Bool("all", false, "Include inactive templates (list)")
	e := f.open(rest)
	defer e.close()

	repo := sqlite.NewTemplateRepository(e.db, logger.NewAuditLog(e.log))

	switch act {
	case "seed":
		n, err := repo.SeedDefaults(e.ctx, e.userID)
		if err != nil {
			e.log.Fatal().Err(err).Msg("Seeding failed")
		}
		fmt.Printf("Created %d starter templates.\n", n)

	case "list":
		var (
			list []*domain.Template
			err  error
		)
		if *all {
			list, err = repo.ListAll(e.ctx, e.userID)
		} else {
			list, err = repo.ListActive(e.ctx, e.userID)
		}
		if err != nil {
			e.log.Fatal().Err(err).Msg("Listing templates failed")
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tICON\tNAME\tTYPE\tCATEGORY\tDEFAULT\tFIELDS\tACTIVE")
		for _, t := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n", t.ID, t.Icon, t.Name, t.TransactionType,
				t.Category, t.DefaultAmount.StringFixed(2), strings.Join(t.FieldsSchema.Names(), ","), t.IsActive)
		}
		w.Flush()
	}
}

// fieldsFlag collects repeated -field key=value pairs. Numeric values are
// kept as numbers.
type fieldsFlag domain.CustomFields

func (f fieldsFlag) String() string { return domain.CustomFields(f).String() }

func (f fieldsFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	if _, err := decimal.NewFromString(v); err == nil {
		f[strings.TrimSpace(k)] = json.Number(v)
		return nil
	}
	f[strings.TrimSpace(k)] = v
	return nil
}

func runTx(args []string) {
	act, rest := action(args, "tx", "add", "list")
	f := newFlags("tx " + act)

	templateID := f.fs.String("template", "", "Template id (add)")
	date := f.fs.String("date", "", "Date YYYY-MM-DD (add)")
	amount := f.fs.String("amount", "", "Amount (add)")
	txType := f.fs.String("type", "", "Transaction type (add, list)")
	category := f.fs.String("category", "", "Category (add, list)")
	description := f.fs.String("description", "", "Description (add)")
	payment := f.fs.String("payment", "", "Payment method (add)")
	fields := fieldsFlag{}
	f.fs.Var(fields, "field", "Custom field key=value, repeatable (add)")
	from := f.fs.String("from", "", "From date YYYY-MM-DD (list)")
	to := f.fs.String("to", "", "To date YYYY-MM-DD (list)")
	limit := f.fs.Int("limit", 50, "Maximum rows (list)")

	e := f.open(rest)
	defer e.close()

	repo := sqlite.NewTransactionRepository(e.db, logger.NewAuditLog(e.log))

	switch act {
	case "add":
		raw := map[string]any{
			"template_id":    *templateID,
			"type":           *txType,
			"category":       *category,
			"description":    *description,
			"payment_method": *payment,
			"custom_fields":  map[string]any(fields),
		}
		if *date != "" {
			raw["date"] = *date
		}
		if *amount != "" {
			raw["amount"] = *amount
		}
		in, err := domain.ParseTransactionInput(raw)
		if err != nil {
			e.log.Fatal().Err(err).Msg("Invalid input")
		}
		res, err := repo.Add(e.ctx, e.userID, in)
		if err != nil {
			e.log.Fatal().Err(err).Msg("Adding transaction failed")
		}
		fmt.Printf("Added transaction %s\n", res.ID)
		if len(res.Unrecognized) > 0 {
			fmt.Printf("Fields not in the template schema: %s\n", strings.Join(res.Unrecognized, ", "))
		}

	case "list":
		filter, err := listFilter(*from, *to, *category, *txType)
		if err != nil {
			e.log.Fatal().Err(err).Msg("Invalid filter")
		}
		filter.Limit = *limit
		list, err := repo.List(e.ctx, e.userID, filter)
		if err != nil {
			e.log.Fatal().Err(err).Msg("Listing transactions failed")
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tAMOUNT\tTYPE\tCATEGORY\tDESCRIPTION\tFIELDS")
		for _, t := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.Date, t.Amount.StringFixed(2), t.Type,
				t.Category, t.Description, t.CustomFields)
		}
		w.Flush()
	}
}

func listFilter(from, to, category, txType string) (domain.TransactionFilter, error) {
	var f domain.TransactionFilter
	var err error
	if from != "" {
		if f.From, err = domain.ParseDate(from); err != nil {
			return f, err
		}
	}
	if to != "" {
		if f.To, err = domain.ParseDate(to); err != nil {
			return f, err
		}
	}
	if category != "" {
		f.Categories = []string{category}
	}
	if txType != "" {
		f.Types = []string{txType}
	}
	return f, nil
}

func runSummary(args []string) {
	f := newFlags("summary")
	from := f.fs.String("from", "", "From date YYYY-MM-DD")
	to := f.fs.String("to", "", "To date YYYY-MM-DD")
	e := f.open(args)
	defer e.close()

	filter, err := listFilter(*from, *to, "", "")
	if err != nil {
		e.log.Fatal().Err(err).Msg("Invalid filter")
	}
	txs, err := sqlite.NewTransactionRepository(e.db, nil).List(e.ctx, e.userID, filter)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Listing transactions failed")
	}
	k := summary.Compute(txs)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Income\t%s\n", k.Income.StringFixed(2))
	fmt.Fprintf(w, "Expenses\t%s\n", k.Expenses.StringFixed(2))
	fmt.Fprintf(w, "Taxes\t%s\n", k.Taxes.StringFixed(2))
	fmt.Fprintf(w, "Net income\t%s\n", k.NetIncome.StringFixed(2))
	fmt.Fprintf(w, "Savings rate\t%s%%\n", k.SavingsRate.StringFixed(1))
	fmt.Fprintf(w, "Investments\t%s\n", k.Investments.StringFixed(2))
	fmt.Fprintf(w, "Transfers\t%s\n", k.Transfers.StringFixed(2))
	fmt.Fprintf(w, "Average\t%s\n", k.AvgTransaction.StringFixed(2))
	fmt.Fprintf(w, "Top category\t%s\n", k.TopCategory)
	fmt.Fprintf(w, "Top payment method\t%s\n", k.TopPaymentMethod)
	fmt.Fprintf(w, "Transactions\t%d\n", k.TransactionCount)
	w.Flush()
}

func runBackup(args []string) {
	f := newFlags("backup")
	upload := f.fs.Bool("upload", true, "Upload to the configured bucket")
	e := f.open(args)
	defer e.close()

	var up backup.ObjectUploader
	bucket := e.cfg.Backup.Bucket
	if *upload && bucket != "" {
		u, err := backup.NewUploader(e.ctx)
		if err != nil {
			e.log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer u.Close()
		up = u
	} else {
		bucket = ""
	}

	e.log.Info().Str("user_id", e.userID).Msg("Backup requested")
	res, err := backup.Run(e.ctx, e.db, e.cfg.Backup.Dir, bucket, up, e.log)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Backup failed")
	}
	fmt.Println(res)
}

func runExport(args []string) {
	f := newFlags("export")
	from := f.fs.String("from", "", "From date YYYY-MM-DD")
	to := f.fs.String("to", "", "To date YYYY-MM-DD")
	totals := f.fs.Bool("totals", false, "After exporting, print monthly totals read back from BigQuery")
	e := f.open(args)
	defer e.close()

	if e.cfg.BigQuery.Project == "" {
		e.log.Fatal().Msg("Error: BigQuery project is not configured (BQ_PROJECT)")
	}

	filter, err := listFilter(*from, *to, "", "")
	if err != nil {
		e.log.Fatal().Err(err).Msg("Invalid filter")
	}
	txs, err := sqlite.NewTransactionRepository(e.db, nil).List(e.ctx, e.userID, filter)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Listing transactions failed")
	}

	exporter, err := bigquery.NewTransactionExporter(e.ctx, e.cfg.BigQuery.Project, e.cfg.BigQuery.Dataset)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Failed to create BigQuery exporter")
	}
	defer exporter.Close()

	if err := exporter.EnsureTable(e.ctx); err != nil {
		e.log.Fatal().Err(err).Msg("Failed to ensure transactions table")
	}
	n, err := exporter.Export(e.ctx, e.userID, txs)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Export failed")
	}
	fmt.Printf("Exported %d transactions to %s.%s.transactions\n", n, e.cfg.BigQuery.Project, e.cfg.BigQuery.Dataset)

	if !*totals {
		return
	}
	rows, err := exporter.MonthlyTotals(e.ctx, e.userID)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Reading monthly totals failed")
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MONTH\tTYPE\tTOTAL\tCOUNT")
	for _, r := range rows {
		total := "0"
		if r.Total != nil {
			total = r.Total.FloatString(2)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.Month.String()[:7], r.Type, total, r.Count)
	}
	w.Flush()
}
