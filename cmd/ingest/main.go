// Command ingest parses broker exports into the snapshot store once and
// prints the batch summary.
//
// Usage:
//
//	ingest [-db path] [-mappings file] [-json] file.xlsx|dir ...
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"portfolio_tracker/internal/classifier"
	"portfolio_tracker/internal/config"
	"portfolio_tracker/internal/database"
	"portfolio_tracker/internal/ingest"
	"portfolio_tracker/internal/logger"
	"portfolio_tracker/internal/repository"
	"portfolio_tracker/internal/scheduler"
	"portfolio_tracker/internal/services"
)

func main() {
	cfg := config.New()

	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	mappings := flag.String("mappings", cfg.MappingsFile, "TOML mapping overrides file")
	asJSON := flag.Bool("json", false, "print the summary as JSON")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] file.xlsx|dir ...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg.DBPath = *dbPath
	cfg.MappingsFile = *mappings
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: os.Stderr})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	paths, err := collect(flag.Args())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list input files")
	}
	if len(paths) == 0 {
		log.Warn().Msg("No spreadsheets to ingest")
		return
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := classifier.NewRegistry()
	if _, err := registry.LoadOverrides(cfg.MappingsFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to load mapping overrides")
	}

	writer := repository.NewThrottledWriter(repository.NewRetryLogRepository(db), repository.WriterConfig{
		Interval:   cfg.WriteInterval,
		Backoff:    cfg.RetryBackoff,
		MaxRetries: cfg.MaxRetries,
	}, log)
	svc := services.NewIngestService(
		ingest.NewParser(registry, cfg.DefaultFXRate, log),
		registry,
		writer,
		services.IngestStores{
			Snapshots:  repository.NewSnapshotRepository(db),
			Details:    repository.NewDetailRepository(db),
			Clients:    repository.NewClientRepository(db),
			Runs:       repository.NewIngestRunRepository(db),
			Mappings:   repository.NewMappingRepository(db),
			Categories: repository.NewCategoryRepository(db),
		},
		cfg.RateLimitCooldown,
		log,
	)
	if _, err := svc.LoadPersistedMappings(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load persisted mappings")
	}

	summary, err := svc.IngestBatch(ctx, paths)
	if summary != nil {
		if perr := printSummary(os.Stdout, summary, *asJSON); perr != nil {
			log.Error().Err(perr).Msg("Failed to print summary")
		}
	}
	if err != nil {
		log.Error().Err(err).Msg("Ingest failed")
		os.Exit(1)
	}
	if summary.ClientsFailed > 0 {
		os.Exit(1)
	}
}

// collect expands directory arguments into the spreadsheets they hold.
func collect(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := scheduler.ListSpreadsheets(arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func printSummary(w io.Writer, summary *services.BatchSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tCLIENT\tDATE\tHOLDINGS\tTOTAL\tSTATUS\tERROR")
	for _, f := range summary.Files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%s\t%s\n",
			f.File, f.ClientID, f.Date, f.Holdings, f.Total, f.Status, f.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nrun %s: %s, %d/%d files parsed, clients ok=%d retried=%d failed=%d\n",
		summary.RunID, summary.Status, summary.FilesParsed, len(summary.Files),
		summary.ClientsOK, summary.ClientsRetried, summary.ClientsFailed)
	return err
}
