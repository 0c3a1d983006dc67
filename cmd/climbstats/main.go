package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"climbing-stats/internal/config"
	"climbing-stats/internal/repository"
	"climbing-stats/internal/services"
	"climbing-stats/pkg/database"
	"climbing-stats/pkg/logging"
	"climbing-stats/pkg/metrics"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to YAML config (default $CLIMBSTATS_CONFIG or climbstats.yaml)")
	workbookPath := flag.String("workbook", "", "Override input.workbook_path")
	outputDir := flag.String("output-dir", "", "Override output.dir")
	publish := flag.Bool("publish", false, "Upsert summaries into PostgreSQL")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *workbookPath != "" {
		cfg.Input.WorkbookPath = *workbookPath
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *publish {
		cfg.Publish.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("climbstats", version, logging.ParseLevel(cfg.Logging.Level))
	metricsCollector := metrics.NewCollector("climbstats")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var publisher services.StatisticsPublisher
	if cfg.Publish.Enabled {
		db, err := database.NewPostgresDB(ctx, databaseConfig(cfg), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[CLIMBSTATS_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()
		publisher = repository.NewClimbStatsRepository(db, logger, metricsCollector)
	}

	report := services.NewReportService(cfg, publisher, logger, metricsCollector)

	result, err := report.Run(ctx)
	if err != nil {
		logger.Fatal(ctx, "[CLIMBSTATS_ERROR] Report failed", logging.Fields{
			"error_type": services.ErrorType(err),
		}, err)
	}

	printSummary(result)
}

func databaseConfig(cfg *config.Config) *database.Config {
	return &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}
}

func printSummary(result *services.RunResult) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("CLIMBING REPORT COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Run ID:            %s\n", result.RunID)
	fmt.Printf("Rows Read:         %d\n", result.Preparation.InputRows)
	fmt.Printf("Unmapped Dropped:  %d\n", result.Preparation.UnmappedRows)
	fmt.Printf("Duplicates Dropped: %d\n", result.Preparation.DuplicateRows)
	fmt.Printf("Prepared Records:  %d\n", result.Preparation.PreparedRecords)
	fmt.Println()
	for _, out := range result.Outputs {
		fmt.Printf("  %-14s %4d rows  %s\n", out.Filter, len(out.Rows), out.Path)
	}
	if result.PublishedRows > 0 {
		fmt.Printf("\nPublished Rows:    %d\n", result.PublishedRows)
	}
	fmt.Printf("Duration:          %v\n", result.Duration)
}
