package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"permitwatch/config"
	"permitwatch/httputil"
	"permitwatch/logging"
	"permitwatch/models"
	"permitwatch/scheduler"
	"permitwatch/scraper"
	"permitwatch/services"
	"permitwatch/storage"
	"permitwatch/workers"
)

var (
	scrapeNow = flag.Bool("scrape", false, "Run scrape once and exit")
	cityFlag  = flag.String("city", "", "Scrape a single city (implies -scrape)")
	startDate = flag.String("start-date", "", "Search window start, YYYY-MM-DD")
	endDate   = flag.String("end-date", "", "Search window end, YYYY-MM-DD")
	yearFlag  = flag.Int("year", 0, "Permit year for ID-based sweeps (default: current)")
	limitFlag = flag.Int("limit", 0, "Cap records per run (0 = unlimited)")
	backfill  = flag.Bool("backfill", false, "Run contractor backfill once and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := validateDateFlag(*startDate); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -start-date: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}
	if err := validateDateFlag(*endDate); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -end-date: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	logFile, err := logging.Setup("permitwatch.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting permitwatch...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Loaded %d city configs", len(cfg.Cities))
	for name, city := range cfg.Cities {
		state := "disabled"
		if city.Enabled {
			state = city.ScraperType
		}
		log.Printf("  - %s (%s, %s)", name, city.Portal, state)
	}

	clients := httputil.NewClients(cfg.Scraper.ProxyURL)

	ctx := context.Background()

	pgStore, err := storage.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.Database.URL))

	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	artifacts, err := storage.NewArtifactStore(ctx, storage.ArtifactConfig{
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	})
	if err != nil {
		log.Printf("Warning: artifact store disabled: %v", err)
	}

	classifier := services.NewClassifierService(services.DefaultOverrides())
	matcher := services.NewContractorMatcher(pgStore)
	permitService := services.NewPermitService(pgStore, classifier, matcher)
	log.Println("Services initialized")

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	orchestrator := scraper.NewOrchestrator(cfg, sqliteStore)
	orchestrator.SetServices(pgStore, permitService, artifacts, scraper.Deps{
		Suffixes: pgStore,
		HTTP:     clients.Scraping,
	})

	contractorWorker := workers.NewContractorWorker(pgStore, matcher)
	contractorWorker.SetLogger(func(level models.LogLevel, city, message string) {
		sqliteStore.Log(nil, level, message, city)
	})
	orchestrator.SetBackfill(func(ctx context.Context) error {
		contractorWorker.ProcessBatch(ctx, 100)
		return nil
	})

	if *backfill {
		log.Println("Running contractor backfill...")
		linked := contractorWorker.ProcessBatch(ctx, 1000)
		log.Printf("Backfill complete, %d permits linked", linked)
		return
	}

	if *scrapeNow || *cityFlag != "" {
		params := &models.CommandParams{
			City:      *cityFlag,
			StartDate: *startDate,
			EndDate:   *endDate,
			Year:      *yearFlag,
			Limit:     *limitFlag,
		}
		if *cityFlag != "" {
			log.Printf("Running scrape for %s...", *cityFlag)
			if err := orchestrator.RunCity(ctx, *cityFlag, params); err != nil {
				log.Fatalf("Scrape failed: %v", err)
			}
		} else {
			log.Println("Running scrape...")
			if err := orchestrator.RunAll(ctx); err != nil {
				log.Fatalf("Scrape failed: %v", err)
			}
		}
		log.Println("Scrape complete!")
		return
	}

	// Daemon mode
	sched := scheduler.New(cfg, orchestrator, sqliteStore)
	sched.SetWorkers(contractorWorker)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	go contractorWorker.Run(ctx, 50, 6*time.Hour)
	log.Println("Contractor worker started")

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

func validateDateFlag(raw string) error {
	if raw == "" {
		return nil
	}
	_, err := time.Parse("2006-01-02", raw)
	return err
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
