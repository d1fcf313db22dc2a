package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"permitwatch/browser"
	"permitwatch/config"
	"permitwatch/models"
	"permitwatch/normalize"
	"permitwatch/services"
	"permitwatch/storage"
)

// Orchestrator runs the configured cities: it picks the strategy for each,
// drives the extraction, and pushes every record through the permit
// pipeline. One city failing never stops the others.
type Orchestrator struct {
	cfg    *config.Config
	store  *storage.SQLiteStore
	paused bool

	pgStore   *storage.PostgresStore
	permits   *services.PermitService
	artifacts *storage.ArtifactStore
	deps      Deps

	// newDriver builds a browser session per run; swapped out in tests.
	newDriver func() browser.Driver

	backfill func(ctx context.Context) error
}

func NewOrchestrator(cfg *config.Config, store *storage.SQLiteStore) *Orchestrator {
	return &Orchestrator{
		cfg:   cfg,
		store: store,
		newDriver: func() browser.Driver {
			return browser.NewPlaywrightDriver(browser.PlaywrightOptions{
				Headless:    cfg.Scraper.Headless,
				UserDataDir: cfg.Scraper.UserDataDir,
			})
		},
	}
}

func (o *Orchestrator) SetServices(pgStore *storage.PostgresStore, permits *services.PermitService, artifacts *storage.ArtifactStore, deps Deps) {
	o.pgStore = pgStore
	o.permits = permits
	o.artifacts = artifacts
	o.deps = deps
}

// SetBackfill registers the contractor backfill entrypoint invoked by the
// matching dashboard command.
func (o *Orchestrator) SetBackfill(fn func(ctx context.Context) error) {
	o.backfill = fn
}

func (o *Orchestrator) RunAll(ctx context.Context) error {
	if o.paused {
		log.Println("Scraper is paused, skipping run")
		return nil
	}

	for _, city := range o.CityNames() {
		if err := o.RunCity(ctx, city, nil); err != nil {
			log.Printf("Error running city %s: %v", city, err)
		}
	}
	return nil
}

func (o *Orchestrator) RunCity(ctx context.Context, city string, params *models.CommandParams) error {
	cityCfg, ok := o.cfg.Cities[city]
	if !ok {
		return fmt.Errorf("unknown city: %s", city)
	}
	if !cityCfg.Enabled {
		o.log(nil, models.LogLevelInfo, "City disabled, skipping", city)
		return nil
	}

	req, err := o.buildRequest(cityCfg, params)
	if err != nil {
		return err
	}

	deps := o.deps
	deps.Artifacts = o.artifacts
	var driver browser.Driver
	if cityCfg.Portal != "pdf" {
		driver = o.newDriver()
		defer driver.Close()
	}

	strategy, err := NewStrategy(cityCfg, driver, deps)
	if err != nil {
		return err
	}

	run := &models.ScrapeRun{
		City:      city,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := o.store.CreateRun(run)
	if err != nil {
		return err
	}
	run.ID = runID

	var pgRun *models.ScrapeRun
	if o.pgStore != nil {
		pgRun = &models.ScrapeRun{City: city, StartedAt: run.StartedAt, Status: models.RunStatusRunning}
		if err := o.pgStore.CreateScrapeRun(ctx, pgRun); err != nil {
			log.Printf("Warning: failed to create Postgres run: %v", err)
			pgRun = nil
		}
	}

	o.log(&run.ID, models.LogLevelInfo, "Starting scrape", city)

	stats := &services.ProcessStats{}

	defer func() {
		now := time.Now()
		run.FinishedAt = &now
		run.PermitsFound = stats.Found
		run.PermitsSaved = stats.Saved
		run.PermitsSkipped = stats.Skipped
		run.ContractorsMatched = stats.ContractorsMatched
		run.ErrorsCount = stats.Errors
		if err := o.store.UpdateRun(run); err != nil {
			log.Printf("Warning: failed to update run: %v", err)
		}
		if err := o.store.UpdateCityStats(city); err != nil {
			log.Printf("Warning: failed to update city stats: %v", err)
		}

		if pgRun != nil {
			pgRun.FinishedAt = run.FinishedAt
			pgRun.Status = run.Status
			pgRun.PermitsFound = run.PermitsFound
			pgRun.PermitsSaved = run.PermitsSaved
			pgRun.PermitsSkipped = run.PermitsSkipped
			pgRun.ContractorsMatched = run.ContractorsMatched
			pgRun.ErrorsCount = run.ErrorsCount
			if err := o.pgStore.UpdateScrapeRun(ctx, pgRun); err != nil {
				log.Printf("Warning: failed to update Postgres run: %v", err)
			}
		}
	}()

	records, err := strategy.Extract(ctx, req)
	if err != nil {
		o.log(&run.ID, models.LogLevelError, fmt.Sprintf("Extraction failed: %v", err), city)
		o.captureFailure(ctx, driver, city)
		run.Status = models.RunStatusFailed
		run.ErrorsCount++
		return err
	}
	stats.Found = len(records)
	o.log(&run.ID, models.LogLevelInfo, fmt.Sprintf("Extracted %d records", len(records)), city)

	for i := range records {
		result, err := o.permits.ProcessPermit(ctx, &records[i], cityCfg)
		if err != nil {
			o.log(&run.ID, models.LogLevelError,
				fmt.Sprintf("Process error for %s: %v", records[i].PermitNumber, err), city)
			stats.Skipped++
			stats.Errors++
			continue
		}
		stats.Aggregate(result)
	}

	run.Status = models.RunStatusCompleted
	o.log(&run.ID, models.LogLevelInfo,
		fmt.Sprintf("Completed: %d found, %d saved, %d skipped, %d contractors matched (%.1f%% match rate)",
			stats.Found, stats.Saved, stats.Skipped, stats.ContractorsMatched, stats.MatchRate()), city)

	return nil
}

// captureFailure grabs a screenshot of whatever the portal was showing
// when extraction died and archives it for diagnosis.
func (o *Orchestrator) captureFailure(ctx context.Context, driver browser.Driver, city string) {
	if driver == nil {
		return
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("permitwatch_%d.png", time.Now().UnixNano()))
	if err := driver.Screenshot(path); err != nil {
		log.Printf("Warning: failure screenshot for %s: %v", city, err)
		return
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	o.artifacts.ArchiveScreenshot(ctx, city, data)
}

// buildRequest resolves the run window. Explicit dates win; otherwise daily
// portals cover from the last recorded run (or yesterday) through today,
// monthly reports target the previous calendar month, and ID sweeps target
// the current year.
func (o *Orchestrator) buildRequest(cityCfg *config.CityConfig, params *models.CommandParams) (Request, error) {
	now := time.Now()
	req := Request{Year: now.Year()}

	switch cityCfg.ScraperType {
	case string(models.ScraperDaily):
		req.EndDate = now
		req.StartDate = now.AddDate(0, 0, -1)
		if o.store != nil {
			if last, err := o.store.GetLastRunTime(cityCfg.City); err == nil && !last.IsZero() {
				req.StartDate = last
			}
		}
	case string(models.ScraperMonthly):
		prev := now.AddDate(0, -1, 0)
		req.Year = prev.Year()
		req.Month = prev.Month()
	}

	if params != nil {
		req.Limit = params.Limit
		if params.Year > 0 {
			req.Year = params.Year
		}
		if params.StartDate != "" {
			d, err := parseRequestDate(params.StartDate)
			if err != nil {
				return req, fmt.Errorf("start date: %w", err)
			}
			req.StartDate = d
			req.Year = d.Year()
			req.Month = d.Month()
		}
		if params.EndDate != "" {
			d, err := parseRequestDate(params.EndDate)
			if err != nil {
				return req, fmt.Errorf("end date: %w", err)
			}
			req.EndDate = d
		}
	}
	return req, nil
}

// parseRequestDate accepts ISO dates from the CLI and the portal's own
// slash format from dashboard commands.
func parseRequestDate(raw string) (time.Time, error) {
	if d, err := time.Parse("2006-01-02", raw); err == nil {
		return d, nil
	}
	if d, ok := normalize.ParseDate(raw); ok {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

func (o *Orchestrator) HandleCommand(cmd *models.Command) error {
	params, err := o.store.ParseCommandParams(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()

	switch cmd.Command {
	case models.CmdScrapeNow:
		return o.RunAll(ctx)
	case models.CmdScrapeCity:
		if params.City != "" {
			return o.RunCity(ctx, params.City, params)
		}
		return o.RunAll(ctx)
	case models.CmdPause:
		o.paused = true
		log.Println("Scraper paused")
	case models.CmdResume:
		o.paused = false
		log.Println("Scraper resumed")
	case models.CmdRunContractor:
		if o.backfill != nil {
			return o.backfill(ctx)
		}
	}

	return nil
}

func (o *Orchestrator) IsPaused() bool {
	return o.paused
}

func (o *Orchestrator) log(runID *int64, level models.LogLevel, message, city string) {
	log.Printf("[%s] %s: %s", level, city, message)
	o.store.Log(runID, level, message, city)
}

// CityNames returns the configured cities in stable order.
func (o *Orchestrator) CityNames() []string {
	names := make([]string, 0, len(o.cfg.Cities))
	for name := range o.cfg.Cities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (o *Orchestrator) MarshalStatus() ([]byte, error) {
	status := map[string]interface{}{
		"paused": o.paused,
		"cities": o.CityNames(),
	}
	return json.Marshal(status)
}
