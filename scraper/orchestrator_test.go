package scraper

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"permitwatch/browser"
	"permitwatch/config"
	"permitwatch/models"
	"permitwatch/storage"
)

func testOrchestrator(t *testing.T, cities map[string]*config.CityConfig) *Orchestrator {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "ops.db"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewOrchestrator(&config.Config{Cities: cities}, store)
}

func TestRunCity_UnknownCity(t *testing.T) {
	o := testOrchestrator(t, map[string]*config.CityConfig{})

	if err := o.RunCity(context.Background(), "Atlantis", nil); err == nil {
		t.Fatal("expected an error for an unknown city")
	}
}

func TestRunCity_DisabledCityIsNoOp(t *testing.T) {
	o := testOrchestrator(t, map[string]*config.CityConfig{
		"Campbell": {City: "Campbell", Enabled: false, Portal: "spa"},
	})
	o.newDriver = func() browser.Driver {
		t.Fatal("driver must not be created for a disabled city")
		return nil
	}

	if err := o.RunCity(context.Background(), "Campbell", nil); err != nil {
		t.Fatalf("disabled city must be a no-op, got %v", err)
	}
}

func TestBuildRequest_MonthlyDefaultsToPreviousMonth(t *testing.T) {
	o := testOrchestrator(t, nil)
	cfg := &config.CityConfig{City: "Mountain View", ScraperType: string(models.ScraperMonthly)}

	req, err := o.buildRequest(cfg, nil)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}

	prev := time.Now().AddDate(0, -1, 0)
	if req.Year != prev.Year() || req.Month != prev.Month() {
		t.Fatalf("req = %d-%s, want %d-%s", req.Year, req.Month, prev.Year(), prev.Month())
	}
}

func TestBuildRequest_ExplicitDatesWin(t *testing.T) {
	o := testOrchestrator(t, nil)
	cfg := &config.CityConfig{City: "Cupertino", ScraperType: string(models.ScraperDaily)}

	req, err := o.buildRequest(cfg, &models.CommandParams{
		StartDate: "2025-01-15",
		EndDate:   "2025-01-16",
		Limit:     25,
	})
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}

	if !req.StartDate.Equal(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start date = %v", req.StartDate)
	}
	if !req.EndDate.Equal(time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end date = %v", req.EndDate)
	}
	if req.Limit != 25 {
		t.Fatalf("limit = %d", req.Limit)
	}
}

func TestBuildRequest_RejectsBadDate(t *testing.T) {
	o := testOrchestrator(t, nil)
	cfg := &config.CityConfig{City: "Cupertino", ScraperType: string(models.ScraperDaily)}

	if _, err := o.buildRequest(cfg, &models.CommandParams{StartDate: "not-a-date"}); err == nil {
		t.Fatal("expected an error for an unparseable date")
	}
}
