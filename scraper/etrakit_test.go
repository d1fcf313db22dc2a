package scraper

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"permitwatch/config"
)

type fakeSuffixFinder struct {
	largest int
	found   bool
	err     error
}

func (f *fakeSuffixFinder) FindLargestSuffix(_ context.Context, _, _ string) (int, bool, error) {
	return f.largest, f.found, f.err
}

func etrakitConfig() *config.CityConfig {
	return &config.CityConfig{
		City:               "Pleasanton",
		State:              "CA",
		URL:                "https://etrakit.test/Search/permit.aspx",
		ScraperType:        "ID_BASED",
		Dialect:            "etrakit",
		Portal:             "etrakit",
		Prefixes:           []string{"BLDG"},
		SuffixDigits:       4,
		MaxResultsPerBatch: 10,
		Selectors: map[string]string{
			"search_field":    "#cplMain_txtSearchString",
			"search_operator": "#cplMain_ddSearchOper",
			"search_button":   "#cplMain_btnSearch",
			"results_grid":    "#cplMain_rgSearchRslts_ctl00",
			"no_results":      "#cplMain_lblNoSearchRslts",
			"row_link":        "#cplMain_rgSearchRslts_ctl00 td a",
			"back_link":       "a:has-text('Back to Search Results')",
		},
	}
}

// etrakitGrid renders a results grid with count rows of consecutive permit
// numbers starting at batch*10.
func etrakitGrid(batch, count int) string {
	var b strings.Builder
	b.WriteString(`<table id="cplMain_rgSearchRslts_ctl00">`)
	b.WriteString(`<tr><th>Permit Number</th><th>Type</th><th>Status</th><th>Site Address</th></tr>`)
	for i := 0; i < count; i++ {
		number := fmt.Sprintf("BLDG2025-%04d", batch*10+i)
		fmt.Fprintf(&b,
			`<tr><td><a href="/detail/%s">%s</a></td><td>BLDG-SFD</td><td>ISSUED</td><td>%d MAIN ST</td></tr>`,
			number, number, 100+i)
	}
	b.WriteString(`</table>`)
	return b.String()
}

func TestBatchPrefixExtract_ResumesAndStopsAtShortBatch(t *testing.T) {
	driver := newFakeDriver("#cplMain_btnSearch")
	// Batch 2 comes back full, batch 3 short: the sweep must stop there
	// without searching batch 4.
	driver.pages["BLDG2025-002"] = etrakitGrid(2, 10)
	driver.pages["BLDG2025-003"] = etrakitGrid(3, 3)

	cfg := etrakitConfig()
	strategy := NewBatchPrefixStrategy(cfg, driver, &fakeSuffixFinder{largest: 24, found: true})

	records, err := strategy.Extract(context.Background(), Request{Year: 2025})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(records) != 13 {
		t.Fatalf("got %d records, want 13", len(records))
	}
	if records[0].PermitNumber != "BLDG2025-0020" || records[0].BatchIndex != 2 {
		t.Fatalf("first record %s batch %d, want BLDG2025-0020 batch 2", records[0].PermitNumber, records[0].BatchIndex)
	}
	last := records[len(records)-1]
	if last.PermitNumber != "BLDG2025-0032" || last.BatchIndex != 3 {
		t.Fatalf("last record %s batch %d, want BLDG2025-0032 batch 3", last.PermitNumber, last.BatchIndex)
	}

	for _, click := range driver.clicks {
		if strings.Contains(click, "BLDG2025-004") {
			t.Fatalf("searched past the short batch")
		}
	}
	if driver.fills["#cplMain_txtSearchString"] != "BLDG2025-003" {
		t.Fatalf("last search term %q, want BLDG2025-003", driver.fills["#cplMain_txtSearchString"])
	}
}

func TestBatchPrefixExtract_EmptyPortalStartsAtZero(t *testing.T) {
	driver := newFakeDriver("#cplMain_btnSearch")
	// No scripted pages: every search renders the no-results banner.

	cfg := etrakitConfig()
	strategy := NewBatchPrefixStrategy(cfg, driver, &fakeSuffixFinder{})

	records, err := strategy.Extract(context.Background(), Request{Year: 2025})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
	if driver.fills["#cplMain_txtSearchString"] != "BLDG2025-000" {
		t.Fatalf("first search term %q, want BLDG2025-000", driver.fills["#cplMain_txtSearchString"])
	}
}

func TestBatchPrefixExtract_HonorsLimit(t *testing.T) {
	driver := newFakeDriver("#cplMain_btnSearch")
	driver.pages["BLDG2025-000"] = etrakitGrid(0, 10)
	driver.pages["BLDG2025-001"] = etrakitGrid(1, 10)

	cfg := etrakitConfig()
	strategy := NewBatchPrefixStrategy(cfg, driver, &fakeSuffixFinder{})

	records, err := strategy.Extract(context.Background(), Request{Year: 2025, Limit: 5})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
}

func TestBatchPrefixExtract_DetailFillsMissingFields(t *testing.T) {
	driver := newFakeDriver("#cplMain_btnSearch")
	driver.pages["BLDG2025-000"] = etrakitGrid(0, 1)
	// Clicking a detail tab lands on a label/value page.
	driver.clickPages["a:has-text('Permit Info')"] = `<table>
		<tr><td>Description</td><td>New single family dwelling</td></tr>
		<tr><td>Valuation</td><td>$450,000.00</td></tr>
		<tr><td>Applied Date</td><td>03/04/2025</td></tr>
	</table>`

	cfg := etrakitConfig()
	cfg.DetailTabs = []string{"Permit Info"}
	strategy := NewBatchPrefixStrategy(cfg, driver, &fakeSuffixFinder{})

	records, err := strategy.Extract(context.Background(), Request{Year: 2025})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.Description != "New single family dwelling" {
		t.Fatalf("description = %q", rec.Description)
	}
	if rec.Value == nil || *rec.Value != 450000 {
		t.Fatalf("value = %v, want 450000", rec.Value)
	}
	if rec.AppliedDateString != "03/04/2025" {
		t.Fatalf("applied date = %q", rec.AppliedDateString)
	}
	// The grid's address must survive the detail merge.
	if rec.Address != "100 MAIN ST" {
		t.Fatalf("address = %q, want grid value", rec.Address)
	}
}
