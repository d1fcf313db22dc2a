package scraper

import (
	"context"
	"testing"
	"time"

	"permitwatch/config"
)

func accelaConfig() *config.CityConfig {
	return &config.CityConfig{
		City:        "Cupertino",
		State:       "CA",
		URL:         "https://aca.test/Cap/CapHome.aspx?module=Building",
		ScraperType: "DAILY",
		Dialect:     "accela",
		Portal:      "accela",
		Selectors: map[string]string{
			"start_date":           "#txtGSStartDate",
			"end_date":             "#txtGSEndDate",
			"search_button":        "#btnNewSearch",
			"results_table":        "#gdvPermitList",
			"next_page":            "a:has-text('Next >')",
			"detail_marker":        "#palPermitDetail",
			"detail_permit_number": "#lblPermitNumber",
			"detail_value":         "span[id*='JobValue']",
			"detail_professional":  "div[id*='licensedProfessional']",
		},
	}
}

const accelaPage1 = `<table id="gdvPermitList">
	<tr><th>Date</th><th>Record Number</th><th>Record Type</th><th>Description</th><th>Status</th><th>Address</th></tr>
	<tr><td>01/15/2025</td><td>BLD-2025-0101</td><td>Building</td><td>Kitchen remodel</td><td>Issued</td><td>957 S TANTAU AVE, CUPERTINO CA 95014</td></tr>
	<tr><td>01/15/2025</td><td>BLD-2025-0102</td><td>Electrical</td><td>Panel upgrade</td><td>In Review</td><td>10300 TORRE AVE, CUPERTINO CA 95014</td></tr>
</table>
<a>Next ></a>`

const accelaPage2 = `<table id="gdvPermitList">
	<tr><th>Date</th><th>Record Number</th><th>Record Type</th><th>Description</th><th>Status</th><th>Address</th></tr>
	<tr><td>01/16/2025</td><td>BLD-2025-0103</td><td>Plumbing</td><td>Repipe</td><td>Finaled</td><td>1 INFINITE LOOP, CUPERTINO CA 95014</td></tr>
</table>`

func TestTableDetailExtract_PagesThroughGrid(t *testing.T) {
	driver := newFakeDriver("#btnNewSearch")
	driver.pages["01/16/2025"] = accelaPage1
	driver.clickPages["a:has-text('Next >')"] = accelaPage2

	strategy := NewTableDetailStrategy(accelaConfig(), driver)
	req := Request{
		StartDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC),
	}

	records, err := strategy.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if driver.fills["#txtGSStartDate"] != "01/15/2025" || driver.fills["#txtGSEndDate"] != "01/16/2025" {
		t.Fatalf("date fills = %q / %q", driver.fills["#txtGSStartDate"], driver.fills["#txtGSEndDate"])
	}

	first := records[0]
	if first.PermitNumber != "BLD-2025-0101" {
		t.Fatalf("permit number = %q", first.PermitNumber)
	}
	if first.AppliedDateString != "01/15/2025" || first.Status != "Issued" {
		t.Fatalf("row fields = %q / %q", first.AppliedDateString, first.Status)
	}
	if first.Address != "957 S TANTAU AVE, CUPERTINO CA 95014" {
		t.Fatalf("address = %q", first.Address)
	}
	if records[2].PermitNumber != "BLD-2025-0103" {
		t.Fatalf("page 2 record = %q", records[2].PermitNumber)
	}
}

// A single-hit date range renders the detail page directly, with no grid.
const accelaDetailPage = `<div id="palPermitDetail">
	<span id="lblPermitNumber">BLD-2025-0200</span>
</div>`

func TestTableDetailExtract_SingleResultLandsOnDetailPage(t *testing.T) {
	driver := newFakeDriver("#btnNewSearch")
	driver.pages["01/16/2025"] = accelaDetailPage
	driver.texts["#lblPermitNumber"] = " BLD-2025-0200 "
	driver.texts["span[id*='JobValue']"] = "$12,000.00"
	driver.texts["div[id*='licensedProfessional']"] = "VALLEY BUILDERS INC\nLIC# 1054321"

	strategy := NewTableDetailStrategy(accelaConfig(), driver)
	req := Request{
		StartDate: time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC),
	}

	records, err := strategy.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.PermitNumber != "BLD-2025-0200" {
		t.Fatalf("permit number = %q", rec.PermitNumber)
	}
	if rec.Value == nil || *rec.Value != 12000 {
		t.Fatalf("value = %v, want 12000", rec.Value)
	}
	if rec.LicensedProfessionalText != "VALLEY BUILDERS INC\nLIC# 1054321" {
		t.Fatalf("professional = %q", rec.LicensedProfessionalText)
	}
	if rec.SourceURL == "" {
		t.Fatal("detail record should carry the page URL")
	}
}

func TestDetailPermitNumber_FallsBackThroughCandidates(t *testing.T) {
	driver := newFakeDriver("#btnNewSearch")
	// Configured selector finds nothing; a fallback spot carries the number.
	driver.texts["span[id*='RecordNumber']"] = " BLD-2025-0300 "

	strategy := NewTableDetailStrategy(accelaConfig(), driver)
	if got := strategy.detailPermitNumber(); got != "BLD-2025-0300" {
		t.Fatalf("detailPermitNumber = %q, want fallback value", got)
	}

	// Configured selector wins when present.
	driver.texts["#lblPermitNumber"] = "BLD-2025-0301"
	if got := strategy.detailPermitNumber(); got != "BLD-2025-0301" {
		t.Fatalf("detailPermitNumber = %q, want configured selector value", got)
	}

	// Every candidate blank means no record.
	empty := newFakeDriver("#btnNewSearch")
	blank := NewTableDetailStrategy(accelaConfig(), empty)
	if got := blank.detailPermitNumber(); got != "" {
		t.Fatalf("detailPermitNumber = %q, want empty", got)
	}
}

func TestTableDetailExtract_EmptyResults(t *testing.T) {
	driver := newFakeDriver("#btnNewSearch")
	// No scripted page: the grid never renders.

	strategy := NewTableDetailStrategy(accelaConfig(), driver)
	req := Request{
		StartDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC),
	}

	records, err := strategy.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("empty results must not be an error, got %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
}

func TestTableDetailExtract_LimitTruncates(t *testing.T) {
	driver := newFakeDriver("#btnNewSearch")
	driver.pages["01/16/2025"] = accelaPage1
	driver.clickPages["a:has-text('Next >')"] = accelaPage2

	strategy := NewTableDetailStrategy(accelaConfig(), driver)
	req := Request{
		StartDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC),
		Limit:     1,
	}

	records, err := strategy.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
}
