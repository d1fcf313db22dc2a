package scraper

import (
	"testing"
	"time"

	"permitwatch/config"
)

func TestMonthLinkMatches(t *testing.T) {
	cases := []struct {
		label string
		year  int
		month time.Month
		want  bool
	}{
		{"Building Permits - January 2025", 2025, time.January, true},
		{"permit-report-jan-2025.pdf", 2025, time.January, true},
		{"Permits 01/2025", 2025, time.January, true},
		{"reports/2025-01.pdf", 2025, time.January, true},
		{"Building Permits - January 2024", 2025, time.January, false},
		{"Building Permits - February 2025", 2025, time.January, false},
		{"Annual Summary 2025", 2025, time.January, false},
	}

	for _, c := range cases {
		if got := monthLinkMatches(c.label, c.year, c.month); got != c.want {
			t.Errorf("monthLinkMatches(%q, %d, %s) = %v, want %v", c.label, c.year, c.month, got, c.want)
		}
	}
}

func TestMineRecords(t *testing.T) {
	strategy := &MonthlyReportStrategy{cfg: &config.CityConfig{City: "Mountain View"}}

	text := `Permits Issued - January 2025
2025-0101 New detached garage 123 CASTRO ST $45,000.00 01/08/2025 Contractor: ACME ROOFING INC
2025-0102 Reroof with comp shingle 500 SHORELINE BLVD $18,500 01/12/2025 Owner/Builder
2025-0101 duplicate entry should be dropped`

	records := strategy.mineRecords(text, "https://city.test/report.pdf")
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.PermitNumber != "2025-0101" {
		t.Fatalf("permit number = %q", first.PermitNumber)
	}
	if first.Description != "New detached garage" {
		t.Fatalf("description = %q", first.Description)
	}
	if first.Address != "123 CASTRO ST" {
		t.Fatalf("address = %q", first.Address)
	}
	if first.Value == nil || *first.Value != 45000 {
		t.Fatalf("value = %v, want 45000", first.Value)
	}
	if first.AppliedDateString != "01/08/2025" {
		t.Fatalf("date = %q", first.AppliedDateString)
	}
	if first.Status != "Issued" || first.City != "Mountain View" {
		t.Fatalf("status/city = %q/%q", first.Status, first.City)
	}
	if first.LicensedProfessionalText != "ACME ROOFING INC" {
		t.Fatalf("contractor = %q", first.LicensedProfessionalText)
	}

	if records[1].PermitNumber != "2025-0102" {
		t.Fatalf("second permit = %q", records[1].PermitNumber)
	}
	if records[1].Address != "500 SHORELINE BLVD" {
		t.Fatalf("second address = %q", records[1].Address)
	}
	if records[1].LicensedProfessionalText != "Owner/Builder" {
		t.Fatalf("second contractor = %q", records[1].LicensedProfessionalText)
	}
}

func TestWindowDescription(t *testing.T) {
	window := " Bathroom remodel 44 OAK AVE $9,000 02/01/2025"
	if got := windowDescription(window); got != "Bathroom remodel" {
		t.Fatalf("windowDescription = %q", got)
	}
}
