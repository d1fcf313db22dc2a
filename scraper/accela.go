package scraper

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"permitwatch/browser"
	"permitwatch/config"
	"permitwatch/models"
)

const (
	maxResultPages = 100
	navTimeout     = 60 * time.Second
	selectorWait   = 15 * time.Second
	portalDateFmt  = "01/02/2006"
)

// TableDetailStrategy drives portals that take a date range, render a paged
// results grid, and expose a detail page per permit. A range matching a
// single permit renders the detail page directly instead of the grid; both
// shapes are handled.
type TableDetailStrategy struct {
	cfg    *config.CityConfig
	driver browser.Driver
}

func NewTableDetailStrategy(cfg *config.CityConfig, driver browser.Driver) *TableDetailStrategy {
	return &TableDetailStrategy{cfg: cfg, driver: driver}
}

func (s *TableDetailStrategy) Extract(ctx context.Context, req Request) ([]models.PermitRecord, error) {
	sel := s.cfg.Selectors

	if err := s.driver.Navigate(s.cfg.URL, navTimeout); err != nil {
		return nil, fmt.Errorf("navigate to portal: %w", err)
	}
	s.settle()

	if err := s.driver.Fill(sel["start_date"], req.StartDate.Format(portalDateFmt)); err != nil {
		return nil, fmt.Errorf("fill start date: %w", err)
	}
	if err := s.driver.Fill(sel["end_date"], req.EndDate.Format(portalDateFmt)); err != nil {
		return nil, fmt.Errorf("fill end date: %w", err)
	}
	if _, err := s.driver.Click(sel["search_button"]); err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}
	s.settle()

	var records []models.PermitRecord

	for page := 1; page <= maxResultPages; page++ {
		select {
		case <-ctx.Done():
			return records, ctx.Err()
		default:
		}

		// A one-hit search lands on the detail page with no grid at all.
		if s.driver.IsVisible(sel["detail_marker"]) && !s.driver.IsVisible(sel["results_table"]) {
			if rec, ok := s.readDetailPage(); ok {
				records = append(records, rec)
			}
			return records, nil
		}

		if err := s.driver.WaitForSelector(sel["results_table"], selectorWait); err != nil {
			if page == 1 {
				log.Printf("[%s] no results for %s..%s", s.cfg.City,
					req.StartDate.Format(portalDateFmt), req.EndDate.Format(portalDateFmt))
				return records, nil
			}
			return records, fmt.Errorf("results grid missing on page %d: %w", page, err)
		}

		html, err := s.driver.Content()
		if err != nil {
			return records, fmt.Errorf("read page %d: %w", page, err)
		}
		rows, err := parseResultsTable(html, sel["results_table"], s.cfg.City)
		if err != nil {
			return records, fmt.Errorf("parse page %d: %w", page, err)
		}
		log.Printf("[%s] page %d: %d rows (total %d)", s.cfg.City, page, len(rows), len(records)+len(rows))

		for _, row := range rows {
			rec := row.record
			if row.href != "" {
				s.enrichFromDetail(&rec, row.href)
			}
			records = append(records, rec)
			if req.Limit > 0 && len(records) >= req.Limit {
				return records, nil
			}
		}

		if !s.driver.IsVisible(sel["next_page"]) {
			break
		}
		if _, err := s.driver.Click(sel["next_page"]); err != nil {
			log.Printf("Warning: [%s] next-page click failed: %v", s.cfg.City, err)
			break
		}
		s.settle()
	}

	return records, nil
}

// enrichFromDetail opens the permit's detail page in a fresh tab and pulls
// the fields the grid does not carry. Detail trouble is a warning; the grid
// row still stands on its own.
func (s *TableDetailStrategy) enrichFromDetail(rec *models.PermitRecord, href string) {
	detailURL := s.absoluteURL(href)
	if detailURL == "" {
		return
	}

	if err := s.driver.NewTab(); err != nil {
		log.Printf("Warning: [%s] detail tab for %s: %v", s.cfg.City, rec.PermitNumber, err)
		return
	}
	defer s.driver.CloseTab()

	if err := s.driver.Navigate(detailURL, navTimeout); err != nil {
		log.Printf("Warning: [%s] detail page for %s: %v", s.cfg.City, rec.PermitNumber, err)
		return
	}
	s.settle()
	rec.SourceURL = detailURL

	sel := s.cfg.Selectors
	if text, err := s.driver.ReadText(sel["detail_value"]); err == nil {
		if v, ok := parseMoney(text); ok {
			rec.Value = &v
		}
	}
	if text, err := s.driver.ReadText(sel["detail_professional"]); err == nil {
		rec.LicensedProfessionalText = strings.TrimSpace(text)
	}
}

// detailNumberFallbacks are tried after the configured selector. Accela
// skins move the record number around; header and breadcrumb spots cover
// the common layouts.
var detailNumberFallbacks = []string{
	"span[id*='PermitNumber']",
	"span[id*='RecordNumber']",
	".page-title",
	"h1",
}

// detailPermitNumber reads the permit number off a detail page, trying the
// configured selector first and the fallback spots in order. Empty means
// every candidate came up blank.
func (s *TableDetailStrategy) detailPermitNumber() string {
	candidates := append([]string{s.cfg.Selectors["detail_permit_number"]}, detailNumberFallbacks...)
	for _, sel := range candidates {
		if sel == "" {
			continue
		}
		text, err := s.driver.ReadText(sel)
		if err != nil {
			continue
		}
		if number := strings.TrimSpace(text); number != "" {
			return number
		}
	}
	return ""
}

// readDetailPage builds a record from a detail page reached without a grid.
func (s *TableDetailStrategy) readDetailPage() (models.PermitRecord, bool) {
	sel := s.cfg.Selectors
	rec := models.PermitRecord{City: s.cfg.City, BatchIndex: -1, SourceURL: s.driver.CurrentURL()}

	number := s.detailPermitNumber()
	if number == "" {
		log.Printf("Warning: [%s] detail page without a permit number", s.cfg.City)
		return rec, false
	}
	rec.PermitNumber = number

	if text, err := s.driver.ReadText(sel["detail_value"]); err == nil {
		if v, ok := parseMoney(text); ok {
			rec.Value = &v
		}
	}
	if text, err := s.driver.ReadText(sel["detail_professional"]); err == nil {
		rec.LicensedProfessionalText = strings.TrimSpace(text)
	}
	return rec, true
}

func (s *TableDetailStrategy) absoluteURL(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() {
		return href
	}
	base, err := url.Parse(s.cfg.URL)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}

func (s *TableDetailStrategy) settle() {
	ms := s.cfg.SettleMS
	if ms <= 0 {
		ms = 1000
	}
	s.driver.Settle(ms, ms*2)
}
