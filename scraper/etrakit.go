package scraper

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"permitwatch/browser"
	"permitwatch/config"
	"permitwatch/models"
)

const (
	maxBatchesPerPrefix = 20
	beginsWithOperator  = "BEGINS_WITH"
)

// BatchPrefixStrategy sweeps portals with no date search at all. Permit
// numbers follow PREFIX<year>-<suffix>, so a begins-with search on the
// suffix's leading digits returns one batch of consecutive permits. The
// sweep resumes from the last batch stored for each prefix and walks
// forward until a batch comes back short, which marks the issuing frontier.
type BatchPrefixStrategy struct {
	cfg      *config.CityConfig
	driver   browser.Driver
	suffixes SuffixFinder
}

func NewBatchPrefixStrategy(cfg *config.CityConfig, driver browser.Driver, suffixes SuffixFinder) *BatchPrefixStrategy {
	return &BatchPrefixStrategy{cfg: cfg, driver: driver, suffixes: suffixes}
}

func (s *BatchPrefixStrategy) Extract(ctx context.Context, req Request) ([]models.PermitRecord, error) {
	if err := s.driver.Navigate(s.cfg.URL, navTimeout); err != nil {
		return nil, fmt.Errorf("navigate to portal: %w", err)
	}
	s.settle()

	var records []models.PermitRecord

	for _, prefix := range s.cfg.Prefixes {
		select {
		case <-ctx.Done():
			return records, ctx.Err()
		default:
		}

		largest, found, err := s.suffixes.FindLargestSuffix(ctx, prefix, s.cfg.City)
		if err != nil {
			return records, fmt.Errorf("plan sweep for %s: %w", prefix, err)
		}
		start := StartingBatch(largest, found)
		log.Printf("[%s] prefix %s: resuming at batch %d", s.cfg.City, prefix, start)

		for batch := start; batch < start+maxBatchesPerPrefix; batch++ {
			rows, err := s.searchBatch(prefix, req.Year, batch)
			if err != nil {
				return records, err
			}
			if len(rows) == 0 {
				break
			}

			for _, row := range rows {
				rec := row.record
				rec.BatchIndex = batch
				s.enrichFromDetail(&rec, prefix, req.Year, batch)
				records = append(records, rec)
				if req.Limit > 0 && len(records) >= req.Limit {
					return records, nil
				}
			}

			// A short batch means the portal has not issued past it yet.
			if len(rows) < s.cfg.MaxResultsPerBatch {
				break
			}
		}
	}

	return records, nil
}

// searchBatch runs one begins-with search and parses the results grid.
func (s *BatchPrefixStrategy) searchBatch(prefix string, year, batch int) ([]resultsRow, error) {
	sel := s.cfg.Selectors
	query := s.batchQuery(prefix, year, batch)

	if err := s.driver.SelectOption(sel["search_operator"], beginsWithOperator); err != nil {
		return nil, fmt.Errorf("set search operator: %w", err)
	}
	if err := s.driver.Fill(sel["search_field"], query); err != nil {
		return nil, fmt.Errorf("fill search field: %w", err)
	}
	if _, err := s.driver.Click(sel["search_button"]); err != nil {
		return nil, fmt.Errorf("submit search %s: %w", query, err)
	}
	s.settle()

	if s.driver.IsVisible(sel["no_results"]) {
		log.Printf("[%s] %s: no results", s.cfg.City, query)
		return nil, nil
	}
	if err := s.driver.WaitForSelector(sel["results_grid"], selectorWait); err != nil {
		return nil, fmt.Errorf("results grid for %s: %w", query, err)
	}

	html, err := s.driver.Content()
	if err != nil {
		return nil, fmt.Errorf("read results for %s: %w", query, err)
	}
	rows, err := parseResultsTable(html, sel["results_grid"], s.cfg.City)
	if err != nil {
		return nil, fmt.Errorf("parse results for %s: %w", query, err)
	}
	log.Printf("[%s] %s: %d rows", s.cfg.City, query, len(rows))
	return rows, nil
}

// batchQuery builds the begins-with term: BLDG2025-012 covers suffixes
// 0120 through 0129 when permits carry four-digit suffixes.
func (s *BatchPrefixStrategy) batchQuery(prefix string, year, batch int) string {
	width := s.cfg.SuffixDigits - 1
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("%s%d-%0*d", prefix, year, width, batch)
}

// enrichFromDetail clicks through to the permit's detail page, walks the
// configured tabs, and returns to the grid. Failures degrade to a grid-only
// record; a broken back link is repaired by re-running the batch search.
func (s *BatchPrefixStrategy) enrichFromDetail(rec *models.PermitRecord, prefix string, year, batch int) {
	sel := s.cfg.Selectors

	linkSel := fmt.Sprintf("a:has-text('%s')", rec.PermitNumber)
	if _, err := s.driver.Click(linkSel, sel["row_link"]); err != nil {
		log.Printf("Warning: [%s] detail link for %s: %v", s.cfg.City, rec.PermitNumber, err)
		return
	}
	s.settle()
	rec.SourceURL = s.driver.CurrentURL()

	for _, tab := range s.cfg.DetailTabs {
		if _, err := s.driver.Click(fmt.Sprintf("a:has-text('%s')", tab)); err != nil {
			log.Printf("Warning: [%s] tab %q for %s: %v", s.cfg.City, tab, rec.PermitNumber, err)
			continue
		}
		s.settle()

		html, err := s.driver.Content()
		if err != nil {
			log.Printf("Warning: [%s] read tab %q for %s: %v", s.cfg.City, tab, rec.PermitNumber, err)
			continue
		}
		mergeDetailFields(rec, html)
	}

	if _, err := s.driver.Click(sel["back_link"], "a:has-text('Search Results')"); err != nil {
		// The grid is gone; re-issue the search to land back on it.
		log.Printf("Warning: [%s] back link for %s: %v, re-running search", s.cfg.City, rec.PermitNumber, err)
		if _, err := s.searchBatch(prefix, year, batch); err != nil {
			log.Printf("Warning: [%s] recovery search failed: %v", s.cfg.City, err)
		}
		return
	}
	s.settle()
}

// detailLabels maps label text fragments to record fields. Detail tabs
// render label/value pairs in two-cell table rows.
var detailLabels = []struct {
	fragment string
	apply    func(*models.PermitRecord, string)
}{
	{"description", func(r *models.PermitRecord, v string) {
		if r.Description == "" {
			r.Description = v
		}
	}},
	{"site address", func(r *models.PermitRecord, v string) {
		if r.Address == "" {
			r.Address = v
		}
	}},
	{"applied", func(r *models.PermitRecord, v string) {
		if r.AppliedDateString == "" {
			r.AppliedDateString = v
		}
	}},
	{"valuation", func(r *models.PermitRecord, v string) {
		if r.Value == nil {
			if amount, ok := parseMoney(v); ok {
				r.Value = &amount
			}
		}
	}},
	{"job value", func(r *models.PermitRecord, v string) {
		if r.Value == nil {
			if amount, ok := parseMoney(v); ok {
				r.Value = &amount
			}
		}
	}},
	{"contractor", func(r *models.PermitRecord, v string) {
		if r.LicensedProfessionalText == "" {
			r.LicensedProfessionalText = v
		}
	}},
	{"status", func(r *models.PermitRecord, v string) {
		if r.Status == "" {
			r.Status = v
		}
	}},
	{"type", func(r *models.PermitRecord, v string) {
		if r.PermitType == "" {
			r.PermitType = v
		}
	}},
}

// mergeDetailFields scans a detail tab's label/value rows into the record.
// Grid values win; the detail only fills what is still empty.
func mergeDetailFields(rec *models.PermitRecord, html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() != 2 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(cells.First().Text()))
		value := strings.TrimSpace(cells.Last().Text())
		if label == "" || value == "" {
			return
		}
		for _, entry := range detailLabels {
			if strings.Contains(label, entry.fragment) {
				entry.apply(rec, value)
				break
			}
		}
	})
}

func (s *BatchPrefixStrategy) settle() {
	ms := s.cfg.SettleMS
	if ms <= 0 {
		ms = 1000
	}
	s.driver.Settle(ms, ms*2)
}
