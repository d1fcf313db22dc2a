package scraper

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"permitwatch/config"
	"permitwatch/models"
	"permitwatch/pdfdoc"
	"permitwatch/storage"
)

// MonthlyReportStrategy serves cities that publish no searchable portal at
// all, only a monthly PDF of issued permits linked from a reports page. It
// locates the month's link, downloads and archives the report, and mines
// permit records out of the extracted text.
type MonthlyReportStrategy struct {
	cfg       *config.CityConfig
	http      *resty.Client
	artifacts *storage.ArtifactStore
}

func NewMonthlyReportStrategy(cfg *config.CityConfig, http *resty.Client, artifacts *storage.ArtifactStore) *MonthlyReportStrategy {
	return &MonthlyReportStrategy{cfg: cfg, http: http, artifacts: artifacts}
}

func (s *MonthlyReportStrategy) Extract(ctx context.Context, req Request) ([]models.PermitRecord, error) {
	reportURL, err := s.findReportLink(ctx, req.Year, req.Month)
	if err != nil {
		return nil, err
	}
	log.Printf("[%s] monthly report for %s %d: %s", s.cfg.City, req.Month, req.Year, reportURL)

	resp, err := s.http.R().SetContext(ctx).Get(reportURL)
	if err != nil {
		return nil, fmt.Errorf("download report: %w", err)
	}
	data := resp.Body()
	if !pdfdoc.IsPDF(data) {
		return nil, fmt.Errorf("report at %s is not a PDF (%d bytes)", reportURL, len(data))
	}

	s.artifacts.ArchiveReport(ctx, s.cfg.City, req.Year, int(req.Month), data)

	text, err := pdfdoc.ExtractText(data)
	if err != nil {
		return nil, fmt.Errorf("extract report text: %w", err)
	}

	records := s.mineRecords(text, reportURL)
	if req.Limit > 0 && len(records) > req.Limit {
		records = records[:req.Limit]
	}
	log.Printf("[%s] report yielded %d permits", s.cfg.City, len(records))
	return records, nil
}

// findReportLink scans the report index page for the anchor naming the
// requested month. City sites name the links inconsistently (full month
// name, abbreviation, or numeric), so every known shape is tried.
func (s *MonthlyReportStrategy) findReportLink(ctx context.Context, year int, month time.Month) (string, error) {
	indexURL := s.cfg.ReportIndexURL
	if indexURL == "" {
		indexURL = s.cfg.URL
	}

	resp, err := s.http.R().SetContext(ctx).Get(indexURL)
	if err != nil {
		return "", fmt.Errorf("fetch report index: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return "", fmt.Errorf("parse report index: %w", err)
	}

	var found string
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		label := a.Text() + " " + href
		if monthLinkMatches(label, year, month) {
			found = href
			return false
		}
		return true
	})
	if found == "" {
		return "", fmt.Errorf("no report link for %s %d on %s", month, year, indexURL)
	}
	return resolveURL(indexURL, found), nil
}

// monthLinkMatches accepts "January 2025", "Jan 2025", "01/2025", "1-2025"
// and "2025-01" shapes, requiring the year to appear in all of them.
func monthLinkMatches(label string, year int, month time.Month) bool {
	lower := strings.ToLower(label)
	yearStr := fmt.Sprintf("%d", year)
	if !strings.Contains(lower, yearStr) {
		return false
	}

	name := strings.ToLower(month.String())
	if strings.Contains(lower, name) || strings.Contains(lower, name[:3]) {
		return true
	}

	numeric := []string{
		fmt.Sprintf("%d/%d", int(month), year),
		fmt.Sprintf("%02d/%d", int(month), year),
		fmt.Sprintf("%d-%02d", year, int(month)),
		fmt.Sprintf("%02d-%d", int(month), year),
	}
	for _, form := range numeric {
		if strings.Contains(lower, form) {
			return true
		}
	}
	return false
}

var (
	reportPermitRegex = regexp.MustCompile(`\b(20\d{2}-\d{3,6})\b`)
	reportValueRegex  = regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?`)
	reportDateRegex   = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	reportStreetRegex = regexp.MustCompile(`\b\d+ [A-Z][A-Z0-9 .'-]*?\b(?:ST|AVE|AV|DR|RD|BLVD|LN|CT|PL|WAY|CIR|TER|HWY|PKWY|REAL)\b`)
	// Matches the contractor label with an optional trailing business name.
	// Owner-performed work appears as a bare "Owner/Builder" label.
	reportContractorRegex = regexp.MustCompile(`(?i)\b(contractor|owner[ /]?builder)\s*:?\s*([A-Za-z][A-Za-z&.,' -]{2,59})?`)
)

// reportWindow caps how far past a permit number sub-field mining looks
// when the next permit number is further away than this.
const reportWindow = 400

// mineRecords slices the report text at each permit number and mines the
// window up to the next one for the fields monthly reports carry. Reports
// are issued-permits listings, so every record starts out as Issued.
func (s *MonthlyReportStrategy) mineRecords(text, sourceURL string) []models.PermitRecord {
	matches := reportPermitRegex.FindAllStringIndex(text, -1)
	seen := make(map[string]bool)
	var records []models.PermitRecord

	for i, loc := range matches {
		number := text[loc[0]:loc[1]]
		if seen[number] {
			continue
		}
		seen[number] = true

		end := len(text)
		if i+1 < len(matches) && matches[i+1][0] < end {
			end = matches[i+1][0]
		}
		if end > loc[1]+reportWindow {
			end = loc[1] + reportWindow
		}
		window := text[loc[1]:end]

		rec := models.PermitRecord{
			PermitNumber: number,
			City:         s.cfg.City,
			Status:       "Issued",
			SourceURL:    sourceURL,
			BatchIndex:   -1,
		}
		if m := reportStreetRegex.FindString(window); m != "" {
			rec.Address = strings.TrimSpace(m)
		}
		if m := reportValueRegex.FindString(window); m != "" {
			if v, ok := parseMoney(m); ok {
				rec.Value = &v
			}
		}
		if m := reportDateRegex.FindString(window); m != "" {
			rec.AppliedDateString = m
		}
		rec.LicensedProfessionalText = windowContractor(window)
		rec.Description = windowDescription(window)

		records = append(records, rec)
	}

	return records
}

// windowDescription takes the free text before the first structured token
// as the permit description.
func windowDescription(window string) string {
	cut := len(window)
	for _, re := range []*regexp.Regexp{reportValueRegex, reportDateRegex, reportStreetRegex, reportContractorRegex} {
		if loc := re.FindStringIndex(window); loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}
	desc := strings.Join(strings.Fields(window[:cut]), " ")
	return strings.Trim(desc, " -:|")
}

// windowContractor mines the contractor sub-field. A labeled business name
// wins; a bare owner-builder label is recorded as such so the record is not
// queued for registry matching against an empty name.
func windowContractor(window string) string {
	m := reportContractorRegex.FindStringSubmatch(window)
	if m == nil {
		return ""
	}
	if name := strings.Trim(strings.TrimSpace(m[2]), ",.-"); name != "" {
		return name
	}
	if strings.Contains(strings.ToLower(m[1]), "builder") {
		return "Owner/Builder"
	}
	return ""
}

func resolveURL(base, href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if parsed.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(parsed).String()
}
