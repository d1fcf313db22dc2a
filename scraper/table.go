package scraper

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"permitwatch/models"
)

// resultsRow is one parsed row of a portal's results grid, plus the detail
// link when the grid carries one.
type resultsRow struct {
	record models.PermitRecord
	href   string
}

// columnRoles maps normalized header text to record fields. Portals label
// the same column differently; first match wins per role.
var columnRoles = map[string]string{
	"record number":       "number",
	"permit number":       "number",
	"record #":            "number",
	"permit #":            "number",
	"permit no":           "number",
	"date":                "date",
	"applied":             "date",
	"application date":    "date",
	"issued date":         "date",
	"record type":         "type",
	"permit type":         "type",
	"type":                "type",
	"description":         "description",
	"project description": "description",
	"short notes":         "description",
	"project name":        "title",
	"status":              "status",
	"address":             "address",
	"site address":        "address",
	"location":            "address",
	"valuation":           "value",
	"job value":           "value",
}

// parseResultsTable walks the grid under tableSelector: the first row with
// header cells defines the column layout, every later row becomes a record.
// Rows without a permit number are pagination chrome and are dropped.
func parseResultsTable(html, tableSelector, city string) ([]resultsRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := doc.Find(tableSelector).First()
	if table.Length() == 0 {
		return nil, nil
	}

	var layout map[int]string
	var rows []resultsRow

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if layout == nil {
			if candidate := headerLayout(tr); candidate != nil {
				layout = candidate
			}
			return
		}

		// Pager and spinner rows render as a single wide cell; data rows
		// span the full column layout.
		if tr.Find("td").Length() < len(layout) {
			return
		}

		rec := models.PermitRecord{City: city, BatchIndex: -1}
		var href string
		tr.Find("td").Each(func(col int, td *goquery.Selection) {
			text := strings.TrimSpace(td.Text())
			if link, ok := td.Find("a").First().Attr("href"); ok && href == "" {
				href = link
			}
			switch layout[col] {
			case "number":
				rec.PermitNumber = text
			case "date":
				rec.AppliedDateString = text
			case "type":
				rec.PermitType = text
			case "description":
				rec.Description = text
			case "title":
				rec.Title = text
			case "status":
				rec.Status = text
			case "address":
				rec.Address = text
			case "value":
				if v, ok := parseMoney(text); ok {
					rec.Value = &v
				}
			}
		})

		if rec.PermitNumber == "" {
			return
		}
		rows = append(rows, resultsRow{record: rec, href: href})
	})

	return rows, nil
}

// headerLayout maps column index to role for a header row, or nil when the
// row has no recognizable headers.
func headerLayout(tr *goquery.Selection) map[int]string {
	cells := tr.Find("th")
	if cells.Length() == 0 {
		cells = tr.Find("td")
	}

	layout := make(map[int]string)
	cells.Each(func(col int, cell *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(cell.Text()))
		if role, ok := columnRoles[text]; ok {
			layout[col] = role
		}
	})

	if _, ok := roleIndex(layout, "number"); !ok {
		return nil
	}
	return layout
}

func roleIndex(layout map[int]string, role string) (int, bool) {
	for col, r := range layout {
		if r == role {
			return col, true
		}
	}
	return 0, false
}

// parseMoney reads "$1,234,567.00" style amounts.
func parseMoney(text string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.':
			return r
		case r == '$', r == ',', r == ' ':
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(text))
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
