package scraper

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// fakeDriver scripts a portal: each search query maps to the results page
// the portal would render, and individual clicks can swap pages too (for
// pagination). Visibility mirrors the current page content.
type fakeDriver struct {
	searchButton string
	pages        map[string]string // search query -> page html
	clickPages   map[string]string // clicked selector -> page html

	lastQuery string
	html      string
	navErr    error
	clicks    []string
	fills     map[string]string
	texts     map[string]string // selector -> text for ReadText
	selects   map[string]string
	checks    []string
	closed    bool
}

func newFakeDriver(searchButton string) *fakeDriver {
	return &fakeDriver{
		searchButton: searchButton,
		pages:        make(map[string]string),
		clickPages:   make(map[string]string),
		fills:        make(map[string]string),
		texts:        make(map[string]string),
		selects:      make(map[string]string),
	}
}

func (d *fakeDriver) Navigate(string, time.Duration) error { return d.navErr }

func (d *fakeDriver) Fill(selector, value string) error {
	d.fills[selector] = value
	d.lastQuery = value
	return nil
}

func (d *fakeDriver) Click(candidates ...string) (string, error) {
	d.clicks = append(d.clicks, candidates[0])
	if candidates[0] == d.searchButton {
		d.html = d.pages[d.lastQuery]
	} else if page, ok := d.clickPages[candidates[0]]; ok {
		d.html = page
	}
	return candidates[0], nil
}

func (d *fakeDriver) Check(selector string) error {
	d.checks = append(d.checks, selector)
	return nil
}

func (d *fakeDriver) SelectOption(selector, value string) error {
	d.selects[selector] = value
	return nil
}

func (d *fakeDriver) WaitForSelector(selector string, _ time.Duration) error {
	if !d.IsVisible(selector) {
		return fmt.Errorf("selector %s not found", selector)
	}
	return nil
}

var hasTextRegex = regexp.MustCompile(`has-text\('([^']+)'\)`)

func (d *fakeDriver) IsVisible(selector string) bool {
	if strings.Contains(selector, "NoSearchRslts") {
		return d.html == ""
	}
	if m := hasTextRegex.FindStringSubmatch(selector); m != nil {
		return strings.Contains(d.html, m[1])
	}
	if strings.HasPrefix(selector, "#") {
		return strings.Contains(d.html, strings.TrimPrefix(selector, "#"))
	}
	return d.html != ""
}

func (d *fakeDriver) ReadText(selector string) (string, error) {
	if text, ok := d.texts[selector]; ok {
		return text, nil
	}
	return "", fmt.Errorf("no element")
}
func (d *fakeDriver) Content() (string, error)        { return d.html, nil }
func (d *fakeDriver) CurrentURL() string              { return "https://portal.test/detail" }
func (d *fakeDriver) Evaluate(string) (interface{}, error) {
	return nil, nil
}
func (d *fakeDriver) NewTab() error           { return nil }
func (d *fakeDriver) CloseTab() error         { return nil }
func (d *fakeDriver) Screenshot(string) error { return nil }
func (d *fakeDriver) Settle(int, int)         {}
func (d *fakeDriver) Close()                  { d.closed = true }
