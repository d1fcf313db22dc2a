package browser

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightDriver implements Driver on a persistent Chromium context. One
// driver is held exclusively for the duration of a city's scrape and closed
// in a deferred block regardless of outcome.
type PlaywrightDriver struct {
	pw          *playwright.Playwright
	context     playwright.BrowserContext
	pages       []playwright.Page
	headless    bool
	userDataDir string
	initialized bool
}

type PlaywrightOptions struct {
	Headless    bool
	UserDataDir string
}

func NewPlaywrightDriver(opts PlaywrightOptions) *PlaywrightDriver {
	dir := opts.UserDataDir
	if dir == "" {
		cwd, _ := os.Getwd()
		dir = filepath.Join(cwd, "browser_data")
	}
	return &PlaywrightDriver{headless: opts.Headless, userDataDir: dir}
}

// Start launches the browser. Called lazily by Navigate so a driver can be
// constructed cheaply per city.
func (d *PlaywrightDriver) Start() error {
	if d.initialized {
		return nil
	}

	var err error
	d.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	d.context, err = d.pw.Chromium.LaunchPersistentContext(d.userDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(d.headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		d.pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := d.context.NewPage()
	if err != nil {
		d.context.Close()
		d.pw.Stop()
		return fmt.Errorf("failed to create page: %w", err)
	}
	d.pages = []playwright.Page{page}
	d.initialized = true
	return nil
}

// page returns the current tab. A driver whose Start never succeeded has no
// pages; callers get an error instead of an index panic so a launch failure
// stays a logged failure.
func (d *PlaywrightDriver) page() (playwright.Page, error) {
	if !d.initialized || len(d.pages) == 0 {
		return nil, fmt.Errorf("browser not started")
	}
	return d.pages[len(d.pages)-1], nil
}

func (d *PlaywrightDriver) Navigate(url string, timeout time.Duration) error {
	if err := d.Start(); err != nil {
		return err
	}
	page, err := d.page()
	if err != nil {
		return err
	}
	_, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (d *PlaywrightDriver) Fill(selector, value string) error {
	page, err := d.page()
	if err != nil {
		return err
	}
	if err := page.Locator(selector).First().Fill(value); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (d *PlaywrightDriver) Click(candidates ...string) (string, error) {
	page, err := d.page()
	if err != nil {
		return "", err
	}
	for _, sel := range candidates {
		el := page.Locator(sel).First()
		if visible, _ := el.IsVisible(); visible {
			if err := el.Click(); err != nil {
				log.Printf("Click failed on %s, trying next candidate: %v", sel, err)
				continue
			}
			return sel, nil
		}
	}
	return "", fmt.Errorf("no clickable element among %d candidates", len(candidates))
}

func (d *PlaywrightDriver) Check(selector string) error {
	page, err := d.page()
	if err != nil {
		return err
	}
	loc := page.Locator(selector).First()
	checked, err := loc.IsChecked()
	if err == nil && checked {
		return nil
	}
	if err := loc.Check(); err != nil {
		return fmt.Errorf("check %s: %w", selector, err)
	}
	return nil
}

func (d *PlaywrightDriver) SelectOption(selector, value string) error {
	page, err := d.page()
	if err != nil {
		return err
	}
	_, err = page.Locator(selector).First().SelectOption(playwright.SelectOptionValues{
		Values: &[]string{value},
	})
	if err != nil {
		return fmt.Errorf("select %s: %w", selector, err)
	}
	return nil
}

func (d *PlaywrightDriver) WaitForSelector(selector string, timeout time.Duration) error {
	page, err := d.page()
	if err != nil {
		return err
	}
	err = page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

func (d *PlaywrightDriver) IsVisible(selector string) bool {
	page, err := d.page()
	if err != nil {
		return false
	}
	visible, _ := page.Locator(selector).First().IsVisible()
	return visible
}

func (d *PlaywrightDriver) ReadText(selector string) (string, error) {
	page, err := d.page()
	if err != nil {
		return "", err
	}
	text, err := page.Locator(selector).First().TextContent()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", selector, err)
	}
	return text, nil
}

func (d *PlaywrightDriver) Content() (string, error) {
	page, err := d.page()
	if err != nil {
		return "", err
	}
	return page.Content()
}

func (d *PlaywrightDriver) CurrentURL() string {
	page, err := d.page()
	if err != nil {
		return ""
	}
	return page.URL()
}

func (d *PlaywrightDriver) Evaluate(script string) (interface{}, error) {
	page, err := d.page()
	if err != nil {
		return nil, err
	}
	return page.Evaluate(script)
}

func (d *PlaywrightDriver) NewTab() error {
	if d.context == nil {
		return fmt.Errorf("browser not started")
	}
	page, err := d.context.NewPage()
	if err != nil {
		return fmt.Errorf("new tab: %w", err)
	}
	d.pages = append(d.pages, page)
	return nil
}

func (d *PlaywrightDriver) CloseTab() error {
	if len(d.pages) <= 1 {
		return fmt.Errorf("no side tab to close")
	}
	d.pages[len(d.pages)-1].Close()
	d.pages = d.pages[:len(d.pages)-1]
	return nil
}

func (d *PlaywrightDriver) Screenshot(path string) error {
	page, err := d.page()
	if err != nil {
		return err
	}
	_, err = page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	})
	return err
}

func (d *PlaywrightDriver) Settle(minMs, maxMs int) {
	delay := minMs
	if maxMs > minMs {
		delay += rand.Intn(maxMs - minMs)
	}
	time.Sleep(time.Duration(delay) * time.Millisecond)
}

func (d *PlaywrightDriver) Close() {
	for _, p := range d.pages {
		p.Close()
	}
	d.pages = nil
	if d.context != nil {
		d.context.Close()
		d.context = nil
	}
	if d.pw != nil {
		d.pw.Stop()
		d.pw = nil
	}
	d.initialized = false
}
