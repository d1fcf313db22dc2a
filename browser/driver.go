package browser

import "time"

// Driver is the capability the extraction strategies consume to drive a
// portal. Implementations hide the untyped browser bridge; strategies only
// see this contract. Timeouts surface as errors the strategy converts into
// warnings or a city-level abort.
type Driver interface {
	// Navigate loads a URL and waits for the DOM to be ready.
	Navigate(url string, timeout time.Duration) error
	// Fill sets the value of the first element matching selector.
	Fill(selector, value string) error
	// Click tries the candidate selectors in order and clicks the first one
	// that is visible, returning the selector used.
	Click(candidates ...string) (string, error)
	// Check ticks a checkbox if it is not already checked.
	Check(selector string) error
	// SelectOption picks a value from a <select>.
	SelectOption(selector, value string) error
	// WaitForSelector blocks until selector is attached or timeout elapses.
	WaitForSelector(selector string, timeout time.Duration) error
	// IsVisible reports whether the first match for selector is visible.
	IsVisible(selector string) bool
	// ReadText returns the text content of the first match for selector.
	ReadText(selector string) (string, error)
	// Content returns the full page HTML.
	Content() (string, error)
	// CurrentURL returns the page's current address.
	CurrentURL() string
	// Evaluate runs a script in the page and returns its result.
	Evaluate(script string) (interface{}, error)
	// NewTab opens a tab and makes it current; CloseTab closes the current
	// tab and returns to the previous one.
	NewTab() error
	CloseTab() error
	// Screenshot writes a full-page capture for diagnostics.
	Screenshot(path string) error
	// Settle sleeps a randomized human-like delay. SPA pages have no precise
	// readiness signal, so strategies settle between reactive steps.
	Settle(minMs, maxMs int)
	// Close tears the browser session down. Safe to call more than once.
	Close()
}
