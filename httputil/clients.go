package httputil

import (
	"time"

	"github.com/go-resty/resty/v2"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Clients struct {
	Scraping *resty.Client // proxied, for city sites and report downloads
	API      *resty.Client // direct, for internal services
}

// NewClients builds the shared HTTP clients. City sites throttle unfamiliar
// agents, so the scraping client presents a browser user agent and retries
// transient failures; report PDFs can run to tens of megabytes, hence the
// long timeout.
func NewClients(proxyURL string) *Clients {
	scraping := resty.New().
		SetTimeout(60 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(5 * time.Second).
		SetHeader("User-Agent", browserUserAgent).
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	if proxyURL != "" {
		scraping.SetProxy(proxyURL)
	}

	return &Clients{
		Scraping: scraping,
		API:      resty.New().SetTimeout(30 * time.Second),
	}
}
