package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"permitwatch/browser"
	"permitwatch/config"
	"permitwatch/models"
	"permitwatch/storage"
)

// Request scopes one extraction run. Date-driven strategies read StartDate
// and EndDate, the ID sweep reads Year, the monthly report reads Year and
// Month. Limit of 0 means unlimited.
type Request struct {
	StartDate time.Time
	EndDate   time.Time
	Year      int
	Month     time.Month
	Limit     int
}

// Strategy is one way of pulling permit records out of a city portal.
// Extract returns an error only when the run as a whole cannot proceed
// (navigation or setup failure); per-record trouble is logged and skipped.
type Strategy interface {
	Extract(ctx context.Context, req Request) ([]models.PermitRecord, error)
}

// SuffixFinder is the slice of the permit store the batch sweep reads to
// resume where the previous run stopped.
type SuffixFinder interface {
	FindLargestSuffix(ctx context.Context, prefix, city string) (int, bool, error)
}

// Deps carries the shared services a strategy may need beyond the browser.
type Deps struct {
	Suffixes  SuffixFinder
	HTTP      *resty.Client
	Artifacts *storage.ArtifactStore
}

func NewStrategy(cfg *config.CityConfig, driver browser.Driver, deps Deps) (Strategy, error) {
	switch cfg.Portal {
	case "accela":
		return NewTableDetailStrategy(cfg, driver), nil
	case "etrakit":
		return NewBatchPrefixStrategy(cfg, driver, deps.Suffixes), nil
	case "pdf":
		return NewMonthlyReportStrategy(cfg, deps.HTTP, deps.Artifacts), nil
	case "spa":
		return NewFormFlowStrategy(cfg, driver), nil
	default:
		return nil, fmt.Errorf("unknown portal type: %s", cfg.Portal)
	}
}
