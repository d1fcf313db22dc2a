package workers

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"permitwatch/models"
	"permitwatch/services"
)

// PermitLinker is the slice of the permit store the backfill needs.
type PermitLinker interface {
	FindUnmatchedPermits(ctx context.Context, limit int) ([]models.Permit, error)
	LinkContractor(ctx context.Context, permitID, contractorID uuid.UUID, role string, confidence float64, method string) error
}

// ContractorWorker sweeps permits that carry professional text but no
// contractor link and retries the match against the registry. New
// contractors land in the registry after the permit was scraped, so a
// permit unmatched today can match next week.
type ContractorWorker struct {
	store     PermitLinker
	matcher   *services.ContractorMatcher
	triggerCh chan struct{}
	logFunc   LogFunc
}

func NewContractorWorker(store PermitLinker, matcher *services.ContractorMatcher) *ContractorWorker {
	return &ContractorWorker{
		store:     store,
		matcher:   matcher,
		triggerCh: make(chan struct{}, 1),
		logFunc:   NoOpLogger,
	}
}

func (w *ContractorWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// Trigger causes the worker to run immediately
func (w *ContractorWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run starts the backfill loop
func (w *ContractorWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Contractor worker stopping")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx, batchSize)
		case <-w.triggerCh:
			log.Println("Contractor worker triggered")
			w.ProcessBatch(ctx, batchSize)
		}
	}
}

// ProcessBatch retries matching for one batch of unlinked permits. Returns
// how many permits were linked.
func (w *ContractorWorker) ProcessBatch(ctx context.Context, batchSize int) int {
	permits, err := w.store.FindUnmatchedPermits(ctx, batchSize)
	if err != nil {
		log.Printf("Contractor backfill: query error: %v", err)
		return 0
	}
	if len(permits) == 0 {
		return 0
	}

	log.Printf("Contractor backfill: processing %d permits", len(permits))

	linked := 0
	for _, p := range permits {
		match, err := w.matcher.Match(ctx, p.ProfessionalText, p.City)
		if err != nil {
			log.Printf("Contractor backfill: match error for %s: %v", p.PermitNumber, err)
			continue
		}
		if match == nil {
			continue
		}

		if err := w.store.LinkContractor(ctx, p.ID, match.ContractorID, "contractor", match.Confidence, match.Method); err != nil {
			log.Printf("Contractor backfill: link error for %s: %v", p.PermitNumber, err)
			continue
		}
		linked++
		w.logFunc(models.LogLevelInfo, p.City,
			"Backfilled contractor for "+p.PermitNumber+" via "+match.Method)
	}

	if linked > 0 {
		log.Printf("Contractor backfill: linked %d of %d permits", linked, len(permits))
	}
	return linked
}
