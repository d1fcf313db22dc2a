package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"permitwatch/config"
	"permitwatch/models"
	"permitwatch/normalize"
	"permitwatch/storage"
)

// PermitService turns raw scraped records into persisted permits: field
// normalization, classification, contractor matching, upsert.
type PermitService struct {
	store      *storage.PostgresStore
	classifier *ClassifierService
	matcher    *ContractorMatcher
}

func NewPermitService(store *storage.PostgresStore, classifier *ClassifierService, matcher *ContractorMatcher) *PermitService {
	return &PermitService{
		store:      store,
		classifier: classifier,
		matcher:    matcher,
	}
}

// ProcessResult is the outcome of processing one permit record.
type ProcessResult struct {
	PermitID          uuid.UUID
	IsNew             bool
	ContractorMatched bool
}

// ProcessStats aggregates a run's outcomes for end-of-run reporting.
type ProcessStats struct {
	Found              int
	Saved              int
	Skipped            int
	ContractorsMatched int
	Errors             int
}

func (s *ProcessStats) Aggregate(result *ProcessResult) {
	s.Saved++
	if result.ContractorMatched {
		s.ContractorsMatched++
	}
}

// MatchRate is the share of saved permits with professional text that were
// linked to a registry contractor.
func (s *ProcessStats) MatchRate() float64 {
	if s.Saved == 0 {
		return 0
	}
	return 100 * float64(s.ContractorsMatched) / float64(s.Saved)
}

// ProcessPermit is idempotent: re-processing the same permit upserts by the
// (permit_number, city) natural key and never duplicates.
func (s *PermitService) ProcessPermit(ctx context.Context, rec *models.PermitRecord, cityCfg *config.CityConfig) (*ProcessResult, error) {
	if rec.PermitNumber == "" {
		return nil, fmt.Errorf("record has no permit number")
	}

	now := time.Now()
	addr := normalize.ParseAddress(rec.Address, cityCfg.City)

	dialect := normalize.DialectAccela
	if cityCfg.Dialect == "etrakit" {
		dialect = normalize.DialectEtrakit
	}

	permit := &models.Permit{
		ID:               uuid.New(),
		PermitNumber:     rec.PermitNumber,
		Title:            rec.Title,
		Description:      rec.Description,
		Street:           addr.Street,
		City:             cityCfg.City,
		State:            pick(addr.State, cityCfg.State),
		ZipCode:          addr.Zip,
		RawPermitType:    rec.PermitType,
		RawStatus:        rec.Status,
		Status:           normalize.NormalizeStatus(rec.Status, dialect),
		Value:            rec.Value,
		AppliedDate:      rec.AppliedDate,
		ExpirationDate:   rec.ExpirationDate,
		SourceURL:        rec.SourceURL,
		ProfessionalText: rec.LicensedProfessionalText,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if permit.AppliedDate == nil && rec.AppliedDateString != "" {
		if d, ok := normalize.ParseDate(rec.AppliedDateString); ok {
			permit.AppliedDate = &d
		}
	}

	result := &ProcessResult{}

	classification := s.classifier.Classify(rec)
	if classification.PropertyType != nil {
		pt := string(*classification.PropertyType)
		permit.PropertyType = &pt
	}
	if classification.PermitType != nil {
		pt := string(*classification.PermitType)
		permit.PermitType = &pt
	}
	if classification.PropertyType != nil || classification.PermitType != nil {
		conf := classification.Confidence
		permit.Confidence = &conf
	}

	var match *models.ContractorMatch
	if rec.LicensedProfessionalText != "" {
		var err error
		match, err = s.matcher.Match(ctx, rec.LicensedProfessionalText, cityCfg.City)
		if err != nil {
			// Matching trouble never blocks persistence of the permit itself.
			log.Printf("Warning: contractor match failed for %s: %v", rec.PermitNumber, err)
		}
		if match != nil {
			permit.ContractorID = &match.ContractorID
		}
	}

	isNew, err := s.store.UpsertPermit(ctx, permit)
	if err != nil {
		return nil, fmt.Errorf("upsert permit: %w", err)
	}
	result.PermitID = permit.ID
	result.IsNew = isNew

	if match != nil {
		if err := s.store.LinkContractor(ctx, permit.ID, match.ContractorID, "contractor", match.Confidence, match.Method); err != nil {
			log.Printf("Warning: failed to link contractor for %s: %v", rec.PermitNumber, err)
		} else {
			result.ContractorMatched = true
		}
	}

	return result, nil
}

func pick(val, fallback string) string {
	if val != "" {
		return val
	}
	return fallback
}
