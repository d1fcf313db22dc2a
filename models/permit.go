package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the closed set of normalized permit statuses. Portal vocabularies
// differ wildly; everything maps into these four values.
type Status string

const (
	StatusIssued   Status = "ISSUED"
	StatusInReview Status = "IN_REVIEW"
	StatusInactive Status = "INACTIVE"
	StatusUnknown  Status = "UNKNOWN"
)

// ScraperType selects the extraction strategy for a city.
type ScraperType string

const (
	ScraperDaily   ScraperType = "DAILY"
	ScraperMonthly ScraperType = "MONTHLY"
	ScraperIDBased ScraperType = "ID_BASED"
)

// PermitRecord is the transient record an extraction strategy emits per
// scraped permit. It is consumed once by classification and persistence and
// not retained afterwards.
type PermitRecord struct {
	PermitNumber             string     `json:"permit_number"`
	Title                    string     `json:"title"`
	Description              string     `json:"description"`
	Address                  string     `json:"address"`
	City                     string     `json:"city"`
	State                    string     `json:"state"`
	ZipCode                  string     `json:"zip_code"`
	PermitType               string     `json:"permit_type"` // raw portal string
	Status                   string     `json:"status"`      // raw portal string
	Value                    *float64   `json:"value"`
	AppliedDate              *time.Time `json:"applied_date"`
	AppliedDateString        string     `json:"applied_date_string"`
	ExpirationDate           *time.Time `json:"expiration_date"`
	SourceURL                string     `json:"source_url"`
	LicensedProfessionalText string     `json:"licensed_professional_text"`

	// BatchIndex is set by the ID_BASED strategy to the batch that produced
	// this record; -1 for date-driven strategies.
	BatchIndex int `json:"batch_index"`
}

// Permit is the persisted form of a PermitRecord after normalization and
// classification. Natural key is (permit_number, city).
type Permit struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	PermitNumber   string     `json:"permit_number" db:"permit_number"`
	Title          string     `json:"title" db:"title"`
	Description    string     `json:"description" db:"description"`
	Street         string     `json:"street" db:"street"`
	City           string     `json:"city" db:"city"`
	State          string     `json:"state" db:"state"`
	ZipCode        string     `json:"zip_code" db:"zip_code"`
	RawPermitType  string     `json:"raw_permit_type" db:"raw_permit_type"`
	RawStatus      string     `json:"raw_status" db:"raw_status"`
	Status         Status     `json:"status" db:"status"`
	PropertyType   *string    `json:"property_type" db:"property_type"`
	PermitType     *string    `json:"permit_type" db:"permit_type"`
	Confidence     *float64   `json:"confidence" db:"confidence"`
	Value          *float64   `json:"value" db:"value"`
	AppliedDate    *time.Time `json:"applied_date" db:"applied_date"`
	ExpirationDate *time.Time `json:"expiration_date" db:"expiration_date"`
	SourceURL      string     `json:"source_url" db:"source_url"`
	ContractorID   *uuid.UUID `json:"contractor_id" db:"contractor_id"`
	ProfessionalText string   `json:"professional_text" db:"professional_text"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
