package models

import (
	"time"

	"github.com/google/uuid"
)

// Contractor is a row in the contractor registry. The scraper only reads
// contractors; it never creates them.
type Contractor struct {
	ID        uuid.UUID `json:"id" db:"id"`
	LicenseNo string    `json:"license_no" db:"license_no"`
	Name      string    `json:"name" db:"name"`
	Street    string    `json:"street" db:"street"`
	City      string    `json:"city" db:"city"`
	State     string    `json:"state" db:"state"`
	ZipCode   string    `json:"zip_code" db:"zip_code"`
	Phone     string    `json:"phone" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ContractorMatch describes how a licensed-professional text blob was
// resolved to a registry contractor.
type ContractorMatch struct {
	ContractorID uuid.UUID `json:"contractor_id"`
	Confidence   float64   `json:"confidence"`
	Method       string    `json:"method"` // license, fuzzy_name
}
