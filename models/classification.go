package models

import "github.com/google/uuid"

// PropertyType is the classified use of the property a permit applies to.
type PropertyType string

const (
	PropertyResidential PropertyType = "RESIDENTIAL"
	PropertyCommercial  PropertyType = "COMMERCIAL"
	PropertyOffice      PropertyType = "OFFICE"
	PropertyIndustrial  PropertyType = "INDUSTRIAL"
	PropertyUnknown     PropertyType = "UNKNOWN"
)

// PermitType is the classified category of work a permit covers.
type PermitType string

const (
	PermitBuilding   PermitType = "BUILDING"
	PermitElectrical PermitType = "ELECTRICAL"
	PermitPlumbing   PermitType = "PLUMBING"
	PermitMechanical PermitType = "MECHANICAL"
	PermitRoofing    PermitType = "ROOFING"
	PermitDemolition PermitType = "DEMOLITION"
	PermitSolar      PermitType = "SOLAR"
	PermitFire       PermitType = "FIRE"
	PermitGrading    PermitType = "GRADING"
	PermitSign       PermitType = "SIGN"
	PermitPool       PermitType = "POOL"
	PermitOther      PermitType = "OTHER"
)

// ClassificationResult is the combined outcome of the property-type and
// permit-type cascades plus contractor matching. Confidence is the minimum of
// the two sub-confidences. Reasoning records every rule that fired, in order,
// and is never empty when either type is non-nil.
type ClassificationResult struct {
	PropertyType *PropertyType `json:"property_type"`
	PermitType   *PermitType   `json:"permit_type"`
	Confidence   float64       `json:"confidence"`
	Reasoning    []string      `json:"reasoning"`
	ContractorID *uuid.UUID    `json:"contractor_id"`
}
