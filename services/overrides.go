package services

import (
	"strings"

	"permitwatch/models"
)

// CityOverride intercepts classification for one city before the generic
// cascades run. A nil return falls through to the cascades.
type CityOverride interface {
	Classify(rec *models.PermitRecord) *models.ClassificationResult
}

// OverrideRegistry maps city names to their overrides. Lookups are
// case-insensitive on the city name.
type OverrideRegistry struct {
	byCity map[string]CityOverride
}

func NewOverrideRegistry() *OverrideRegistry {
	return &OverrideRegistry{byCity: make(map[string]CityOverride)}
}

func (r *OverrideRegistry) Register(city string, override CityOverride) {
	r.byCity[strings.ToLower(city)] = override
}

func (r *OverrideRegistry) Classify(rec *models.PermitRecord) *models.ClassificationResult {
	override, ok := r.byCity[strings.ToLower(rec.City)]
	if !ok {
		return nil
	}
	return override.Classify(rec)
}

// subtypeOverride classifies from a city-specific structured subtype code
// embedded in the raw permit-type field. The portal recorded the code
// explicitly, so the result is near-certain.
type subtypeOverride struct {
	codes map[string]subtypeEntry
}

type subtypeEntry struct {
	property models.PropertyType
	permit   models.PermitType
}

const overrideConfidence = 0.95

func (o *subtypeOverride) Classify(rec *models.PermitRecord) *models.ClassificationResult {
	code := strings.ToUpper(strings.TrimSpace(rec.PermitType))
	entry, ok := o.codes[code]
	if !ok {
		return nil
	}
	return &models.ClassificationResult{
		PropertyType: propPtr(entry.property),
		PermitType:   permPtr(entry.permit),
		Confidence:   overrideConfidence,
		Reasoning:    []string{"city subtype code " + code},
	}
}

// DefaultOverrides wires the overrides for portals that expose structured
// subtype codes their generic raw-type field does not.
func DefaultOverrides() *OverrideRegistry {
	registry := NewOverrideRegistry()

	// Pleasanton eTRAKiT subtype codes, from the portal's search dropdown.
	registry.Register("Pleasanton", &subtypeOverride{codes: map[string]subtypeEntry{
		"BLDG-SFD":  {models.PropertyResidential, models.PermitBuilding},
		"BLDG-MFD":  {models.PropertyResidential, models.PermitBuilding},
		"BLDG-COM":  {models.PropertyCommercial, models.PermitBuilding},
		"ELEC-RES":  {models.PropertyResidential, models.PermitElectrical},
		"ELEC-COM":  {models.PropertyCommercial, models.PermitElectrical},
		"PLUM-RES":  {models.PropertyResidential, models.PermitPlumbing},
		"MECH-RES":  {models.PropertyResidential, models.PermitMechanical},
		"ROOF-RES":  {models.PropertyResidential, models.PermitRoofing},
		"ROOF-COM":  {models.PropertyCommercial, models.PermitRoofing},
		"SOLAR-RES": {models.PropertyResidential, models.PermitSolar},
	}})

	return registry
}
