package services

import (
	"strings"

	"permitwatch/models"
	"permitwatch/normalize"
)

// ClassifierService assigns property and permit types to scraped permits.
// Two independent cascades run; each stops at the first stage that fires.
// A per-city override is consulted before either cascade and short-circuits
// both when it produces a result.
type ClassifierService struct {
	overrides *OverrideRegistry
}

func NewClassifierService(overrides *OverrideRegistry) *ClassifierService {
	if overrides == nil {
		overrides = DefaultOverrides()
	}
	return &ClassifierService{overrides: overrides}
}

// permitText pre-lowers the searchable fields once per classification.
type permitText struct {
	rec      *models.PermitRecord
	combined string // title + description
	rawType  string
	street   string
	number   string
}

func newPermitText(rec *models.PermitRecord) *permitText {
	return &permitText{
		rec:      rec,
		combined: strings.ToLower(rec.Title + " " + rec.Description),
		rawType:  strings.ToLower(strings.TrimSpace(rec.PermitType)),
		street:   " " + normalize.NormalizeAddress(rec.Address) + " ",
		number:   strings.ToUpper(strings.TrimSpace(rec.PermitNumber)),
	}
}

// Classify runs the override registry, then the generic cascades. The
// combined confidence is the minimum of the two sub-confidences, with a
// missing sub-result counting as zero. Reasoning lists every stage hit in
// order, so a stored classification can always be audited.
func (s *ClassifierService) Classify(rec *models.PermitRecord) models.ClassificationResult {
	if result := s.overrides.Classify(rec); result != nil {
		return *result
	}

	text := newPermitText(rec)
	result := models.ClassificationResult{}

	propConf := 0.0
	for _, stage := range propertyStages {
		if hit, conf, reason := stage(text); hit != nil {
			result.PropertyType = hit
			propConf = conf
			result.Reasoning = append(result.Reasoning, "property: "+reason)
			break
		}
	}

	permConf := 0.0
	for _, stage := range permitStages {
		if hit, conf, reason := stage(text); hit != nil {
			result.PermitType = hit
			permConf = conf
			result.Reasoning = append(result.Reasoning, "permit: "+reason)
			break
		}
	}

	result.Confidence = propConf
	if permConf < propConf {
		result.Confidence = permConf
	}
	return result
}

func propPtr(p models.PropertyType) *models.PropertyType { return &p }
func permPtr(p models.PermitType) *models.PermitType     { return &p }

type propertyStage func(*permitText) (*models.PropertyType, float64, string)
type permitStage func(*permitText) (*models.PermitType, float64, string)

// Explicit portal codes carry the highest generic confidence; they are what
// the issuing city itself recorded. Ordered: more specific entries first.
var explicitPropertyCodes = []struct {
	code  string
	ptype models.PropertyType
}{
	{"commercial/industrial", models.PropertyCommercial},
	{"1 & 2 family", models.PropertyResidential},
	{"single family", models.PropertyResidential},
	{"multi-family", models.PropertyResidential},
	{"multifamily", models.PropertyResidential},
	{"residential", models.PropertyResidential},
	{"commercial", models.PropertyCommercial},
	{"office", models.PropertyOffice},
	{"industrial", models.PropertyIndustrial},
}

var explicitPermitCodes = []struct {
	code  string
	ptype models.PermitType
}{
	{"swimming pool", models.PermitPool},
	{"pool/spa", models.PermitPool},
	{"reroof", models.PermitRoofing},
	{"roofing", models.PermitRoofing},
	{"demolition", models.PermitDemolition},
	{"electrical", models.PermitElectrical},
	{"plumbing", models.PermitPlumbing},
	{"mechanical", models.PermitMechanical},
	{"grading", models.PermitGrading},
	{"solar", models.PermitSolar},
	{"fire", models.PermitFire},
	{"sign", models.PermitSign},
	{"building", models.PermitBuilding},
}

// Keyword families searched over title+description; each family carries its
// own confidence inside the 0.7-0.8 band. Family order decides ties.
var propertyKeywords = []struct {
	ptype      models.PropertyType
	confidence float64
	words      []string
}{
	{models.PropertyResidential, 0.8, []string{"single family", "sfd", "duplex", "townhome", "townhouse", "dwelling", "residence", "adu", "accessory dwelling", "condo", "apartment"}},
	{models.PropertyOffice, 0.75, []string{"office"}},
	{models.PropertyIndustrial, 0.75, []string{"warehouse", "industrial", "manufacturing", "fabrication"}},
	{models.PropertyCommercial, 0.75, []string{"tenant improvement", "retail", "restaurant", "storefront", "shopping", "hotel", "commercial"}},
	{models.PropertyResidential, 0.7, []string{"kitchen remodel", "bathroom remodel", "bedroom", "garage conversion"}},
}

var permitKeywords = []struct {
	ptype      models.PermitType
	confidence float64
	words      []string
}{
	{models.PermitSolar, 0.8, []string{"solar", "photovoltaic", " pv ", "battery storage"}},
	{models.PermitRoofing, 0.8, []string{"reroof", "re-roof", "roof replacement", "tear off", "comp shingle"}},
	{models.PermitFire, 0.8, []string{"fire sprinkler", "fire alarm", "fire suppression"}},
	{models.PermitDemolition, 0.75, []string{"demolition", "demolish", "demo of"}},
	{models.PermitPool, 0.75, []string{"swimming pool", "pool and spa", "in-ground pool"}},
	{models.PermitMechanical, 0.75, []string{"hvac", "furnace", "water heater", "heat pump", "air condition", "mini split", "ductwork"}},
	{models.PermitElectrical, 0.75, []string{"panel upgrade", "ev charger", "rewire", "electrical service", "subpanel"}},
	{models.PermitPlumbing, 0.75, []string{"repipe", "sewer", "gas line", "plumbing"}},
	{models.PermitGrading, 0.75, []string{"grading", "excavation"}},
	{models.PermitSign, 0.7, []string{"signage", "wall sign", "monument sign"}},
	{models.PermitBuilding, 0.7, []string{"remodel", "addition", "new construction", "alteration", "repair"}},
}

// Permit-number prefixes: known-partial, only what the portals evidence.
// Longer prefixes first so BLD does not fall through to the bare B entry.
var permitNumberPrefixes = []struct {
	prefix string
	ptype  models.PermitType
}{
	{"BLDG", models.PermitBuilding},
	{"PLUM", models.PermitPlumbing},
	{"ELEC", models.PermitElectrical},
	{"MECH", models.PermitMechanical},
	{"FIRE", models.PermitFire},
	{"BLD", models.PermitBuilding},
	{"ELE", models.PermitElectrical},
	{"PLM", models.PermitPlumbing},
	{"MEC", models.PermitMechanical},
	{"GRD", models.PermitGrading},
	{"RF", models.PermitRoofing},
	{"B", models.PermitBuilding},
	{"E", models.PermitElectrical},
	{"P", models.PermitPlumbing},
	{"M", models.PermitMechanical},
}

var propertyStages = []propertyStage{
	func(t *permitText) (*models.PropertyType, float64, string) {
		if t.rawType == "" {
			return nil, 0, ""
		}
		for _, entry := range explicitPropertyCodes {
			if strings.Contains(t.rawType, entry.code) {
				return propPtr(entry.ptype), 0.9, "explicit code " + entry.code
			}
		}
		return nil, 0, ""
	},
	func(t *permitText) (*models.PropertyType, float64, string) {
		for _, family := range propertyKeywords {
			for _, w := range family.words {
				if strings.Contains(t.combined, w) {
					return propPtr(family.ptype), family.confidence, "keyword " + strings.TrimSpace(w)
				}
			}
		}
		return nil, 0, ""
	},
	func(t *permitText) (*models.PropertyType, float64, string) {
		if strings.Contains(t.street, " ste ") || strings.Contains(t.street, " fl ") {
			return propPtr(models.PropertyOffice), 0.6, "address suite marker"
		}
		if strings.Contains(t.street, " apt ") || strings.Contains(t.street, " unit ") {
			return propPtr(models.PropertyResidential), 0.6, "address unit marker"
		}
		return nil, 0, ""
	},
	func(t *permitText) (*models.PropertyType, float64, string) {
		if t.rec.Value == nil {
			return nil, 0, ""
		}
		if *t.rec.Value >= 1_000_000 {
			return propPtr(models.PropertyCommercial), 0.5, "value band >= 1M"
		}
		if *t.rec.Value > 0 && *t.rec.Value < 100_000 {
			return propPtr(models.PropertyResidential), 0.5, "value band < 100K"
		}
		return nil, 0, ""
	},
}

var permitStages = []permitStage{
	func(t *permitText) (*models.PermitType, float64, string) {
		if t.rawType == "" {
			return nil, 0, ""
		}
		for _, entry := range explicitPermitCodes {
			if strings.Contains(t.rawType, entry.code) {
				return permPtr(entry.ptype), 0.9, "explicit code " + entry.code
			}
		}
		return nil, 0, ""
	},
	func(t *permitText) (*models.PermitType, float64, string) {
		for _, family := range permitKeywords {
			for _, w := range family.words {
				if strings.Contains(t.combined, w) {
					return permPtr(family.ptype), family.confidence, "keyword " + strings.TrimSpace(w)
				}
			}
		}
		return nil, 0, ""
	},
	func(t *permitText) (*models.PermitType, float64, string) {
		for _, entry := range permitNumberPrefixes {
			if strings.HasPrefix(t.number, entry.prefix) {
				return permPtr(entry.ptype), 0.8, "permit number prefix " + entry.prefix
			}
		}
		return nil, 0, ""
	},
	func(t *permitText) (*models.PermitType, float64, string) {
		if t.rec.Value != nil && *t.rec.Value >= 50_000 {
			return permPtr(models.PermitBuilding), 0.5, "value band >= 50K"
		}
		return nil, 0, ""
	},
}
