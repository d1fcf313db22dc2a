package normalize

import (
	"strings"

	"permitwatch/models"
)

// Dialect identifies the portal family a raw status string came from. The
// vocabularies differ but map onto the same four-value output space.
type Dialect int

const (
	DialectAccela Dialect = iota
	DialectEtrakit
)

// Exact phrases are checked before the pattern families so that phrases like
// "ready to issue" land in IN_REVIEW despite containing "issue".
var accelaExact = map[string]models.Status{
	"issued":            models.StatusIssued,
	"final":             models.StatusIssued,
	"finaled":           models.StatusIssued,
	"approved":          models.StatusIssued,
	"closed - final":    models.StatusIssued,
	"ready to issue":    models.StatusInReview,
	"in review":         models.StatusInReview,
	"plan check":        models.StatusInReview,
	"plan review":       models.StatusInReview,
	"pending":           models.StatusInReview,
	"submitted":         models.StatusInReview,
	"received":          models.StatusInReview,
	"awaiting plan fee": models.StatusInReview,
	"expired":           models.StatusInactive,
	"withdrawn":         models.StatusInactive,
	"void":              models.StatusInactive,
	"closed":            models.StatusInactive,
	"denied":            models.StatusInactive,
	"cancelled":         models.StatusInactive,
}

var etrakitExact = map[string]models.Status{
	"issued":         models.StatusIssued,
	"finaled":        models.StatusIssued,
	"final":          models.StatusIssued,
	"co issued":      models.StatusIssued,
	"ready to issue": models.StatusInReview,
	"applied":        models.StatusInReview,
	"in review":      models.StatusInReview,
	"review":         models.StatusInReview,
	"pending":        models.StatusInReview,
	"approved":       models.StatusIssued,
	"expired":        models.StatusInactive,
	"void":           models.StatusInactive,
	"closed":         models.StatusInactive,
	"canceled":       models.StatusInactive,
	"withdrawn":      models.StatusInactive,
	"on hold":        models.StatusInReview,
}

// statusPatterns are substring families applied after the exact tables miss.
// Order matters: first family to hit wins.
var statusPatterns = []struct {
	status   models.Status
	keywords []string
}{
	{models.StatusIssued, []string{"issued", "final", "complete", "approved", "granted"}},
	{models.StatusInactive, []string{"expired", "withdrawn", "void", "cancel", "closed", "denied", "inactive", "revoked"}},
	{models.StatusInReview, []string{"review", "pending", "submitted", "applied", "check", "hold", "process", "intake", "received", "routing"}},
}

// NormalizeStatus maps a raw portal status string onto the closed status set.
// It is total: unmatched input yields UNKNOWN, never an error, so an odd
// status can never block persistence.
func NormalizeStatus(raw string, dialect Dialect) models.Status {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return models.StatusUnknown
	}

	exact := accelaExact
	if dialect == DialectEtrakit {
		exact = etrakitExact
	}
	if status, ok := exact[cleaned]; ok {
		return status
	}

	for _, family := range statusPatterns {
		for _, kw := range family.keywords {
			if strings.Contains(cleaned, kw) {
				return family.status
			}
		}
	}

	return models.StatusUnknown
}
