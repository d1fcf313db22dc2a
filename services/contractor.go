package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
	"permitwatch/models"
	"permitwatch/normalize"
)

// ContractorSource is the slice of the repository the matcher reads.
type ContractorSource interface {
	FindContractorByLicense(ctx context.Context, licenseNo string) (*models.Contractor, error)
	ListContractors(ctx context.Context, cityHint string) ([]models.Contractor, error)
}

// ContractorMatcher resolves free-text "licensed professional" blobs to
// registry contractors. A nil match is a normal outcome, not a failure:
// owner-builder permits have no contractor at all.
type ContractorMatcher struct {
	source ContractorSource
}

func NewContractorMatcher(source ContractorSource) *ContractorMatcher {
	return &ContractorMatcher{source: source}
}

// CSLB license numbers are 6-8 digits, sometimes prefixed with "LIC" or "#".
var licenseRegex = regexp.MustCompile(`(?i)(?:lic(?:ense)?\s*#?\s*|#\s*)?\b(\d{6,8})\b`)

const fuzzyThreshold = 0.92

// Match tries, in order: license-number extraction and direct lookup, then
// fuzzy name lookup optionally scoped to the city hint. Returns nil when no
// candidate clears the threshold.
func (m *ContractorMatcher) Match(ctx context.Context, freeText, cityHint string) (*models.ContractorMatch, error) {
	text := strings.TrimSpace(freeText)
	if text == "" {
		return nil, nil
	}

	for _, group := range licenseRegex.FindAllStringSubmatch(text, -1) {
		contractor, err := m.source.FindContractorByLicense(ctx, group[1])
		if err != nil {
			return nil, err
		}
		if contractor != nil {
			return &models.ContractorMatch{
				ContractorID: contractor.ID,
				Confidence:   0.95,
				Method:       "license",
			}, nil
		}
	}

	name := normalizeContractorName(firstLine(text))
	if name == "" {
		return nil, nil
	}

	candidates, err := m.source.ListContractors(ctx, cityHint)
	if err != nil {
		return nil, err
	}

	best := -1
	bestScore := 0.0
	for i, c := range candidates {
		score := matchr.JaroWinkler(name, normalizeContractorName(c.Name), false)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	if best < 0 || bestScore < fuzzyThreshold {
		return nil, nil
	}
	return &models.ContractorMatch{
		ContractorID: candidates[best].ID,
		Confidence:   bestScore,
		Method:       "fuzzy_name",
	}, nil
}

// firstLine isolates the business name: portal blobs put the name first,
// followed by address and phone lines.
func firstLine(text string) string {
	if idx := strings.IndexAny(text, "\n\r"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

var corpSuffixes = []string{"inc", "llc", "corp", "co", "ltd", "company", "corporation", "incorporated"}

// normalizeContractorName lowercases, strips punctuation and corporate
// suffixes, so "ACME BUILDERS, INC." and "Acme Builders LLC" compare equal.
func normalizeContractorName(name string) string {
	name = normalize.NormalizeAddress(name)
	words := strings.Fields(name)
	for len(words) > 1 {
		last := words[len(words)-1]
		trimmed := false
		for _, suffix := range corpSuffixes {
			if last == suffix {
				words = words[:len(words)-1]
				trimmed = true
				break
			}
		}
		if !trimmed {
			break
		}
	}
	return strings.Join(words, " ")
}
