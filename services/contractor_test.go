package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"permitwatch/models"
)

type fakeContractorSource struct {
	byLicense map[string]*models.Contractor
	listed    []models.Contractor
}

func (f *fakeContractorSource) FindContractorByLicense(_ context.Context, licenseNo string) (*models.Contractor, error) {
	return f.byLicense[licenseNo], nil
}

func (f *fakeContractorSource) ListContractors(_ context.Context, _ string) ([]models.Contractor, error) {
	return f.listed, nil
}

func TestMatch_LicenseNumberWins(t *testing.T) {
	id := uuid.New()
	source := &fakeContractorSource{
		byLicense: map[string]*models.Contractor{
			"1054321": {ID: id, Name: "ACME BUILDERS INC", LicenseNo: "1054321"},
		},
		listed: []models.Contractor{
			{ID: uuid.New(), Name: "Totally Different Plumbing"},
		},
	}
	matcher := NewContractorMatcher(source)

	match, err := matcher.Match(context.Background(), "ACME BUILDERS INC  LIC #1054321\n123 MAIN ST\n(408) 555-0100", "Cupertino")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.ContractorID != id || match.Method != "license" || match.Confidence != 0.95 {
		t.Fatalf("got %+v, want license match on %s", match, id)
	}
}

func TestMatch_FuzzyNameFallback(t *testing.T) {
	id := uuid.New()
	source := &fakeContractorSource{
		byLicense: map[string]*models.Contractor{},
		listed: []models.Contractor{
			{ID: uuid.New(), Name: "Bayside Roofing Co"},
			{ID: id, Name: "ACME BUILDERS, INC."},
		},
	}
	matcher := NewContractorMatcher(source)

	// No license number in the blob; corporate suffix and casing differ.
	match, err := matcher.Match(context.Background(), "Acme Builders LLC\n123 MAIN ST", "Cupertino")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if match == nil {
		t.Fatal("expected a fuzzy match")
	}
	if match.ContractorID != id || match.Method != "fuzzy_name" {
		t.Fatalf("got %+v, want fuzzy match on %s", match, id)
	}
	if match.Confidence < fuzzyThreshold {
		t.Fatalf("confidence %v below threshold", match.Confidence)
	}
}

func TestMatch_BelowThresholdIsNoMatch(t *testing.T) {
	source := &fakeContractorSource{
		byLicense: map[string]*models.Contractor{},
		listed: []models.Contractor{
			{ID: uuid.New(), Name: "Bayside Roofing Co"},
		},
	}
	matcher := NewContractorMatcher(source)

	match, err := matcher.Match(context.Background(), "Owner Builder", "Cupertino")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if match != nil {
		t.Fatalf("expected no match, got %+v", match)
	}
}

func TestMatch_EmptyTextIsNoMatch(t *testing.T) {
	matcher := NewContractorMatcher(&fakeContractorSource{})

	match, err := matcher.Match(context.Background(), "   ", "Cupertino")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if match != nil {
		t.Fatalf("expected no match, got %+v", match)
	}
}

func TestMatch_UnknownLicenseFallsThroughToName(t *testing.T) {
	id := uuid.New()
	source := &fakeContractorSource{
		byLicense: map[string]*models.Contractor{},
		listed: []models.Contractor{
			{ID: id, Name: "Acme Builders"},
		},
	}
	matcher := NewContractorMatcher(source)

	match, err := matcher.Match(context.Background(), "ACME BUILDERS\nLIC# 999999", "Cupertino")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if match == nil || match.ContractorID != id || match.Method != "fuzzy_name" {
		t.Fatalf("got %+v, want fuzzy fallback on %s", match, id)
	}
}

func TestNormalizeContractorName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ACME BUILDERS, INC.", "acme builders"},
		{"Acme Builders LLC", "acme builders"},
		{"Bayside Roofing Co", "bayside roofing"},
		{"LLC", "llc"}, // never strip the whole name away
	}
	for _, c := range cases {
		if got := normalizeContractorName(c.in); got != c.want {
			t.Errorf("normalizeContractorName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
