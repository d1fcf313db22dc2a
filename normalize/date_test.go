package normalize

import (
	"testing"
	"time"
)

func TestParseDate_FourDigitYear(t *testing.T) {
	d, ok := ParseDate("01/03/2025")
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	want := time.Date(2025, time.January, 3, 0, 0, 0, 0, time.UTC)
	if !d.Equal(want) {
		t.Fatalf("got %v, want %v", d, want)
	}
	if d.Location() != time.UTC {
		t.Fatalf("date not UTC-constructed")
	}
}

func TestParseDate_TwoDigitYearPivot(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"03/04/25", time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)},
		{"03/04/75", time.Date(1975, time.March, 4, 0, 0, 0, 0, time.UTC)},
		{"12/31/49", time.Date(2049, time.December, 31, 0, 0, 0, 0, time.UTC)},
		{"01/01/50", time.Date(1950, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		d, ok := ParseDate(c.raw)
		if !ok {
			t.Fatalf("ParseDate(%q) failed", c.raw)
		}
		if !d.Equal(c.want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", c.raw, d, c.want)
		}
	}
}

func TestParseDate_Invalid(t *testing.T) {
	inputs := []string{"", "13/01/2024", "02/30/2024", "00/10/2024", "04/00/2024", "garbage", "01-02-2024", "04/15/1776"}
	for _, raw := range inputs {
		if _, ok := ParseDate(raw); ok {
			t.Fatalf("ParseDate(%q) unexpectedly succeeded", raw)
		}
	}
}

func TestParseDateSerial_Range(t *testing.T) {
	// 45658 days after 1899-12-30 is 2025-01-01.
	d, ok := ParseDateSerial(45658)
	if !ok {
		t.Fatalf("expected serial to decode")
	}
	want := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !d.Equal(want) {
		t.Fatalf("got %v, want %v", d, want)
	}

	for _, serial := range []float64{-1, 0, 73000, 1e9} {
		if _, ok := ParseDateSerial(serial); ok {
			t.Fatalf("serial %v unexpectedly decoded", serial)
		}
	}
}

func TestParseDateSerial_YearBounds(t *testing.T) {
	for _, serial := range []float64{400, 10000, 40000, 72990} {
		d, ok := ParseDateSerial(serial)
		if !ok {
			t.Fatalf("serial %v failed", serial)
		}
		if d.Year() < 1900 || d.Year() >= 2100 {
			t.Fatalf("serial %v decoded to out-of-range year %d", serial, d.Year())
		}
	}
}

func TestParseDate_NumericStringIsSerial(t *testing.T) {
	d, ok := ParseDate("45658")
	if !ok {
		t.Fatalf("numeric string should decode as a serial")
	}
	if d.Year() != 2025 {
		t.Fatalf("got year %d, want 2025", d.Year())
	}
}
