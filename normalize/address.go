package normalize

import (
	"regexp"
	"strings"
)

// Address is the structured form of a scraped address line.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

var (
	// "Cupertino CA 95014" or "Cupertino CA 95014-4601" (zip+4 dropped)
	cityStateZipRegex = regexp.MustCompile(`(?i)^([A-Za-z][A-Za-z .'-]*?)[,\s]+([A-Za-z]{2})\s+(\d{5})(?:-\d{4})?$`)
	cityStateRegex    = regexp.MustCompile(`(?i)^([A-Za-z][A-Za-z .'-]*?)[,\s]+([A-Za-z]{2})$`)
	// trailing "CA 95051" on a comma-less line
	trailingStateZipRegex = regexp.MustCompile(`(?i)^(.*?)[,\s]+([A-Za-z]{2})\s+(\d{5})(?:-\d{4})?$`)
)

// ParseAddress extracts street/city/state/zip from the inconsistent address
// formats permit portals emit: "STREET, CITY STATE ZIP",
// "STREET, UNIT, CITY STATE ZIP", or a bare street line. Fields that cannot
// be recovered fall back to defaultCity or empty strings; parsing never
// fails.
func ParseAddress(raw, defaultCity string) Address {
	addr := Address{City: defaultCity}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return addr
	}

	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) >= 2 {
		last := parts[len(parts)-1]
		head := parts[:len(parts)-1]

		if m := cityStateZipRegex.FindStringSubmatch(last); m != nil {
			addr.City = strings.TrimSpace(m[1])
			addr.State = strings.ToUpper(m[2])
			addr.Zip = m[3]
			addr.Street = joinSegments(head)
			return addr
		}
		if m := cityStateRegex.FindStringSubmatch(last); m != nil {
			addr.City = strings.TrimSpace(m[1])
			addr.State = strings.ToUpper(m[2])
			addr.Street = joinSegments(head)
			return addr
		}

		// Last segment is not a recognizable city token; keep everything as
		// street and fall back to the default city.
		addr.Street = joinSegments(parts)
		return addr
	}

	// No comma: look for a trailing "STATE ZIP" pair to split off.
	if m := trailingStateZipRegex.FindStringSubmatch(raw); m != nil {
		addr.Street = strings.TrimSpace(m[1])
		addr.State = strings.ToUpper(m[2])
		addr.Zip = m[3]
		return addr
	}

	addr.Street = raw
	return addr
}

// joinSegments folds leading segments back into one street string. Unit
// numbers show up as their own purely-numeric comma segment and belong with
// the street ("3079 EL CAMINO REAL, 101").
func joinSegments(segments []string) string {
	var kept []string
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		kept = append(kept, seg)
	}
	return strings.Join(kept, ", ")
}

var (
	streetReplacements = map[string]string{
		"street":    "st",
		"avenue":    "ave",
		"drive":     "dr",
		"road":      "rd",
		"boulevard": "blvd",
		"lane":      "ln",
		"court":     "ct",
		"place":     "pl",
		"circle":    "cir",
		"terrace":   "ter",
		"highway":   "hwy",
		"parkway":   "pkwy",
		"square":    "sq",
		"north":     "n",
		"south":     "s",
		"east":      "e",
		"west":      "w",
		"apartment": "apt",
		"suite":     "ste",
		"building":  "bldg",
	}
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
)

// NormalizeAddress canonicalizes an address (or business-name) string for
// comparison: lowercase, punctuation stripped, common street words
// abbreviated, whitespace collapsed.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	addr = nonAlnumRegex.ReplaceAllString(addr, " ")
	addr = multiSpaceRegex.ReplaceAllString(addr, " ")
	words := strings.Split(addr, " ")
	for i, w := range words {
		if abbrev, ok := streetReplacements[w]; ok {
			words[i] = abbrev
		}
	}
	return strings.TrimSpace(strings.Join(words, " "))
}
