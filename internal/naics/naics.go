// Package naics holds the canonical NAICS reference data used to validate
// classification codes and resolve their official titles. Descriptions are
// always taken from this table, never from model output.
package naics

import (
	"regexp"
	"strings"
)

var sixDigit = regexp.MustCompile(`^[1-9]\d{5}$`)

// IsCode reports whether s is a well-formed 6-digit NAICS code: six numeric
// digits with a nonzero leading digit.
func IsCode(s string) bool {
	return sixDigit.MatchString(strings.TrimSpace(s))
}

// Normalize trims whitespace and strips a trailing ".0" suffix, which shows
// up in spreadsheet-derived sources that store codes as floats. Returns ""
// when the result is not a well-formed code.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	if !IsCode(s) {
		return ""
	}
	return s
}

// Lookup returns the official title for a 6-digit code. Falls back to the
// sector title (first two digits) when the exact code is unknown.
func Lookup(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if title, ok := Titles[code]; ok {
		return title, true
	}
	if len(code) >= 2 {
		if title, ok := sectorTitles[code[:2]]; ok {
			return title, true
		}
	}
	return "", false
}

// Sector returns the 2-digit sector prefix of a code, or "".
func Sector(code string) string {
	code = strings.TrimSpace(code)
	if len(code) < 2 {
		return ""
	}
	return code[:2]
}

// ValidSector reports whether the code's 2-digit prefix is a real NAICS
// sector.
func ValidSector(code string) bool {
	return sectorTitles[Sector(code)] != ""
}
