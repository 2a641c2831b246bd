package domain

import (
	"regexp"
	"strings"
)

var (
	// parentheticalRe matches an aside in parentheses together with the
	// whitespace in front of it, e.g. " (HH links)".
	parentheticalRe = regexp.MustCompile(`\s*\(.*?\)`)

	// districtSuffixRe matches "Berlin" followed by a district or any other
	// trailing words, e.g. "Berlin Mitte".
	districtSuffixRe = regexp.MustCompile(`(?i)Berlin\s+.*$`)

	lineBreakReplacer = strings.NewReplacer("\r\n", ", ", "\n", ", ")
)

// CleanAddress simplifies a raw location for a second geocoding attempt.
// It drops parenthetical segments, cuts everything after "Berlin" and trims
// surrounding whitespace:
//
//	"Cafe Test (Randnotiz) Berlin Mitte" -> "Cafe Test Berlin"
func CleanAddress(raw string) string {
	cleaned := parentheticalRe.ReplaceAllString(raw, "")
	cleaned = districtSuffixRe.ReplaceAllLiteralString(cleaned, "Berlin")
	return strings.TrimSpace(cleaned)
}

// LocationQuery turns a possibly multi-line location into a single-line
// geocoding query.
func LocationQuery(location string) string {
	return lineBreakReplacer.Replace(location)
}
