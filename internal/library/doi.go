// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library reads bibliographic entries from CSL-YAML, CSL-JSON, or a
// SQLite library database and extracts the DOI each entry is looked up by.
package library

import (
	"regexp"
	"strings"

	"github.com/pdiddy/tally-lookup/pkg/types"
)

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// doiPrefixes are stripped, case-insensitively, before validation.
var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"doi:",
}

// NormalizeDOI trims s, strips resolver and "doi:" prefixes, and reports
// whether the remainder is a DOI.
func NormalizeDOI(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, p := range doiPrefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	if !doiPattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// DOIKey folds doi for comparison. DOIs are case-insensitive, so
// "10.1000/XYZ" and "10.1000/xyz" share a key while each keeps its own
// spelling for display.
func DOIKey(doi string) string {
	return strings.ToLower(doi)
}

// DOI returns the entry's DOI from its doi field, falling back to a
// doi.org link in its url field.
func DOI(entry types.Entry) (string, bool) {
	if v, ok := entry.Field(types.FieldDOI); ok {
		if doi, ok := NormalizeDOI(v); ok {
			return doi, true
		}
	}
	if v, ok := entry.Field(types.FieldURL); ok && strings.Contains(strings.ToLower(v), "doi.org/") {
		return NormalizeDOI(v)
	}
	return "", false
}
