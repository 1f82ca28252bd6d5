// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the tally lookup core:
// citation tally records, bibliographic entries, and configuration.
package types

// TallyRecord holds the citation tallies the service reports for one DOI.
// Values are copied, never mutated after construction. The service does not
// guarantee that the classified counts add up to Total.
type TallyRecord struct {
	// DOI is the identifier the tallies belong to (e.g. "10.1000/xyz").
	DOI string `json:"doi" yaml:"doi"`

	// Total is the number of citation statements found.
	Total int `json:"total" yaml:"total"`

	Supporting    int `json:"supporting" yaml:"supporting"`
	Contradicting int `json:"contradicting" yaml:"contradicting"`
	Mentioning    int `json:"mentioning" yaml:"mentioning"`
	Unclassified  int `json:"unclassified" yaml:"unclassified"`

	// CitingPublications is the number of distinct publications citing the DOI.
	CitingPublications int `json:"citingPublications" yaml:"citing_publications"`
}
