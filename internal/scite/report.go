// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scite

import (
	"net/url"
	"strings"
)

// DefaultReportBase is the prefix of the human-readable report page.
const DefaultReportBase = "https://scite.ai/reports/"

// ReportURL returns the full report page for doi. An empty base selects
// DefaultReportBase.
func ReportURL(base, doi string) string {
	if base == "" {
		base = DefaultReportBase
	}
	return base + url.QueryEscape(strings.TrimSpace(doi))
}
