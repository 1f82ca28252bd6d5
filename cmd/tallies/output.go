// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/tally-lookup/internal/lookup"
	"github.com/pdiddy/tally-lookup/internal/scite"
	"github.com/pdiddy/tally-lookup/pkg/types"
)

// resultRow is the serialized form of one entry's lookup.
type resultRow struct {
	Key       string             `json:"key" yaml:"key"`
	DOI       string             `json:"doi,omitempty" yaml:"doi,omitempty"`
	State     string             `json:"state" yaml:"state"`
	Tallies   *types.TallyRecord `json:"tallies,omitempty" yaml:"tallies,omitempty"`
	Error     string             `json:"error,omitempty" yaml:"error,omitempty"`
	Cached    bool               `json:"cached,omitempty" yaml:"cached,omitempty"`
	ReportURL string             `json:"report_url,omitempty" yaml:"report_url,omitempty"`
}

func newResultRow(key string, s lookup.Status, reportBase string) resultRow {
	row := resultRow{Key: key, DOI: s.DOI, State: s.State.String(), Cached: s.Cached}
	switch s.State {
	case lookup.StateFound:
		rec := s.Record
		row.Tallies = &rec
	case lookup.StateError:
		row.Error = s.Message
	}
	if s.DOI != "" {
		row.ReportURL = scite.ReportURL(reportBase, s.DOI)
	}
	return row
}

// writeTallies prints the tally block for one record.
func writeTallies(w io.Writer, rec types.TallyRecord, reportBase string) {
	fmt.Fprintf(w, "Tallies for %s\n", rec.DOI)
	fmt.Fprintf(w, "Total Citations: %d\nSupporting: %d\nContradicting: %d\nMentioning: %d\nUnclassified: %d\nCiting Publications: %d\n",
		rec.Total,
		rec.Supporting,
		rec.Contradicting,
		rec.Mentioning,
		rec.Unclassified,
		rec.CitingPublications,
	)
	fmt.Fprintf(w, "See full report at %s\n", scite.ReportURL(reportBase, rec.DOI))
}

// writeStatus prints a status the way the tally pane shows it.
func writeStatus(w io.Writer, key string, s lookup.Status, reportBase string) {
	switch s.State {
	case lookup.StateFound:
		writeTallies(w, s.Record, reportBase)
	case lookup.StateError:
		fmt.Fprintf(w, "Error: %s\n", s.Message)
	case lookup.StateNotApplicable:
		fmt.Fprintf(w, "%s: no DOI\n", key)
	case lookup.StateInProgress:
		fmt.Fprintf(w, "Looking up %s...\n", s.DOI)
	}
}

// statusLine summarizes a status transition on one line.
func statusLine(key string, s lookup.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-14s", key, s.State)
	if s.DOI != "" {
		fmt.Fprintf(&b, " %s", s.DOI)
	}
	switch s.State {
	case lookup.StateFound:
		r := s.Record
		fmt.Fprintf(&b, " total=%d supporting=%d contradicting=%d mentioning=%d", r.Total, r.Supporting, r.Contradicting, r.Mentioning)
	case lookup.StateError:
		fmt.Fprintf(&b, " %q", s.Message)
	}
	if s.Cached {
		b.WriteString(" (cached)")
	}
	return b.String()
}

// writeRows renders rows as a table, JSON, or YAML.
func writeRows(w io.Writer, rows []resultRow, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(rows)
	case "table", "":
		writeTable(w, rows)
		return nil
	default:
		return fmt.Errorf("unknown format %q: use table, json, or yaml", format)
	}
}

func writeTable(w io.Writer, rows []resultRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No entries.")
		return
	}

	fmt.Fprintf(w, "%-20s  %-30s  %-14s  %6s  %6s  %6s  %6s  %6s\n",
		"Key", "DOI", "State", "Total", "Supp", "Contra", "Ment", "Pubs")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range rows {
		key := truncate(r.Key, 20)
		doi := truncate(r.DOI, 30)
		if r.Tallies != nil {
			t := r.Tallies
			fmt.Fprintf(w, "%-20s  %-30s  %-14s  %6d  %6d  %6d  %6d  %6d\n",
				key, doi, r.State, t.Total, t.Supporting, t.Contradicting, t.Mentioning, t.CitingPublications)
			continue
		}
		fmt.Fprintf(w, "%-20s  %-30s  %-14s  %s\n", key, doi, r.State, r.Error)
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
