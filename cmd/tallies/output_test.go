// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/tally-lookup/internal/lookup"
	"github.com/pdiddy/tally-lookup/internal/scite"
	"github.com/pdiddy/tally-lookup/pkg/types"
)

var sample = types.TallyRecord{
	DOI:                "10.1000/xyz",
	Total:              10,
	Supporting:         6,
	Contradicting:      1,
	Mentioning:         2,
	Unclassified:       1,
	CitingPublications: 9,
}

func TestWriteTallies(t *testing.T) {
	var buf bytes.Buffer
	writeTallies(&buf, sample, "")

	want := `Tallies for 10.1000/xyz
Total Citations: 10
Supporting: 6
Contradicting: 1
Mentioning: 2
Unclassified: 1
Citing Publications: 9
See full report at https://scite.ai/reports/10.1000%2Fxyz
`
	assert.Equal(t, want, buf.String())
}

func TestNewResultRow(t *testing.T) {
	row := newResultRow("k", lookup.Status{State: lookup.StateFound, DOI: sample.DOI, Record: sample, Cached: true}, "")
	assert.Equal(t, "found", row.State)
	require.NotNil(t, row.Tallies)
	assert.Equal(t, sample, *row.Tallies)
	assert.True(t, row.Cached)
	assert.Equal(t, "https://scite.ai/reports/10.1000%2Fxyz", row.ReportURL)

	row = newResultRow("k", lookup.Status{State: lookup.StateError, DOI: "10.1/a", Message: "boom"}, "")
	assert.Nil(t, row.Tallies)
	assert.Equal(t, "boom", row.Error)

	row = newResultRow("k", lookup.Status{State: lookup.StateNotApplicable}, "")
	assert.Equal(t, "not_applicable", row.State)
	assert.Empty(t, row.ReportURL)
}

func TestWriteRowsFormats(t *testing.T) {
	rows := []resultRow{
		newResultRow("found", lookup.Status{State: lookup.StateFound, DOI: sample.DOI, Record: sample}, ""),
		newResultRow("nodoi", lookup.Status{State: lookup.StateNotApplicable}, ""),
	}

	var buf bytes.Buffer
	require.NoError(t, writeRows(&buf, rows, "json"))
	var decoded []resultRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, rows, decoded)

	buf.Reset()
	require.NoError(t, writeRows(&buf, rows, "yaml"))
	var fromYAML []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	require.Len(t, fromYAML, 2)
	assert.Equal(t, "found", fromYAML[0]["state"])

	buf.Reset()
	require.NoError(t, writeRows(&buf, rows, "table"))
	out := buf.String()
	assert.Contains(t, out, "10.1000/xyz")
	assert.Contains(t, out, "not_applicable")

	assert.Error(t, writeRows(&buf, rows, "xml"))

	buf.Reset()
	require.NoError(t, writeRows(&buf, nil, "table"))
	assert.Equal(t, "No entries.\n", buf.String())
}

func TestStatusLine(t *testing.T) {
	line := statusLine("key", lookup.Status{State: lookup.StateFound, DOI: sample.DOI, Record: sample, Cached: true})
	assert.Contains(t, line, "found")
	assert.Contains(t, line, "total=10 supporting=6 contradicting=1 mentioning=2")
	assert.True(t, strings.HasSuffix(line, "(cached)"))

	line = statusLine("key", lookup.Status{State: lookup.StateError, DOI: "10.1/a", Message: "no citation tallies found for 10.1/a"})
	assert.Contains(t, line, `"no citation tallies found for 10.1/a"`)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("debug", io.Discard)
	assert.NoError(t, err)
	_, err = newLogger("WARN", io.Discard)
	assert.NoError(t, err)
	_, err = newLogger("loud", io.Discard)
	assert.Error(t, err)
}

func TestBuildReport(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/10.1000/xyz":
			fmt.Fprint(w, `{"doi":"10.1000/xyz","total":10,"supporting":6,"contradicting":1,"mentioning":2,"unclassified":1,"citingPublications":9}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	entries := []types.Entry{
		{Key: "a", Fields: map[string]string{"doi": "10.1000/xyz"}},
		{Key: "b", Fields: map[string]string{"doi": "https://doi.org/10.1000/xyz"}},
		{Key: "c", Fields: map[string]string{"doi": "10.1000/missing"}},
		{Key: "d", Fields: map[string]string{"title": "no identifier"}},
	}

	client := &scite.Client{HTTP: ts.Client(), BaseURL: ts.URL}
	cache := lookup.NewCache(0)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rows, err := buildReport(context.Background(), entries, scite.NewShared(client), cache, 1, "", logger)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "a", rows[0].Key)
	assert.Equal(t, "found", rows[0].State)
	assert.Equal(t, "found", rows[1].State)
	assert.True(t, rows[1].Cached)
	assert.Equal(t, "error", rows[2].State)
	assert.Contains(t, rows[2].Error, "no citation tallies found")
	assert.Equal(t, "not_applicable", rows[3].State)

	// Entries sharing a DOI hit the service once; the second is a cache hit.
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, cache.Len())
}

func TestBuildReportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scite.Client{BaseURL: "http://127.0.0.1:1"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := buildReport(ctx, []types.Entry{{Key: "a", Fields: map[string]string{"doi": "10.1000/xyz"}}},
		client, lookup.NewCache(0), 1, "", logger)
	assert.ErrorIs(t, err, context.Canceled)
}
