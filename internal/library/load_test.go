// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cslYAML = `- id: vaswani2017
  type: paper-conference
  title: Attention Is All You Need
  author:
    - family: Vaswani
      given: Ashish
    - literal: Google Brain
  issued:
    date-parts: [[2017, 6, 12]]
  DOI: 10.48550/arXiv.1706.03762
- id: nodoi
  type: book
  title: A Book Without Identifier
- title: Linked Only
  URL: https://doi.org/10.1000/xyz
`

const cslJSON = `[
  {"id": "smith2020", "type": "article-journal", "title": "Results", "DOI": "10.1000/abc",
   "author": [{"family": "Smith", "given": "Jane"}], "issued": {"date-parts": [[2020]]}},
  {"id": "empty", "type": "article"}
]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseCSLYAML(t *testing.T) {
	entries, err := ParseCSLYAML(strings.NewReader(cslYAML))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	e := entries[0]
	assert.Equal(t, "vaswani2017", e.Key)
	assert.Equal(t, "paper-conference", e.Type)
	assert.Equal(t, "Attention Is All You Need", e.Fields["title"])
	assert.Equal(t, "Ashish Vaswani and Google Brain", e.Fields["author"])
	assert.Equal(t, "2017", e.Fields["year"])
	doi, ok := DOI(e)
	assert.True(t, ok)
	assert.Equal(t, "10.48550/arXiv.1706.03762", doi)

	_, ok = DOI(entries[1])
	assert.False(t, ok)

	assert.Equal(t, "item-3", entries[2].Key)
	doi, ok = DOI(entries[2])
	assert.True(t, ok)
	assert.Equal(t, "10.1000/xyz", doi)
}

func TestParseCSLYAMLReferencesDocument(t *testing.T) {
	doc := "references:\n  - id: a\n    DOI: 10.1000/a\n  - id: b\n"
	entries, err := ParseCSLYAML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, "10.1000/a", entries[0].Fields["doi"])
}

func TestParseCSLYAMLInvalid(t *testing.T) {
	_, err := ParseCSLYAML(strings.NewReader("- id: [unterminated"))
	assert.Error(t, err)
}

func TestParseCSLJSON(t *testing.T) {
	entries, err := ParseCSLJSON(strings.NewReader(cslJSON))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "smith2020", entries[0].Key)
	assert.Equal(t, "Jane Smith", entries[0].Fields["author"])
	assert.Equal(t, "2020", entries[0].Fields["year"])
	assert.Equal(t, "10.1000/abc", entries[0].Fields["doi"])
	assert.Empty(t, entries[1].Fields)

	_, err = ParseCSLJSON(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()

	entries, err := Load(writeFile(t, dir, "lib.yaml", cslYAML))
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = Load(writeFile(t, dir, "lib.json", cslJSON))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = Load(writeFile(t, dir, "lib.bib", "@article{x}"))
	assert.ErrorContains(t, err, "unsupported library format")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestOpenDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "library.db")

	entries, err := ParseCSLJSON(strings.NewReader(cslJSON))
	require.NoError(t, err)

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	_, err = store.Import(context.Background(), entries)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	got, err := Open(context.Background(), dbPath)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	_, err = Open(context.Background(), filepath.Join(dir, "missing.db"))
	assert.Error(t, err)
}
