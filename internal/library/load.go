// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/tally-lookup/pkg/types"
)

// CSLItem is the subset of a CSL (Citation Style Language) item read from
// a bibliography. Both CSL-YAML and CSL-JSON use these field names.
type CSLItem struct {
	ID     string    `yaml:"id" json:"id"`
	Type   string    `yaml:"type" json:"type"`
	Title  string    `yaml:"title" json:"title"`
	Author []CSLName `yaml:"author,omitempty" json:"author,omitempty"`
	Issued *CSLDate  `yaml:"issued,omitempty" json:"issued,omitempty"`
	DOI    string    `yaml:"DOI,omitempty" json:"DOI,omitempty"`
	URL    string    `yaml:"URL,omitempty" json:"URL,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty" json:"family,omitempty"`
	Given   string `yaml:"given,omitempty" json:"given,omitempty"`
	Literal string `yaml:"literal,omitempty" json:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts" json:"date-parts"`
}

// Open reads every entry from path, choosing the format by extension:
// .yaml/.yml (CSL-YAML), .json (CSL-JSON), .db/.sqlite (library database).
func Open(ctx context.Context, path string) ([]types.Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("opening library: %w", err)
		}
		store, err := NewStore(path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Entries(ctx)
	default:
		return Load(path)
	}
}

// Load reads a CSL-YAML or CSL-JSON bibliography file.
func Load(path string) ([]types.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening library: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseCSLYAML(f)
	case ".json":
		return ParseCSLJSON(f)
	default:
		return nil, fmt.Errorf("unsupported library format %q", filepath.Ext(path))
	}
}

// ParseCSLYAML reads a CSL-YAML list of items. A Pandoc-style document with
// a top-level "references" key is accepted too.
func ParseCSLYAML(r io.Reader) ([]types.Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading CSL-YAML: %w", err)
	}

	var items []CSLItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		var doc struct {
			References []CSLItem `yaml:"references"`
		}
		if docErr := yaml.Unmarshal(data, &doc); docErr != nil {
			return nil, fmt.Errorf("parsing CSL-YAML: %w", err)
		}
		items = doc.References
	}
	return toEntries(items), nil
}

// ParseCSLJSON reads a CSL-JSON array of items.
func ParseCSLJSON(r io.Reader) ([]types.Entry, error) {
	var items []CSLItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("parsing CSL-JSON: %w", err)
	}
	return toEntries(items), nil
}

func toEntries(items []CSLItem) []types.Entry {
	entries := make([]types.Entry, 0, len(items))
	for i, item := range items {
		entries = append(entries, toEntry(i, item))
	}
	return entries
}

// toEntry converts a CSL item; items without an id get a positional key.
func toEntry(pos int, item CSLItem) types.Entry {
	key := item.ID
	if key == "" {
		key = fmt.Sprintf("item-%d", pos+1)
	}
	fields := make(map[string]string)
	set := func(name, value string) {
		if value = strings.TrimSpace(value); value != "" {
			fields[name] = value
		}
	}
	set(types.FieldTitle, item.Title)
	set(types.FieldDOI, item.DOI)
	set(types.FieldURL, item.URL)

	var authors []string
	for _, a := range item.Author {
		if name := formatName(a); name != "" {
			authors = append(authors, name)
		}
	}
	set(types.FieldAuthor, strings.Join(authors, " and "))

	if item.Issued != nil && len(item.Issued.DateParts) > 0 && len(item.Issued.DateParts[0]) > 0 {
		set(types.FieldYear, strconv.Itoa(item.Issued.DateParts[0][0]))
	}

	return types.Entry{Key: key, Type: item.Type, Fields: fields}
}

func formatName(n CSLName) string {
	if n.Literal != "" {
		return n.Literal
	}
	return strings.TrimSpace(n.Given + " " + n.Family)
}
