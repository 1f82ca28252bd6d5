// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Common entry field names.
const (
	FieldDOI    = "doi"
	FieldURL    = "url"
	FieldTitle  = "title"
	FieldAuthor = "author"
	FieldYear   = "year"
)

// Entry is a bibliographic entry as selected in a reference manager.
// Loaders store field names lower-cased, but entries built elsewhere may
// use any case ("DOI" in CSL).
type Entry struct {
	// Key is the citation key (e.g. "vaswani2017").
	Key string `json:"key" yaml:"key"`

	// Type is the entry type (e.g. "article", "inproceedings").
	Type string `json:"type" yaml:"type"`

	// Fields maps field names to raw values.
	Fields map[string]string `json:"fields" yaml:"fields"`
}

// Field returns the value stored under name, matched case-insensitively.
func (e Entry) Field(name string) (string, bool) {
	if e.Fields == nil {
		return "", false
	}
	if v, ok := e.Fields[strings.ToLower(name)]; ok {
		return v, true
	}
	for k, v := range e.Fields {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// WithField returns a copy of e with name set to value. The receiver's
// field map is not modified.
func (e Entry) WithField(name, value string) Entry {
	fields := make(map[string]string, len(e.Fields)+1)
	for k, v := range e.Fields {
		fields[k] = v
	}
	fields[strings.ToLower(name)] = value
	e.Fields = fields
	return e
}
