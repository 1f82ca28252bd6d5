// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import "github.com/pdiddy/tally-lookup/pkg/types"

// State is the phase of the lookup for the current binding.
type State int

const (
	StateIdle State = iota
	StateInProgress
	StateFound
	StateError
	StateNotApplicable
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInProgress:
		return "in_progress"
	case StateFound:
		return "found"
	case StateError:
		return "error"
	case StateNotApplicable:
		return "not_applicable"
	default:
		return "unknown"
	}
}

// Status is the observable lookup state. Record is set only when State is
// StateFound and Message only when State is StateError.
type Status struct {
	State State `json:"state"`

	// DOI is the identifier of the binding; empty for Idle and NotApplicable.
	DOI string `json:"doi,omitempty"`

	Record  types.TallyRecord `json:"record"`
	Message string            `json:"message,omitempty"`

	// Cached is true when the status was served from the result cache.
	Cached bool `json:"cached,omitempty"`

	// Transient marks an Error that was not cached; binding to the same
	// DOI again retries the fetch.
	Transient bool `json:"transient,omitempty"`
}

// Stable reports whether the status will not change without a rebind.
func (s Status) Stable() bool {
	return s.State != StateInProgress
}
