// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scite

import (
	"errors"
	"fmt"
)

// Kind classifies a failed fetch.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindNotFound
	KindMalformed
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindNotFound:
		return "not_found"
	case KindMalformed:
		return "malformed"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Sentinel errors matched with errors.Is against a *FetchError.
var (
	ErrNetwork   = errors.New("network failure")
	ErrNotFound  = errors.New("no tallies found")
	ErrMalformed = errors.New("malformed response")
	ErrCancelled = errors.New("fetch cancelled")

	// ErrEmptyDOI is returned when Fetch is called without an identifier.
	ErrEmptyDOI = errors.New("empty DOI")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindNotFound:
		return ErrNotFound
	case KindMalformed:
		return ErrMalformed
	case KindCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// FetchError reports a classified fetch failure for one DOI.
type FetchError struct {
	Kind Kind
	DOI  string
	Err  error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("no citation tallies found for %s", e.DOI)
	case KindMalformed:
		return fmt.Sprintf("unreadable response from citation service for %s: %v", e.DOI, e.Err)
	case KindCancelled:
		return fmt.Sprintf("lookup of %s cancelled", e.DOI)
	default:
		return fmt.Sprintf("could not reach citation service for %s: %v", e.DOI, e.Err)
	}
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *FetchError) Unwrap() []error {
	var errs []error
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newFetchError(kind Kind, doi string, err error) *FetchError {
	return &FetchError{Kind: kind, DOI: doi, Err: err}
}

// KindOf returns the classification of err, or KindUnknown when err is not
// a fetch failure.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Cacheable reports whether a failed outcome is stable enough to memoize.
// Only "the service has no data" qualifies; transient failures must be
// retried on the next lookup.
func Cacheable(err error) bool {
	return errors.Is(err, ErrNotFound)
}
