// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"context"

	"github.com/pdiddy/tally-lookup/internal/scite"
)

// Resolve performs a one-shot, blocking lookup of doi with the same cache
// rules as a Controller: hits are returned without a fetch, Found and
// NotFound outcomes are stored, transient failures are not. It is meant for
// batch callers that have no binding to supersede.
func Resolve(ctx context.Context, fetcher scite.Fetcher, cache *Cache, doi string) Status {
	if doi == "" {
		return Status{State: StateNotApplicable}
	}
	if out, ok := cache.Get(doi); ok {
		return out.Status(doi)
	}

	rec, err := fetcher.Fetch(ctx, doi)
	if err == nil {
		cache.Put(doi, Outcome{Record: rec})
		return Status{State: StateFound, DOI: doi, Record: rec}
	}
	cached := cache.Put(doi, Outcome{Err: err})
	return Status{State: StateError, DOI: doi, Message: err.Error(), Transient: !cached}
}
