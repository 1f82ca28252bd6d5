// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scite

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/tally-lookup/pkg/types"
)

// Shared collapses concurrent fetches of the same DOI into one request to
// the wrapped Fetcher. Each caller can give up on its own context; the
// shared request is cancelled once every waiter has given up.
type Shared struct {
	next  Fetcher
	group singleflight.Group

	mu    sync.Mutex
	calls map[string]*sharedCall
}

type sharedCall struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewShared wraps next.
func NewShared(next Fetcher) *Shared {
	return &Shared{
		next:  next,
		calls: make(map[string]*sharedCall),
	}
}

// Fetch returns the tallies for doi, joining an in-flight request for the
// same DOI when there is one. DOIs differing only in case share a request.
func (s *Shared) Fetch(ctx context.Context, doi string) (types.TallyRecord, error) {
	if err := ctx.Err(); err != nil {
		return types.TallyRecord{}, newFetchError(KindCancelled, doi, err)
	}

	key := strings.ToLower(doi)
	call := s.join(ctx, key)
	defer s.leave(key, call)

	ch := s.group.DoChan(key, func() (any, error) {
		return s.next.Fetch(call.ctx, doi)
	})

	select {
	case res := <-ch:
		rec, _ := res.Val.(types.TallyRecord)
		return rec, res.Err
	case <-ctx.Done():
		return types.TallyRecord{}, newFetchError(KindCancelled, doi, ctx.Err())
	}
}

func (s *Shared) join(ctx context.Context, key string) *sharedCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	call, ok := s.calls[key]
	if !ok {
		callCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		call = &sharedCall{ctx: callCtx, cancel: cancel}
		s.calls[key] = call
	}
	call.waiters++
	return call
}

func (s *Shared) leave(key string, call *sharedCall) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call.waiters--
	if call.waiters > 0 {
		return
	}
	if s.calls[key] == call {
		delete(s.calls, key)
	}
	call.cancel()
	// A request nobody waits for may still be unwinding; later callers
	// must not join it.
	s.group.Forget(key)
}
