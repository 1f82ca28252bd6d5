// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scite

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/tally-lookup/pkg/types"
)

// gatedFetcher blocks every Fetch until release is closed or ctx ends.
type gatedFetcher struct {
	calls   atomic.Int32
	started chan string
	release chan struct{}
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{started: make(chan string, 16), release: make(chan struct{})}
}

func (f *gatedFetcher) Fetch(ctx context.Context, doi string) (types.TallyRecord, error) {
	f.calls.Add(1)
	f.started <- doi
	select {
	case <-f.release:
		return types.TallyRecord{DOI: doi, Total: 4}, nil
	case <-ctx.Done():
		return types.TallyRecord{}, newFetchError(KindCancelled, doi, ctx.Err())
	}
}

func TestSharedCollapsesConcurrentFetches(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newGatedFetcher()
	s := NewShared(f)

	const n = 5
	var wg sync.WaitGroup
	results := make([]types.TallyRecord, n)
	errs := make([]error, n)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = s.Fetch(context.Background(), "10.1/a")
	}()
	<-f.started

	for i := 1; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Fetch(context.Background(), "10.1/a")
		}(i)
	}
	// Give the joiners time to attach to the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(f.release)
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 4, results[i].Total)
	}
}

func TestSharedFoldsDOICase(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newGatedFetcher()
	s := NewShared(f)

	var wg sync.WaitGroup
	var upperErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.Fetch(context.Background(), "10.1/abc")
	}()
	<-f.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, upperErr = s.Fetch(context.Background(), "10.1/ABC")
	}()
	time.Sleep(50 * time.Millisecond)
	close(f.release)
	wg.Wait()

	require.NoError(t, upperErr)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestSharedWaiterCancelDoesNotAffectOthers(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newGatedFetcher()
	s := NewShared(f)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := s.Fetch(ctxA, "10.1/a")
		errA <- err
	}()
	<-f.started

	resB := make(chan error, 1)
	go func() {
		_, err := s.Fetch(context.Background(), "10.1/a")
		resB <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	assert.Equal(t, KindCancelled, KindOf(<-errA))

	close(f.release)
	assert.NoError(t, <-resB)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestSharedLastWaiterCancelsRequest(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newGatedFetcher()
	s := NewShared(f)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := s.Fetch(ctx, "10.1/a")
		errCh <- err
	}()
	<-f.started
	cancel()
	assert.ErrorIs(t, <-errCh, ErrCancelled)

	// The abandoned request is forgotten; a new caller starts fresh.
	done := make(chan error, 1)
	go func() {
		_, err := s.Fetch(context.Background(), "10.1/a")
		done <- err
	}()
	<-f.started
	close(f.release)
	assert.NoError(t, <-done)
	assert.Equal(t, int32(2), f.calls.Load())

	s.mu.Lock()
	assert.Empty(t, s.calls)
	s.mu.Unlock()
}

func TestSharedAlreadyCancelled(t *testing.T) {
	f := newGatedFetcher()
	s := NewShared(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Fetch(ctx, "10.1/a")
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, int32(0), f.calls.Load())
}
