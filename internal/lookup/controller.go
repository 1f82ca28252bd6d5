// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lookup binds a citation tally lookup to the currently selected
// bibliographic entry. A Controller derives the entry's DOI, serves cached
// outcomes synchronously, fetches misses in the background, and publishes
// every status change to subscribers. Each rebind takes a new binding token;
// a fetch whose token is no longer current is discarded, so a superseded
// lookup can never overwrite the status of a newer one.
package lookup

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pdiddy/tally-lookup/internal/library"
	"github.com/pdiddy/tally-lookup/internal/scite"
	"github.com/pdiddy/tally-lookup/pkg/types"
)

// IdentifierFunc extracts the lookup key from an entry. It reports false
// when the entry has nothing to look up.
type IdentifierFunc func(types.Entry) (string, bool)

// Option configures a Controller.
type Option func(*Controller)

// WithCache shares cache with the controller instead of a private,
// unbounded one.
func WithCache(cache *Cache) Option {
	return func(c *Controller) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIdentifier replaces the DOI extraction used by Bind.
func WithIdentifier(fn IdentifierFunc) Option {
	return func(c *Controller) {
		if fn != nil {
			c.identify = fn
		}
	}
}

// Controller runs lookups for one entry at a time. All methods are safe
// for concurrent use; Bind and Refresh are expected to come from a single
// owner goroutine.
type Controller struct {
	fetcher  scite.Fetcher
	cache    *Cache
	identify IdentifierFunc
	logger   *slog.Logger

	mu     sync.Mutex
	token  uint64
	doi    string
	status Status
	cancel context.CancelFunc
	subs   map[int]chan Status
	nextID int
	closed bool

	wg sync.WaitGroup
}

// New returns an Idle controller that fetches through fetcher.
func New(fetcher scite.Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  fetcher,
		cache:    NewCache(0),
		identify: library.DOI,
		logger:   slog.Default(),
		status:   Status{State: StateIdle},
		subs:     make(map[int]chan Status),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("controller", uuid.NewString())
	return c
}

// Bind makes entry the current binding and returns the status after the
// synchronous part of the lookup: NotApplicable, a cached outcome,
// InProgress, or the unchanged status when entry has the DOI already bound.
func (c *Controller) Bind(entry types.Entry) Status {
	doi, ok := c.identify(entry)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.status
	}

	if ok && doi != "" && c.doi != "" && library.DOIKey(doi) == library.DOIKey(c.doi) && !(c.status.State == StateError && c.status.Transient) {
		c.logger.Debug("rebind to current DOI ignored", "doi", doi, "state", c.status.State.String())
		return c.status
	}

	c.supersede()

	if !ok || doi == "" {
		c.doi = ""
		c.logger.Debug("entry has no DOI", "entry", entry.Key)
		c.setStatus(Status{State: StateNotApplicable})
		return c.status
	}
	c.doi = doi

	if out, hit := c.cache.Get(doi); hit {
		c.logger.Debug("cache hit", "doi", doi)
		c.setStatus(out.Status(doi))
		return c.status
	}

	c.launch(doi)
	return c.status
}

// Refresh forgets any cached outcome for the bound DOI and fetches it
// again, whatever the current status.
func (c *Controller) Refresh() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.doi == "" {
		return c.status
	}

	c.supersede()
	c.cache.Forget(c.doi)
	c.launch(c.doi)
	return c.status
}

// supersede starts a new binding generation and cancels the fetch of the
// previous one. Callers hold c.mu.
func (c *Controller) supersede() {
	c.token++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// launch starts the fetch for doi under the current token. Callers hold c.mu.
func (c *Controller) launch(doi string) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	token := c.token

	c.setStatus(Status{State: StateInProgress, DOI: doi})
	c.logger.Debug("fetch started", "doi", doi, "token", token)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		rec, err := c.fetcher.Fetch(ctx, doi)
		c.complete(token, doi, rec, err)
	}()
}

// complete applies a fetch result if its binding is still current.
func (c *Controller) complete(token uint64, doi string, rec types.TallyRecord, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.token {
		c.logger.Debug("stale fetch discarded", "doi", doi, "token", token, "current", c.token)
		return
	}
	c.cancel = nil

	if err == nil {
		c.cache.Put(doi, Outcome{Record: rec})
		c.setStatus(Status{State: StateFound, DOI: doi, Record: rec})
		return
	}

	cached := c.cache.Put(doi, Outcome{Err: err})
	c.logger.Info("fetch failed", "doi", doi, "kind", scite.KindOf(err).String(), "cached", cached, "error", err)
	c.setStatus(Status{State: StateError, DOI: doi, Message: err.Error(), Transient: !cached})
}

// setStatus records s and publishes it to subscribers, replacing any
// status they have not received yet. Callers hold c.mu.
func (c *Controller) setStatus(s Status) {
	c.status = s
	for _, ch := range c.subs {
		offer(ch, s)
	}
}

func offer(ch chan Status, s Status) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

// Subscribe returns a channel that always holds the most recent status not
// yet received, starting with the current one. The returned function
// unsubscribes and closes the channel. Channels are closed by Close.
func (c *Controller) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		ch <- c.status
		close(ch)
		return ch, func() {}
	}

	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	ch <- c.status

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

// Status returns the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Record returns the tallies when the status is Found.
func (c *Controller) Record() (types.TallyRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.State != StateFound {
		return types.TallyRecord{}, false
	}
	return c.status.Record, true
}

// ErrorMessage returns the failure description when the status is Error.
func (c *Controller) ErrorMessage() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.State != StateError {
		return "", false
	}
	return c.status.Message, true
}

// Identifier returns the DOI of the current binding, used by the
// presentation layer to build the report URL.
func (c *Controller) Identifier() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doi, c.doi != ""
}

// ShouldShow reports whether a tally pane has anything to display.
func (c *Controller) ShouldShow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.State != StateIdle && c.status.State != StateNotApplicable
}

// Wait blocks until every launched fetch has returned. Call it from the
// goroutine that binds: a Bind racing with Wait may start a fetch that Wait
// does not see.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close supersedes the current binding, cancels its fetch, closes all
// subscriber channels, and waits for background fetches to return. Bind and
// Refresh are ignored afterwards. A fetcher that ignores cancellation holds
// Close until its request returns, which is bounded by the HTTP timeout.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.wg.Wait()
		return
	}
	c.closed = true
	c.supersede()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	c.wg.Wait()
}
