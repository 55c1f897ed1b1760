// Package querycache keeps the results of keyed reads, shares in-flight fetches between readers
// and marks entries stale when a mutation invalidates them.
package querycache

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/jrsteele09/bizadmin/internal/metrics"
	"github.com/rs/zerolog"
)

type Status string

const (
	StatusIdle     Status = "idle"
	StatusFetching Status = "fetching"
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
)

// Fetcher loads the payload for a key. The context is owned by the cache, not by any reader.
type Fetcher func(ctx context.Context) (any, error)

// Result is what a reader sees. Err is set alongside Data when a failed refetch kept the old payload.
type Result struct {
	Data      any
	Err       error
	Status    Status
	UpdatedAt time.Time
	FromCache bool
	Stale     bool
	Fetching  bool
}

// HasData reports whether a payload is available, fresh or not.
func (r Result) HasData() bool {
	return r.Data != nil
}

const (
	defaultGCTime     = 5 * time.Minute
	defaultRetries    = 1
	defaultRetryDelay = time.Second
)

type Option func(c *Cache)

// WithStaleTime sets how long a successful payload is served without refetching.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) {
		c.staleTime = d
	}
}

// WithGCTime sets how long an unread entry is kept before Sweep evicts it.
func WithGCTime(d time.Duration) Option {
	return func(c *Cache) {
		c.gcTime = d
	}
}

// WithRetries sets the number of automatic retries after a failed fetch and the delay between them.
func WithRetries(n int, delay time.Duration) Option {
	return func(c *Cache) {
		c.retries = max(n, 0)
		c.retryDelay = delay
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) {
		c.log = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache is safe for concurrent use. Its lock is never held across a fetch.
type Cache struct {
	lock       sync.Mutex
	entries    map[string]*entry
	seq        uint64
	staleTime  time.Duration
	gcTime     time.Duration
	retries    int
	retryDelay time.Duration
	now        func() time.Time
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

type entry struct {
	key          Key
	id           string
	data         any
	hasData      bool
	err          error
	updatedAt    time.Time
	stale        bool
	generation   uint64
	flight       *flight
	committedSeq uint64
	lastAccess   time.Time
}

// flight is one fetch shared by every reader of a key within a generation.
type flight struct {
	seq        uint64
	generation uint64
	refs       int
	cancel     context.CancelFunc
	done       chan struct{}
	committed  bool
}

func New(options ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]*entry),
		gcTime:     defaultGCTime,
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
		now:        time.Now,
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Read returns the entry for key, fetching with fetch when it is missing or not fresh.
// Concurrent readers of one key share a single fetch. When ctx ends first, Read returns the
// retained payload with ctx.Err() and the fetch continues for the remaining readers.
func (c *Cache) Read(ctx context.Context, key Key, fetch Fetcher) Result {
	id := key.String()
	for {
		c.lock.Lock()
		e := c.entryLocked(key, id)
		now := c.now()
		e.lastAccess = now
		if c.freshLocked(e, now) {
			r := e.resultLocked()
			r.FromCache = true
			c.lock.Unlock()
			c.metrics.CacheHit(key.Resource)
			return r
		}

		f := e.flight
		if f == nil || f.generation != e.generation {
			f = c.startLocked(e, fetch)
		}
		f.refs++
		c.lock.Unlock()
		c.metrics.CacheMiss(key.Resource)

		select {
		case <-f.done:
		case <-ctx.Done():
			c.lock.Lock()
			c.releaseLocked(e, f)
			r := e.resultLocked()
			c.lock.Unlock()
			r.Err = ctx.Err()
			r.FromCache = r.HasData()
			return r
		}

		c.lock.Lock()
		f.refs--
		if !f.committed && ctx.Err() == nil {
			// Superseded by an invalidation or removal: read again against the current generation.
			c.lock.Unlock()
			continue
		}
		r := e.resultLocked()
		c.lock.Unlock()
		return r
	}
}

// Get is Read with a typed payload. data is the zero value when nothing is cached.
func Get[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error)) (T, Result) {
	r := c.Read(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	data, _ := r.Data.(T)
	return data, r
}

// Peek returns the current state of key without fetching.
func (c *Cache) Peek(key Key) (Result, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return Result{Status: StatusIdle}, false
	}
	r := e.resultLocked()
	r.FromCache = true
	return r, true
}

// Invalidate marks matching entries stale and advances their generation, so that a fetch started
// before the call can no longer commit. Payloads are kept. Returns the number of entries affected.
func (c *Cache) Invalidate(pred Predicate) int {
	c.lock.Lock()
	counts := make(map[string]int)
	n := 0
	for _, e := range c.entries {
		if !pred(e.key) {
			continue
		}
		e.stale = true
		e.generation++
		if e.flight != nil {
			e.flight.cancel()
			e.flight = nil
		}
		counts[e.key.Resource]++
		n++
	}
	c.lock.Unlock()

	for resource, count := range counts {
		c.metrics.CacheInvalidated(resource, count)
	}
	c.log.Debug().Int("entries", n).Msg("cache invalidated")
	return n
}

// InvalidateResource invalidates every entry of resource.
func (c *Cache) InvalidateResource(resource string) int {
	return c.Invalidate(ResourcePredicate(resource))
}

// Remove evicts matching entries, cancelling their fetches.
func (c *Cache) Remove(pred Predicate) int {
	c.lock.Lock()
	defer c.lock.Unlock()
	n := 0
	for id, e := range c.entries {
		if !pred(e.key) {
			continue
		}
		c.dropLocked(id, e)
		n++
	}
	return n
}

// Sweep evicts entries that have no fetch running and have not been read for the GC time.
func (c *Cache) Sweep(now time.Time) int {
	c.lock.Lock()
	defer c.lock.Unlock()
	n := 0
	for id, e := range c.entries {
		if e.flight != nil || now.Sub(e.lastAccess) < c.gcTime {
			continue
		}
		c.dropLocked(id, e)
		n++
	}
	if n > 0 {
		c.log.Debug().Int("entries", n).Msg("cache swept")
	}
	return n
}

// Run sweeps periodically until ctx ends.
func (c *Cache) Run(ctx context.Context) {
	interval := max(c.gcTime/2, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(c.now())
		}
	}
}

// Len is the number of cached keys.
func (c *Cache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.entries)
}

func (c *Cache) entryLocked(key Key, id string) *entry {
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key, id: id}
		c.entries[id] = e
	}
	return e
}

func (c *Cache) freshLocked(e *entry, now time.Time) bool {
	return e.hasData && e.err == nil && !e.stale && now.Sub(e.updatedAt) < c.staleTime
}

func (c *Cache) dropLocked(id string, e *entry) {
	if e.flight != nil {
		e.flight.cancel()
		e.flight = nil
	}
	delete(c.entries, id)
}

func (c *Cache) startLocked(e *entry, fetch Fetcher) *flight {
	c.seq++
	ctx, cancel := context.WithCancel(context.Background())
	f := &flight{
		seq:        c.seq,
		generation: e.generation,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	e.flight = f
	c.metrics.CacheFetch(e.key.Resource)
	go c.run(ctx, e, f, fetch)
	return f
}

// releaseLocked drops a reader from f; the last reader to leave cancels the fetch.
func (c *Cache) releaseLocked(e *entry, f *flight) {
	f.refs--
	if f.refs > 0 {
		return
	}
	f.cancel()
	if e.flight == f {
		e.flight = nil
	}
}

func (c *Cache) run(ctx context.Context, e *entry, f *flight, fetch Fetcher) {
	defer f.cancel()
	data, err := c.fetchWithRetry(ctx, e.key, fetch)
	c.commit(e, f, data, err)
}

func (c *Cache) fetchWithRetry(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	var (
		data any
		err  error
	)
	for attempt := 0; ; attempt++ {
		data, err = fetch(ctx)
		if err == nil || attempt >= c.retries || ctx.Err() != nil {
			return data, err
		}
		c.log.Debug().Str("key", key.String()).Int("attempt", attempt+1).Err(err).Msg("retrying fetch")
		timer := time.NewTimer(c.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// commit applies a finished fetch unless a newer fetch or invalidation has superseded it.
// A fetch whose readers all left still commits a success if nothing replaced it.
func (c *Cache) commit(e *entry, f *flight, data any, err error) {
	c.lock.Lock()
	defer close(f.done)
	defer c.lock.Unlock()

	owner := e.flight == f || (e.flight == nil && err == nil)
	current := owner && c.entries[e.id] == e && f.generation == e.generation && f.seq > e.committedSeq
	if e.flight == f {
		e.flight = nil
	}
	if !current {
		c.log.Debug().Str("key", e.id).Uint64("seq", f.seq).Msg("discarding superseded fetch")
		return
	}

	f.committed = true
	e.committedSeq = f.seq
	if err != nil {
		e.err = &errors.CacheError{Key: e.id, Err: err}
		c.metrics.CacheFetchError(e.key.Resource)
		c.log.Warn().Str("key", e.id).Err(err).Msg("fetch failed")
		return
	}
	e.data = data
	e.hasData = true
	e.err = nil
	e.stale = false
	e.updatedAt = c.now()
}

func (e *entry) resultLocked() Result {
	r := Result{
		Data:      e.data,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
		Fetching:  e.flight != nil,
		Stale:     e.hasData && (e.stale || e.err != nil),
	}
	switch {
	case e.err != nil:
		r.Status = StatusError
	case e.hasData:
		r.Status = StatusSuccess
	case e.flight != nil:
		r.Status = StatusFetching
	default:
		r.Status = StatusIdle
	}
	return r
}
