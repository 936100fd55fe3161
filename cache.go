package spacetraveling

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/prismic"
)

// PageCache holds generated page data per route with incremental
// regeneration: fresh entries are served as is, expired ones are served once
// more while a single background load replaces them, and misses fall back to
// the snapshot store before loading synchronously. Concurrent misses for one
// route share a single load.
type PageCache struct {
	mu       sync.Mutex
	entries  map[string]*pageEntry
	inflight map[string]*pendingLoad
	gen      uint64 // bumped by Invalidate
	store    *SnapshotStore
	logger   echo.Logger
	now      func() time.Time

	refreshTimeout time.Duration
	wg             sync.WaitGroup
}

type pageEntry struct {
	value      any
	generated  time.Time
	stale      bool
	refreshing bool
}

func (e *pageEntry) expired(now time.Time, ttl time.Duration) bool {
	return e.stale || now.Sub(e.generated) >= ttl
}

// pendingLoad is a miss being resolved. Waiters read value and err after done
// is closed.
type pendingLoad struct {
	done  chan struct{}
	value any
	err   error
}

// NewPageCache creates a PageCache. store may be nil to keep pages in memory
// only.
func NewPageCache(store *SnapshotStore, logger echo.Logger) *PageCache {
	return &PageCache{
		entries:        make(map[string]*pageEntry),
		inflight:       make(map[string]*pendingLoad),
		store:          store,
		logger:         logger,
		now:            time.Now,
		refreshTimeout: 30 * time.Second,
	}
}

// loadPage returns the page data for route, generating it with load when
// nothing usable is cached. ttl is the revalidation interval of the route.
func loadPage[T any](ctx context.Context, c *PageCache, route string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T
	refresh := func(ctx context.Context) (any, error) { return load(ctx) }

	c.mu.Lock()
	if e, ok := c.entries[route]; ok {
		if v, ok := e.value.(T); ok {
			if e.expired(c.now(), ttl) {
				c.refreshLocked(route, e, refresh)
			}
			c.mu.Unlock()
			return v, nil
		}
	}
	if p, ok := c.inflight[route]; ok {
		c.mu.Unlock()
		select {
		case <-p.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		if p.err != nil {
			return zero, p.err
		}
		if v, ok := p.value.(T); ok {
			return v, nil
		}
		return load(ctx)
	}
	p := &pendingLoad{done: make(chan struct{})}
	c.inflight[route] = p
	gen := c.gen
	c.mu.Unlock()

	v, err := missPage(ctx, c, route, ttl, gen, load, refresh)

	c.mu.Lock()
	delete(c.inflight, route)
	p.value, p.err = v, err
	close(p.done)
	c.mu.Unlock()

	if err != nil {
		return zero, err
	}
	return v, nil
}

// missPage resolves a route held neither in memory nor in flight.
func missPage[T any](ctx context.Context, c *PageCache, route string, ttl time.Duration, gen uint64, load func(context.Context) (T, error), refresh func(context.Context) (any, error)) (T, error) {
	if v, generated, ok := restoreSnapshot[T](c, route); ok {
		c.mu.Lock()
		e := &pageEntry{value: v, generated: generated, stale: gen != c.gen}
		c.entries[route] = e
		if e.expired(c.now(), ttl) {
			c.refreshLocked(route, e, refresh)
		}
		c.mu.Unlock()
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	c.put(route, v, gen)
	return v, nil
}

// refreshLocked starts a background regeneration of e unless one is running.
// A failed regeneration keeps serving the old value, except when the
// document is gone: then the route is dropped so the next request loads it
// again.
func (c *PageCache) refreshLocked(route string, e *pageEntry, load func(context.Context) (any, error)) {
	if e.refreshing {
		return
	}
	e.refreshing = true
	gen := c.gen
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
		defer cancel()
		v, err := load(ctx)
		if errors.Is(err, prismic.ErrNotFound) {
			c.logger.Infof("regenerate %s: %v, dropping page", route, err)
			c.drop(route, e)
			return
		}
		if err != nil {
			c.logger.Warnf("regenerate %s: %v", route, err)
			c.mu.Lock()
			e.refreshing = false
			c.mu.Unlock()
			return
		}
		c.put(route, v, gen)
		c.logger.Infof("regenerated %s", route)
	}()
}

// put stores v for route. gen is the cache generation observed before v was
// loaded; when an Invalidate happened since, v is kept but marked expired.
func (c *PageCache) put(route string, v any, gen uint64) {
	now := c.now()
	c.mu.Lock()
	stale := gen != c.gen
	c.entries[route] = &pageEntry{value: v, generated: now, stale: stale}
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Errorf("encode snapshot %s: %v", route, err)
		return
	}
	generated := now
	if stale {
		generated = time.Unix(0, 0)
	}
	if err := c.store.Put(Snapshot{Route: route, Payload: payload, GeneratedAt: generated}); err != nil {
		c.logger.Errorf("save snapshot %s: %v", route, err)
	}
}

// drop removes route from memory and from the snapshot store. e guards
// against removing an entry that replaced the one being regenerated.
func (c *PageCache) drop(route string, e *pageEntry) {
	c.mu.Lock()
	if cur, ok := c.entries[route]; ok && cur != e {
		e.refreshing = false
		c.mu.Unlock()
		return
	}
	delete(c.entries, route)
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.Delete(route); err != nil {
		c.logger.Errorf("delete snapshot %s: %v", route, err)
	}
}

// generation returns the current invalidation generation.
func (c *PageCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func restoreSnapshot[T any](c *PageCache, route string) (T, time.Time, bool) {
	var v T
	if c.store == nil {
		return v, time.Time{}, false
	}
	snap, err := c.store.Get(route)
	if err != nil {
		if !errors.Is(err, ErrNoSnapshot) {
			c.logger.Warnf("read snapshot %s: %v", route, err)
		}
		return v, time.Time{}, false
	}
	if err := json.Unmarshal(snap.Payload, &v); err != nil {
		c.logger.Warnf("decode snapshot %s: %v", route, err)
		return v, time.Time{}, false
	}
	return v, snap.GeneratedAt, true
}

// Invalidate marks every cached page and snapshot as expired. Each page is
// served once more and regenerated in the background. Regenerations already
// running when Invalidate is called store their result as expired too.
func (c *PageCache) Invalidate() error {
	c.mu.Lock()
	c.gen++
	for _, e := range c.entries {
		e.stale = true
	}
	c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	return c.store.ExpireAll()
}

// Len returns the number of routes held in memory.
func (c *PageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Wait blocks until running background regenerations have finished.
func (c *PageCache) Wait() {
	c.wg.Wait()
}
