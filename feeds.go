package spacetraveling

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// FeedRegistry keeps the live Accumulator of every rendered listing page,
// keyed by a random view id. Views expire after ttl without use.
type FeedRegistry struct {
	mu    sync.Mutex
	views map[string]*feedView
	ttl   time.Duration
	max   int
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type feedView struct {
	acc     *Accumulator
	expires time.Time
}

// NewFeedRegistry creates a registry holding at most max views. A janitor
// goroutine drops expired views until Stop is called.
func NewFeedRegistry(ttl time.Duration, max int) *FeedRegistry {
	r := &FeedRegistry{
		views: make(map[string]*feedView),
		ttl:   ttl,
		max:   max,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go r.janitor()
	return r
}

func (r *FeedRegistry) janitor() {
	ticker := time.NewTicker(r.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			r.sweepLocked()
			r.mu.Unlock()
		case <-r.stop:
			return
		}
	}
}

// Stop ends the janitor goroutine.
func (r *FeedRegistry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Create registers acc and returns its view id.
func (r *FeedRegistry) Create(acc *Accumulator) string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 && len(r.views) >= r.max {
		r.sweepLocked()
		if len(r.views) >= r.max {
			r.evictOldestLocked()
		}
	}
	r.views[id] = &feedView{acc: acc, expires: r.now().Add(r.ttl)}
	return id
}

// Get returns the Accumulator of a live view and extends its lifetime.
func (r *FeedRegistry) Get(id string) (*Accumulator, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if now.After(v.expires) {
		delete(r.views, id)
		return nil, false
	}
	v.expires = now.Add(r.ttl)
	return v.acc, true
}

// Len returns the number of registered views, expired ones included.
func (r *FeedRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func (r *FeedRegistry) sweepLocked() {
	now := r.now()
	for id, v := range r.views {
		if now.After(v.expires) {
			delete(r.views, id)
		}
	}
}

func (r *FeedRegistry) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, v := range r.views {
		if oldestID == "" || v.expires.Before(oldest) {
			oldestID, oldest = id, v.expires
		}
	}
	delete(r.views, oldestID)
}
