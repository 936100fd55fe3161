package spacetraveling

import (
	"context"
	"sync"

	"github.com/eringen/spacetraveling/prismic"
)

// FeedState is the load-more state of an Accumulator.
type FeedState int

const (
	Idle FeedState = iota
	Fetching
)

func (s FeedState) String() string {
	if s == Fetching {
		return "fetching"
	}
	return "idle"
}

// PageFetcher follows a next_page cursor. *prismic.Client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string) (prismic.Response, error)
}

// Accumulator holds the posts rendered on one listing page view and the
// cursor to the next page. Posts are only ever appended, in fetch order.
// At most one load is in flight; further calls while fetching are no-ops.
type Accumulator struct {
	fetcher    PageFetcher
	normalizer Normalizer

	mu       sync.Mutex
	results  []Post
	seen     map[string]struct{}
	nextPage string
	state    FeedState
}

// NewAccumulator seeds an Accumulator with an already normalized first page.
func NewAccumulator(fetcher PageFetcher, n Normalizer, seed PostPage) *Accumulator {
	a := &Accumulator{
		fetcher:    fetcher,
		normalizer: n,
		results:    make([]Post, 0, len(seed.Results)),
		seen:       make(map[string]struct{}, len(seed.Results)),
	}
	a.appendLocked(seed.Results)
	if seed.NextPage != nil {
		a.nextPage = *seed.NextPage
	}
	return a
}

// LoadMore fetches the next page and appends its posts, returning only the
// newly appended ones. It does nothing when the list is exhausted or a load
// is already running. On error the state is left exactly as it was.
func (a *Accumulator) LoadMore(ctx context.Context) ([]Post, error) {
	a.mu.Lock()
	if a.state == Fetching || a.nextPage == "" {
		a.mu.Unlock()
		return nil, nil
	}
	a.state = Fetching
	cursor := a.nextPage
	a.mu.Unlock()

	page, err := a.fetch(ctx, cursor)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = Idle
	if err != nil {
		return nil, err
	}
	appended := a.appendLocked(page.Results)
	a.nextPage = ""
	if page.NextPage != nil {
		a.nextPage = *page.NextPage
	}
	return appended, nil
}

func (a *Accumulator) fetch(ctx context.Context, cursor string) (PostPage, error) {
	resp, err := a.fetcher.FetchPage(ctx, cursor)
	if err != nil {
		return PostPage{}, err
	}
	return a.normalizer.Page(resp)
}

// appendLocked adds posts whose uid is not already listed.
func (a *Accumulator) appendLocked(posts []Post) []Post {
	appended := make([]Post, 0, len(posts))
	for _, p := range posts {
		if p.UID != "" {
			if _, dup := a.seen[p.UID]; dup {
				continue
			}
			a.seen[p.UID] = struct{}{}
		}
		a.results = append(a.results, p)
		appended = append(appended, p)
	}
	return appended
}

// Snapshot returns a copy of the accumulated page.
func (a *Accumulator) Snapshot() PostPage {
	a.mu.Lock()
	defer a.mu.Unlock()
	page := PostPage{Results: make([]Post, len(a.results))}
	copy(page.Results, a.results)
	if a.nextPage != "" {
		next := a.nextPage
		page.NextPage = &next
	}
	return page
}

// HasMore reports whether a next page cursor is known.
func (a *Accumulator) HasMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nextPage != ""
}

// State reports whether a load is in flight.
func (a *Accumulator) State() FeedState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}
