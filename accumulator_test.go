package spacetraveling

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/eringen/spacetraveling/prismic"
)

// fakeFetcher serves canned pages keyed by cursor and counts calls.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]prismic.Response
	err   error
	calls int
	gate  chan struct{} // when set, FetchPage blocks until it is closed
	enter chan struct{}
}

func (f *fakeFetcher) FetchPage(ctx context.Context, cursor string) (prismic.Response, error) {
	f.mu.Lock()
	f.calls++
	gate, enter := f.gate, f.enter
	f.mu.Unlock()
	if enter != nil {
		enter <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return prismic.Response{}, f.err
	}
	resp, ok := f.pages[cursor]
	if !ok {
		return prismic.Response{}, &prismic.TransportError{URL: cursor, StatusCode: 404}
	}
	return resp, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func docsRange(prefix string, n int) []prismic.Document {
	docs := make([]prismic.Document, 0, n)
	for i := 1; i <= n; i++ {
		docs = append(docs, testDoc(fmt.Sprintf("%s-%d", prefix, i), "2022-03-05T00:00:00Z"))
	}
	return docs
}

func seedPage(t *testing.T, docs []prismic.Document, next string) PostPage {
	t.Helper()
	resp := prismic.Response{Results: docs}
	if next != "" {
		resp.NextPage = &next
	}
	page, err := Normalizer{}.Page(resp)
	if err != nil {
		t.Fatalf("seed page: %v", err)
	}
	return page
}

func uids(posts []Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.UID)
	}
	return out
}

func TestAccumulatorEndToEnd(t *testing.T) {
	const cursor2 = "cursor-2"
	fetcher := &fakeFetcher{pages: map[string]prismic.Response{
		cursor2: {Results: docsRange("second", 3)},
	}}
	acc := NewAccumulator(fetcher, Normalizer{}, seedPage(t, docsRange("first", 5), cursor2))

	appended, err := acc.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("LoadMore failed: %v", err)
	}
	if len(appended) != 3 {
		t.Fatalf("appended %d posts, want 3", len(appended))
	}

	snap := acc.Snapshot()
	want := []string{"first-1", "first-2", "first-3", "first-4", "first-5", "second-1", "second-2", "second-3"}
	if got := uids(snap.Results); !reflect.DeepEqual(got, want) {
		t.Errorf("results = %v, want %v", got, want)
	}
	if snap.NextPage != nil {
		t.Errorf("next page = %q, want nil", *snap.NextPage)
	}
	if *snap.Results[6].FirstPublicationDate != "05 Mar 2022" {
		t.Errorf("appended post not normalized: %v", *snap.Results[6].FirstPublicationDate)
	}
	if acc.HasMore() {
		t.Error("HasMore should be false after the last page")
	}
}

func TestAccumulatorUpdatesCursor(t *testing.T) {
	next3 := "cursor-3"
	fetcher := &fakeFetcher{pages: map[string]prismic.Response{
		"cursor-2": {Results: docsRange("b", 2), NextPage: &next3},
		"cursor-3": {Results: docsRange("c", 2)},
	}}
	acc := NewAccumulator(fetcher, Normalizer{}, seedPage(t, docsRange("a", 2), "cursor-2"))

	if _, err := acc.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore failed: %v", err)
	}
	snap := acc.Snapshot()
	if snap.NextPage == nil || *snap.NextPage != next3 {
		t.Fatalf("next page = %v, want %q", snap.NextPage, next3)
	}
	if _, err := acc.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore failed: %v", err)
	}
	want := []string{"a-1", "a-2", "b-1", "b-2", "c-1", "c-2"}
	if got := uids(acc.Snapshot().Results); !reflect.DeepEqual(got, want) {
		t.Errorf("results = %v, want %v", got, want)
	}
}

func TestAccumulatorExhaustedIsNoop(t *testing.T) {
	fetcher := &fakeFetcher{}
	acc := NewAccumulator(fetcher, Normalizer{}, seedPage(t, docsRange("a", 3), ""))
	before := acc.Snapshot()

	appended, err := acc.LoadMore(context.Background())
	if err != nil || appended != nil {
		t.Fatalf("LoadMore = %v, %v; want nil, nil", appended, err)
	}
	if fetcher.callCount() != 0 {
		t.Errorf("fetcher called %d times, want 0", fetcher.callCount())
	}
	if !reflect.DeepEqual(before, acc.Snapshot()) {
		t.Error("state changed on exhausted LoadMore")
	}
}

func TestAccumulatorIgnoresLoadWhileFetching(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]prismic.Response{"cursor-2": {Results: docsRange("b", 1)}},
		gate:  make(chan struct{}),
		enter: make(chan struct{}, 1),
	}
	acc := NewAccumulator(fetcher, Normalizer{}, seedPage(t, docsRange("a", 1), "cursor-2"))

	done := make(chan error, 1)
	go func() {
		_, err := acc.LoadMore(context.Background())
		done <- err
	}()

	select {
	case <-fetcher.enter:
	case <-time.After(2 * time.Second):
		t.Fatal("first LoadMore never reached the fetcher")
	}
	if acc.State() != Fetching {
		t.Fatalf("state = %v, want fetching", acc.State())
	}

	appended, err := acc.LoadMore(context.Background())
	if err != nil || appended != nil {
		t.Fatalf("concurrent LoadMore = %v, %v; want nil, nil", appended, err)
	}

	close(fetcher.gate)
	if err := <-done; err != nil {
		t.Fatalf("first LoadMore failed: %v", err)
	}
	if fetcher.callCount() != 1 {
		t.Errorf("fetcher called %d times, want 1", fetcher.callCount())
	}
	if acc.State() != Idle {
		t.Errorf("state = %v, want idle", acc.State())
	}
	if got := uids(acc.Snapshot().Results); !reflect.DeepEqual(got, []string{"a-1", "b-1"}) {
		t.Errorf("results = %v", got)
	}
}

func TestAccumulatorFailureLeavesStateUnchanged(t *testing.T) {
	boom := &prismic.TransportError{URL: "cursor-2", Err: errors.New("connection reset")}
	fetcher := &fakeFetcher{err: boom}
	acc := NewAccumulator(fetcher, Normalizer{}, seedPage(t, docsRange("a", 5), "cursor-2"))
	before := acc.Snapshot()

	appended, err := acc.LoadMore(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if appended != nil {
		t.Errorf("appended = %v, want nil", appended)
	}
	if !reflect.DeepEqual(before, acc.Snapshot()) {
		t.Error("state changed after failed LoadMore")
	}
	if acc.State() != Idle {
		t.Errorf("state = %v, want idle", acc.State())
	}

	// A fresh trigger retries the same cursor.
	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.pages = map[string]prismic.Response{"cursor-2": {Results: docsRange("b", 1)}}
	fetcher.mu.Unlock()
	if _, err := acc.LoadMore(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(acc.Snapshot().Results) != 6 {
		t.Errorf("results after retry = %d, want 6", len(acc.Snapshot().Results))
	}
}

func TestAccumulatorSchemaFailureIsAllOrNothing(t *testing.T) {
	docs := docsRange("b", 2)
	docs = append(docs, testDoc("broken", "not a date"))
	fetcher := &fakeFetcher{pages: map[string]prismic.Response{"cursor-2": {Results: docs}}}
	acc := NewAccumulator(fetcher, Normalizer{}, seedPage(t, docsRange("a", 2), "cursor-2"))
	before := acc.Snapshot()

	_, err := acc.LoadMore(context.Background())
	var se *prismic.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SchemaError", err)
	}
	if !reflect.DeepEqual(before, acc.Snapshot()) {
		t.Error("partial page was applied")
	}
}

func TestAccumulatorSkipsDuplicates(t *testing.T) {
	docs := []prismic.Document{testDoc("a-2", "2022-03-05T00:00:00Z"), testDoc("b-1", "2022-03-05T00:00:00Z")}
	fetcher := &fakeFetcher{pages: map[string]prismic.Response{"cursor-2": {Results: docs}}}
	acc := NewAccumulator(fetcher, Normalizer{}, seedPage(t, docsRange("a", 2), "cursor-2"))

	appended, err := acc.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("LoadMore failed: %v", err)
	}
	if got := uids(appended); !reflect.DeepEqual(got, []string{"b-1"}) {
		t.Errorf("appended = %v, want [b-1]", got)
	}
	if got := uids(acc.Snapshot().Results); !reflect.DeepEqual(got, []string{"a-1", "a-2", "b-1"}) {
		t.Errorf("results = %v", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	acc := NewAccumulator(&fakeFetcher{}, Normalizer{}, seedPage(t, docsRange("a", 2), ""))
	snap := acc.Snapshot()
	snap.Results[0].UID = "mutated"
	if acc.Snapshot().Results[0].UID != "a-1" {
		t.Error("Snapshot exposed internal slice")
	}
}
