package spacetraveling

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	s, err := NewSnapshotStore(filepath.Join(t.TempDir(), "data", "pages.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSnapshotStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
}

func TestPutAndGetSnapshot(t *testing.T) {
	s := setupTestStore(t)
	generated := time.Date(2022, 3, 5, 10, 0, 0, 0, time.UTC)

	if err := s.Put(Snapshot{Route: "/", Payload: []byte(`{"a":1}`), GeneratedAt: generated}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := s.Get("/")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Payload) != `{"a":1}` {
		t.Errorf("payload = %s", got.Payload)
	}
	if !got.GeneratedAt.Equal(generated) {
		t.Errorf("generated = %v, want %v", got.GeneratedAt, generated)
	}

	// Upsert replaces the previous payload.
	if err := s.Put(Snapshot{Route: "/", Payload: []byte(`{"a":2}`), GeneratedAt: generated}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, _ = s.Get("/")
	if string(got.Payload) != `{"a":2}` {
		t.Errorf("payload after upsert = %s", got.Payload)
	}
}

func TestGetMissingSnapshot(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.Get("/post/nope/"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestExpireAllAndRoutes(t *testing.T) {
	s := setupTestStore(t)
	now := time.Now().UTC()
	for _, route := range []string{"/post/b/", "/", "/post/a/"} {
		if err := s.Put(Snapshot{Route: route, Payload: []byte(`{}`), GeneratedAt: now}); err != nil {
			t.Fatalf("Put %s failed: %v", route, err)
		}
	}

	routes, err := s.Routes()
	if err != nil {
		t.Fatalf("Routes failed: %v", err)
	}
	if len(routes) != 3 || routes[0] != "/" || routes[1] != "/post/a/" {
		t.Errorf("routes = %v", routes)
	}

	if err := s.ExpireAll(); err != nil {
		t.Fatalf("ExpireAll failed: %v", err)
	}
	got, err := s.Get("/post/a/")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.GeneratedAt.Unix() != 0 {
		t.Errorf("generated = %v, want epoch", got.GeneratedAt)
	}
	if string(got.Payload) != `{}` {
		t.Error("payload should survive ExpireAll")
	}

	if err := s.Delete("/post/a/"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get("/post/a/"); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("deleted snapshot still present: %v", err)
	}
}
