package spacetraveling

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned when no snapshot exists for a route.
var ErrNoSnapshot = errors.New("spacetraveling: no snapshot")

// Snapshot is a persisted rendering input for one route.
type Snapshot struct {
	Route       string
	Payload     []byte
	GeneratedAt time.Time
}

// SnapshotStore wraps a SQLite database holding the last generated page data
// of every route, so a restarted server serves pages without asking the CMS.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore opens (or creates) the SQLite database at path, ensures
// the data directory exists, and creates the schema.
func NewSnapshotStore(path string) (*SnapshotStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets page loads read while a regeneration writes; writers wait on
	// busy instead of failing.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &SnapshotStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func (s *SnapshotStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS snapshots (
    route TEXT PRIMARY KEY,
    payload BLOB NOT NULL,
    generated_at INTEGER NOT NULL
);
`)
	return err
}

// Get returns the snapshot stored for route, or ErrNoSnapshot.
func (s *SnapshotStore) Get(route string) (Snapshot, error) {
	var (
		payload []byte
		unix    int64
	)
	err := s.db.QueryRow(`SELECT payload, generated_at FROM snapshots WHERE route = ?`, route).Scan(&payload, &unix)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Route: route, Payload: payload, GeneratedAt: time.Unix(unix, 0).UTC()}, nil
}

// Put upserts the snapshot for a route.
func (s *SnapshotStore) Put(snap Snapshot) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO snapshots (route, payload, generated_at) VALUES (?, ?, ?)`,
		snap.Route, snap.Payload, snap.GeneratedAt.Unix())
	return err
}

// Routes returns every stored route in lexical order.
func (s *SnapshotStore) Routes() ([]string, error) {
	rows, err := s.db.Query(`SELECT route FROM snapshots ORDER BY route`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []string
	for rows.Next() {
		var route string
		if err := rows.Scan(&route); err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

// ExpireAll keeps every payload but marks it as generated at the epoch, so
// the next request serves it once and regenerates.
func (s *SnapshotStore) ExpireAll() error {
	_, err := s.db.Exec(`UPDATE snapshots SET generated_at = 0`)
	return err
}

// Delete removes the snapshot of a route.
func (s *SnapshotStore) Delete(route string) error {
	_, err := s.db.Exec(`DELETE FROM snapshots WHERE route = ?`, route)
	return err
}
