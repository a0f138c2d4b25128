// /internal/pagestore/pagestore.go

package pagestore

import (
	"database/sql"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/nuclio/errors"
	"go.uber.org/zap"

	_ "github.com/mattn/go-sqlite3"
)

// ErrPageNotFound is returned by GetPage for a path that was never stored.
var ErrPageNotFound = errors.New("Page not found")

// Page is a stored response body.
type Page struct {
	Path        string
	ContentType string
	Body        []byte
}

// Store keeps pages in N sqlite DBs (N >= 1), routed by path.
// When N == 1 this acts like a single-db mode.
type Store struct {
	logger    *zap.SugaredLogger
	dbs       []*sql.DB
	numShards int
}

// NewStore opens num shard files under baseDir and ensures the pages table exists.
func NewStore(logger *zap.SugaredLogger, num int, baseDir string) (*Store, error) {
	if num < 1 {
		return nil, errors.New("Number of shards must be >= 1")
	}
	if baseDir == "" {
		baseDir = "temp"
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "Failed to create db dir %s", baseDir)
	}

	store := &Store{logger: logger, numShards: num}
	for i := 0; i < num; i++ {
		fname := filepath.Join(baseDir, fmt.Sprintf("pages_%d.db", i))
		db, err := openShard(fname)
		if err != nil {
			store.Close()
			return nil, errors.Wrapf(err, "Failed to open shard %s", fname)
		}
		store.dbs = append(store.dbs, db)
	}

	logger.Debugw("Page store opened", "shards", num, "dir", baseDir)

	return store, nil
}

func openShard(fname string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fname)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA wal_autocheckpoint = 1000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "Failed to run %s", pragma)
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS pages (path TEXT PRIMARY KEY, content_type TEXT, body BLOB)`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "Failed to create pages table")
	}

	return db, nil
}

// Close closes all DBs.
func (s *Store) Close() error {
	var firstErr error
	for _, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NumShards returns the number of sqlite files backing the store.
func (s *Store) NumShards() int {
	return s.numShards
}

func (s *Store) shardFor(path string) (*sql.DB, int) {
	if s.numShards == 1 {
		return s.dbs[0], 0
	}
	idx := int(crc32.ChecksumIEEE([]byte(path)) % uint32(s.numShards))
	return s.dbs[idx], idx
}

// PutPage inserts or replaces the page at page.Path.
func (s *Store) PutPage(page Page) error {
	db, idx := s.shardFor(page.Path)
	_, err := db.Exec(`INSERT OR REPLACE INTO pages (path, content_type, body) VALUES (?, ?, ?)`,
		page.Path,
		page.ContentType,
		page.Body)
	if err != nil {
		s.logger.Warnw("Failed to put page", "path", page.Path, "shard", idx, "err", err)
		return errors.Wrapf(err, "Failed to put page %s", page.Path)
	}
	return nil
}

// GetPage retrieves the page stored at path, or ErrPageNotFound.
func (s *Store) GetPage(path string) (*Page, error) {
	db, idx := s.shardFor(path)
	page := &Page{Path: path}
	err := db.QueryRow(`SELECT content_type, body FROM pages WHERE path = ?`, path).Scan(&page.ContentType, &page.Body)
	if err == sql.ErrNoRows {
		return nil, ErrPageNotFound
	}
	if err != nil {
		s.logger.Warnw("Failed to get page", "path", path, "shard", idx, "err", err)
		return nil, errors.Wrapf(err, "Failed to get page %s", path)
	}
	return page, nil
}
