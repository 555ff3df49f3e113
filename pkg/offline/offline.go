/*
 * Copyright 2026 Lumenwall Systems, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package offline persists the last content pushed to a display so the
// device keeps rendering while the coordinator is unreachable. The store is
// a single SQLite file owned by one process; the schema is forward-migrated
// in place at startup, never rebuilt.
package offline

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/models"
)

// Store is the client-side persistent content cache. Writes are serialized
// through a mutex; reads may run concurrently with the render loop.
type Store struct {
	db     *sql.DB
	wmu    sync.Mutex
	now    func() time.Time
	logger logger.Logger
}

// Open opens (or creates) the cache file at path and applies schema
// migrations. nowFn is injectable for tests; nil uses time.Now.
func Open(path string, nowFn func() time.Time, log logger.Logger) (*Store, error) {
	if nowFn == nil {
		nowFn = time.Now
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open offline cache %s: %w", path, err)
	}

	// One writer at a time; the driver serializes at the file level too.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate offline cache %s: %w", path, err)
	}

	return &Store{
		db:     db,
		now:    nowFn,
		logger: log,
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put persists pkg, replacing any previous record for the same content id.
// Called before a ContentPush is acknowledged, so an ack always implies the
// package survives a power cycle.
func (s *Store) Put(pkg *models.ContentPackage) error {
	raw, err := json.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("serialize package %s: %w", pkg.ContentID, err)
	}

	var expires sql.NullInt64
	if !pkg.ExpiresAt.IsZero() {
		expires = sql.NullInt64{Int64: pkg.ExpiresAt.Unix(), Valid: true}
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO content_cache (content_id, package, stored_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(content_id) DO UPDATE SET
			package = excluded.package,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at`,
		pkg.ContentID, string(raw), s.now().Unix(), expires)
	if err != nil {
		return fmt.Errorf("store package %s: %w", pkg.ContentID, err)
	}

	return nil
}

// Get returns the cached package for contentID. ErrCacheMiss when absent,
// ErrCacheExpired when past its expiry. A record without an expiry (written
// before the expires_at migration) never expires.
func (s *Store) Get(contentID string) (*models.ContentPackage, error) {
	var (
		raw     string
		expires sql.NullInt64
	)

	err := s.db.QueryRow(
		`SELECT package, expires_at FROM content_cache WHERE content_id = ?`,
		contentID).Scan(&raw, &expires)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, contentID)
	}

	if err != nil {
		return nil, fmt.Errorf("read package %s: %w", contentID, err)
	}

	if expires.Valid && !s.now().Before(time.Unix(expires.Int64, 0)) {
		return nil, fmt.Errorf("%w: %s", ErrCacheExpired, contentID)
	}

	var pkg models.ContentPackage
	if err := json.Unmarshal([]byte(raw), &pkg); err != nil {
		return nil, fmt.Errorf("deserialize package %s: %w", contentID, err)
	}

	return &pkg, nil
}

// Count returns the number of cached records, expired ones included.
func (s *Store) Count() (int, error) {
	var n int

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM content_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count offline cache: %w", err)
	}

	return n, nil
}

// PruneExpired deletes records past their expiry. Called opportunistically
// by the owning display loop, not by a background sweeper.
func (s *Store) PruneExpired() (int64, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	res, err := s.db.Exec(
		`DELETE FROM content_cache WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("prune offline cache: %w", err)
	}

	return res.RowsAffected()
}
