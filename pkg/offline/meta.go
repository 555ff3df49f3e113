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

package offline

import (
	"database/sql"
	"fmt"
)

const (
	metaLastContentID = "last_content_id"
	metaClientID      = "client_id"
)

// SetLastContentID records which content the display rendered most
// recently, so a cold start can resume from the cache before the first
// handshake completes.
func (s *Store) SetLastContentID(contentID string) error {
	return s.setMeta(metaLastContentID, contentID)
}

// LastContentID returns the most recently rendered content id, or "" when
// the display has never rendered anything.
func (s *Store) LastContentID() (string, error) {
	return s.getMeta(metaLastContentID)
}

// SetClientID persists a coordinator-assigned client identity so the device
// keeps it across restarts.
func (s *Store) SetClientID(clientID string) error {
	return s.setMeta(metaClientID, clientID)
}

// ClientID returns the persisted client identity, or "".
func (s *Store) ClientID() (string, error) {
	return s.getMeta(metaClientID)
}

func (s *Store) setMeta(key, value string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("store meta %s: %w", key, err)
	}

	return nil
}

func (s *Store) getMeta(key string) (string, error) {
	var v string

	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("read meta %s: %w", key, err)
	}

	return v, nil
}
