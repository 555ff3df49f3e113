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

// Package registry tracks which client owns which live session. The session
// map is the one structure mutated from many goroutines, so every mutation
// goes through the registry mutex.
package registry

import (
	"fmt"
	"sync"

	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/models"
	"github.com/lumenwall/lumenwall/pkg/protocol"
)

// SessionRegistry maps client ids to their single active session and keeps
// the client store's status in step with session lifecycle.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	clients  *ClientStore
	logger   logger.Logger
}

// NewSessionRegistry creates an empty registry backed by the given client store.
func NewSessionRegistry(clients *ClientStore, log logger.Logger) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
		clients:  clients,
		logger:   log,
	}
}

// Register installs a new session for clientID, superseding any existing
// one. Last writer wins: the previous session is force-closed. ErrConflict
// is returned only when the old session cannot be closed, and even then the
// new session is installed.
func (r *SessionRegistry) Register(clientID string, conn Conn) (*Session, error) {
	s := newSession(clientID, conn, r.logger)

	r.mu.Lock()

	var closeErr error

	if prev, ok := r.sessions[clientID]; ok {
		closeErr = prev.Close()

		r.logger.Info().
			Str("client_id", clientID).
			Str("old_remote", prev.RemoteAddr()).
			Str("new_remote", conn.RemoteAddr()).
			Msg("Superseding existing session")
	}

	r.sessions[clientID] = s

	r.mu.Unlock()

	r.clients.SetStatus(clientID, models.ClientOnline)

	if closeErr != nil {
		return s, fmt.Errorf("%w: closing superseded session for %s: %w", ErrConflict, clientID, closeErr)
	}

	return s, nil
}

// Lookup returns the active session for clientID, or nil.
func (r *SessionRegistry) Lookup(clientID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sessions[clientID]
}

// Unregister removes s from the registry and marks the client offline. A
// stale session that has already been superseded is a no-op, so a late
// teardown of an old connection cannot knock out its replacement.
func (r *SessionRegistry) Unregister(clientID string, s *Session) {
	r.mu.Lock()

	current, ok := r.sessions[clientID]
	if !ok || current != s {
		r.mu.Unlock()
		return
	}

	delete(r.sessions, clientID)

	r.mu.Unlock()

	_ = s.Close()

	r.clients.SetStatus(clientID, models.ClientOffline)
}

// Count returns the number of active sessions.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// Broadcast sends env to every session whose client matches the predicate.
// A nil predicate matches everyone. Send failures are logged and skipped;
// the return value is the number of successful sends.
func (r *SessionRegistry) Broadcast(match func(*models.Client) bool, env *protocol.Envelope) int {
	r.mu.Lock()

	targets := make([]*Session, 0, len(r.sessions))

	for id, s := range r.sessions {
		if match != nil {
			client := r.clients.Get(id)
			if client == nil || !match(client) {
				continue
			}
		}

		targets = append(targets, s)
	}

	r.mu.Unlock()

	sent := 0

	for _, s := range targets {
		if err := s.Send(env); err != nil {
			r.logger.Warn().Err(err).
				Str("client_id", s.ClientID).
				Str("kind", string(env.Type)).
				Msg("Broadcast send failed")

			continue
		}

		sent++
	}

	return sent
}

// CloseAll tears down every session, used at coordinator shutdown.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}

	r.sessions = make(map[string]*Session)

	r.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close()
		r.clients.SetStatus(s.ClientID, models.ClientOffline)
	}
}
