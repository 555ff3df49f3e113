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

package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/lumenwall/lumenwall/pkg/models"
)

// ClientStore is the coordinator's record of every display that has ever
// completed a handshake. Entries are never removed automatically.
type ClientStore struct {
	mu      sync.RWMutex
	clients map[string]*models.Client
	now     func() time.Time
}

// NewClientStore creates an empty store. nowFn is injectable for tests; nil
// uses time.Now.
func NewClientStore(nowFn func() time.Time) *ClientStore {
	if nowFn == nil {
		nowFn = time.Now
	}

	return &ClientStore{
		clients: make(map[string]*models.Client),
		now:     nowFn,
	}
}

// UpsertFromHandshake creates or refreshes a client record from a Hello.
// Existing assignment and metrics survive a reconnect.
func (s *ClientStore) UpsertFromHandshake(id, displayName string, capabilities []string) *models.Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok {
		c = &models.Client{
			ID:     id,
			Status: models.ClientUnknown,
		}
		s.clients[id] = c
	}

	if displayName != "" {
		c.DisplayName = displayName
	}

	c.Capabilities = append([]string(nil), capabilities...)
	c.LastSeenAt = s.now()

	out := *c

	return &out
}

// SetStatus updates the liveness status and stamps LastSeenAt on the online
// transition. Unknown ids are recorded so a status flip can never be lost.
func (s *ClientStore) SetStatus(id string, status models.ClientStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok {
		c = &models.Client{ID: id}
		s.clients[id] = c
	}

	c.Status = status

	if status == models.ClientOnline {
		c.LastSeenAt = s.now()
	}
}

// Touch stamps LastSeenAt, called when any envelope arrives from the client.
func (s *ClientStore) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[id]; ok {
		c.LastSeenAt = s.now()
	}
}

// SetAssignment changes which content the client should render. An empty
// contentID clears the assignment.
func (s *ClientStore) SetAssignment(id, contentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok {
		return false
	}

	c.AssignedContentID = contentID

	return true
}

// RecordReport stores the latest health metrics from a StatusReport.
func (s *ClientStore) RecordReport(id string, metrics *models.StatusMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok {
		return
	}

	m := *metrics
	m.ReportedAt = s.now()
	c.Metrics = &m
	c.LastSeenAt = m.ReportedAt
}

// Get returns a copy of the client record, or nil.
func (s *ClientStore) Get(id string) *models.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	if !ok {
		return nil
	}

	out := *c

	return &out
}

// List returns copies of all client records ordered by id.
func (s *ClientStore) List() []*models.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Client, 0, len(s.clients))

	for _, c := range s.clients {
		cp := *c
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}
