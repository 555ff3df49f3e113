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

// Package scheduler drives periodic content refreshes. Each scan walks the
// online, assigned clients and pushes freshly resolved packages to the ones
// whose refresh interval has elapsed. One client's failure never aborts the
// scan.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lumenwall/lumenwall/pkg/dispatcher"
	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/models"
	"github.com/lumenwall/lumenwall/pkg/protocol"
	"github.com/lumenwall/lumenwall/pkg/querycache"
	"github.com/lumenwall/lumenwall/pkg/registry"
)

const (
	defaultScanInterval    = 30 * time.Second
	defaultRefreshInterval = 60 * time.Second
	defaultPackageTTL      = 24 * time.Hour
	defaultQueryTTL        = 30 * time.Second
)

// Config tunes the refresh scheduler.
type Config struct {
	// ScanInterval is how often the scheduler walks the client list.
	ScanInterval models.Duration `json:"scan_interval"`
	// RefreshInterval is the default data-source refresh period per content.
	RefreshInterval models.Duration `json:"refresh_interval"`
	// ContentRefresh overrides RefreshInterval for specific content ids.
	ContentRefresh map[string]models.Duration `json:"content_refresh,omitempty"`
	// PackageTTL bounds how long a pushed package may be rendered offline.
	PackageTTL models.Duration `json:"package_ttl"`
	// QueryTTL is how long resolved data may be shared across pushes.
	QueryTTL models.Duration `json:"query_ttl"`
}

func (c *Config) withDefaults() Config {
	out := *c

	if out.ScanInterval <= 0 {
		out.ScanInterval = models.Duration(defaultScanInterval)
	}

	if out.RefreshInterval <= 0 {
		out.RefreshInterval = models.Duration(defaultRefreshInterval)
	}

	if out.PackageTTL <= 0 {
		out.PackageTTL = models.Duration(defaultPackageTTL)
	}

	if out.QueryTTL <= 0 {
		out.QueryTTL = models.Duration(defaultQueryTTL)
	}

	return out
}

// Resolver is the external content resolver collaborator. The scheduler
// treats the resolved mapping as opaque.
type Resolver interface {
	Resolve(ctx context.Context, contentID string) (map[string]string, error)
}

// Sender is the slice of the dispatcher the scheduler pushes through.
type Sender interface {
	Send(clientID string, env *protocol.Envelope) error
}

// Scheduler implements lifecycle.Service.
type Scheduler struct {
	cfg      Config
	clients  *registry.ClientStore
	sender   Sender
	resolver Resolver
	cache    *querycache.Cache
	clock    Clock
	logger   logger.Logger

	mu       sync.Mutex
	lastPush map[string]time.Time // client id -> last successful push

	ticker    Ticker
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a scheduler. A nil clock uses real time.
func New(cfg Config, clients *registry.ClientStore, sender Sender, resolver Resolver,
	cache *querycache.Cache, clock Clock, log logger.Logger) *Scheduler {
	if clock == nil {
		clock = realClock{}
	}

	return &Scheduler{
		cfg:      cfg.withDefaults(),
		clients:  clients,
		sender:   sender,
		resolver: resolver,
		cache:    cache,
		clock:    clock,
		logger:   log,
		lastPush: make(map[string]time.Time),
		done:     make(chan struct{}),
	}
}

// Start implements the lifecycle.Service interface.
func (s *Scheduler) Start(ctx context.Context) error {
	interval := s.cfg.ScanInterval.Duration()
	s.ticker = s.clock.Ticker(interval)

	defer s.ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("Starting refresh scheduler")

	s.wg.Add(1)
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-s.ticker.Chan():
			s.Scan(ctx)
		}
	}
}

// Stop implements the lifecycle.Service interface.
func (s *Scheduler) Stop(_ context.Context) error {
	s.closeOnce.Do(func() {
		close(s.done)
	})

	s.wg.Wait()

	return nil
}

// Scan walks all clients once and pushes to every online, assigned client
// that is due. Failures are isolated per client.
func (s *Scheduler) Scan(ctx context.Context) {
	for _, client := range s.clients.List() {
		if client.Status != models.ClientOnline || client.AssignedContentID == "" {
			continue
		}

		if !s.due(client.ID, client.AssignedContentID) {
			continue
		}

		if err := s.push(ctx, client.ID, client.AssignedContentID); err != nil {
			if errors.Is(err, dispatcher.ErrNotConnected) {
				// Client dropped between the status read and the send.
				s.logger.Debug().
					Str("client_id", client.ID).
					Msg("Skipping push, client is offline")

				continue
			}

			s.logger.Error().Err(err).
				Str("client_id", client.ID).
				Str("content_id", client.AssignedContentID).
				Msg("Content refresh failed, will retry next cycle")
		}
	}
}

// PushNow resolves and pushes immediately, bypassing the due check. Used
// when an operator reassigns content and when a reconnecting client reports
// an expired cache.
func (s *Scheduler) PushNow(ctx context.Context, clientID string) error {
	client := s.clients.Get(clientID)
	if client == nil || client.AssignedContentID == "" {
		return fmt.Errorf("%w: client %s has no assignment", ErrNoAssignment, clientID)
	}

	return s.push(ctx, clientID, client.AssignedContentID)
}

func (s *Scheduler) refreshInterval(contentID string) time.Duration {
	if d, ok := s.cfg.ContentRefresh[contentID]; ok && d > 0 {
		return d.Duration()
	}

	return s.cfg.RefreshInterval.Duration()
}

func (s *Scheduler) due(clientID, contentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastPush[clientID]
	if !ok {
		return true
	}

	return s.clock.Now().Sub(last) >= s.refreshInterval(contentID)
}

func (s *Scheduler) push(ctx context.Context, clientID, contentID string) error {
	data, err := s.resolveData(ctx, contentID)
	if err != nil {
		return fmt.Errorf("%w: content %s: %w", ErrResolution, contentID, err)
	}

	now := s.clock.Now()

	pkg := models.ContentPackage{
		ContentID:    contentID,
		ResolvedData: data,
		RenderedAt:   now,
		ExpiresAt:    now.Add(s.cfg.PackageTTL.Duration()),
	}

	env, err := protocol.New(protocol.KindContentPush, protocol.ContentPush{Package: pkg})
	if err != nil {
		return err
	}

	if err := s.sender.Send(clientID, env); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastPush[clientID] = now
	s.mu.Unlock()

	s.logger.Debug().
		Str("client_id", clientID).
		Str("content_id", contentID).
		Msg("Pushed content package")

	return nil
}

// resolveData consults the query cache so several clients assigned the same
// content share one resolver call per query TTL.
func (s *Scheduler) resolveData(ctx context.Context, contentID string) (map[string]string, error) {
	v, err := s.cache.GetOrCompute(ctx, "content:"+contentID, s.cfg.QueryTTL.Duration(),
		func(ctx context.Context) (interface{}, error) {
			return s.resolver.Resolve(ctx, contentID)
		})
	if err != nil {
		return nil, err
	}

	data, ok := v.(map[string]string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected cached type for content %s", ErrResolution, contentID)
	}

	return data, nil
}
