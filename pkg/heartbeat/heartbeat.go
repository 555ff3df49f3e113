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

// Package heartbeat supervises session liveness. Each session gets its own
// monitor goroutine with an independent timer, so a stalled client never
// delays anyone else's beat.
package heartbeat

import (
	"context"
	"time"

	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/models"
	"github.com/lumenwall/lumenwall/pkg/protocol"
	"github.com/lumenwall/lumenwall/pkg/registry"
)

const (
	defaultInterval  = 15 * time.Second
	defaultTimeout   = 5 * time.Second
	defaultMaxMissed = 2
)

// Config tunes the liveness check. MaxMissed is the number of consecutive
// unanswered beats that flips a client offline; a single miss is tolerated
// as network jitter.
type Config struct {
	Interval  models.Duration `json:"interval"`
	Timeout   models.Duration `json:"timeout"`
	MaxMissed int             `json:"max_missed"`
}

func (c *Config) withDefaults() Config {
	out := *c

	if out.Interval <= 0 {
		out.Interval = models.Duration(defaultInterval)
	}

	if out.Timeout <= 0 {
		out.Timeout = models.Duration(defaultTimeout)
	}

	if out.MaxMissed <= 0 {
		out.MaxMissed = defaultMaxMissed
	}

	return out
}

// ReplyAwaiter registers interest in a correlated reply. Implemented by the
// dispatcher's pending-reply tracker.
type ReplyAwaiter interface {
	AwaitReply(correlationID string) (<-chan *protocol.Envelope, func())
}

// Unregisterer tears a session out of the registry. Implemented by
// registry.SessionRegistry.
type Unregisterer interface {
	Unregister(clientID string, s *registry.Session)
}

// Monitor owns the liveness configuration shared by all per-session watch
// goroutines.
type Monitor struct {
	cfg      Config
	awaiter  ReplyAwaiter
	sessions Unregisterer
	clock    Clock
	logger   logger.Logger
}

// NewMonitor creates a Monitor. A nil clock uses real time.
func NewMonitor(cfg Config, awaiter ReplyAwaiter, sessions Unregisterer, clock Clock, log logger.Logger) *Monitor {
	if clock == nil {
		clock = realClock{}
	}

	return &Monitor{
		cfg:      cfg.withDefaults(),
		awaiter:  awaiter,
		sessions: sessions,
		clock:    clock,
		logger:   log,
	}
}

// Watch beats against the session until it dies, ctx is canceled, or the
// client misses too many beats in a row. Runs in its own goroutine; the
// return is for the owning loop's log line.
func (m *Monitor) Watch(ctx context.Context, s *registry.Session) error {
	ticker := m.clock.Ticker(m.cfg.Interval.Duration())
	defer ticker.Stop()

	var (
		seq    uint64
		missed int
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Done():
			return nil
		case <-ticker.Chan():
			seq++

			if m.beat(ctx, s, seq) {
				missed = 0
				continue
			}

			missed++

			m.logger.Debug().
				Str("client_id", s.ClientID).
				Uint64("sequence", seq).
				Int("missed", missed).
				Msg("Heartbeat unanswered")

			if missed >= m.cfg.MaxMissed {
				m.logger.Warn().
					Str("client_id", s.ClientID).
					Int("missed", missed).
					Msg("Heartbeat threshold reached, marking client offline")

				m.sessions.Unregister(s.ClientID, s)

				return nil
			}
		}
	}
}

// beat sends one Heartbeat and waits for its ack until the configured
// timeout. A reply without the matching correlation id never reaches us and
// counts as a miss.
func (m *Monitor) beat(ctx context.Context, s *registry.Session, seq uint64) bool {
	env, err := protocol.NewRequest(protocol.KindHeartbeat, protocol.Heartbeat{Sequence: seq})
	if err != nil {
		m.logger.Error().Err(err).Str("client_id", s.ClientID).Msg("Building heartbeat failed")
		return false
	}

	replyCh, cancel := m.awaiter.AwaitReply(env.CorrelationID)
	defer cancel()

	if err := s.Send(env); err != nil {
		return false
	}

	deadline, stop := context.WithTimeout(ctx, m.cfg.Timeout.Duration())
	defer stop()

	select {
	case <-deadline.Done():
		return false
	case <-s.Done():
		return false
	case <-replyCh:
		return true
	}
}
