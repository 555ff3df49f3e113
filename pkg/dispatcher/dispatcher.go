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

// Package dispatcher routes envelopes between sessions and handlers. One
// receive loop runs per session; a malformed frame is logged and skipped,
// an unknown envelope kind is ignored, and only a dead connection ends the
// loop.
package dispatcher

import (
	"context"
	"fmt"

	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/models"
	"github.com/lumenwall/lumenwall/pkg/protocol"
	"github.com/lumenwall/lumenwall/pkg/registry"
)

// Handler processes one inbound envelope from a client.
type Handler func(ctx context.Context, clientID string, env *protocol.Envelope)

// RateLimiter is the slice of pkg/ratelimit the dispatcher needs.
type RateLimiter interface {
	Allow(key string) bool
}

// Dispatcher routes outbound envelopes to sessions and inbound envelopes to
// registered handlers.
type Dispatcher struct {
	registry *registry.SessionRegistry
	handlers map[protocol.Kind]Handler
	limiter  RateLimiter
	limited  map[protocol.Kind]struct{}
	pending  *pendingReplies
	logger   logger.Logger
}

// New creates a dispatcher over the given session registry.
func New(reg *registry.SessionRegistry, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		handlers: make(map[protocol.Kind]Handler),
		limited:  make(map[protocol.Kind]struct{}),
		pending:  newPendingReplies(),
		logger:   log,
	}
}

// Handle registers the handler for an envelope kind. Registration happens
// during wiring, before any receive loop starts.
func (d *Dispatcher) Handle(kind protocol.Kind, h Handler) {
	d.handlers[kind] = h
}

// SetRateLimiter applies lim to the listed inbound kinds. Envelopes of other
// kinds are never throttled.
func (d *Dispatcher) SetRateLimiter(lim RateLimiter, kinds ...protocol.Kind) {
	d.limiter = lim

	for _, k := range kinds {
		d.limited[k] = struct{}{}
	}
}

// Send delivers env to the named client's session. Returns ErrNotConnected
// when the client has no session; callers decide whether that is fatal.
func (d *Dispatcher) Send(clientID string, env *protocol.Envelope) error {
	s := d.registry.Lookup(clientID)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrNotConnected, clientID)
	}

	if err := s.Send(env); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotConnected, clientID, err)
	}

	return nil
}

// Broadcast sends env to all sessions whose client matches the predicate.
func (d *Dispatcher) Broadcast(match func(*models.Client) bool, env *protocol.Envelope) int {
	return d.registry.Broadcast(match, env)
}

// AwaitReply registers interest in the envelope answering correlationID.
// The returned channel receives at most one envelope; cancel releases the
// slot and must always be called.
func (d *Dispatcher) AwaitReply(correlationID string) (<-chan *protocol.Envelope, func()) {
	return d.pending.register(correlationID)
}

// ReceiveLoop reads frames from the session until the connection dies or
// ctx is canceled. It demultiplexes by envelope kind: correlated replies go
// to their waiting caller, everything else to the registered handler.
func (d *Dispatcher) ReceiveLoop(ctx context.Context, s *registry.Session) error {
	for {
		data, err := s.Read()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			return fmt.Errorf("session read for %s: %w", s.ClientID, err)
		}

		env, err := protocol.Decode(data)
		if err != nil {
			d.logger.Warn().Err(err).
				Str("client_id", s.ClientID).
				Msg("Dropping malformed envelope")

			continue
		}

		d.dispatch(ctx, s.ClientID, env)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, clientID string, env *protocol.Envelope) {
	if !protocol.Known(env.Type) {
		d.logger.Debug().
			Str("client_id", clientID).
			Str("kind", string(env.Type)).
			Msg("Ignoring unknown envelope kind")

		return
	}

	if _, throttled := d.limited[env.Type]; throttled && d.limiter != nil {
		if !d.limiter.Allow(clientID) {
			d.logger.Warn().
				Str("client_id", clientID).
				Str("kind", string(env.Type)).
				Msg("Rate limit exceeded, dropping envelope")

			return
		}
	}

	if env.CorrelationID != "" && d.pending.deliver(env) {
		return
	}

	h, ok := d.handlers[env.Type]
	if !ok {
		d.logger.Debug().
			Str("client_id", clientID).
			Str("kind", string(env.Type)).
			Msg("No handler for envelope kind")

		return
	}

	h(ctx, clientID, env)
}
