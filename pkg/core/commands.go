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

package core

import (
	"context"
	"fmt"

	"github.com/lumenwall/lumenwall/pkg/protocol"
)

// commandCapabilities maps each privileged command onto the capability the
// authorization collaborator checks.
var commandCapabilities = map[protocol.CommandName]string{
	protocol.CommandReboot:     "reboot",
	protocol.CommandReassign:   "reassign",
	protocol.CommandRequestLog: "request-log",
}

// SendCommand sends cmd to the named client and waits for its result. The
// authorization collaborator is consulted first; an unanswered command
// fails with ErrCommandTimeout after the configured window.
func (s *Server) SendCommand(ctx context.Context, clientID string, cmd protocol.Command) (*protocol.CommandResult, error) {
	capability, privileged := commandCapabilities[cmd.Name]
	if privileged && !s.authorizer.IsAuthorized(ctx, clientID, capability) {
		return nil, fmt.Errorf("%w: %s for client %s", ErrNotAuthorized, cmd.Name, clientID)
	}

	env, err := protocol.NewRequest(protocol.KindCommand, cmd)
	if err != nil {
		return nil, err
	}

	replyCh, cancel := s.dispatcher.AwaitReply(env.CorrelationID)
	defer cancel()

	if err := s.dispatcher.Send(clientID, env); err != nil {
		return nil, err
	}

	timeout := s.cfg.CommandTimeout.Duration()
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}

	waitCtx, stop := context.WithTimeout(ctx, timeout)
	defer stop()

	select {
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, fmt.Errorf("%w: %s to client %s", ErrCommandTimeout, cmd.Name, clientID)
	case reply := <-replyCh:
		var result protocol.CommandResult
		if err := protocol.DecodePayload(reply, &result); err != nil {
			return nil, err
		}

		return &result, nil
	}
}

// Assign updates which content the client renders and pushes it right away
// when the client is online. An offline client picks the assignment up in
// its next HelloAck.
func (s *Server) Assign(ctx context.Context, clientID, contentID string) error {
	if !s.clients.SetAssignment(clientID, contentID) {
		return fmt.Errorf("%w: %s", ErrUnknownClient, clientID)
	}

	s.logger.Info().
		Str("client_id", clientID).
		Str("content_id", contentID).
		Msg("Content assigned")

	if s.refresher == nil || contentID == "" {
		return nil
	}

	if err := s.refresher.PushNow(ctx, clientID); err != nil {
		// Offline is fine; the assignment is stored.
		s.logger.Debug().Err(err).
			Str("client_id", clientID).
			Msg("Assignment push deferred")
	}

	return nil
}
