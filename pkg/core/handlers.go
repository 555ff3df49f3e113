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
	"errors"

	"github.com/lumenwall/lumenwall/pkg/dispatcher"
	"github.com/lumenwall/lumenwall/pkg/protocol"
)

// handleStatusReport records a display's health metrics and serves its
// refresh request if it reconnected with an expired cache.
func (s *Server) handleStatusReport(ctx context.Context, clientID string, env *protocol.Envelope) {
	var report protocol.StatusReport
	if err := protocol.DecodePayload(env, &report); err != nil {
		s.logger.Warn().Err(err).
			Str("client_id", clientID).
			Msg("Dropping malformed status report")

		return
	}

	s.clients.RecordReport(clientID, &report.Metrics)

	if !report.NeedsRefresh {
		return
	}

	if s.refresher == nil {
		s.logger.Warn().
			Str("client_id", clientID).
			Msg("Refresh requested but no scheduler attached")

		return
	}

	if err := s.refresher.PushNow(ctx, clientID); err != nil {
		if errors.Is(err, dispatcher.ErrNotConnected) {
			return
		}

		s.logger.Error().Err(err).
			Str("client_id", clientID).
			Msg("Requested refresh failed")
	}
}

// handleStrayCommandResult catches results whose waiter already timed out.
// They carry no actionable state; log at debug and move on.
func (s *Server) handleStrayCommandResult(_ context.Context, clientID string, env *protocol.Envelope) {
	s.logger.Debug().
		Str("client_id", clientID).
		Str("correlation_id", env.CorrelationID).
		Msg("Discarding late command result")
}
