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
	"sync"

	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/protocol"
)

const sendQueueDepth = 64

// Session is the live binding between one client id and one connection.
// Outbound envelopes flow through a single writer goroutine so delivery
// order matches send order within the session.
type Session struct {
	ClientID string

	conn      Conn
	sendCh    chan *protocol.Envelope
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
	logger    logger.Logger
}

func newSession(clientID string, conn Conn, log logger.Logger) *Session {
	s := &Session{
		ClientID: clientID,
		conn:     conn,
		sendCh:   make(chan *protocol.Envelope, sendQueueDepth),
		done:     make(chan struct{}),
		logger:   log,
	}

	s.wg.Add(1)

	go s.writeLoop()

	return s
}

// Send queues an envelope for delivery. It fails once the session is closed
// and blocks when the peer cannot drain the queue, rather than dropping or
// reordering.
func (s *Session) Send(env *protocol.Envelope) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.sendCh <- env:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// Read blocks for the next inbound frame from the connection.
func (s *Session) Read() ([]byte, error) {
	return s.conn.ReadMessage()
}

// RemoteAddr describes the peer for logging.
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr()
}

// Close tears the session down. Safe to call more than once; later calls
// return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.conn.Close()
		s.wg.Wait()
	})

	return s.closeErr
}

// Done is closed when the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case env := <-s.sendCh:
			data, err := protocol.Encode(env)
			if err != nil {
				s.logger.Error().Err(err).
					Str("client_id", s.ClientID).
					Str("kind", string(env.Type)).
					Msg("Dropping unencodable envelope")

				continue
			}

			if err := s.conn.WriteMessage(data); err != nil {
				s.logger.Debug().Err(err).
					Str("client_id", s.ClientID).
					Msg("Session write failed")

				return
			}
		}
	}
}
