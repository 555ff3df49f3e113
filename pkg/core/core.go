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

// Package core assembles the coordinator: the websocket endpoint displays
// connect to, the handshake, per-session supervision, the command path, and
// the operator HTTP API.
package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lumenwall/lumenwall/pkg/dispatcher"
	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/protocol"
	"github.com/lumenwall/lumenwall/pkg/registry"
	"github.com/lumenwall/lumenwall/pkg/transport"
)

const (
	handshakeTimeout      = 10 * time.Second
	defaultCommandTimeout = 30 * time.Second
)

// Authorizer is the authentication/authorization collaborator. The core
// consults it before executing privileged commands; it does not implement
// credential storage.
type Authorizer interface {
	IsAuthorized(ctx context.Context, clientID, capability string) bool
}

// Refresher triggers an immediate content push, implemented by the refresh
// scheduler.
type Refresher interface {
	PushNow(ctx context.Context, clientID string) error
}

// Server is the coordinator service. Implements lifecycle.Service.
type Server struct {
	cfg        Config
	clients    *registry.ClientStore
	sessions   *registry.SessionRegistry
	dispatcher *dispatcher.Dispatcher
	monitor    SessionWatcher
	authorizer Authorizer
	refresher  Refresher
	logger     logger.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// SessionWatcher supervises liveness for one session, implemented by the
// heartbeat monitor.
type SessionWatcher interface {
	Watch(ctx context.Context, s *registry.Session) error
}

// NewServer wires the coordinator. The refresh scheduler is attached later
// via SetRefresher because it sends through this server's dispatcher.
func NewServer(cfg Config, clients *registry.ClientStore, sessions *registry.SessionRegistry,
	disp *dispatcher.Dispatcher, monitor SessionWatcher, authorizer Authorizer, log logger.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		clients:    clients,
		sessions:   sessions,
		dispatcher: disp,
		monitor:    monitor,
		authorizer: authorizer,
		logger:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	disp.Handle(protocol.KindStatusReport, s.handleStatusReport)
	disp.Handle(protocol.KindCommandResult, s.handleStrayCommandResult)

	return s
}

// SetRefresher attaches the refresh scheduler for needs-refresh requests
// and assignment pushes.
func (s *Server) SetRefresher(r Refresher) {
	s.refresher = r
}

// Start implements the lifecycle.Service interface. Only a failure to bind
// the listener is fatal; everything per-connection is isolated.
func (s *Server) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.registerAPIRoutes(mux)

	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().
		Str("listen_addr", s.cfg.ListenAddr).
		Bool("tls", s.cfg.TLS != nil).
		Msg("Starting coordinator")

	errCh := make(chan error, 1)

	go func() {
		var err error
		if s.cfg.TLS != nil {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("coordinator listener: %w", err)
	}
}

// Stop implements the lifecycle.Service interface.
func (s *Server) Stop(ctx context.Context) error {
	var err error

	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}

		if s.httpServer != nil {
			err = s.httpServer.Shutdown(ctx)
		}

		s.sessions.CloseAll()
		s.wg.Wait()
	})

	return err
}

// handleWS upgrades the connection and runs the handshake. A connection
// that fails before HelloAck never touches the registry.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("Websocket upgrade failed")

		return
	}

	conn := transport.NewConn(ws)

	session, err := s.handshake(conn)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("Handshake failed, closing connection")

		_ = conn.Close()

		return
	}

	s.superviseSession(session)
}

// handshake reads the Hello, records the client, installs the session, and
// answers with HelloAck carrying the current assignment.
func (s *Server) handshake(conn registry.Conn) (*registry.Session, error) {
	type readResult struct {
		data []byte
		err  error
	}

	readCh := make(chan readResult, 1)

	go func() {
		data, err := conn.ReadMessage()
		readCh <- readResult{data: data, err: err}
	}()

	var data []byte

	select {
	case res := <-readCh:
		if res.err != nil {
			return nil, fmt.Errorf("%w: reading hello: %w", ErrHandshake, res.err)
		}

		data = res.data
	case <-time.After(handshakeTimeout):
		return nil, fmt.Errorf("%w: no hello within %s", ErrHandshake, handshakeTimeout)
	}

	env, err := protocol.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	if env.Type != protocol.KindHello {
		return nil, fmt.Errorf("%w: expected hello, got %s", ErrHandshake, env.Type)
	}

	var hello protocol.Hello
	if err := protocol.DecodePayload(env, &hello); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	if hello.ClientID == "" {
		// Devices that cannot derive a stable id get one assigned; they
		// must persist it locally to keep their identity.
		hello.ClientID = uuid.NewString()
	}

	client := s.clients.UpsertFromHandshake(hello.ClientID, hello.DisplayName, hello.Capabilities)

	session, err := s.sessions.Register(hello.ClientID, conn)
	if err != nil {
		// ErrConflict: the superseded session did not close cleanly. The
		// new session is installed either way; log and carry on.
		s.logger.Warn().Err(err).
			Str("client_id", hello.ClientID).
			Msg("Previous session did not close cleanly")
	}

	ack, err := protocol.Reply(env, protocol.KindHelloAck, protocol.HelloAck{
		ClientID:          hello.ClientID,
		AssignedContentID: client.AssignedContentID,
	})
	if err != nil {
		return nil, err
	}

	if err := session.Send(ack); err != nil {
		s.sessions.Unregister(hello.ClientID, session)
		return nil, fmt.Errorf("%w: sending hello ack: %w", ErrHandshake, err)
	}

	s.logger.Info().
		Str("client_id", hello.ClientID).
		Str("remote_addr", conn.RemoteAddr()).
		Strs("capabilities", hello.Capabilities).
		Msg("Client connected")

	return session, nil
}

// superviseSession runs the receive loop and the heartbeat watcher for one
// session and observes both completions. Nothing here runs unsupervised.
func (s *Server) superviseSession(session *registry.Session) {
	s.wg.Add(2)

	go func() {
		defer s.wg.Done()

		err := s.dispatcher.ReceiveLoop(s.ctx, session)
		s.logger.Debug().Err(err).
			Str("client_id", session.ClientID).
			Msg("Receive loop ended")

		s.sessions.Unregister(session.ClientID, session)
	}()

	go func() {
		defer s.wg.Done()

		if err := s.monitor.Watch(s.ctx, session); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Debug().Err(err).
				Str("client_id", session.ClientID).
				Msg("Heartbeat watcher ended")
		}
	}()
}
