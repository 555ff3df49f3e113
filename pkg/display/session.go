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

package display

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lumenwall/lumenwall/pkg/models"
	"github.com/lumenwall/lumenwall/pkg/offline"
	"github.com/lumenwall/lumenwall/pkg/protocol"
	"github.com/lumenwall/lumenwall/pkg/registry"
)

// handshake runs the Hello exchange on a freshly dialed connection. It
// blocks until a correlated HelloAck arrives or the handshake deadline
// passes; any other frame first is a protocol violation.
func (d *Display) handshake(conn registry.Conn) (*protocol.HelloAck, error) {
	hello := protocol.Hello{
		ClientID:     d.ClientID(),
		DisplayName:  d.cfg.DisplayName,
		Capabilities: d.cfg.Capabilities,
	}

	req, err := protocol.NewRequest(protocol.KindHello, hello)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	if err := d.send(conn, req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	type readResult struct {
		data []byte
		err  error
	}

	readCh := make(chan readResult, 1)

	go func() {
		data, err := conn.ReadMessage()
		readCh <- readResult{data: data, err: err}
	}()

	timer := time.NewTimer(defaultHandshakeTimeout)
	defer timer.Stop()

	var res readResult

	select {
	case res = <-readCh:
	case <-timer.C:
		return nil, fmt.Errorf("%w: timed out waiting for ack", ErrHandshake)
	case <-d.done:
		return nil, errShutdown
	}

	if res.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, res.err)
	}

	env, err := protocol.Decode(res.data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	if env.Type != protocol.KindHelloAck || env.CorrelationID != req.CorrelationID {
		return nil, fmt.Errorf("%w: expected hello_ack, got %s", ErrHandshake, env.Type)
	}

	var ack protocol.HelloAck
	if err := protocol.DecodePayload(env, &ack); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	return &ack, nil
}

// applyAck absorbs the coordinator's view of this device: a server-assigned
// identity when we presented none, and the current content assignment. A
// stale or missing local copy of the assignment raises the refresh flag so
// the first status report asks for a push.
func (d *Display) applyAck(ack *protocol.HelloAck) {
	d.mu.Lock()

	if d.clientID == "" && ack.ClientID != "" {
		d.clientID = ack.ClientID

		if err := d.store.SetClientID(ack.ClientID); err != nil {
			d.logger.Error().Err(err).Msg("Persisting assigned client id failed")
		}
	}

	d.assigned = ack.AssignedContentID
	d.mu.Unlock()

	if ack.AssignedContentID == "" {
		return
	}

	if _, err := d.store.Get(ack.AssignedContentID); err != nil {
		if errors.Is(err, offline.ErrCacheMiss) || errors.Is(err, offline.ErrCacheExpired) {
			d.setNeedsRefresh(true)
		}
	}
}

// runConnected services one established connection until it drops or the
// agent shuts down. The status loop runs beside the read loop; shutdown
// closes the connection, which unblocks the pending read.
func (d *Display) runConnected(ctx context.Context, conn registry.Conn) {
	sessionDone := make(chan struct{})

	d.wg.Add(2)

	go func() {
		defer d.wg.Done()

		select {
		case <-ctx.Done():
		case <-d.done:
		case <-sessionDone:
		}

		_ = conn.Close()
	}()

	go func() {
		defer d.wg.Done()
		d.statusLoop(ctx, conn, sessionDone)
	}()

	defer close(sessionDone)

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		env, err := protocol.Decode(data)
		if err != nil {
			d.logger.Warn().Err(err).Msg("Discarding malformed envelope")

			continue
		}

		d.handleEnvelope(ctx, conn, env)
	}
}

func (d *Display) handleEnvelope(ctx context.Context, conn registry.Conn, env *protocol.Envelope) {
	switch env.Type {
	case protocol.KindHeartbeat:
		d.handleHeartbeat(conn, env)
	case protocol.KindContentPush:
		d.handlePush(conn, env)
	case protocol.KindCommand:
		d.handleCommand(ctx, conn, env)
	default:
		// Unknown envelope kinds are ignored so coordinator upgrades do
		// not break the connection.
		d.logger.Debug().Str("type", string(env.Type)).Msg("Ignoring envelope")
	}
}

func (d *Display) handleHeartbeat(conn registry.Conn, env *protocol.Envelope) {
	var beat protocol.Heartbeat
	if err := protocol.DecodePayload(env, &beat); err != nil {
		d.logger.Warn().Err(err).Msg("Discarding malformed heartbeat")

		return
	}

	reply, err := protocol.Reply(env, protocol.KindHeartbeatAck, protocol.HeartbeatAck{Sequence: beat.Sequence})
	if err != nil {
		d.logger.Error().Err(err).Msg("Building heartbeat ack failed")

		return
	}

	if err := d.send(conn, reply); err != nil {
		d.logger.Warn().Err(err).Msg("Sending heartbeat ack failed")
	}
}

// handlePush persists the incoming package to the offline cache before any
// render attempt, so a crash or render failure mid-push never loses the
// content for the next boot.
func (d *Display) handlePush(_ registry.Conn, env *protocol.Envelope) {
	var push protocol.ContentPush
	if err := protocol.DecodePayload(env, &push); err != nil {
		d.logger.Warn().Err(err).Msg("Discarding malformed content push")

		return
	}

	pkg := push.Package

	if err := d.store.Put(&pkg); err != nil {
		d.logger.Error().Err(err).
			Str("content_id", pkg.ContentID).
			Msg("Caching pushed content failed")
	} else if err := d.store.SetLastContentID(pkg.ContentID); err != nil {
		d.logger.Error().Err(err).
			Str("content_id", pkg.ContentID).
			Msg("Recording last content id failed")
	}

	if err := d.renderer.Render(&pkg); err != nil {
		d.logger.Error().Err(err).
			Str("content_id", pkg.ContentID).
			Msg("Rendering pushed content failed")

		return
	}

	d.mu.Lock()
	d.current = &pkg
	d.assigned = pkg.ContentID
	d.needsRefresh = false
	d.mu.Unlock()

	d.logger.Info().
		Str("content_id", pkg.ContentID).
		Msg("Rendered pushed content")
}

// handleCommand dispatches a coordinator command. Reassignment is handled
// by the agent itself; everything else goes to the platform executor.
func (d *Display) handleCommand(ctx context.Context, conn registry.Conn, env *protocol.Envelope) {
	var cmd protocol.Command
	if err := protocol.DecodePayload(env, &cmd); err != nil {
		d.logger.Warn().Err(err).Msg("Discarding malformed command")

		return
	}

	d.logger.Info().Str("command", string(cmd.Name)).Msg("Executing command")

	var result protocol.CommandResult

	if cmd.Name == protocol.CommandReassign {
		result = d.reassign(cmd)
	} else {
		result = d.executor.Execute(ctx, cmd)
	}

	reply, err := protocol.Reply(env, protocol.KindCommandResult, result)
	if err != nil {
		d.logger.Error().Err(err).Msg("Building command result failed")

		return
	}

	if err := d.send(conn, reply); err != nil {
		d.logger.Warn().Err(err).Msg("Sending command result failed")
	}
}

// reassign switches the local assignment. The content itself arrives on the
// coordinator's next push; raising the refresh flag asks for it promptly.
func (d *Display) reassign(cmd protocol.Command) protocol.CommandResult {
	contentID, ok := cmd.Args["content_id"]
	if !ok || contentID == "" {
		return protocol.CommandResult{
			Name:    cmd.Name,
			Success: false,
			Error:   "reassign requires a content_id argument",
		}
	}

	d.mu.Lock()
	d.assigned = contentID
	d.needsRefresh = true
	d.mu.Unlock()

	return protocol.CommandResult{
		Name:    cmd.Name,
		Success: true,
		Output:  "assigned " + contentID,
	}
}

// statusLoop reports health on the configured interval, starting with an
// immediate report so a reconnecting device with an expired cache gets
// fresh content without waiting a full interval.
func (d *Display) statusLoop(ctx context.Context, conn registry.Conn, sessionDone chan struct{}) {
	ticker := time.NewTicker(d.cfg.StatusInterval.Duration())
	defer ticker.Stop()

	d.sendStatus(conn)

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case <-sessionDone:
			return
		case <-ticker.C:
			d.sendStatus(conn)
		}
	}
}

func (d *Display) sendStatus(conn registry.Conn) {
	cached, err := d.store.Count()
	if err != nil {
		d.logger.Warn().Err(err).Msg("Counting cached packages failed")
	}

	d.mu.Lock()

	rendered := ""
	if d.current != nil {
		rendered = d.current.ContentID
	}

	needsRefresh := d.needsRefresh
	d.mu.Unlock()

	report := protocol.StatusReport{
		Metrics: models.StatusMetrics{
			UptimeSeconds:   int64(time.Since(d.startedAt).Seconds()),
			FreeDiskBytes:   freeDiskBytes(d.cfg.CachePath),
			CachedPackages:  cached,
			RenderedContent: rendered,
		},
		NeedsRefresh: needsRefresh,
	}

	env, err := protocol.New(protocol.KindStatusReport, report)
	if err != nil {
		d.logger.Error().Err(err).Msg("Building status report failed")

		return
	}

	if err := d.send(conn, env); err != nil {
		d.logger.Warn().Err(err).Msg("Sending status report failed")

		return
	}

	// The refresh request went out; clear the flag so only one push gets
	// asked for. It is re-raised if the cache expires again.
	if needsRefresh {
		d.setNeedsRefresh(false)
	}
}

func (d *Display) send(conn registry.Conn, env *protocol.Envelope) error {
	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}

	return conn.WriteMessage(data)
}
