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

// Package display implements the field device agent: the reconnection loop
// that keeps a link to the coordinator, the offline cache that lets the
// device render through outages, and the handlers for everything the
// coordinator pushes. While disconnected the device keeps rendering its
// last cached, non-expired content.
package display

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"github.com/lumenwall/lumenwall/pkg/discovery"
	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/models"
	"github.com/lumenwall/lumenwall/pkg/offline"
	"github.com/lumenwall/lumenwall/pkg/registry"
	"github.com/lumenwall/lumenwall/pkg/transport"
)

// BeaconWaiter blocks for a coordinator discovery beacon. Implemented by
// discovery.Listener.
type BeaconWaiter interface {
	WaitForBeacon(ctx context.Context) (*discovery.Beacon, error)
}

// Dialer opens a connection to the coordinator at addr (host:port).
type Dialer func(ctx context.Context, addr string) (registry.Conn, error)

// Option customizes a Display, mainly for tests.
type Option func(*Display)

// WithRenderer replaces the default log renderer.
func WithRenderer(r Renderer) Option {
	return func(d *Display) { d.renderer = r }
}

// WithExecutor replaces the default command executor.
func WithExecutor(e CommandExecutor) Option {
	return func(d *Display) { d.executor = e }
}

// WithDialer replaces the websocket dialer.
func WithDialer(dial Dialer) Option {
	return func(d *Display) { d.dial = dial }
}

// WithBeaconWaiter replaces the discovery listener.
func WithBeaconWaiter(b BeaconWaiter) Option {
	return func(d *Display) { d.beacons = b }
}

// Display is the device agent. Implements lifecycle.Service.
type Display struct {
	cfg      Config
	clientID string
	store    *offline.Store
	renderer Renderer
	executor CommandExecutor
	beacons  BeaconWaiter
	dial     Dialer
	logger   logger.Logger

	mu           sync.Mutex
	state        State
	assigned     string
	current      *models.ContentPackage
	needsRefresh bool

	startedAt time.Time
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a display agent over an opened offline store.
func New(cfg Config, store *offline.Store, log logger.Logger, opts ...Option) (*Display, error) {
	cfg = cfg.withDefaults()

	d := &Display{
		cfg:      cfg,
		store:    store,
		renderer: &LogRenderer{Logger: log},
		executor: unsupportedExecutor{},
		beacons:  discovery.NewListener(cfg.Discovery, log),
		logger:   log,
		done:     make(chan struct{}),
	}

	d.dial = d.websocketDial

	for _, opt := range opts {
		opt(d)
	}

	clientID, err := resolveClientID(cfg, store)
	if err != nil {
		return nil, err
	}

	d.clientID = clientID

	return d, nil
}

// ClientID returns the identity the agent presents in its handshake. Empty
// until the coordinator assigns one, for devices with no derivable id.
func (d *Display) ClientID() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.clientID
}

// Start implements the lifecycle.Service interface: the reconnection loop.
// It only returns on cancellation; every connection failure feeds the
// backoff and the loop tries again.
func (d *Display) Start(ctx context.Context) error {
	d.startedAt = time.Now()

	d.restoreFromCache()

	bo := d.newBackoff()
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.done:
			return nil
		default:
		}

		d.setState(StateConnecting)

		addr, err := d.resolveAddr(ctx, failures)
		if err != nil {
			if errors.Is(err, errShutdown) {
				return nil
			}

			return err
		}

		conn, err := d.dial(ctx, addr)
		if err != nil {
			failures++

			d.logger.Warn().Err(err).
				Str("coordinator", addr).
				Int("failures", failures).
				Msg("Connection failed")

			d.setState(StateDisconnected)

			if err := d.waitBackoff(ctx, bo); err != nil {
				if errors.Is(err, errShutdown) {
					return nil
				}

				return err
			}

			continue
		}

		d.setState(StateHandshaking)

		ack, err := d.handshake(conn)
		if err != nil {
			_ = conn.Close()

			failures++

			d.logger.Warn().Err(err).
				Str("coordinator", addr).
				Msg("Handshake failed")

			d.setState(StateDisconnected)

			if err := d.waitBackoff(ctx, bo); err != nil {
				if errors.Is(err, errShutdown) {
					return nil
				}

				return err
			}

			continue
		}

		// Successful HelloAck resets the backoff to its minimum.
		failures = 0
		bo.Reset()

		d.applyAck(ack)
		d.setState(StateConnected)

		d.logger.Info().
			Str("coordinator", addr).
			Str("client_id", d.ClientID()).
			Msg("Connected to coordinator")

		d.runConnected(ctx, conn)

		_ = conn.Close()
		d.setState(StateDisconnected)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.done:
			return nil
		default:
			d.logger.Warn().Msg("Connection lost, reconnecting")
		}
	}
}

// Stop implements the lifecycle.Service interface. Interrupts an
// in-progress backoff wait immediately.
func (d *Display) Stop(_ context.Context) error {
	d.closeOnce.Do(func() {
		close(d.done)
	})

	d.wg.Wait()

	return nil
}

func (d *Display) newBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.cfg.Reconnect.InitialBackoff.Duration()
	bo.MaxInterval = d.cfg.Reconnect.MaxBackoff.Duration()

	return bo
}

// waitBackoff sleeps for the next backoff interval. Cancellation and
// shutdown interrupt the wait immediately.
func (d *Display) waitBackoff(ctx context.Context, bo *backoff.ExponentialBackOff) error {
	wait := bo.NextBackOff()

	d.logger.Debug().Dur("wait", wait).Msg("Backing off before reconnect")

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return errShutdown
	case <-timer.C:
		return nil
	}
}

// resolveAddr picks the coordinator endpoint. The configured address wins
// until it has failed enough consecutive attempts; only then (or when
// nothing is configured) is discovery consulted. The configuration itself
// is never overwritten by a beacon.
func (d *Display) resolveAddr(ctx context.Context, failures int) (string, error) {
	if d.cfg.CoordinatorAddr != "" && failures < d.cfg.DiscoveryAfterFailures {
		return d.cfg.CoordinatorAddr, nil
	}

	if d.cfg.CoordinatorAddr != "" {
		d.logger.Info().
			Str("configured", d.cfg.CoordinatorAddr).
			Int("failures", failures).
			Msg("Configured coordinator unreachable, consulting discovery")
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-d.done:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	beacon, err := d.beacons.WaitForBeacon(waitCtx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			select {
			case <-d.done:
				return "", errShutdown
			default:
			}
		}

		return "", fmt.Errorf("discovery: %w", err)
	}

	return beacon.Addr(), nil
}

func (d *Display) websocketDial(ctx context.Context, addr string) (registry.Conn, error) {
	scheme := "ws"
	if d.cfg.UseTLS {
		scheme = "wss"
	}

	u := url.URL{Scheme: scheme, Host: addr, Path: "/ws"}

	dialer := websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}

	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	return transport.NewConn(ws), nil
}

// restoreFromCache renders the last cached package on startup so the panel
// shows content before the first connection, provided the copy has not
// expired.
func (d *Display) restoreFromCache() {
	contentID, err := d.store.LastContentID()
	if err != nil || contentID == "" {
		return
	}

	pkg, err := d.store.Get(contentID)
	if err != nil {
		if errors.Is(err, offline.ErrCacheExpired) {
			d.logger.Info().
				Str("content_id", contentID).
				Msg("Cached content expired, waiting for fresh push")

			d.setNeedsRefresh(true)
		}

		return
	}

	if err := d.renderer.Render(pkg); err != nil {
		d.logger.Error().Err(err).
			Str("content_id", pkg.ContentID).
			Msg("Rendering cached content failed")

		return
	}

	d.mu.Lock()
	d.current = pkg
	d.mu.Unlock()

	d.logger.Info().
		Str("content_id", pkg.ContentID).
		Msg("Restored content from offline cache")
}

func (d *Display) setNeedsRefresh(v bool) {
	d.mu.Lock()
	d.needsRefresh = v
	d.mu.Unlock()
}
