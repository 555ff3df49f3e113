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

package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/lumenwall/lumenwall/pkg/logger"
)

const defaultAnnounceInterval = 10 * time.Second

// Announcer periodically broadcasts the coordinator beacon. Implements
// lifecycle.Service.
type Announcer struct {
	cfg    Config
	logger logger.Logger

	conn      net.PacketConn
	dst       *net.UDPAddr
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewAnnouncer creates an announcer for the given configuration.
func NewAnnouncer(cfg Config, log logger.Logger) *Announcer {
	return &Announcer{
		cfg:    cfg.withDefaults(),
		logger: log,
		done:   make(chan struct{}),
	}
}

// Start implements the lifecycle.Service interface. Failure to open the
// broadcast socket is fatal; a failed individual send is just logged.
func (a *Announcer) Start(ctx context.Context) error {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return fmt.Errorf("open beacon socket: %w", err)
	}

	a.conn = conn
	a.dst = &net.UDPAddr{
		IP:   net.IPv4bcast,
		Port: a.cfg.BeaconPort,
	}

	payload, err := encodeBeacon(&Beacon{
		ServiceID:          a.cfg.ServiceID,
		CoordinatorAddress: a.cfg.AdvertiseAddress,
		CoordinatorPort:    a.cfg.AdvertisePort,
	})
	if err != nil {
		return err
	}

	interval := a.cfg.AnnounceInterval.Duration()

	a.logger.Info().
		Str("service_id", a.cfg.ServiceID).
		Int("beacon_port", a.cfg.BeaconPort).
		Dur("interval", interval).
		Msg("Starting discovery announcer")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.wg.Add(1)
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.done:
			return nil
		case <-ticker.C:
			if _, err := a.conn.WriteTo(payload, a.dst); err != nil {
				a.logger.Warn().Err(err).Msg("Beacon broadcast failed")
			}
		}
	}
}

// Stop implements the lifecycle.Service interface.
func (a *Announcer) Stop(_ context.Context) error {
	a.closeOnce.Do(func() {
		close(a.done)
	})

	a.wg.Wait()

	if a.conn != nil {
		return a.conn.Close()
	}

	return nil
}
