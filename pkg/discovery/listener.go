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
	"time"

	"github.com/lumenwall/lumenwall/pkg/logger"
)

const readDeadlineStep = 500 * time.Millisecond

// Listener waits passively for coordinator beacons.
type Listener struct {
	cfg    Config
	logger logger.Logger
}

// NewListener creates a beacon listener for the given configuration.
func NewListener(cfg Config, log logger.Logger) *Listener {
	return &Listener{
		cfg:    cfg.withDefaults(),
		logger: log,
	}
}

// WaitForBeacon blocks until a beacon with the expected service id arrives
// or ctx is canceled. Malformed datagrams and foreign service ids are
// skipped silently; the broadcast channel is shared.
func (l *Listener) WaitForBeacon(ctx context.Context) (*Beacon, error) {
	conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", l.cfg.BeaconPort))
	if err != nil {
		return nil, fmt.Errorf("open beacon listener: %w", err)
	}
	defer conn.Close()

	l.logger.Info().
		Int("beacon_port", l.cfg.BeaconPort).
		Str("service_id", l.cfg.ServiceID).
		Msg("Listening for coordinator beacon")

	buf := make([]byte, 2048)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Short read deadlines keep cancellation prompt without a
		// dedicated reader goroutine.
		if err := conn.SetReadDeadline(time.Now().Add(readDeadlineStep)); err != nil {
			return nil, fmt.Errorf("set beacon read deadline: %w", err)
		}

		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}

			return nil, fmt.Errorf("beacon read: %w", err)
		}

		beacon, err := decodeBeacon(buf[:n])
		if err != nil {
			l.logger.Debug().Err(err).
				Str("from", from.String()).
				Msg("Skipping malformed beacon")

			continue
		}

		if beacon.ServiceID != l.cfg.ServiceID {
			continue
		}

		l.logger.Info().
			Str("coordinator", beacon.Addr()).
			Str("from", from.String()).
			Msg("Coordinator discovered")

		return beacon, nil
	}
}
