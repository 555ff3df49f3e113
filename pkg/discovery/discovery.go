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

// Package discovery lets unconfigured displays find the coordinator on the
// local network. The coordinator broadcasts a small JSON beacon; displays
// listen passively and connect to the first beacon carrying the expected
// service id. Discovery never overrides a manually configured address.
package discovery

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/lumenwall/lumenwall/pkg/models"
)

const (
	// DefaultServiceID identifies a lumenwall coordinator beacon.
	DefaultServiceID = "lumenwall-coordinator"

	// DefaultPort is the UDP port beacons are broadcast on.
	DefaultPort = 15530
)

// Beacon is the periodic announcement datagram.
type Beacon struct {
	ServiceID          string `json:"service_id"`
	CoordinatorAddress string `json:"coordinator_address"`
	CoordinatorPort    int    `json:"coordinator_port"`
}

// Addr formats the coordinator endpoint advertised by the beacon.
func (b *Beacon) Addr() string {
	return net.JoinHostPort(b.CoordinatorAddress, fmt.Sprintf("%d", b.CoordinatorPort))
}

// Config is shared by the announcer and the listener.
type Config struct {
	ServiceID string `json:"service_id"`
	// BeaconPort is the UDP port used for the broadcast channel.
	BeaconPort int `json:"beacon_port"`
	// AnnounceInterval is how often the coordinator broadcasts.
	AnnounceInterval models.Duration `json:"announce_interval"`
	// AdvertiseAddress/AdvertisePort are the coordinator endpoint put into
	// the beacon. Only the announcer uses them.
	AdvertiseAddress string `json:"advertise_address"`
	AdvertisePort    int    `json:"advertise_port"`
}

func (c *Config) withDefaults() Config {
	out := *c

	if out.ServiceID == "" {
		out.ServiceID = DefaultServiceID
	}

	if out.BeaconPort == 0 {
		out.BeaconPort = DefaultPort
	}

	if out.AnnounceInterval <= 0 {
		out.AnnounceInterval = models.Duration(defaultAnnounceInterval)
	}

	return out
}

func encodeBeacon(b *Beacon) ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode beacon: %w", err)
	}

	return data, nil
}

func decodeBeacon(data []byte) (*Beacon, error) {
	var b Beacon
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode beacon: %w", err)
	}

	return &b, nil
}
