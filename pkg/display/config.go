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
	"time"

	"github.com/lumenwall/lumenwall/pkg/discovery"
	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/models"
)

const (
	defaultStatusInterval   = 60 * time.Second
	defaultInitialBackoff   = 1 * time.Second
	defaultMaxBackoff       = 60 * time.Second
	defaultDiscoveryAfter   = 3
	defaultHandshakeTimeout = 10 * time.Second
)

// ReconnectConfig tunes the exponential backoff between connection
// attempts. Jitter is always applied so a fleet does not reconnect in
// lockstep after a coordinator restart.
type ReconnectConfig struct {
	InitialBackoff models.Duration `json:"initial_backoff"`
	MaxBackoff     models.Duration `json:"max_backoff"`
}

// Config is the display agent configuration.
type Config struct {
	// ClientID is the stable device identity. Empty means derive one from
	// the hardware MAC, falling back to a generated id persisted in the
	// offline cache.
	ClientID    string `json:"client_id"`
	DisplayName string `json:"display_name"`

	// CoordinatorAddr is the manually configured coordinator host:port.
	// Empty means rely on discovery.
	CoordinatorAddr string `json:"coordinator_addr"`
	UseTLS          bool   `json:"use_tls"`

	// CachePath is the offline cache SQLite file.
	CachePath string `json:"cache_path"`

	Capabilities   []string        `json:"capabilities,omitempty"`
	StatusInterval models.Duration `json:"status_interval"`

	// DiscoveryAfterFailures is how many consecutive connect failures on
	// the configured address it takes before discovery is consulted. The
	// configured address itself is never overwritten.
	DiscoveryAfterFailures int `json:"discovery_after_failures"`

	Reconnect ReconnectConfig  `json:"reconnect"`
	Discovery discovery.Config `json:"discovery"`
	Logging   *logger.Config   `json:"logging,omitempty"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.CachePath == "" {
		return errCachePathRequired
	}

	return nil
}

func (c *Config) withDefaults() Config {
	out := *c

	if out.StatusInterval <= 0 {
		out.StatusInterval = models.Duration(defaultStatusInterval)
	}

	if out.Reconnect.InitialBackoff <= 0 {
		out.Reconnect.InitialBackoff = models.Duration(defaultInitialBackoff)
	}

	if out.Reconnect.MaxBackoff <= 0 {
		out.Reconnect.MaxBackoff = models.Duration(defaultMaxBackoff)
	}

	if out.DiscoveryAfterFailures <= 0 {
		out.DiscoveryAfterFailures = defaultDiscoveryAfter
	}

	return out
}
