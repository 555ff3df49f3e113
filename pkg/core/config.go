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
	"github.com/lumenwall/lumenwall/pkg/discovery"
	"github.com/lumenwall/lumenwall/pkg/heartbeat"
	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/models"
	"github.com/lumenwall/lumenwall/pkg/ratelimit"
	"github.com/lumenwall/lumenwall/pkg/resolver"
	"github.com/lumenwall/lumenwall/pkg/scheduler"
)

// TLSConfig points at the certificate pair for the websocket endpoint.
// Empty paths mean plain TCP.
type TLSConfig struct {
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`
}

// Config is the coordinator service configuration.
type Config struct {
	// ListenAddr is the HTTP/websocket bind address, e.g. ":9180".
	ListenAddr string `json:"listen_addr"`
	// CommandTimeout bounds how long a Command waits for its result.
	CommandTimeout models.Duration `json:"command_timeout"`

	TLS       *TLSConfig       `json:"tls,omitempty"`
	Heartbeat heartbeat.Config `json:"heartbeat"`
	RateLimit ratelimit.Config `json:"rate_limit"`
	Scheduler scheduler.Config `json:"scheduler"`
	Resolver  resolver.Config  `json:"resolver"`
	Discovery discovery.Config `json:"discovery"`
	Logging   *logger.Config   `json:"logging,omitempty"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errListenAddrRequired
	}

	if c.TLS != nil && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		return errTLSFilesRequired
	}

	return nil
}
