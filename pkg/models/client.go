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

// Package models defines the shared data types exchanged between the
// coordinator and display clients.
package models

import (
	"time"
)

// ClientStatus describes the coordinator's view of a display's liveness.
type ClientStatus string

const (
	ClientOnline  ClientStatus = "online"
	ClientOffline ClientStatus = "offline"
	ClientUnknown ClientStatus = "unknown"
)

// Client represents a registered display device. Clients are created on
// first successful handshake and are never deleted automatically; an
// operator removes them explicitly.
type Client struct {
	ID                string         `json:"id"` // stable, typically derived from the device MAC
	DisplayName       string         `json:"display_name,omitempty"`
	Status            ClientStatus   `json:"status"`
	AssignedContentID string         `json:"assigned_content_id,omitempty"`
	LastSeenAt        time.Time      `json:"last_seen_at"`
	Capabilities      []string       `json:"capabilities,omitempty"`
	Metrics           *StatusMetrics `json:"metrics,omitempty"`
}

// HasCapability reports whether the client advertised the named capability
// during its handshake.
func (c *Client) HasCapability(name string) bool {
	for _, cap := range c.Capabilities {
		if cap == name {
			return true
		}
	}

	return false
}

// StatusMetrics carries the health counters a display reports periodically.
type StatusMetrics struct {
	UptimeSeconds   int64   `json:"uptime_seconds"`
	FreeDiskBytes   int64   `json:"free_disk_bytes"`
	CPUPercent      float64 `json:"cpu_percent,omitempty"`
	CachedPackages  int     `json:"cached_packages"`
	RenderedContent string  `json:"rendered_content,omitempty"`
	ReportedAt      time.Time
}

// ContentPackage is a resolved, ready-to-render content unit. It is built by
// the refresh scheduler from resolver output and pushed to a single client.
type ContentPackage struct {
	ContentID    string            `json:"content_id"`
	ResolvedData map[string]string `json:"resolved_data"`
	RenderedAt   time.Time         `json:"rendered_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
}
