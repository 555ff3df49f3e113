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

package protocol

import (
	"github.com/lumenwall/lumenwall/pkg/models"
)

// Hello is the client's opening handshake.
type Hello struct {
	ClientID     string   `json:"client_id"`
	DisplayName  string   `json:"display_name,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Version      string   `json:"version,omitempty"`
}

// HelloAck confirms the handshake and returns the current assignment.
type HelloAck struct {
	ClientID          string `json:"client_id"`
	AssignedContentID string `json:"assigned_content_id,omitempty"`
}

// Heartbeat is sent by the coordinator on each liveness interval.
type Heartbeat struct {
	Sequence uint64 `json:"sequence"`
}

// HeartbeatAck is the client's reply to a Heartbeat.
type HeartbeatAck struct {
	Sequence uint64 `json:"sequence"`
}

// ContentPush carries a resolved package to a single client.
type ContentPush struct {
	Package models.ContentPackage `json:"package"`
}

// CommandName enumerates the coordinator-issued commands.
type CommandName string

const (
	CommandReboot     CommandName = "reboot"
	CommandReassign   CommandName = "reassign"
	CommandRequestLog CommandName = "request_log"
)

// Command instructs a client to perform a privileged action.
type Command struct {
	Name CommandName       `json:"name"`
	Args map[string]string `json:"args,omitempty"`
}

// CommandResult reports the outcome of a Command back to the coordinator.
type CommandResult struct {
	Name    CommandName `json:"name"`
	Success bool        `json:"success"`
	Output  string      `json:"output,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// StatusReport is the client's periodic health report. NeedsRefresh asks the
// coordinator for an immediate content push, used after reconnecting with an
// expired offline cache.
type StatusReport struct {
	Metrics      models.StatusMetrics `json:"metrics"`
	NeedsRefresh bool                 `json:"needs_refresh,omitempty"`
}
