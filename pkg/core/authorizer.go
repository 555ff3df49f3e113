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
	"context"

	"github.com/lumenwall/lumenwall/pkg/registry"
)

// CapabilityAuthorizer authorizes a privileged command when the target
// client advertised the matching capability in its handshake. A device that
// never claimed "reboot" cannot be told to reboot.
type CapabilityAuthorizer struct {
	clients *registry.ClientStore
}

// NewCapabilityAuthorizer creates the default authorizer over the client
// store.
func NewCapabilityAuthorizer(clients *registry.ClientStore) *CapabilityAuthorizer {
	return &CapabilityAuthorizer{clients: clients}
}

// IsAuthorized implements Authorizer.
func (a *CapabilityAuthorizer) IsAuthorized(_ context.Context, clientID, capability string) bool {
	c := a.clients.Get(clientID)
	if c == nil {
		return false
	}

	return c.HasCapability(capability)
}
