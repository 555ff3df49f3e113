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
	"encoding/hex"
	"fmt"
	"net"

	"github.com/lumenwall/lumenwall/pkg/offline"
)

// resolveClientID settles the identity the agent will present in its
// handshake, in priority order: explicit configuration, the id persisted in
// the offline cache from a previous run, a hardware MAC derivation. When all
// three come up empty the agent hands the coordinator an empty id and
// persists whatever the coordinator assigns.
func resolveClientID(cfg Config, store *offline.Store) (string, error) {
	if cfg.ClientID != "" {
		return cfg.ClientID, nil
	}

	persisted, err := store.ClientID()
	if err != nil {
		return "", fmt.Errorf("reading persisted client id: %w", err)
	}

	if persisted != "" {
		return persisted, nil
	}

	if derived := macDerivedID(); derived != "" {
		if err := store.SetClientID(derived); err != nil {
			return "", fmt.Errorf("persisting client id: %w", err)
		}

		return derived, nil
	}

	return "", nil
}

// macDerivedID builds a stable id from the first physical interface that
// carries a hardware address. Loopback and address-less interfaces are
// skipped.
func macDerivedID() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		if len(iface.HardwareAddr) == 0 {
			continue
		}

		return "dsp-" + hex.EncodeToString(iface.HardwareAddr)
	}

	return ""
}
