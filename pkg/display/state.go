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

// State is the reconnection loop's connection state. Transitions:
// Disconnected -> Connecting -> Handshaking -> Connected, and back to
// Disconnected on any failure.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	default:
		return "invalid"
	}
}

func (d *Display) setState(next State) {
	d.mu.Lock()
	prev := d.state
	d.state = next
	d.mu.Unlock()

	if prev != next {
		d.logger.Debug().
			Str("from", prev.String()).
			Str("to", next.String()).
			Msg("Connection state changed")
	}
}

// State returns the current connection state.
func (d *Display) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}
