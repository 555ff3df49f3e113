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

package registry

// Conn abstracts one ordered, bidirectional message stream to a client.
// The production implementation wraps a websocket connection; tests use
// in-memory fakes.
type Conn interface {
	// WriteMessage writes one complete frame. Calls are serialized by the
	// owning session's writer goroutine.
	WriteMessage(data []byte) error

	// ReadMessage blocks for the next complete frame.
	ReadMessage() ([]byte, error)

	// Close tears the connection down. Unblocks pending reads and writes.
	Close() error

	// RemoteAddr describes the peer for logging.
	RemoteAddr() string
}
