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

// Package transport adapts websocket connections to the registry.Conn
// stream interface shared by the coordinator and the display client. One
// websocket text frame carries one protocol envelope.
package transport

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lumenwall/lumenwall/pkg/registry"
)

// wsConn adapts a websocket connection to registry.Conn. gorilla/websocket
// permits one concurrent writer, so writes are serialized here; reads stay
// single-goroutine by contract.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewConn wraps ws as a registry.Conn.
func NewConn(ws *websocket.Conn) registry.Conn {
	return &wsConn{conn: ws}
}

func (w *wsConn) WriteMessage(data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	for {
		msgType, data, err := w.conn.ReadMessage()
		if err != nil {
			return nil, err
		}

		// Binary frames are not part of the protocol; skip rather than
		// fail so a future peer can add them without breaking us.
		if msgType != websocket.TextMessage {
			continue
		}

		return data, nil
	}
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

func (w *wsConn) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}
