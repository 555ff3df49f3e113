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

import "errors"

var (
	errListenAddrRequired = errors.New("listen_addr is required")
	errTLSFilesRequired   = errors.New("tls.cert_file and tls.key_file are both required for TLS")

	// ErrNotAuthorized reports that the authorization collaborator refused
	// a privileged command for this client.
	ErrNotAuthorized = errors.New("command not authorized")

	// ErrHandshake reports a connection that failed to complete the Hello
	// exchange.
	ErrHandshake = errors.New("handshake failed")

	// ErrCommandTimeout reports that a client did not answer a Command
	// within the configured window.
	ErrCommandTimeout = errors.New("command timed out")

	// ErrUnknownClient reports an operation against a client id that has
	// never completed a handshake.
	ErrUnknownClient = errors.New("unknown client")
)
