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

import "errors"

var (
	errCachePathRequired = errors.New("cache_path is required")

	// errShutdown threads a Stop call out of blocking waits inside the
	// reconnection loop.
	errShutdown = errors.New("display agent shutting down")

	// ErrHandshake reports a connection attempt that reached the
	// coordinator but failed the Hello exchange.
	ErrHandshake = errors.New("handshake failed")
)
