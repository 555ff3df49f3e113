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

package offline

import "errors"

var (
	// ErrCacheMiss reports that no record exists for the content id.
	ErrCacheMiss = errors.New("offline cache miss")

	// ErrCacheExpired reports a record past its expiry. The display must
	// request a fresh push instead of rendering it.
	ErrCacheExpired = errors.New("offline cache entry expired")
)
