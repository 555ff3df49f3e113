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

package scheduler

import "errors"

var (
	// ErrResolution reports that the external content resolver failed. The
	// scheduler logs it and retries on the next cycle.
	ErrResolution = errors.New("content resolution failed")

	// ErrNoAssignment reports a push request for a client with no content.
	ErrNoAssignment = errors.New("no content assignment")
)
