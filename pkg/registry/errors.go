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

import "errors"

var (
	// ErrConflict reports that an old session for the same client id could
	// not be closed cleanly while being superseded. The new session is
	// installed regardless.
	ErrConflict = errors.New("session registration conflict")

	// ErrSessionClosed reports a send on a torn-down session.
	ErrSessionClosed = errors.New("session closed")
)
