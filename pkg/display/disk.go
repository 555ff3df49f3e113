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

//go:build unix

package display

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// freeDiskBytes reports free space on the filesystem holding the offline
// cache. Zero on failure; the coordinator treats zero as unknown.
func freeDiskBytes(cachePath string) int64 {
	var st unix.Statfs_t
	if err := unix.Statfs(filepath.Dir(cachePath), &st); err != nil {
		return 0
	}

	return int64(st.Bavail) * st.Bsize
}
