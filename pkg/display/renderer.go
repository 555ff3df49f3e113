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
	"context"

	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/models"
	"github.com/lumenwall/lumenwall/pkg/protocol"
)

// Renderer is the presentation collaborator. The agent hands it every
// package to display; how pixels get to the panel is out of scope here.
type Renderer interface {
	Render(pkg *models.ContentPackage) error
}

// CommandExecutor runs platform commands (reboot, log collection) on the
// device. Reassign is handled by the agent itself.
type CommandExecutor interface {
	Execute(ctx context.Context, cmd protocol.Command) protocol.CommandResult
}

// LogRenderer is the default renderer, useful for headless testing and
// bring-up: it logs what would be displayed.
type LogRenderer struct {
	Logger logger.Logger
}

func (r *LogRenderer) Render(pkg *models.ContentPackage) error {
	r.Logger.Info().
		Str("content_id", pkg.ContentID).
		Int("values", len(pkg.ResolvedData)).
		Time("rendered_at", pkg.RenderedAt).
		Msg("Rendering content package")

	return nil
}

// unsupportedExecutor is the default CommandExecutor; it refuses platform
// commands so a bare agent never pretends to have rebooted.
type unsupportedExecutor struct{}

func (unsupportedExecutor) Execute(_ context.Context, cmd protocol.Command) protocol.CommandResult {
	return protocol.CommandResult{
		Name:    cmd.Name,
		Success: false,
		Error:   "command not supported on this platform",
	}
}
