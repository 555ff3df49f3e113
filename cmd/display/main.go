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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/lumenwall/lumenwall/pkg/config"
	"github.com/lumenwall/lumenwall/pkg/display"
	"github.com/lumenwall/lumenwall/pkg/lifecycle"
	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/offline"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/lumenwall/display.json", "Path to display agent config file")
	flag.Parse()

	ctx := context.Background()

	cfgLoader := config.NewConfig(nil)

	var cfg display.Config

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = &logger.Config{
			Level:  "info",
			Output: "stdout",
		}
	}

	displayLogger, err := logger.New(logConfig, "display")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := offline.Open(cfg.CachePath, nil, displayLogger)
	if err != nil {
		return fmt.Errorf("failed to open offline cache: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	agent, err := display.New(cfg, store, displayLogger)
	if err != nil {
		return err
	}

	return lifecycle.Run(ctx, displayLogger, agent)
}
