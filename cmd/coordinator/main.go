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
	"github.com/lumenwall/lumenwall/pkg/core"
	"github.com/lumenwall/lumenwall/pkg/discovery"
	"github.com/lumenwall/lumenwall/pkg/dispatcher"
	"github.com/lumenwall/lumenwall/pkg/heartbeat"
	"github.com/lumenwall/lumenwall/pkg/lifecycle"
	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/protocol"
	"github.com/lumenwall/lumenwall/pkg/querycache"
	"github.com/lumenwall/lumenwall/pkg/ratelimit"
	"github.com/lumenwall/lumenwall/pkg/registry"
	"github.com/lumenwall/lumenwall/pkg/resolver"
	"github.com/lumenwall/lumenwall/pkg/scheduler"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/lumenwall/coordinator.json", "Path to coordinator config file")
	flag.Parse()

	ctx := context.Background()

	cfgLoader := config.NewConfig(nil)

	var cfg core.Config

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

	coordLogger, err := logger.New(logConfig, "coordinator")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	clients := registry.NewClientStore(nil)
	sessions := registry.NewSessionRegistry(clients, coordLogger)

	disp := dispatcher.New(sessions, coordLogger)
	disp.SetRateLimiter(ratelimit.New(cfg.RateLimit),
		protocol.KindStatusReport, protocol.KindCommandResult)

	monitor := heartbeat.NewMonitor(cfg.Heartbeat, disp, sessions, nil, coordLogger)
	authorizer := core.NewCapabilityAuthorizer(clients)

	server := core.NewServer(cfg, clients, sessions, disp, monitor, authorizer, coordLogger)

	cache := querycache.New(nil)
	sched := scheduler.New(cfg.Scheduler, clients, disp, resolver.New(cfg.Resolver, coordLogger),
		cache, nil, coordLogger)

	server.SetRefresher(sched)

	services := []lifecycle.Service{server, sched}

	// The beacon only makes sense with an advertisable endpoint.
	if cfg.Discovery.AdvertiseAddress != "" {
		services = append(services, discovery.NewAnnouncer(cfg.Discovery, coordLogger))
	}

	return lifecycle.Run(ctx, coordLogger, services...)
}
