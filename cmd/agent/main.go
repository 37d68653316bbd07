/*
 * Copyright 2025 Packsnap Authors.
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
	"log"
	"time"

	"github.com/packsnap/packsnap/pkg/agent"
	"github.com/packsnap/packsnap/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	serverURL := flag.String("server", "ws://localhost:8080/backup/import", "Backup server import URL")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall import timeout")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	mainLogger, err := logger.NewWithComponent(&logger.Config{Debug: *debug}, "agent")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	payload, err := agent.NewCollector().Collect(ctx)
	if err != nil {
		return err
	}

	mainLogger.Info().
		Str("hostname", payload.Hostname).
		Int("sources", len(payload.Libraries)).
		Msg("inventory collected")

	return agent.NewClient(*serverURL, mainLogger).Send(ctx, payload)
}
