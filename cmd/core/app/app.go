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

// Package app wires the backup server together: config, store, event
// publisher, ingestion channel, and the HTTP API.
package app

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/packsnap/packsnap/pkg/config"
	"github.com/packsnap/packsnap/pkg/core/api"
	"github.com/packsnap/packsnap/pkg/db"
	pkghttp "github.com/packsnap/packsnap/pkg/http"
	"github.com/packsnap/packsnap/pkg/ingest"
	"github.com/packsnap/packsnap/pkg/lifecycle"
	"github.com/packsnap/packsnap/pkg/models"
	"github.com/packsnap/packsnap/pkg/natsutil"
)

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
}

// Run boots the backup server using the provided options and blocks
// until shutdown.
func Run(ctx context.Context, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadCoreConfig(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	mainLogger, err := lifecycle.CreateComponentLogger("core", cfg.Logging)
	if err != nil {
		return err
	}

	dbLogger, err := lifecycle.CreateComponentLogger("db", cfg.Logging)
	if err != nil {
		return err
	}

	store, err := db.New(ctx, cfg.Database, dbLogger)
	if err != nil {
		return err
	}
	defer store.Close()

	ingestLogger, err := lifecycle.CreateComponentLogger("ingest", cfg.Logging)
	if err != nil {
		return err
	}

	ingestOpts := []ingest.HandlerOption{
		ingest.WithHandlerLogger(ingestLogger),
		ingest.WithSessionTimeout(time.Duration(cfg.Ingest.SessionTimeout)),
		ingest.WithReadBufferSize(cfg.Ingest.ReadBufferSize),
		ingest.WithCheckOrigin(pkghttp.CheckWebSocketOrigin(cfg.CORS)),
	}

	apiOptions := []func(*api.APIServer){
		api.WithDBService(store),
		api.WithLogger(mainLogger),
	}

	if cfg.NATS != nil && cfg.NATS.Enabled {
		publisher, nc, pubErr := connectEventPublisher(ctx, cfg.NATS)
		if pubErr != nil {
			return pubErr
		}
		defer nc.Close()

		ingestOpts = append(ingestOpts, ingest.WithHandlerEventPublisher(publisher))
		apiOptions = append(apiOptions, api.WithNATSStatus(nc.IsConnected))
	}

	apiOptions = append(apiOptions,
		api.WithIngestHandler(ingest.NewHandler(store, ingestOpts...)))

	apiServer := api.NewAPIServer(cfg.CORS, apiOptions...)

	mainLogger.Info().
		Str("listen_addr", cfg.ListenAddr).
		Bool("events_enabled", cfg.NATS != nil && cfg.NATS.Enabled).
		Msg("backup server configured")

	return lifecycle.RunServer(ctx, apiServer, cfg.ListenAddr, mainLogger)
}

func connectEventPublisher(ctx context.Context, cfg *models.NATSConfig) (*natsutil.EventPublisher, *nats.Conn, error) {
	return natsutil.ConnectWithEventPublisher(ctx, cfg.URL, cfg.Stream, cfg.Subjects,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1))
}
