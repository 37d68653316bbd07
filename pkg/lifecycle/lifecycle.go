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

// Package lifecycle runs long-lived services with signal-driven graceful
// shutdown and wires component loggers from service configuration.
package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/packsnap/packsnap/pkg/logger"
	"github.com/packsnap/packsnap/pkg/models"
)

const shutdownTimeout = 10 * time.Second

// Server is the part of the API server the runner drives.
type Server interface {
	Start(addr string) error
	Stop(ctx context.Context) error
}

// CreateComponentLogger builds a logger tagged with the component name
// from the service logging configuration.
func CreateComponentLogger(component string, cfg *models.LoggingConfig) (logger.Logger, error) {
	logCfg := logger.DefaultConfig()

	if cfg != nil {
		logCfg = &logger.Config{
			Level:      cfg.Level,
			Debug:      cfg.Debug,
			Output:     cfg.Output,
			TimeFormat: cfg.TimeFormat,
		}
	}

	return logger.NewWithComponent(logCfg, component)
}

// RunServer serves until the context is canceled or the process receives
// SIGINT/SIGTERM, then shuts the server down gracefully.
func RunServer(ctx context.Context, srv Server, addr string, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Stop(shutdownCtx)
	})

	return g.Wait()
}
