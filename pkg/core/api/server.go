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

// Package api provides the HTTP surface of the backup service: the
// websocket ingestion endpoint plus the read-side query API over
// devices and snapshots.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/packsnap/packsnap/pkg/db"
	pkghttp "github.com/packsnap/packsnap/pkg/http"
	"github.com/packsnap/packsnap/pkg/logger"
	"github.com/packsnap/packsnap/pkg/models"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// APIServer routes query and ingestion traffic.
type APIServer struct {
	router        *mux.Router
	dbService     db.Service
	ingestHandler http.Handler
	natsStatus    func() bool
	corsConfig    models.CORSConfig
	logger        logger.Logger
	httpSrv       *http.Server
}

// NewAPIServer creates a new API server instance with the given CORS
// configuration.
func NewAPIServer(config models.CORSConfig, options ...func(*APIServer)) *APIServer {
	s := &APIServer{
		router:     mux.NewRouter(),
		corsConfig: config,
		logger:     logger.NewTestLogger(),
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithDBService attaches the identity store backing the query API.
func WithDBService(svc db.Service) func(*APIServer) {
	return func(server *APIServer) {
		server.dbService = svc
	}
}

// WithLogger attaches a logger to the API server.
func WithLogger(log logger.Logger) func(*APIServer) {
	return func(server *APIServer) {
		server.logger = log
	}
}

// WithIngestHandler mounts the websocket ingestion endpoint.
func WithIngestHandler(h http.Handler) func(*APIServer) {
	return func(server *APIServer) {
		server.ingestHandler = h
	}
}

// WithNATSStatus wires a connectivity probe for the status endpoint.
func WithNATSStatus(status func() bool) func(*APIServer) {
	return func(server *APIServer) {
		server.natsStatus = status
	}
}

func (s *APIServer) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return pkghttp.CommonMiddleware(next, s.corsConfig)
	})

	s.router.HandleFunc("/api/status", s.getStatus).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/devices", s.listDevices).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/devices/{id:[0-9]+}", s.getDevice).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/devices/{id:[0-9]+}/snapshots", s.listDeviceSnapshots).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/snapshots/{id:[0-9]+}", s.getSnapshot).Methods(http.MethodGet, http.MethodOptions)

	if s.ingestHandler != nil {
		s.router.Handle("/backup/import", s.ingestHandler)
	}
}

// Router exposes the configured router, mainly for tests.
func (s *APIServer) Router() *mux.Router {
	return s.router
}

// Start starts the API server on the specified address and blocks until
// the listener fails or Stop is called.
func (s *APIServer) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	s.logger.Info().Str("addr", addr).Msg("starting API server")

	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *APIServer) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}

	return s.httpSrv.Shutdown(ctx)
}

func (s *APIServer) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode API response")
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errResponse := models.ErrorResponse{
		Message: message,
		Status:  statusCode,
	}

	if err := json.NewEncoder(w).Encode(errResponse); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
