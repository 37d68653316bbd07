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

package ingest

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/packsnap/packsnap/pkg/logger"
	"github.com/packsnap/packsnap/pkg/models"
)

const (
	// DefaultSessionTimeout is how long the server waits for the inventory
	// payload before dropping the connection.
	DefaultSessionTimeout = 15 * time.Minute

	defaultReadBufferSize = 1024
)

// Handler upgrades HTTP requests to websocket ingestion sessions. One
// connection carries exactly one payload.
type Handler struct {
	store       Store
	events      EventPublisher
	logger      logger.Logger
	timeout     time.Duration
	checkOrigin func(r *http.Request) bool
	bufferSize  int
	clock       func() time.Time
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger attaches a logger to the handler and its sessions.
func WithHandlerLogger(log logger.Logger) HandlerOption {
	return func(h *Handler) { h.logger = log }
}

// WithHandlerEventPublisher wires snapshot.created publishing into every
// session the handler spawns.
func WithHandlerEventPublisher(p EventPublisher) HandlerOption {
	return func(h *Handler) { h.events = p }
}

// WithSessionTimeout overrides how long the server waits for the payload.
func WithSessionTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithCheckOrigin overrides the websocket origin check.
func WithCheckOrigin(check func(r *http.Request) bool) HandlerOption {
	return func(h *Handler) { h.checkOrigin = check }
}

// WithReadBufferSize sets the websocket read/write buffer size.
func WithReadBufferSize(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithHandlerClock overrides the clock used for snapshot save dates.
func WithHandlerClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.clock = now }
}

// NewHandler creates the ingestion websocket handler over the given store.
func NewHandler(store Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:      store,
		logger:     logger.NewTestLogger(),
		timeout:    DefaultSessionTimeout,
		bufferSize: defaultReadBufferSize,
		clock:      time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ServeHTTP runs one ingestion session: upgrade, greet, wait for the
// payload, run the pipeline, then close with the completion code.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  h.bufferSize,
		WriteBufferSize: h.bufferSize,
		CheckOrigin:     h.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Str("origin", r.Header.Get("Origin")).
			Msg("failed to upgrade to websocket")

		return
	}

	defer func() {
		h.logger.Debug().
			Str("remote_addr", r.RemoteAddr).
			Msg("closing ingestion connection")
		conn.Close()
	}()

	sink := newConnSink(conn)

	// The greeting is a bare text frame; clients use it to tell the
	// handshake apart from the structured messages that follow.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ConnectedSentinel)); err != nil {
		h.logger.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("failed to send greeting")
		return
	}

	payload, err := h.readPayload(conn, sink, r.RemoteAddr)
	if err != nil {
		return
	}

	session := NewSession(h.store, sink,
		WithEventPublisher(h.events),
		WithSessionLogger(h.logger),
		WithClock(h.clock))

	if err := session.Run(r.Context(), payload); err != nil {
		h.logger.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("ingestion session failed")

		return
	}

	h.logger.Info().
		Str("remote_addr", r.RemoteAddr).
		Str("hostname", payload.Hostname).
		Msg("ingestion session completed")

	h.closeComplete(conn, r.RemoteAddr)
}

// readPayload waits for the single inventory frame. An idle client gets
// the timeout warning before the connection drops; a malformed or invalid
// payload gets an error message.
func (h *Handler) readPayload(conn *websocket.Conn, sink MessageSink, remoteAddr string) (*models.InventoryPayload, error) {
	if err := conn.SetReadDeadline(h.clock().Add(h.timeout)); err != nil {
		h.logger.Warn().Err(err).Str("remote_addr", remoteAddr).Msg("failed to set read deadline")
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			h.logger.Info().
				Str("remote_addr", remoteAddr).
				Dur("timeout", h.timeout).
				Msg("session timed out waiting for payload")

			if sendErr := sink.Send(timeoutWarning()); sendErr != nil {
				h.logger.Warn().Err(sendErr).Msg("failed to send timeout warning")
			}

			return nil, err
		}

		h.logger.Warn().Err(err).Str("remote_addr", remoteAddr).Msg("websocket read failed")

		return nil, err
	}

	var payload models.InventoryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warn().Err(err).Str("remote_addr", remoteAddr).Msg("malformed inventory payload")

		if sendErr := sink.Send(errorMessage(err.Error())); sendErr != nil {
			h.logger.Warn().Err(sendErr).Msg("failed to send error message")
		}

		return nil, err
	}

	return &payload, nil
}

func (h *Handler) closeComplete(conn *websocket.Conn, remoteAddr string) {
	deadline := h.clock().Add(5 * time.Second)
	frame := websocket.FormatCloseMessage(CloseCodeIngestComplete, msgEndOfData)

	if err := conn.WriteControl(websocket.CloseMessage, frame, deadline); err != nil {
		h.logger.Warn().Err(err).Str("remote_addr", remoteAddr).Msg("failed to send close frame")
	}
}

// connSink serializes structured message writes on one connection.
type connSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newConnSink(conn *websocket.Conn) *connSink {
	return &connSink{conn: conn}
}

func (s *connSink) Send(msg StatusMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.WriteJSON(msg)
}
