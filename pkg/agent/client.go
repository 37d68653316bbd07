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

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/packsnap/packsnap/pkg/ingest"
	"github.com/packsnap/packsnap/pkg/logger"
	"github.com/packsnap/packsnap/pkg/models"
)

var (
	errUnexpectedGreeting = errors.New("unexpected server greeting")
	errServerTimeout      = errors.New("server dropped the session for inactivity")
)

// Client ships one inventory payload to the backup server and follows
// the session's progress stream until the server closes it.
type Client struct {
	serverURL string
	logger    logger.Logger
}

// NewClient creates a client for the given websocket import URL, e.g.
// ws://backup.example.com:8080/backup/import.
func NewClient(serverURL string, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Client{serverURL: serverURL, logger: log}
}

// Send runs one full import session. It returns nil only when the server
// confirmed the end of data and closed with the completion code.
func (c *Client) Send(ctx context.Context, payload *models.InventoryPayload) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.serverURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", c.serverURL, err)
	}
	defer conn.Close()

	if err := c.awaitGreeting(conn); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return fmt.Errorf("failed to send payload: %w", err)
	}

	return c.followSession(conn)
}

func (c *Client) awaitGreeting(conn *websocket.Conn) error {
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read greeting: %w", err)
	}

	if string(raw) != ingest.ConnectedSentinel {
		return fmt.Errorf("%w: %q", errUnexpectedGreeting, string(raw))
	}

	c.logger.Info().Str("server", c.serverURL).Msg("connected")

	return nil
}

// followSession consumes the progress stream. The session is over when
// the end message arrives and the server closes with the completion code.
func (c *Client) followSession(conn *websocket.Conn) error {
	sawEnd := false

	for {
		var msg ingest.StatusMessage

		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, ingest.CloseCodeIngestComplete) && sawEnd {
				return nil
			}

			return fmt.Errorf("session ended unexpectedly: %w", err)
		}

		switch {
		case msg.Status == ingest.StatusError:
			return fmt.Errorf("server rejected the import: %s", msg.Message)
		case msg.Status == ingest.StatusWarning:
			return fmt.Errorf("%w: %s", errServerTimeout, msg.Message)
		case msg.Type == ingest.TypeProgressBar:
			c.logProgress(msg.Infos)
		case msg.Type == ingest.TypeEnd:
			sawEnd = true

			c.logger.Info().Msg(msg.Message)
		default:
			c.logger.Info().Msg(msg.Message)
		}
	}
}

func (c *Client) logProgress(infos string) {
	var progress struct {
		State string `json:"state"`
		Total int    `json:"total"`
		Desc  string `json:"desc"`
		Index string `json:"index"`
	}

	if err := json.Unmarshal([]byte(infos), &progress); err != nil {
		c.logger.Debug().Str("infos", infos).Msg("unparseable progress frame")
		return
	}

	if progress.State == "init" {
		c.logger.Info().Int("total", progress.Total).Msg(progress.Desc)
	}
}
