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

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration that accepts both "15m" strings and raw
// nanosecond numbers in JSON config files.
type Duration time.Duration

var (
	errInvalidDuration         = fmt.Errorf("invalid duration")
	errListenAddrRequired      = fmt.Errorf("listen address is required")
	errDatabaseHostRequired    = fmt.Errorf("database host is required")
	errDatabaseNameRequired    = fmt.Errorf("database name is required")
	errSessionTimeoutNegative  = fmt.Errorf("ingest session_timeout must be non-negative")
	errNATSURLRequiredWhenOn   = fmt.Errorf("nats url is required when events are enabled")
	errNATSStreamRequiredOnPub = fmt.Errorf("nats stream name is required when events are enabled")
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// DatabaseConfig configures the PostgreSQL identity store.
type DatabaseConfig struct {
	Host            string   `json:"host"`
	Port            int      `json:"port"`
	Database        string   `json:"database"`
	Username        string   `json:"username"`
	Password        string   `json:"password"`
	SSLMode         string   `json:"ssl_mode,omitempty"`
	ApplicationName string   `json:"application_name,omitempty"`
	MaxConnections  int32    `json:"max_connections,omitempty"`
	MinConnections  int32    `json:"min_connections,omitempty"`
	MaxConnLifetime Duration `json:"max_conn_lifetime,omitempty"`
}

// NATSConfig configures the optional snapshot event publisher.
type NATSConfig struct {
	Enabled  bool     `json:"enabled"`
	URL      string   `json:"url,omitempty"`
	Stream   string   `json:"stream,omitempty"`
	Subjects []string `json:"subjects,omitempty"`
}

// IngestConfig tunes the websocket ingestion channel.
type IngestConfig struct {
	// SessionTimeout is the inactivity window after which the server sends
	// TIMEOUT_DISCONNECT and drops the connection. Zero means the 15 minute
	// default.
	SessionTimeout Duration `json:"session_timeout,omitempty"`
	ReadBufferSize int      `json:"read_buffer_size,omitempty"`
}

// CORSConfig controls cross-origin access to the query API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins,omitempty"`
	AllowCredentials bool     `json:"allow_credentials,omitempty"`
}

// LoggingConfig mirrors logger.Config for the service config file.
type LoggingConfig struct {
	Level      string `json:"level,omitempty"`
	Debug      bool   `json:"debug,omitempty"`
	Output     string `json:"output,omitempty"`
	TimeFormat string `json:"time_format,omitempty"`
}

// CoreServiceConfig is the top-level configuration of the backup server.
type CoreServiceConfig struct {
	ListenAddr string          `json:"listen_addr"`
	Database   *DatabaseConfig `json:"database"`
	NATS       *NATSConfig     `json:"nats,omitempty"`
	Ingest     IngestConfig    `json:"ingest,omitempty"`
	CORS       CORSConfig      `json:"cors,omitempty"`
	Logging    *LoggingConfig  `json:"logging,omitempty"`
}

// Validate ensures the service can actually start with this config.
func (c *CoreServiceConfig) Validate() error {
	if c.ListenAddr == "" {
		return errListenAddrRequired
	}

	if c.Database == nil || c.Database.Host == "" {
		return errDatabaseHostRequired
	}

	if c.Database.Database == "" {
		return errDatabaseNameRequired
	}

	if time.Duration(c.Ingest.SessionTimeout) < 0 {
		return errSessionTimeoutNegative
	}

	if c.NATS != nil && c.NATS.Enabled {
		if c.NATS.URL == "" {
			return errNATSURLRequiredWhenOn
		}

		if c.NATS.Stream == "" {
			return errNATSStreamRequiredOnPub
		}
	}

	return nil
}
