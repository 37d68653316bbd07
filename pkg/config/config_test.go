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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "listen_addr": ":8080",
  "database": {
    "host": "db.internal",
    "port": 5432,
    "database": "packsnap",
    "username": "packsnap",
    "password": "secret",
    "max_connections": 10
  },
  "nats": {
    "enabled": true,
    "url": "nats://localhost:4222",
    "stream": "events"
  },
  "ingest": {
    "session_timeout": "15m"
  },
  "cors": {
    "allowed_origins": ["https://ui.example.com"]
  }
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "core.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadCoreConfig(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	cfg, err := LoadCoreConfig(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, int32(10), cfg.Database.MaxConnections)
	assert.Equal(t, 15*time.Minute, time.Duration(cfg.Ingest.SessionTimeout))
	require.NotNil(t, cfg.NATS)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, []string{"https://ui.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoadCoreConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	t.Setenv("PACKSNAP_LISTEN_ADDR", ":9090")
	t.Setenv("PACKSNAP_DB_HOST", "replica.internal")
	t.Setenv("PACKSNAP_DB_PASSWORD", "rotated")
	t.Setenv("PACKSNAP_NATS_URL", "nats://broker:4222")

	cfg, err := LoadCoreConfig(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "replica.internal", cfg.Database.Host)
	assert.Equal(t, "rotated", cfg.Database.Password)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
}

func TestLoadCoreConfigInvalid(t *testing.T) {
	path := writeConfig(t, `{"listen_addr": ""}`)

	_, err := LoadCoreConfig(context.Background(), path)
	require.Error(t, err)
}

func TestLoadCoreConfigMissingFile(t *testing.T) {
	_, err := LoadCoreConfig(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestFileConfigLoaderBadJSON(t *testing.T) {
	path := writeConfig(t, "{not json")

	var dst map[string]interface{}

	loader := &FileConfigLoader{}
	require.Error(t, loader.Load(context.Background(), path, &dst))
}
