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

// Package config loads service configuration from JSON files with
// environment variable overrides for deployment secrets.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/packsnap/packsnap/pkg/models"
)

var errInvalidConfigPtr = errors.New("config must be a non-nil pointer")

// Validator is implemented by config structs that can check themselves.
type Validator interface {
	Validate() error
}

// ConfigLoader loads a configuration document into dst.
type ConfigLoader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// FileConfigLoader loads configuration from a local JSON file.
type FileConfigLoader struct{}

// Load implements ConfigLoader by reading and unmarshaling a JSON file.
func (*FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	if dst == nil {
		return errInvalidConfigPtr
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal JSON from '%s': %w", path, err)
	}

	return nil
}

// LoadCoreConfig reads the server config file, applies environment
// overrides, and validates the result.
func LoadCoreConfig(ctx context.Context, path string) (*models.CoreServiceConfig, error) {
	var cfg models.CoreServiceConfig

	loader := &FileConfigLoader{}
	if err := loader.Load(ctx, path, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides lets deployments inject secrets without writing them
// into the config file.
func applyEnvOverrides(cfg *models.CoreServiceConfig) {
	if v := os.Getenv("PACKSNAP_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	if cfg.Database != nil {
		if v := os.Getenv("PACKSNAP_DB_HOST"); v != "" {
			cfg.Database.Host = v
		}

		if v := os.Getenv("PACKSNAP_DB_PORT"); v != "" {
			if port, err := strconv.Atoi(v); err == nil {
				cfg.Database.Port = port
			}
		}

		if v := os.Getenv("PACKSNAP_DB_USER"); v != "" {
			cfg.Database.Username = v
		}

		if v := os.Getenv("PACKSNAP_DB_PASSWORD"); v != "" {
			cfg.Database.Password = v
		}
	}

	if cfg.NATS != nil {
		if v := os.Getenv("PACKSNAP_NATS_URL"); v != "" {
			cfg.NATS.URL = v
		}
	}
}
