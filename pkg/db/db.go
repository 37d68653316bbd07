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

// Package db implements the identity store on PostgreSQL. All identity
// rows (devices, packages, chosen versions, repositories) are
// dedup-on-write: resolution uses atomic insert-if-absent so concurrent
// sessions ingesting the same identity key converge on one canonical row.
package db

//go:generate mockgen -destination=mock_db.go -package=db github.com/packsnap/packsnap/pkg/db Service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/packsnap/packsnap/pkg/logger"
	"github.com/packsnap/packsnap/pkg/models"
)

// Service is the storage contract consumed by the ingestion pipeline and
// the query API.
type Service interface {
	// ResolveDevice gets or creates the device for its identity key and
	// reports whether a new row was created.
	ResolveDevice(ctx context.Context, device *models.Device) (id int64, created bool, err error)
	GetDevice(ctx context.Context, id int64) (*models.Device, error)
	ListDevices(ctx context.Context) ([]models.Device, error)

	// ResolvePackage gets or creates a package by (name, type).
	ResolvePackage(ctx context.Context, name, pkgType string) (int64, error)
	// ResolveChosenVersion gets or creates a version by (package, version).
	ResolveChosenVersion(ctx context.Context, packageID int64, version string) (int64, error)
	// ResolveRepository gets or creates a repository by (name, sources_lines).
	ResolveRepository(ctx context.Context, name, sourcesLines string) (int64, error)

	CreateSnapshot(ctx context.Context, deviceID int64, saveDate time.Time, operatingSystem string) (int64, error)
	// AddSnapshotVersions links chosen versions to a snapshot; re-linking
	// an already linked version is a no-op.
	AddSnapshotVersions(ctx context.Context, snapshotID int64, versionIDs []int64) error
	AddSnapshotRepositories(ctx context.Context, snapshotID int64, repositoryIDs []int64) error
	ListDeviceSnapshots(ctx context.Context, deviceID int64) ([]models.Snapshot, error)
	GetSnapshot(ctx context.Context, id int64) (*models.SnapshotDetail, error)

	Ping(ctx context.Context) error
	Close()
}

// DB wraps the pgx pool behind the Service interface.
type DB struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// New dials PostgreSQL, runs migrations, and returns the store.
func New(ctx context.Context, cfg *models.DatabaseConfig, log logger.Logger) (Service, error) {
	pool, err := NewPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, pool, log); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	return &DB{pool: pool, logger: log}, nil
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close releases the underlying connection pool.
func (db *DB) Close() {
	db.pool.Close()
}
