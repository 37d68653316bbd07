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

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/packsnap/packsnap/pkg/models"
)

const (
	insertSnapshotSQL = `
INSERT INTO snapshots (device_id, save_date, operating_system)
VALUES ($1, $2, $3)
RETURNING id`

	linkSnapshotVersionSQL = `
INSERT INTO snapshot_versions (snapshot_id, version_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`

	linkSnapshotRepositorySQL = `
INSERT INTO snapshot_repositories (snapshot_id, repository_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`

	listDeviceSnapshotsSQL = `
SELECT id, device_id, save_date, operating_system, created_at
FROM snapshots WHERE device_id = $1 ORDER BY id`

	selectSnapshotSQL = `
SELECT id, device_id, save_date, operating_system, created_at
FROM snapshots WHERE id = $1`

	selectSnapshotVersionsSQL = `
SELECT cv.id, p.name, p.type, cv.chosen_version
FROM snapshot_versions sv
JOIN chosen_versions cv ON cv.id = sv.version_id
JOIN packages p ON p.id = cv.package_id
WHERE sv.snapshot_id = $1
ORDER BY p.type, p.name, cv.chosen_version`

	selectSnapshotRepositoriesSQL = `
SELECT r.id, r.name, r.sources_lines
FROM snapshot_repositories sr
JOIN repositories r ON r.id = sr.repository_id
WHERE sr.snapshot_id = $1
ORDER BY r.id`
)

// CreateSnapshot opens a new aggregation root for one ingestion session.
func (db *DB) CreateSnapshot(ctx context.Context, deviceID int64, saveDate time.Time, operatingSystem string) (int64, error) {
	var id int64

	err := db.pool.QueryRow(ctx, insertSnapshotSQL, deviceID, saveDate, operatingSystem).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create snapshot: %w", err)
	}

	return id, nil
}

// AddSnapshotVersions links resolved chosen versions to a snapshot in one
// batch round trip. Duplicate links are ignored.
func (db *DB) AddSnapshotVersions(ctx context.Context, snapshotID int64, versionIDs []int64) error {
	return db.linkBatch(ctx, linkSnapshotVersionSQL, snapshotID, versionIDs, "snapshot versions")
}

// AddSnapshotRepositories links resolved repositories to a snapshot.
func (db *DB) AddSnapshotRepositories(ctx context.Context, snapshotID int64, repositoryIDs []int64) error {
	return db.linkBatch(ctx, linkSnapshotRepositorySQL, snapshotID, repositoryIDs, "snapshot repositories")
}

func (db *DB) linkBatch(ctx context.Context, sql string, snapshotID int64, ids []int64, what string) error {
	if len(ids) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(sql, snapshotID, id)
	}

	results := db.pool.SendBatch(ctx, batch)
	defer func() {
		if err := results.Close(); err != nil && db.logger != nil {
			db.logger.Warn().Err(err).Str("link", what).Msg("failed to close batch results")
		}
	}()

	for range ids {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to link %s: %w", what, err)
		}
	}

	return nil
}

// ListDeviceSnapshots returns the snapshot headers of one device.
func (db *DB) ListDeviceSnapshots(ctx context.Context, deviceID int64) ([]models.Snapshot, error) {
	rows, err := db.pool.Query(ctx, listDeviceSnapshotsSQL, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.Snapshot

	for rows.Next() {
		var s models.Snapshot

		if err := rows.Scan(&s.ID, &s.DeviceID, &s.SaveDate, &s.OperatingSystem, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

// GetSnapshot returns one snapshot hydrated with its version and
// repository links.
func (db *DB) GetSnapshot(ctx context.Context, id int64) (*models.SnapshotDetail, error) {
	var detail models.SnapshotDetail

	err := db.pool.QueryRow(ctx, selectSnapshotSQL, id).Scan(
		&detail.Snapshot.ID,
		&detail.Snapshot.DeviceID,
		&detail.Snapshot.SaveDate,
		&detail.Snapshot.OperatingSystem,
		&detail.Snapshot.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}

		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	versions, err := db.snapshotVersions(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Versions = versions

	repositories, err := db.snapshotRepositories(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Repositories = repositories

	return &detail, nil
}

func (db *DB) snapshotVersions(ctx context.Context, snapshotID int64) ([]models.SnapshotVersion, error) {
	rows, err := db.pool.Query(ctx, selectSnapshotVersionsSQL, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot versions: %w", err)
	}
	defer rows.Close()

	var versions []models.SnapshotVersion

	for rows.Next() {
		var v models.SnapshotVersion

		if err := rows.Scan(&v.VersionID, &v.PackageName, &v.PackageType, &v.ChosenVersion); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot version: %w", err)
		}

		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot versions: %w", err)
	}

	return versions, nil
}

func (db *DB) snapshotRepositories(ctx context.Context, snapshotID int64) ([]models.Repository, error) {
	rows, err := db.pool.Query(ctx, selectSnapshotRepositoriesSQL, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot repositories: %w", err)
	}
	defer rows.Close()

	var repositories []models.Repository

	for rows.Next() {
		var r models.Repository

		if err := rows.Scan(&r.ID, &r.Name, &r.SourcesLines); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot repository: %w", err)
		}

		repositories = append(repositories, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot repositories: %w", err)
	}

	return repositories, nil
}
