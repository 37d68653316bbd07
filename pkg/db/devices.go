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

	"github.com/jackc/pgx/v5"

	"github.com/packsnap/packsnap/pkg/models"
)

const (
	insertDeviceSQL = `
INSERT INTO devices (name, processor, cores, memory, operating_system)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT ON CONSTRAINT devices_identity_key DO NOTHING
RETURNING id`

	selectDeviceByKeySQL = `
SELECT id FROM devices
WHERE name = $1 AND cores = $2 AND memory = $3 AND processor = $4`

	selectDeviceSQL = `
SELECT id, name, processor, cores, memory, operating_system
FROM devices WHERE id = $1`

	listDevicesSQL = `
SELECT id, name, processor, cores, memory, operating_system
FROM devices ORDER BY id`
)

// ResolveDevice gets or creates the device row for the payload's identity
// key. The insert-if-absent is a single statement, so two sessions racing
// on a never-before-seen device converge on one row: the loser's insert
// hits the unique constraint and falls through to the lookup.
func (db *DB) ResolveDevice(ctx context.Context, device *models.Device) (int64, bool, error) {
	var id int64

	err := db.pool.QueryRow(ctx, insertDeviceSQL,
		device.Name, device.Processor, device.Cores, device.Memory, device.OperatingSystem,
	).Scan(&id)

	switch {
	case err == nil:
		return id, true, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return 0, false, fmt.Errorf("failed to insert device: %w", err)
	}

	key := device.IdentityKey()

	err = db.pool.QueryRow(ctx, selectDeviceByKeySQL,
		key.Name, key.Cores, key.Memory, key.Processor,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, errResolveRace
		}

		return 0, false, fmt.Errorf("failed to look up device: %w", err)
	}

	return id, false, nil
}

// GetDevice returns one device by ID.
func (db *DB) GetDevice(ctx context.Context, id int64) (*models.Device, error) {
	var d models.Device

	err := db.pool.QueryRow(ctx, selectDeviceSQL, id).Scan(
		&d.ID, &d.Name, &d.Processor, &d.Cores, &d.Memory, &d.OperatingSystem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}

		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return &d, nil
}

// ListDevices returns all known devices.
func (db *DB) ListDevices(ctx context.Context) ([]models.Device, error) {
	rows, err := db.pool.Query(ctx, listDevicesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []models.Device

	for rows.Next() {
		var d models.Device

		if err := rows.Scan(&d.ID, &d.Name, &d.Processor, &d.Cores, &d.Memory, &d.OperatingSystem); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}

		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}

	return devices, nil
}
