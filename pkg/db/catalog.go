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
)

// Package, chosen-version, and repository rows share the same get-or-create
// shape: a conflict-ignoring insert followed by a lookup when the row
// already existed. The constraint name carries the identity key.

const (
	insertPackageSQL = `
INSERT INTO packages (name, type) VALUES ($1, $2)
ON CONFLICT ON CONSTRAINT packages_identity_key DO NOTHING
RETURNING id`

	selectPackageSQL = `SELECT id FROM packages WHERE name = $1 AND type = $2`

	insertChosenVersionSQL = `
INSERT INTO chosen_versions (package_id, chosen_version) VALUES ($1, $2)
ON CONFLICT ON CONSTRAINT chosen_versions_identity_key DO NOTHING
RETURNING id`

	selectChosenVersionSQL = `
SELECT id FROM chosen_versions WHERE package_id = $1 AND chosen_version = $2`

	insertRepositorySQL = `
INSERT INTO repositories (name, sources_lines) VALUES ($1, $2)
ON CONFLICT ON CONSTRAINT repositories_identity_key DO NOTHING
RETURNING id`

	selectRepositorySQL = `
SELECT id FROM repositories WHERE name = $1 AND sources_lines = $2`
)

// ResolvePackage gets or creates a package by (name, type).
func (db *DB) ResolvePackage(ctx context.Context, name, pkgType string) (int64, error) {
	id, err := db.resolveRow(ctx, insertPackageSQL, selectPackageSQL, name, pkgType)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve package (%s, %s): %w", name, pkgType, err)
	}

	return id, nil
}

// ResolveChosenVersion gets or creates a version row by (package, version).
func (db *DB) ResolveChosenVersion(ctx context.Context, packageID int64, version string) (int64, error) {
	id, err := db.resolveRow(ctx, insertChosenVersionSQL, selectChosenVersionSQL, packageID, version)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve chosen version (%d, %s): %w", packageID, version, err)
	}

	return id, nil
}

// ResolveRepository gets or creates a repository by (name, sources_lines).
func (db *DB) ResolveRepository(ctx context.Context, name, sourcesLines string) (int64, error) {
	id, err := db.resolveRow(ctx, insertRepositorySQL, selectRepositorySQL, name, sourcesLines)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve repository %q: %w", name, err)
	}

	return id, nil
}

// resolveRow runs the shared insert-if-absent pattern. Both statements take
// the same identity-key arguments.
func (db *DB) resolveRow(ctx context.Context, insertSQL, selectSQL string, args ...interface{}) (int64, error) {
	var id int64

	err := db.pool.QueryRow(ctx, insertSQL, args...).Scan(&id)
	if err == nil {
		return id, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	if err := db.pool.QueryRow(ctx, selectSQL, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errResolveRace
		}

		return 0, err
	}

	return id, nil
}
