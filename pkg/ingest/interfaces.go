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
	"context"
	"time"

	"github.com/packsnap/packsnap/pkg/models"
)

// Store is the slice of the identity store the ingestion pipeline needs.
// All Resolve* operations are get-or-create and must be safe for
// concurrent sessions resolving the same identity key.
type Store interface {
	ResolveDevice(ctx context.Context, device *models.Device) (id int64, created bool, err error)
	ResolvePackage(ctx context.Context, name, pkgType string) (int64, error)
	ResolveChosenVersion(ctx context.Context, packageID int64, version string) (int64, error)
	ResolveRepository(ctx context.Context, name, sourcesLines string) (int64, error)
	CreateSnapshot(ctx context.Context, deviceID int64, saveDate time.Time, operatingSystem string) (int64, error)
	AddSnapshotVersions(ctx context.Context, snapshotID int64, versionIDs []int64) error
	AddSnapshotRepositories(ctx context.Context, snapshotID int64, repositoryIDs []int64) error
}

// MessageSink delivers outbound status messages to the connected client.
// Implementations must preserve send order within a session.
type MessageSink interface {
	Send(msg StatusMessage) error
}

// EventPublisher notifies downstream consumers about completed snapshots.
type EventPublisher interface {
	PublishSnapshotCreated(ctx context.Context, data models.SnapshotCreatedEventData) error
}
