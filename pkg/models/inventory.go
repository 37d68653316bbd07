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
	"time"
)

// Device represents a physical or virtual machine known to the backup
// service. Identity is the (Name, Cores, Memory, Processor) tuple;
// OperatingSystem is descriptive only since the OS of a machine can change
// between snapshots and is tracked per snapshot.
type Device struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Processor       string `json:"processor"`
	Cores           int    `json:"cores"`
	Memory          int64  `json:"memory"`
	OperatingSystem string `json:"operating_system"`
}

// IdentityKey returns the natural key used for get-or-create lookups.
func (d *Device) IdentityKey() DeviceKey {
	return DeviceKey{
		Name:      d.Name,
		Cores:     d.Cores,
		Memory:    d.Memory,
		Processor: d.Processor,
	}
}

// DeviceKey is the dedup key for devices.
type DeviceKey struct {
	Name      string
	Cores     int
	Memory    int64
	Processor string
}

// Package is one installable unit reported by a package manager. Identity
// is (Name, Type) where Type is the package-manager source name, e.g.
// "apt" or "snap". Rows are shared across devices and snapshots.
type Package struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ChosenVersion is one resolved version of one package. Identity is
// (PackageID, ChosenVersion); many snapshots may reference the same row.
type ChosenVersion struct {
	ID            int64  `json:"id"`
	PackageID     int64  `json:"package_id"`
	ChosenVersion string `json:"chosen_version"`
}

// Repository is a software source, e.g. one sources.list stanza.
// Identity is (Name, SourcesLines).
type Repository struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SourcesLines string `json:"sources_lines"`
}

// Snapshot is one point-in-time inventory capture for a device. The
// version and repository sets are built incrementally during ingestion and
// are closed once the end-of-stream message has been sent.
type Snapshot struct {
	ID              int64     `json:"id"`
	DeviceID        int64     `json:"device_id"`
	SaveDate        time.Time `json:"save_date"`
	OperatingSystem string    `json:"operating_system"`
	CreatedAt       time.Time `json:"created_at"`
}

// SnapshotVersion is a hydrated chosen-version entry inside a snapshot,
// joined with its package for the query layer.
type SnapshotVersion struct {
	VersionID     int64  `json:"version_id"`
	PackageName   string `json:"package_name"`
	PackageType   string `json:"package_type"`
	ChosenVersion string `json:"chosen_version"`
}

// SnapshotDetail is the fully hydrated snapshot the query API returns.
type SnapshotDetail struct {
	Snapshot     Snapshot          `json:"snapshot"`
	Versions     []SnapshotVersion `json:"versions"`
	Repositories []Repository      `json:"repositories"`
}
