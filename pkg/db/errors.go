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

import "errors"

var (
	// ErrFailedToOpenDB wraps connection/bootstrap failures.
	ErrFailedToOpenDB = errors.New("failed to open database")

	// ErrDeviceNotFound is returned by device reads for unknown IDs.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrSnapshotNotFound is returned by snapshot reads for unknown IDs.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// errResolveRace is an internal guard: an insert reported a conflict
	// but the follow-up lookup found nothing. Identity rows are append-only
	// so this should never happen.
	errResolveRace = errors.New("identity row vanished between insert and lookup")
)
