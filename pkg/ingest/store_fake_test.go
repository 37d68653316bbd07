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
	"sync"
	"time"

	"github.com/packsnap/packsnap/pkg/models"
)

type fakeSnapshot struct {
	DeviceID        int64
	SaveDate        time.Time
	OperatingSystem string
}

type packageKey struct {
	Name string
	Type string
}

type versionKey struct {
	PackageID int64
	Version   string
}

type repositoryKey struct {
	Name  string
	Lines string
}

// fakeStore is an in-memory Store with the same get-or-create semantics
// as the database layer, safe for concurrent sessions.
type fakeStore struct {
	mu sync.Mutex

	devices      map[models.DeviceKey]int64
	packages     map[packageKey]int64
	versions     map[versionKey]int64
	repositories map[repositoryKey]int64

	snapshots            map[int64]fakeSnapshot
	snapshotVersions     map[int64][]int64
	snapshotRepositories map[int64][]int64

	nextID int64

	resolvePackageErr error
	createSnapshotErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		devices:              make(map[models.DeviceKey]int64),
		packages:             make(map[packageKey]int64),
		versions:             make(map[versionKey]int64),
		repositories:         make(map[repositoryKey]int64),
		snapshots:            make(map[int64]fakeSnapshot),
		snapshotVersions:     make(map[int64][]int64),
		snapshotRepositories: make(map[int64][]int64),
	}
}

func (f *fakeStore) ResolveDevice(_ context.Context, device *models.Device) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := device.IdentityKey()
	if id, ok := f.devices[key]; ok {
		return id, false, nil
	}

	f.nextID++
	f.devices[key] = f.nextID

	return f.nextID, true, nil
}

func (f *fakeStore) ResolvePackage(_ context.Context, name, pkgType string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.resolvePackageErr != nil {
		return 0, f.resolvePackageErr
	}

	key := packageKey{Name: name, Type: pkgType}
	if id, ok := f.packages[key]; ok {
		return id, nil
	}

	f.nextID++
	f.packages[key] = f.nextID

	return f.nextID, nil
}

func (f *fakeStore) ResolveChosenVersion(_ context.Context, packageID int64, version string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := versionKey{PackageID: packageID, Version: version}
	if id, ok := f.versions[key]; ok {
		return id, nil
	}

	f.nextID++
	f.versions[key] = f.nextID

	return f.nextID, nil
}

func (f *fakeStore) ResolveRepository(_ context.Context, name, sourcesLines string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := repositoryKey{Name: name, Lines: sourcesLines}
	if id, ok := f.repositories[key]; ok {
		return id, nil
	}

	f.nextID++
	f.repositories[key] = f.nextID

	return f.nextID, nil
}

func (f *fakeStore) CreateSnapshot(_ context.Context, deviceID int64, saveDate time.Time, operatingSystem string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createSnapshotErr != nil {
		return 0, f.createSnapshotErr
	}

	f.nextID++
	f.snapshots[f.nextID] = fakeSnapshot{
		DeviceID:        deviceID,
		SaveDate:        saveDate,
		OperatingSystem: operatingSystem,
	}

	return f.nextID, nil
}

func (f *fakeStore) AddSnapshotVersions(_ context.Context, snapshotID int64, versionIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.snapshotVersions[snapshotID] = append(f.snapshotVersions[snapshotID], versionIDs...)

	return nil
}

func (f *fakeStore) AddSnapshotRepositories(_ context.Context, snapshotID int64, repositoryIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.snapshotRepositories[snapshotID] = append(f.snapshotRepositories[snapshotID], repositoryIDs...)

	return nil
}

func (f *fakeStore) deviceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.devices)
}

func (f *fakeStore) packageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.packages)
}

func (f *fakeStore) versionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.versions)
}

func (f *fakeStore) snapshotCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.snapshots)
}

// recordingSink captures every message a session sends, in order.
type recordingSink struct {
	mu       sync.Mutex
	messages []StatusMessage
}

func (r *recordingSink) Send(msg StatusMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, msg)

	return nil
}

func (r *recordingSink) all() []StatusMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]StatusMessage, len(r.messages))
	copy(out, r.messages)

	return out
}
