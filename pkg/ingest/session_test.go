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
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/packsnap/packsnap/pkg/models"
)

func testPayload() *models.InventoryPayload {
	repos := []models.RepositoryEntry{
		{Name: "ubuntu-main", Lines: "deb http://archive.ubuntu.com/ubuntu jammy main"},
		{Name: "ubuntu-universe", Lines: "deb http://archive.ubuntu.com/ubuntu jammy universe"},
	}

	return &models.InventoryPayload{
		Hostname: "atlas",
		Specs: &models.DeviceSpecs{
			Cores:         8,
			VirtualMemory: 16777216,
			Processor:     "Intel(R) Core(TM) i7-10700",
		},
		OS: "Ubuntu 22.04",
		Libraries: models.LibrarySources{
			{
				Name: "apt",
				Entries: []models.LibraryEntry{
					{Index: "0", Package: "curl", Version: "7.81.0", Repository: "ubuntu-main"},
					{Index: "1", Package: "vim", Version: "8.2", Repository: "ubuntu-main"},
				},
			},
			{
				Name: "snap",
				Entries: []models.LibraryEntry{
					{Index: "0", Package: "core20", Version: "20240111", Repository: "snapcraft"},
				},
			},
		},
		Repositories: &repos,
	}
}

func messageTexts(messages []StatusMessage) []string {
	texts := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.Type == TypeMessage || msg.Type == TypeEnd {
			texts = append(texts, msg.Message)
		}
	}

	return texts
}

func TestSessionRunNewDevice(t *testing.T) {
	store := newFakeStore()
	sink := &recordingSink{}
	session := NewSession(store, sink)

	err := session.Run(context.Background(), testPayload())
	require.NoError(t, err)
	assert.Equal(t, StateDone, session.State())

	assert.Equal(t, []string{
		"Fetching the device...",
		"No device found! Adding a new one!",
		"Appending libraries to the database!",
		"Found 2",
		"End of data added!",
	}, messageTexts(sink.all()))

	assert.Equal(t, 1, store.deviceCount())
	assert.Equal(t, 3, store.packageCount())
	assert.Equal(t, 3, store.versionCount())
	assert.Equal(t, 1, store.snapshotCount())

	require.Len(t, store.snapshotVersions, 1)
	for _, versionIDs := range store.snapshotVersions {
		assert.Len(t, versionIDs, 3)
	}

	require.Len(t, store.snapshotRepositories, 1)
	for _, repositoryIDs := range store.snapshotRepositories {
		assert.Len(t, repositoryIDs, 2)
	}
}

func TestSessionRunExistingDevice(t *testing.T) {
	store := newFakeStore()

	first := &recordingSink{}
	require.NoError(t, NewSession(store, first).Run(context.Background(), testPayload()))

	second := &recordingSink{}
	require.NoError(t, NewSession(store, second).Run(context.Background(), testPayload()))

	texts := messageTexts(second.all())
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Equal(t, "Device found!", texts[1])

	// Identity rows dedupe across sessions; only snapshots accumulate.
	assert.Equal(t, 1, store.deviceCount())
	assert.Equal(t, 3, store.packageCount())
	assert.Equal(t, 3, store.versionCount())
	assert.Equal(t, 2, store.snapshotCount())
}

func TestSessionProgressMessages(t *testing.T) {
	store := newFakeStore()
	sink := &recordingSink{}

	require.NoError(t, NewSession(store, sink).Run(context.Background(), testPayload()))

	var progress []StatusMessage

	for _, msg := range sink.all() {
		if msg.Type == TypeProgressBar {
			progress = append(progress, msg)
		}
	}

	// apt: init + 2 updates, snap: init + 1 update.
	require.Len(t, progress, 5)

	var init progressInit
	require.NoError(t, json.Unmarshal([]byte(progress[0].Infos), &init))
	assert.Equal(t, "init", init.State)
	assert.Equal(t, 2, init.Total)
	assert.Equal(t, "apt packages import", init.Desc)

	var update progressUpdate
	require.NoError(t, json.Unmarshal([]byte(progress[1].Infos), &update))
	assert.Equal(t, "update", update.State)
	assert.Equal(t, "0", update.Index)

	require.NoError(t, json.Unmarshal([]byte(progress[3].Infos), &init))
	assert.Equal(t, 1, init.Total)
	assert.Equal(t, "snap packages import", init.Desc)
}

func TestSessionEmptySource(t *testing.T) {
	store := newFakeStore()
	sink := &recordingSink{}

	payload := testPayload()
	payload.Libraries = models.LibrarySources{{Name: "apt", Entries: []models.LibraryEntry{}}}

	require.NoError(t, NewSession(store, sink).Run(context.Background(), payload))

	var progress []StatusMessage

	for _, msg := range sink.all() {
		if msg.Type == TypeProgressBar {
			progress = append(progress, msg)
		}
	}

	require.Len(t, progress, 1)

	var init progressInit
	require.NoError(t, json.Unmarshal([]byte(progress[0].Infos), &init))
	assert.Equal(t, 0, init.Total)

	assert.Equal(t, 0, store.packageCount())
	assert.Equal(t, 1, store.snapshotCount())
}

func TestSessionRepositoriesAbsent(t *testing.T) {
	store := newFakeStore()
	sink := &recordingSink{}

	payload := testPayload()
	payload.Repositories = nil

	require.NoError(t, NewSession(store, sink).Run(context.Background(), payload))

	assert.Contains(t, messageTexts(sink.all()), "No repository found! Skipping the operation")
	assert.Empty(t, store.repositories)
}

func TestSessionRepositoriesEmpty(t *testing.T) {
	store := newFakeStore()
	sink := &recordingSink{}

	payload := testPayload()
	payload.Repositories = &[]models.RepositoryEntry{}

	require.NoError(t, NewSession(store, sink).Run(context.Background(), payload))

	texts := messageTexts(sink.all())
	assert.Contains(t, texts, "Found 0")
	assert.NotContains(t, texts, "No repository found! Skipping the operation")
}

func TestSessionInvalidPayload(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *models.InventoryPayload)
		wantErr error
	}{
		{
			name:    "missing hostname",
			mutate:  func(p *models.InventoryPayload) { p.Hostname = "" },
			wantErr: models.ErrMissingHostname,
		},
		{
			name:    "missing specs",
			mutate:  func(p *models.InventoryPayload) { p.Specs = nil },
			wantErr: models.ErrMissingSpecs,
		},
		{
			name:    "missing os",
			mutate:  func(p *models.InventoryPayload) { p.OS = "" },
			wantErr: models.ErrMissingOS,
		},
		{
			name:    "missing libraries",
			mutate:  func(p *models.InventoryPayload) { p.Libraries = nil },
			wantErr: models.ErrMissingLibraries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			sink := &recordingSink{}
			session := NewSession(store, sink)

			payload := testPayload()
			tt.mutate(payload)

			err := session.Run(context.Background(), payload)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, StateAborted, session.State())

			messages := sink.all()
			require.NotEmpty(t, messages)
			assert.Equal(t, StatusError, messages[len(messages)-1].Status)

			assert.Equal(t, 0, store.snapshotCount())
		})
	}
}

func TestSessionStoreFailureAborts(t *testing.T) {
	store := newFakeStore()
	store.resolvePackageErr = errors.New("connection reset")
	sink := &recordingSink{}
	session := NewSession(store, sink)

	err := session.Run(context.Background(), testPayload())
	require.Error(t, err)
	assert.Equal(t, StateAborted, session.State())

	messages := sink.all()
	require.NotEmpty(t, messages)
	assert.Equal(t, StatusError, messages[len(messages)-1].Status)

	assert.Equal(t, 0, store.snapshotCount())
}

func TestSessionConcurrentSameDevice(t *testing.T) {
	store := newFakeStore()

	var g errgroup.Group

	for i := 0; i < 16; i++ {
		g.Go(func() error {
			return NewSession(store, &recordingSink{}).Run(context.Background(), testPayload())
		})
	}

	require.NoError(t, g.Wait())

	// Concurrent sessions for the same machine converge on one identity
	// row per key; every session still gets its own snapshot.
	assert.Equal(t, 1, store.deviceCount())
	assert.Equal(t, 3, store.packageCount())
	assert.Equal(t, 3, store.versionCount())
	assert.Equal(t, 16, store.snapshotCount())
}

type publishRecorder struct {
	events []models.SnapshotCreatedEventData
}

func (p *publishRecorder) PublishSnapshotCreated(_ context.Context, data models.SnapshotCreatedEventData) error {
	p.events = append(p.events, data)
	return nil
}

func TestSessionPublishesSnapshotEvent(t *testing.T) {
	store := newFakeStore()
	publisher := &publishRecorder{}
	session := NewSession(store, &recordingSink{}, WithEventPublisher(publisher))

	require.NoError(t, session.Run(context.Background(), testPayload()))

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, "atlas", event.DeviceName)
	assert.True(t, event.DeviceCreated)
	assert.Equal(t, "Ubuntu 22.04", event.OperatingSystem)
	assert.Equal(t, 3, event.VersionCount)
	assert.Equal(t, 2, event.RepositoryCount)
}

type failingPublisher struct{}

func (failingPublisher) PublishSnapshotCreated(context.Context, models.SnapshotCreatedEventData) error {
	return errors.New("stream unavailable")
}

func TestSessionPublishFailureDoesNotFailRun(t *testing.T) {
	store := newFakeStore()
	session := NewSession(store, &recordingSink{}, WithEventPublisher(failingPublisher{}))

	require.NoError(t, session.Run(context.Background(), testPayload()))
	assert.Equal(t, StateDone, session.State())
}
