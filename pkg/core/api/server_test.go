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

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/packsnap/packsnap/pkg/db"
	"github.com/packsnap/packsnap/pkg/models"
)

func newTestServer(t *testing.T) (*APIServer, *db.MockService) {
	t.Helper()

	ctrl := gomock.NewController(t)
	mockDB := db.NewMockService(ctrl)

	server := NewAPIServer(models.CORSConfig{}, WithDBService(mockDB))

	return server, mockDB
}

func doRequest(t *testing.T, server *APIServer, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	return rec
}

func TestListDevices(t *testing.T) {
	server, mockDB := newTestServer(t)

	devices := []models.Device{
		{ID: 1, Name: "atlas", Processor: "i7-10700", Cores: 8, Memory: 16777216},
		{ID: 2, Name: "hermes", Processor: "Ryzen 7 5800X", Cores: 16, Memory: 33554432},
	}

	mockDB.EXPECT().ListDevices(gomock.Any()).Return(devices, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/devices")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []models.Device
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, devices, got)
}

func TestListDevicesStoreError(t *testing.T) {
	server, mockDB := newTestServer(t)

	mockDB.EXPECT().ListDevices(gomock.Any()).Return(nil, errors.New("connection refused"))

	rec := doRequest(t, server, http.MethodGet, "/api/devices")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetDevice(t *testing.T) {
	server, mockDB := newTestServer(t)

	device := &models.Device{ID: 7, Name: "atlas", Cores: 8}
	mockDB.EXPECT().GetDevice(gomock.Any(), int64(7)).Return(device, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/devices/7")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Device
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, *device, got)
}

func TestGetDeviceNotFound(t *testing.T) {
	server, mockDB := newTestServer(t)

	mockDB.EXPECT().GetDevice(gomock.Any(), int64(42)).Return(nil, db.ErrDeviceNotFound)

	rec := doRequest(t, server, http.MethodGet, "/api/devices/42")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, http.StatusNotFound, errResp.Status)
}

func TestListDeviceSnapshots(t *testing.T) {
	server, mockDB := newTestServer(t)

	snapshots := []models.Snapshot{
		{ID: 10, DeviceID: 7, OperatingSystem: "Ubuntu 22.04"},
		{ID: 11, DeviceID: 7, OperatingSystem: "Ubuntu 24.04"},
	}

	mockDB.EXPECT().GetDevice(gomock.Any(), int64(7)).Return(&models.Device{ID: 7}, nil)
	mockDB.EXPECT().ListDeviceSnapshots(gomock.Any(), int64(7)).Return(snapshots, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/devices/7/snapshots")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []models.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestListDeviceSnapshotsUnknownDevice(t *testing.T) {
	server, mockDB := newTestServer(t)

	mockDB.EXPECT().GetDevice(gomock.Any(), int64(9)).Return(nil, db.ErrDeviceNotFound)

	rec := doRequest(t, server, http.MethodGet, "/api/devices/9/snapshots")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSnapshot(t *testing.T) {
	server, mockDB := newTestServer(t)

	detail := &models.SnapshotDetail{
		Snapshot: models.Snapshot{ID: 10, DeviceID: 7, SaveDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		Versions: []models.SnapshotVersion{
			{VersionID: 3, PackageName: "curl", PackageType: "apt", ChosenVersion: "7.81.0"},
		},
		Repositories: []models.Repository{
			{ID: 5, Name: "ubuntu-main", SourcesLines: "deb http://archive.ubuntu.com/ubuntu jammy main"},
		},
	}

	mockDB.EXPECT().GetSnapshot(gomock.Any(), int64(10)).Return(detail, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/snapshots/10")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.SnapshotDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, detail.Snapshot.ID, got.Snapshot.ID)
	assert.Len(t, got.Versions, 1)
	assert.Len(t, got.Repositories, 1)
}

func TestGetSnapshotNotFound(t *testing.T) {
	server, mockDB := newTestServer(t)

	mockDB.EXPECT().GetSnapshot(gomock.Any(), int64(99)).Return(nil, db.ErrSnapshotNotFound)

	rec := doRequest(t, server, http.MethodGet, "/api/snapshots/99")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStatus(t *testing.T) {
	server, mockDB := newTestServer(t)

	mockDB.EXPECT().Ping(gomock.Any()).Return(nil)

	rec := doRequest(t, server, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var got StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ONLINE", got.PostgresStatus)
	assert.Equal(t, "DISABLED", got.NATSStatus)
}

func TestGetStatusDatabaseDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDB := db.NewMockService(ctrl)
	mockDB.EXPECT().Ping(gomock.Any()).Return(errors.New("dial timeout"))

	server := NewAPIServer(models.CORSConfig{},
		WithDBService(mockDB),
		WithNATSStatus(func() bool { return true }))

	rec := doRequest(t, server, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var got StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "OFFLINE", got.PostgresStatus)
	assert.Equal(t, "ONLINE", got.NATSStatus)
}

func TestIngestRouteMounted(t *testing.T) {
	marker := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	server := NewAPIServer(models.CORSConfig{}, WithIngestHandler(marker))

	rec := doRequest(t, server, http.MethodGet, "/backup/import")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
