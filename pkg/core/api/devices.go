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
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/packsnap/packsnap/pkg/db"
)

func (s *APIServer) listDevices(w http.ResponseWriter, r *http.Request) {
	if s.dbService == nil {
		writeError(w, "Database service not available", http.StatusServiceUnavailable)
		return
	}

	devices, err := s.dbService.ListDevices(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list devices")
		writeError(w, "failed to list devices", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, http.StatusOK, devices)
}

func (s *APIServer) getDevice(w http.ResponseWriter, r *http.Request) {
	if s.dbService == nil {
		writeError(w, "Database service not available", http.StatusServiceUnavailable)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, "invalid device id", http.StatusBadRequest)
		return
	}

	device, err := s.dbService.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrDeviceNotFound) {
			writeError(w, "device not found", http.StatusNotFound)
			return
		}

		s.logger.Error().Err(err).Int64("device_id", id).Msg("failed to get device")
		writeError(w, "failed to get device", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, http.StatusOK, device)
}

func (s *APIServer) listDeviceSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.dbService == nil {
		writeError(w, "Database service not available", http.StatusServiceUnavailable)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, "invalid device id", http.StatusBadRequest)
		return
	}

	if _, err := s.dbService.GetDevice(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrDeviceNotFound) {
			writeError(w, "device not found", http.StatusNotFound)
			return
		}

		s.logger.Error().Err(err).Int64("device_id", id).Msg("failed to get device")
		writeError(w, "failed to get device", http.StatusInternalServerError)

		return
	}

	snapshots, err := s.dbService.ListDeviceSnapshots(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Int64("device_id", id).Msg("failed to list snapshots")
		writeError(w, "failed to list snapshots", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, http.StatusOK, snapshots)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}
