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

	"github.com/packsnap/packsnap/pkg/db"
)

func (s *APIServer) getSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.dbService == nil {
		writeError(w, "Database service not available", http.StatusServiceUnavailable)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, "invalid snapshot id", http.StatusBadRequest)
		return
	}

	detail, err := s.dbService.GetSnapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrSnapshotNotFound) {
			writeError(w, "snapshot not found", http.StatusNotFound)
			return
		}

		s.logger.Error().Err(err).Int64("snapshot_id", id).Msg("failed to get snapshot")
		writeError(w, "failed to get snapshot", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, http.StatusOK, detail)
}
