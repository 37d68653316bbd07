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
	"net/http"
)

const (
	statusOnline   = "ONLINE"
	statusOffline  = "OFFLINE"
	statusDisabled = "DISABLED"
)

// StatusResponse reports backing-service health for dashboards.
type StatusResponse struct {
	PostgresStatus string `json:"postgres_status"`
	NATSStatus     string `json:"nats_status"`
}

func (s *APIServer) getStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		PostgresStatus: statusOffline,
		NATSStatus:     statusDisabled,
	}

	if s.dbService != nil && s.dbService.Ping(r.Context()) == nil {
		resp.PostgresStatus = statusOnline
	}

	if s.natsStatus != nil {
		if s.natsStatus() {
			resp.NATSStatus = statusOnline
		} else {
			resp.NATSStatus = statusOffline
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}
