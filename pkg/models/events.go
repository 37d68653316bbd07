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

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// SnapshotCreatedEventData is the payload of a snapshot.created event,
// published after an ingestion session completes so read-side consumers
// (query layer, chatbot) can react without polling the store.
type SnapshotCreatedEventData struct {
	SnapshotID      int64     `json:"snapshot_id"`
	DeviceID        int64     `json:"device_id"`
	DeviceName      string    `json:"device_name"`
	DeviceCreated   bool      `json:"device_created"`
	OperatingSystem string    `json:"operating_system"`
	VersionCount    int       `json:"version_count"`
	RepositoryCount int       `json:"repository_count"`
	SaveDate        time.Time `json:"save_date"`
}
