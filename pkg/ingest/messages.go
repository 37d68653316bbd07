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
	"encoding/json"
	"fmt"
)

// Status discriminators shared by every structured message on the channel.
const (
	StatusInfo    = "info"
	StatusError   = "error"
	StatusWarning = "warning"
	StatusSuccess = "success"
)

// Message types.
const (
	TypeMessage     = "message"
	TypeProgressBar = "progress_bar"
	TypeEnd         = "end"
)

// ConnectedSentinel is the very first frame of every session. It is a bare
// text frame, not JSON; clients rely on that to tell the handshake apart
// from structured messages.
const ConnectedSentinel = "Connected!"

// CloseCodeIngestComplete tells the client the session finished normally
// and it should disconnect.
const CloseCodeIngestComplete = 4004

// Protocol texts. Existing clients match on these strings.
const (
	msgFetchingDevice     = "Fetching the device..."
	msgDeviceFound        = "Device found!"
	msgDeviceCreated      = "No device found! Adding a new one!"
	msgAppendingLibraries = "Appending libraries to the database!"
	msgNoRepositories     = "No repository found! Skipping the operation"
	msgEndOfData          = "End of data added!"
	msgTimeout            = "TIMEOUT_DISCONNECT"
)

// StatusMessage is the wire form of every structured server -> client
// message. Infos carries progress-bar payloads as a nested JSON string,
// matching what the clients already parse.
type StatusMessage struct {
	Status  string `json:"status"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
	Infos   string `json:"infos,omitempty"`
}

type progressInit struct {
	State string `json:"state"`
	Total int    `json:"total"`
	Desc  string `json:"desc"`
}

type progressUpdate struct {
	State string `json:"state"`
	Index string `json:"index"`
}

func infoMessage(text string) StatusMessage {
	return StatusMessage{Status: StatusInfo, Type: TypeMessage, Message: text}
}

func errorMessage(text string) StatusMessage {
	return StatusMessage{Status: StatusError, Type: TypeMessage, Message: text}
}

func endMessage() StatusMessage {
	return StatusMessage{Status: StatusInfo, Type: TypeEnd, Message: msgEndOfData}
}

func timeoutWarning() StatusMessage {
	return StatusMessage{Status: StatusWarning, Message: msgTimeout}
}

func progressInitMessage(total int, source string) (StatusMessage, error) {
	infos, err := json.Marshal(progressInit{
		State: "init",
		Total: total,
		Desc:  fmt.Sprintf("%s packages import", source),
	})
	if err != nil {
		return StatusMessage{}, fmt.Errorf("failed to encode progress init: %w", err)
	}

	return StatusMessage{Status: StatusInfo, Type: TypeProgressBar, Infos: string(infos)}, nil
}

func progressUpdateMessage(index string) (StatusMessage, error) {
	infos, err := json.Marshal(progressUpdate{State: "update", Index: index})
	if err != nil {
		return StatusMessage{}, fmt.Errorf("failed to encode progress update: %w", err)
	}

	return StatusMessage{Status: StatusInfo, Type: TypeProgressBar, Infos: string(infos)}, nil
}
