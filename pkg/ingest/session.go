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

// Package ingest implements the snapshot ingestion pipeline: the
// message-driven protocol that takes one raw inventory payload over a
// websocket, resolves device and package identity against the store, and
// assembles the result into a new snapshot while streaming progress back
// to the client.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/packsnap/packsnap/pkg/logger"
	"github.com/packsnap/packsnap/pkg/models"
)

// State tracks where a session is in the ingestion flow.
type State int

const (
	StateAwaitingPayload State = iota
	StateResolvingDevice
	StateImportingLibraries
	StateLinkingRepositories
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAwaitingPayload:
		return "awaiting_payload"
	case StateResolvingDevice:
		return "resolving_device"
	case StateImportingLibraries:
		return "importing_libraries"
	case StateLinkingRepositories:
		return "linking_repositories"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Session runs the ingestion state machine for one connection. A session
// handles exactly one payload; sessions may run concurrently against the
// same store.
type Session struct {
	store  Store
	sink   MessageSink
	events EventPublisher
	logger logger.Logger
	now    func() time.Time
	state  State
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithEventPublisher wires snapshot.created event publishing. Publishing
// is best effort: a publish failure never fails the session.
func WithEventPublisher(p EventPublisher) SessionOption {
	return func(s *Session) { s.events = p }
}

// WithSessionLogger attaches a logger to the session.
func WithSessionLogger(log logger.Logger) SessionOption {
	return func(s *Session) { s.logger = log }
}

// WithClock overrides the session clock.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession creates a session over the given store and message sink.
func NewSession(store Store, sink MessageSink, opts ...SessionOption) *Session {
	s := &Session{
		store:  store,
		sink:   sink,
		logger: logger.NewTestLogger(),
		now:    time.Now,
		state:  StateAwaitingPayload,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// Run executes the full ingestion flow for one payload: device
// resolution, per-source library import, snapshot assembly, repository
// linking, and the end-of-stream message. Any store or transport error
// aborts the session; rows already resolved stay in the store (sessions
// are not wrapped in one transaction, matching the incremental-commit
// semantics the existing data was written under).
func (s *Session) Run(ctx context.Context, payload *models.InventoryPayload) error {
	if err := payload.Validate(); err != nil {
		return s.abort(err)
	}

	deviceID, created, err := s.resolveDevice(ctx, payload)
	if err != nil {
		return s.abort(err)
	}

	s.state = StateImportingLibraries

	if err := s.sink.Send(infoMessage(msgAppendingLibraries)); err != nil {
		return s.abort(err)
	}

	var versionIDs []int64

	for _, source := range payload.Libraries {
		ids, err := s.importSource(ctx, source)
		if err != nil {
			return s.abort(err)
		}

		versionIDs = append(versionIDs, ids...)
	}

	snapshotID, err := s.store.CreateSnapshot(ctx, deviceID, s.now(), payload.OS)
	if err != nil {
		return s.abort(fmt.Errorf("failed to create snapshot: %w", err))
	}

	if err := s.store.AddSnapshotVersions(ctx, snapshotID, versionIDs); err != nil {
		return s.abort(fmt.Errorf("failed to link versions: %w", err))
	}

	s.state = StateLinkingRepositories

	repositoryCount, err := s.linkRepositories(ctx, snapshotID, payload.Repositories)
	if err != nil {
		return s.abort(err)
	}

	if err := s.sink.Send(endMessage()); err != nil {
		return s.abort(err)
	}

	s.state = StateDone

	s.publishSnapshotCreated(ctx, payload, snapshotID, deviceID, created, len(versionIDs), repositoryCount)

	return nil
}

// resolveDevice performs the get-or-create on the device identity key and
// reports exactly one of the two outcome messages.
func (s *Session) resolveDevice(ctx context.Context, payload *models.InventoryPayload) (int64, bool, error) {
	s.state = StateResolvingDevice

	if err := s.sink.Send(infoMessage(msgFetchingDevice)); err != nil {
		return 0, false, err
	}

	deviceID, created, err := s.store.ResolveDevice(ctx, payload.Device())
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve device: %w", err)
	}

	outcome := msgDeviceFound
	if created {
		outcome = msgDeviceCreated
	}

	if err := s.sink.Send(infoMessage(outcome)); err != nil {
		return 0, false, err
	}

	s.logger.Debug().
		Int64("device_id", deviceID).
		Bool("created", created).
		Str("hostname", payload.Hostname).
		Msg("resolved device identity")

	return deviceID, created, nil
}

// abort reports the failure over the channel (best effort) and parks the
// session in the aborted state.
func (s *Session) abort(cause error) error {
	s.state = StateAborted

	if sendErr := s.sink.Send(errorMessage(cause.Error())); sendErr != nil {
		s.logger.Warn().Err(sendErr).Msg("failed to send abort message")
	}

	s.logger.Error().Err(cause).Msg("ingestion session aborted")

	return cause
}

func (s *Session) publishSnapshotCreated(ctx context.Context, payload *models.InventoryPayload,
	snapshotID, deviceID int64, created bool, versionCount, repositoryCount int) {
	if s.events == nil {
		return
	}

	data := models.SnapshotCreatedEventData{
		SnapshotID:      snapshotID,
		DeviceID:        deviceID,
		DeviceName:      payload.Hostname,
		DeviceCreated:   created,
		OperatingSystem: payload.OS,
		VersionCount:    versionCount,
		RepositoryCount: repositoryCount,
		SaveDate:        s.now(),
	}

	if err := s.events.PublishSnapshotCreated(ctx, data); err != nil {
		s.logger.Warn().Err(err).Int64("snapshot_id", snapshotID).Msg("failed to publish snapshot event")
	}
}
