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
	"fmt"

	"github.com/packsnap/packsnap/pkg/models"
)

// linkRepositories resolves and links the payload's repositories to the
// snapshot. A nil slice means the key was absent from the payload, which
// is the one forgiving path: report the skip and move on. An empty slice
// is present-but-empty and reports "Found 0".
func (s *Session) linkRepositories(ctx context.Context, snapshotID int64, repositories *[]models.RepositoryEntry) (int, error) {
	if repositories == nil {
		if err := s.sink.Send(infoMessage(msgNoRepositories)); err != nil {
			return 0, err
		}

		return 0, nil
	}

	entries := *repositories

	if err := s.sink.Send(infoMessage(fmt.Sprintf("Found %d", len(entries)))); err != nil {
		return 0, err
	}

	repositoryIDs := make([]int64, 0, len(entries))

	for _, entry := range entries {
		id, err := s.store.ResolveRepository(ctx, entry.Name, entry.Lines)
		if err != nil {
			return 0, err
		}

		repositoryIDs = append(repositoryIDs, id)
	}

	if err := s.store.AddSnapshotRepositories(ctx, snapshotID, repositoryIDs); err != nil {
		return 0, fmt.Errorf("failed to link repositories: %w", err)
	}

	return len(repositoryIDs), nil
}
