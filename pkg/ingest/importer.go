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

// importSource resolves every package entry of one package-manager source
// and returns the chosen-version IDs in payload order. Progress is
// streamed as one init frame followed by one update per entry; an empty
// source emits init with total 0 and nothing else.
func (s *Session) importSource(ctx context.Context, source models.LibrarySource) ([]int64, error) {
	init, err := progressInitMessage(len(source.Entries), source.Name)
	if err != nil {
		return nil, err
	}

	if err := s.sink.Send(init); err != nil {
		return nil, err
	}

	versionIDs := make([]int64, 0, len(source.Entries))

	for _, entry := range source.Entries {
		packageID, err := s.store.ResolvePackage(ctx, entry.Package, source.Name)
		if err != nil {
			return nil, fmt.Errorf("source %s entry %s: %w", source.Name, entry.Index, err)
		}

		versionID, err := s.store.ResolveChosenVersion(ctx, packageID, entry.Version)
		if err != nil {
			return nil, fmt.Errorf("source %s entry %s: %w", source.Name, entry.Index, err)
		}

		versionIDs = append(versionIDs, versionID)

		update, err := progressUpdateMessage(entry.Index)
		if err != nil {
			return nil, err
		}

		if err := s.sink.Send(update); err != nil {
			return nil, err
		}
	}

	s.logger.Debug().
		Str("source", source.Name).
		Int("entries", len(source.Entries)).
		Msg("imported library source")

	return versionIDs, nil
}
