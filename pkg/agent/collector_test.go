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

package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDpkgOutput(t *testing.T) {
	out := "curl\t7.81.0-1ubuntu1.15\nvim\t2:8.2.3995-1ubuntu2\n\nmalformed-line\n"

	entries := parseDpkgOutput(out)
	require.Len(t, entries, 2)

	assert.Equal(t, "0", entries[0].Index)
	assert.Equal(t, "curl", entries[0].Package)
	assert.Equal(t, "7.81.0-1ubuntu1.15", entries[0].Version)
	assert.Equal(t, "apt", entries[0].Repository)

	assert.Equal(t, "1", entries[1].Index)
	assert.Equal(t, "vim", entries[1].Package)
}

func TestParseSnapOutput(t *testing.T) {
	out := `Name      Version        Rev    Tracking       Publisher   Notes
core20    20240111       2182   latest/stable  canonical*  base
lxd       5.0.3-babaaf8  27428  5.0/stable     canonical*  -
`

	entries := parseSnapOutput(out)
	require.Len(t, entries, 2)

	assert.Equal(t, "core20", entries[0].Package)
	assert.Equal(t, "20240111", entries[0].Version)
	assert.Equal(t, "snapcraft", entries[0].Repository)
	assert.Equal(t, "1", entries[1].Index)
	assert.Equal(t, "lxd", entries[1].Package)
}

func TestCollectLibrariesSkipsMissingManagers(t *testing.T) {
	c := &Collector{
		runDpkg: func(context.Context) ([]byte, error) {
			return []byte("curl\t7.81.0\n"), nil
		},
		runSnap: func(context.Context) ([]byte, error) {
			return nil, errors.New("exec: \"snap\": executable file not found in $PATH")
		},
	}

	sources, err := c.collectLibraries(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "apt", sources[0].Name)
	require.Len(t, sources[0].Entries, 1)
}

func TestCollectLibrariesNoManagers(t *testing.T) {
	c := &Collector{
		runDpkg: func(context.Context) ([]byte, error) { return nil, errors.New("not found") },
		runSnap: func(context.Context) ([]byte, error) { return nil, errors.New("not found") },
	}

	_, err := c.collectLibraries(context.Background())
	require.ErrorIs(t, err, errNoPackageManager)
}

func TestCollectRepositories(t *testing.T) {
	dir := t.TempDir()

	sourcesList := filepath.Join(dir, "sources.list")
	require.NoError(t, os.WriteFile(sourcesList, []byte(
		"# main archive\ndeb http://archive.ubuntu.com/ubuntu jammy main\n\ndeb http://archive.ubuntu.com/ubuntu jammy universe\n"), 0o600))

	sourcesDir := filepath.Join(dir, "sources.list.d")
	require.NoError(t, os.Mkdir(sourcesDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(sourcesDir, "docker.list"), []byte(
		"deb https://download.docker.com/linux/ubuntu jammy stable\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(sourcesDir, "commented.list"), []byte(
		"# disabled\n"), 0o600))

	c := &Collector{aptSourcesPath: sourcesList, aptSourcesDir: sourcesDir}

	repositories := c.collectRepositories()
	require.Len(t, repositories, 2)

	assert.Equal(t, "sources", repositories[0].Name)
	assert.Equal(t,
		"deb http://archive.ubuntu.com/ubuntu jammy main\ndeb http://archive.ubuntu.com/ubuntu jammy universe",
		repositories[0].Lines)

	assert.Equal(t, "docker", repositories[1].Name)
}

func TestCollectRepositoriesNone(t *testing.T) {
	dir := t.TempDir()

	c := &Collector{
		aptSourcesPath: filepath.Join(dir, "sources.list"),
		aptSourcesDir:  filepath.Join(dir, "sources.list.d"),
	}

	assert.Nil(t, c.collectRepositories())
}
