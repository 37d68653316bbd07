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

// Package agent collects the local machine's inventory (hardware specs,
// installed packages, configured repositories) and ships it to the backup
// server over the websocket import channel.
package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/packsnap/packsnap/pkg/models"
)

// Collector gathers the inventory payload from the local system. The
// command runners are swappable for tests.
type Collector struct {
	runDpkg func(ctx context.Context) ([]byte, error)
	runSnap func(ctx context.Context) ([]byte, error)

	aptSourcesPath string
	aptSourcesDir  string
}

// NewCollector creates a collector over the local system.
func NewCollector() *Collector {
	return &Collector{
		runDpkg: func(ctx context.Context) ([]byte, error) {
			return exec.CommandContext(ctx, "dpkg-query", "-W", "-f", "${Package}\t${Version}\n").Output()
		},
		runSnap: func(ctx context.Context) ([]byte, error) {
			return exec.CommandContext(ctx, "snap", "list").Output()
		},
		aptSourcesPath: "/etc/apt/sources.list",
		aptSourcesDir:  "/etc/apt/sources.list.d",
	}
}

// Collect builds the full inventory payload for this machine.
func (c *Collector) Collect(ctx context.Context) (*models.InventoryPayload, error) {
	hostname, operatingSystem, err := hostIdentity(ctx)
	if err != nil {
		return nil, err
	}

	specs, err := deviceSpecs(ctx)
	if err != nil {
		return nil, err
	}

	libraries, err := c.collectLibraries(ctx)
	if err != nil {
		return nil, err
	}

	payload := &models.InventoryPayload{
		Hostname:  hostname,
		Specs:     specs,
		OS:        operatingSystem,
		Libraries: libraries,
	}

	if repositories := c.collectRepositories(); repositories != nil {
		payload.Repositories = &repositories
	}

	return payload, nil
}

func hostIdentity(ctx context.Context) (hostname, operatingSystem string, err error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to read host info: %w", err)
	}

	operatingSystem = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)

	return info.Hostname, operatingSystem, nil
}

func deviceSpecs(ctx context.Context) (*models.DeviceSpecs, error) {
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to count CPUs: %w", err)
	}

	vmStats, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory stats: %w", err)
	}

	var processor string

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		processor = infos[0].ModelName
	}

	return &models.DeviceSpecs{
		Cores:         cores,
		VirtualMemory: int64(vmStats.Total),
		Processor:     processor,
	}, nil
}

// collectLibraries queries every supported package manager. A manager
// whose tool is missing is skipped, not fatal; a machine with no working
// manager at all is an error since the payload would be rejected anyway.
func (c *Collector) collectLibraries(ctx context.Context) (models.LibrarySources, error) {
	sources := models.LibrarySources{}

	if out, err := c.runDpkg(ctx); err == nil {
		sources = append(sources, models.LibrarySource{Name: "apt", Entries: parseDpkgOutput(string(out))})
	}

	if out, err := c.runSnap(ctx); err == nil {
		sources = append(sources, models.LibrarySource{Name: "snap", Entries: parseSnapOutput(string(out))})
	}

	if len(sources) == 0 {
		return nil, errNoPackageManager
	}

	return sources, nil
}

var errNoPackageManager = fmt.Errorf("no supported package manager found")

// parseDpkgOutput parses "package\tversion" lines from dpkg-query.
func parseDpkgOutput(out string) []models.LibraryEntry {
	entries := []models.LibraryEntry{}

	for _, line := range strings.Split(out, "\n") {
		fields := strings.SplitN(strings.TrimSpace(line), "\t", 2)
		if len(fields) != 2 || fields[0] == "" {
			continue
		}

		entries = append(entries, models.LibraryEntry{
			Index:      strconv.Itoa(len(entries)),
			Package:    fields[0],
			Version:    fields[1],
			Repository: "apt",
		})
	}

	return entries
}

// parseSnapOutput parses the columnar `snap list` output, skipping the
// header row.
func parseSnapOutput(out string) []models.LibraryEntry {
	entries := []models.LibraryEntry{}

	for i, line := range strings.Split(out, "\n") {
		if i == 0 {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		entries = append(entries, models.LibraryEntry{
			Index:      strconv.Itoa(len(entries)),
			Package:    fields[0],
			Version:    fields[1],
			Repository: "snapcraft",
		})
	}

	return entries
}

// collectRepositories reads the apt source lists. A machine without apt
// sources reports no repositories key at all.
func (c *Collector) collectRepositories() []models.RepositoryEntry {
	var repositories []models.RepositoryEntry

	if entry, ok := readSourceFile(c.aptSourcesPath); ok {
		repositories = append(repositories, entry)
	}

	if files, err := filepath.Glob(filepath.Join(c.aptSourcesDir, "*.list")); err == nil {
		for _, file := range files {
			if entry, ok := readSourceFile(file); ok {
				repositories = append(repositories, entry)
			}
		}
	}

	return repositories
}

func readSourceFile(path string) (models.RepositoryEntry, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.RepositoryEntry{}, false
	}

	lines := activeSourceLines(string(data))
	if len(lines) == 0 {
		return models.RepositoryEntry{}, false
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	return models.RepositoryEntry{Name: name, Lines: strings.Join(lines, "\n")}, true
}

func activeSourceLines(content string) []string {
	var lines []string

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		lines = append(lines, trimmed)
	}

	return lines
}
