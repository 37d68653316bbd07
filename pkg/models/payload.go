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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	errLibrariesNotObject = errors.New("libraries must be a JSON object")
	errEntriesNotObject   = errors.New("library source must be a JSON object")

	// ErrMissingHostname and friends classify malformed payloads; a payload
	// failing validation aborts the ingestion session.
	ErrMissingHostname  = errors.New("payload is missing hostname")
	ErrMissingSpecs     = errors.New("payload is missing specs")
	ErrMissingOS        = errors.New("payload is missing os")
	ErrMissingLibraries = errors.New("payload is missing libraries")
)

// InventoryPayload is the single client -> server document of one
// ingestion session. Repositories is a pointer so an absent key (skip the
// linking step) can be told apart from an explicitly empty list.
type InventoryPayload struct {
	Hostname     string             `json:"hostname"`
	Specs        *DeviceSpecs       `json:"specs"`
	OS           string             `json:"os"`
	Libraries    LibrarySources     `json:"libraries"`
	Repositories *[]RepositoryEntry `json:"repositories,omitempty"`
}

// DeviceSpecs carries the hardware identity fields of the reporting host.
type DeviceSpecs struct {
	Cores         int    `json:"cores"`
	VirtualMemory int64  `json:"virtual_memory"`
	Processor     string `json:"processor"`
}

// RepositoryEntry is one raw repository record in the payload.
type RepositoryEntry struct {
	Name  string `json:"name"`
	Lines string `json:"lines"`
}

// LibraryEntry is one installed-package record. Index is the original
// string key from the wire payload; it is carried through unchanged so
// progress updates correlate with what the client sent.
type LibraryEntry struct {
	Index      string `json:"-"`
	Package    string `json:"Package"`
	Version    string `json:"Version"`
	Repository string `json:"Repository"`
}

// LibrarySource is all entries reported by one package manager.
type LibrarySource struct {
	Name    string
	Entries []LibraryEntry
}

// LibrarySources preserves the payload's source order. The wire format is
// a JSON object keyed by source name; a plain map would lose insertion
// order, so decoding walks the token stream instead.
type LibrarySources []LibrarySource

// Validate reports the first missing required field, if any.
func (p *InventoryPayload) Validate() error {
	switch {
	case p.Hostname == "":
		return ErrMissingHostname
	case p.Specs == nil:
		return ErrMissingSpecs
	case p.OS == "":
		return ErrMissingOS
	case p.Libraries == nil:
		return ErrMissingLibraries
	}

	return nil
}

// Device builds the device record implied by the payload.
func (p *InventoryPayload) Device() *Device {
	return &Device{
		Name:            p.Hostname,
		Processor:       p.Specs.Processor,
		Cores:           p.Specs.Cores,
		Memory:          p.Specs.VirtualMemory,
		OperatingSystem: p.OS,
	}
}

// UnmarshalJSON decodes the libraries object keeping source order.
func (l *LibrarySources) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectObjectStart(dec, errLibrariesNotObject); err != nil {
		return err
	}

	sources := LibrarySources{}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read library source name: %w", err)
		}

		name, ok := tok.(string)
		if !ok {
			return errLibrariesNotObject
		}

		var entries libraryEntryList
		if err := dec.Decode(&entries); err != nil {
			return fmt.Errorf("failed to decode library source %q: %w", name, err)
		}

		sources = append(sources, LibrarySource{Name: name, Entries: entries})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to read end of libraries object: %w", err)
	}

	*l = sources

	return nil
}

// MarshalJSON re-emits the object form with sources in slice order.
func (l LibrarySources) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, source := range l {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(source.Name)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')

		entries, err := libraryEntryList(source.Entries).MarshalJSON()
		if err != nil {
			return nil, err
		}

		buf.Write(entries)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// libraryEntryList is the inner index -> record object, again decoded by
// token walk so the index order of the payload survives.
type libraryEntryList []LibraryEntry

func (e *libraryEntryList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectObjectStart(dec, errEntriesNotObject); err != nil {
		return err
	}

	entries := libraryEntryList{}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read library entry index: %w", err)
		}

		index, ok := tok.(string)
		if !ok {
			return errEntriesNotObject
		}

		var entry LibraryEntry
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("failed to decode library entry %q: %w", index, err)
		}

		entry.Index = index
		entries = append(entries, entry)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to read end of library source object: %w", err)
	}

	*e = entries

	return nil
}

func (e libraryEntryList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, entry := range e {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(entry.Index)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')

		record, err := json.Marshal(struct {
			Package    string `json:"Package"`
			Version    string `json:"Version"`
			Repository string `json:"Repository"`
		}{entry.Package, entry.Version, entry.Repository})
		if err != nil {
			return nil, err
		}

		buf.Write(record)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func expectObjectStart(dec *json.Decoder, mismatch error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return mismatch
	}

	return nil
}
