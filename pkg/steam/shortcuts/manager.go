// Jackify Steam
// Copyright (c) 2026 The Jackify Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Jackify Steam.
//
// Jackify Steam is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Jackify Steam is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Jackify Steam.  If not, see <http://www.gnu.org/licenses/>.

// Package shortcuts manages entries in Steam's shortcuts.vdf. Upserts
// match on the install location, never the display name, so re-running
// a setup can rename a shortcut without duplicating it.
package shortcuts

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackify-dev/jackify-steam/internal/vdfbinary"
	"github.com/jackify-dev/jackify-steam/pkg/utils"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Entry is a requested shortcut. Zero-valued optional fields leave the
// existing shortcut's fields untouched on update.
type Entry struct {
	Name          string
	Exe           string
	StartDir      string
	Icon          string
	LaunchOptions string
	Tags          []string
	AppID         AppID // zero: keep existing or generate
}

// Manager reads and writes a user's shortcuts.vdf.
type Manager struct {
	fs        afero.Fs
	clock     clockwork.Clock
	randomIDs bool
}

func NewManager(fs afero.Fs, clock clockwork.Clock, randomIDs bool) *Manager {
	return &Manager{fs: fs, clock: clock, randomIDs: randomIDs}
}

// Path returns the shortcuts.vdf location under a user config dir.
func Path(userConfigDir string) string {
	return filepath.Join(userConfigDir, "shortcuts.vdf")
}

// List returns all shortcuts in the file. A missing file is an empty
// list, matching a fresh Steam account.
func (m *Manager) List(path string) ([]vdfbinary.Shortcut, error) {
	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	list, err := vdfbinary.ParseShortcuts(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return list, nil
}

// normalizeLocation canonicalizes an exe or start dir for matching:
// surrounding quotes stripped, path cleaned. Steam quotes these fields
// inconsistently between its own writes and third-party tools.
func normalizeLocation(p string) string {
	p = strings.Trim(strings.TrimSpace(p), `"`)
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}

func sameLocation(a, b vdfbinary.Shortcut) bool {
	return normalizeLocation(a.Exe) == normalizeLocation(b.Exe) &&
		normalizeLocation(a.StartDir) == normalizeLocation(b.StartDir)
}

// Upsert creates or updates the shortcut for entry's install location.
// Matching is by normalized Exe+StartDir. On update the existing AppID
// is kept and only non-empty entry fields overwrite; on create the ID
// comes from entry.AppID, or is generated (deterministic CRC, or
// random when the manager was built with randomIDs).
func (m *Manager) Upsert(path string, entry Entry) (AppID, error) {
	if entry.Name == "" || entry.Exe == "" || entry.StartDir == "" {
		return 0, errors.New("shortcut entry needs name, exe and start dir")
	}

	list, err := m.List(path)
	if err != nil {
		return 0, err
	}

	want := vdfbinary.Shortcut{Exe: entry.Exe, StartDir: entry.StartDir}
	idx := -1
	for i := range list {
		if sameLocation(list[i], want) {
			idx = i
			break
		}
	}

	var id AppID
	if idx >= 0 {
		sc := &list[idx]
		id = AppID(sc.AppID)
		sc.AppName = entry.Name
		if entry.Icon != "" {
			sc.Icon = entry.Icon
		}
		if entry.LaunchOptions != "" {
			sc.LaunchOptions = entry.LaunchOptions
		}
		if len(entry.Tags) > 0 {
			sc.Tags = entry.Tags
		}
		if entry.AppID != 0 {
			sc.AppID = entry.AppID.Unsigned()
			id = entry.AppID
		}
		log.Info().Str("name", entry.Name).Str("appid", id.String()).
			Msg("updated existing shortcut")
	} else {
		id = entry.AppID
		if id == 0 {
			if m.randomIDs {
				id = GenerateRandomAppID()
			} else {
				id = GenerateAppID(entry.Exe, entry.Name)
			}
		}
		list = append(list, vdfbinary.Shortcut{
			AppID:              id.Unsigned(),
			AppName:            entry.Name,
			Exe:                entry.Exe,
			StartDir:           entry.StartDir,
			Icon:               entry.Icon,
			LaunchOptions:      entry.LaunchOptions,
			Tags:               entry.Tags,
			AllowDesktopConfig: true,
			AllowOverlay:       true,
		})
		log.Info().Str("name", entry.Name).Str("appid", id.String()).
			Msg("created new shortcut")
	}

	if err := m.write(path, list); err != nil {
		return 0, err
	}
	return id, nil
}

// Remove deletes the shortcut with the given AppID. Removing an absent
// ID is a no-op.
func (m *Manager) Remove(path string, id AppID) error {
	list, err := m.List(path)
	if err != nil {
		return err
	}

	kept := list[:0]
	for i := range list {
		if AppID(list[i].AppID) != id {
			kept = append(kept, list[i])
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	return m.write(path, kept)
}

// FindByExe returns the shortcut whose Exe matches after normalization.
func (m *Manager) FindByExe(path, exe string) (vdfbinary.Shortcut, bool, error) {
	list, err := m.List(path)
	if err != nil {
		return vdfbinary.Shortcut{}, false, err
	}
	norm := normalizeLocation(exe)
	for i := range list {
		if normalizeLocation(list[i].Exe) == norm {
			return list[i], true, nil
		}
	}
	return vdfbinary.Shortcut{}, false, nil
}

func (m *Manager) write(path string, list []vdfbinary.Shortcut) error {
	if err := m.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	if _, err := utils.BackupFile(m.fs, path, m.clock.Now()); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := vdfbinary.SerializeShortcuts(list, &buf); err != nil {
		return fmt.Errorf("failed to serialize shortcuts: %w", err)
	}
	return utils.WriteFileAtomic(m.fs, path, buf.Bytes(), 0o644)
}
