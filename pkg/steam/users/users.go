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

// Package users resolves the active Steam user from loginusers.vdf.
package users

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/jackify-dev/jackify-steam/internal/vdftext"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrNoUser indicates no logged-in Steam user could be determined.
// Callers must surface this instead of guessing an account.
var ErrNoUser = errors.New("no Steam user found")

// id64Offset converts between 64-bit SteamIDs and the 32-bit account ID
// used for userdata directory names.
const id64Offset = 76561197960265728

// SteamID is a 64-bit Steam account identifier.
type SteamID uint64

// ID3 returns the 32-bit account ID (the userdata directory name).
func (id SteamID) ID3() uint32 {
	return uint32(uint64(id) - id64Offset)
}

// FromID3 converts a 32-bit account ID back to a 64-bit SteamID.
func FromID3(id3 uint32) SteamID {
	return SteamID(uint64(id3) + id64Offset)
}

func (id SteamID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// User is a resolved Steam account.
type User struct {
	Name        string
	PersonaName string
	ID          SteamID
}

// ConfigDir returns the user's config directory under a Steam root.
func (u User) ConfigDir(root string) string {
	return filepath.Join(root, "userdata",
		strconv.FormatUint(uint64(u.ID.ID3()), 10), "config")
}

// Resolve determines the active user from root's loginusers.vdf. The
// account flagged MostRecent wins; otherwise the highest login
// Timestamp. The resolved account must have a userdata config dir on
// disk or it is rejected.
func Resolve(fs afero.Fs, root string) (User, error) {
	vdfPath := filepath.Join(root, "config", "loginusers.vdf")
	data, err := afero.ReadFile(fs, vdfPath)
	if err != nil {
		return User{}, fmt.Errorf("%w: cannot read %s", ErrNoUser, vdfPath)
	}

	parsed, err := vdftext.Parse(bytes.NewReader(data))
	if err != nil {
		return User{}, fmt.Errorf("failed to parse %s: %w", vdfPath, err)
	}

	usersBlock, ok := parsed["users"].(map[string]any)
	if !ok || len(usersBlock) == 0 {
		return User{}, fmt.Errorf("%w: loginusers.vdf has no accounts", ErrNoUser)
	}

	var best User
	var bestTimestamp int64
	var haveMostRecent bool

	for idStr, v := range usersBlock {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		id64, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}

		user := User{ID: SteamID(id64)}
		if name, ok := entry["accountname"].(string); ok {
			user.Name = name
		}
		if persona, ok := entry["personaname"].(string); ok {
			user.PersonaName = persona
		}

		if mostRecent, ok := entry["mostrecent"].(string); ok && mostRecent == "1" {
			best = user
			haveMostRecent = true
			break
		}

		var ts int64
		if tsStr, ok := entry["timestamp"].(string); ok {
			ts, _ = strconv.ParseInt(tsStr, 10, 64)
		}
		// Equal timestamps break toward the higher SteamID so the result
		// never depends on map iteration order.
		if best.ID == 0 || ts > bestTimestamp ||
			(ts == bestTimestamp && user.ID > best.ID) {
			best = user
			bestTimestamp = ts
		}
	}

	if best.ID == 0 {
		return User{}, fmt.Errorf("%w: no parseable accounts in loginusers.vdf", ErrNoUser)
	}

	// The account must actually have local data or shortcut writes
	// would land in a dead directory.
	cfgDir := best.ConfigDir(root)
	exists, err := afero.DirExists(fs, cfgDir)
	if err != nil {
		return User{}, fmt.Errorf("failed to check %s: %w", cfgDir, err)
	}
	if !exists {
		return User{}, fmt.Errorf("%w: %s has no userdata config dir", ErrNoUser, best.ID)
	}

	log.Debug().
		Str("account", best.Name).
		Uint64("id", uint64(best.ID)).
		Bool("mostRecent", haveMostRecent).
		Msg("resolved Steam user")
	return best, nil
}
