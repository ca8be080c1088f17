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

package vdfbinary

import (
	"fmt"
	"io"
	"strconv"
)

// Shortcut is one entry of Steam's shortcuts.vdf. Only appid, AppName, Exe
// and StartDir are required on read; everything else is optional so entries
// written by third-party tools (EmuDeck, Lutris) still parse. Fields not in
// this struct survive a read-modify-write cycle untouched via the raw map.
type Shortcut struct {
	raw                 *Map
	AppName             string
	Exe                 string
	StartDir            string
	Icon                string
	ShortcutPath        string
	LaunchOptions       string
	DevkitGameID        string
	FlatpakAppID        string
	Tags                []string
	AppID               uint32
	DevkitOverrideAppID uint32
	LastPlayTime        uint32
	IsHidden            bool
	AllowDesktopConfig  bool
	AllowOverlay        bool
	OpenVR              bool
	Devkit              bool
	IsInstalled         bool
}

// ParseShortcuts reads a shortcuts.vdf document into a slice of shortcuts,
// ordered by their numeric index.
func ParseShortcuts(r io.Reader) ([]Shortcut, error) {
	doc, err := Parse(r)
	if err != nil {
		return nil, err
	}

	scMap, ok := doc.GetMap("shortcuts")
	if !ok {
		return nil, fmt.Errorf("%w: missing 'shortcuts' key", ErrMalformedVDF)
	}

	shortcuts := make([]Shortcut, scMap.Len())
	for i := range shortcuts {
		entry, ok := scMap.GetMap(strconv.Itoa(i))
		if !ok {
			return nil, fmt.Errorf("%w: shortcut index %d missing", ErrMalformedVDF, i)
		}

		sc, err := shortcutFromMap(entry)
		if err != nil {
			return nil, err
		}
		shortcuts[i] = sc
	}

	return shortcuts, nil
}

func shortcutFromMap(entry *Map) (Shortcut, error) {
	appID, ok := entry.GetUint("appid")
	if !ok {
		return Shortcut{}, fmt.Errorf("%w: shortcut missing 'appid'", ErrMalformedVDF)
	}
	appName, ok := entry.GetString("AppName")
	if !ok {
		return Shortcut{}, fmt.Errorf("%w: shortcut missing 'AppName'", ErrMalformedVDF)
	}
	exe, ok := entry.GetString("Exe")
	if !ok {
		return Shortcut{}, fmt.Errorf("%w: shortcut missing 'Exe'", ErrMalformedVDF)
	}
	startDir, ok := entry.GetString("StartDir")
	if !ok {
		return Shortcut{}, fmt.Errorf("%w: shortcut missing 'StartDir'", ErrMalformedVDF)
	}

	sc := Shortcut{
		raw:      entry,
		AppID:    appID,
		AppName:  appName,
		Exe:      exe,
		StartDir: startDir,
	}

	sc.Icon, _ = entry.GetString("icon")
	sc.ShortcutPath, _ = entry.GetString("ShortcutPath")
	sc.LaunchOptions, _ = entry.GetString("LaunchOptions")
	sc.DevkitGameID, _ = entry.GetString("DevkitGameID")
	sc.FlatpakAppID, _ = entry.GetString("FlatpakAppID")
	sc.DevkitOverrideAppID, _ = entry.GetUint("DevkitOverrideAppID")
	sc.LastPlayTime, _ = entry.GetUint("LastPlayTime")
	sc.IsHidden, _ = entry.GetBool("IsHidden")
	sc.AllowDesktopConfig, _ = entry.GetBool("AllowDesktopConfig")
	sc.AllowOverlay, _ = entry.GetBool("AllowOverlay")
	sc.OpenVR, _ = entry.GetBool("OpenVR")
	sc.Devkit, _ = entry.GetBool("Devkit")
	sc.IsInstalled, _ = entry.GetBool("IsInstalled")

	if tagsMap, ok := entry.GetMap("tags"); ok {
		for i := 0; i < tagsMap.Len(); i++ {
			t, ok := tagsMap.GetString(strconv.Itoa(i))
			if !ok {
				break
			}
			sc.Tags = append(sc.Tags, t)
		}
	}

	return sc, nil
}

// toMap converts a shortcut back into its VDF map, starting from the raw
// map it was parsed from (if any) so unrecognized fields are preserved.
func (s *Shortcut) toMap() *Map {
	m := s.raw
	if m == nil {
		m = NewMap()
	}

	m.Set("appid", UintValue(s.AppID))
	m.Set("AppName", StringValue(s.AppName))
	m.Set("Exe", StringValue(s.Exe))
	m.Set("StartDir", StringValue(s.StartDir))
	m.Set("icon", StringValue(s.Icon))
	m.Set("ShortcutPath", StringValue(s.ShortcutPath))
	m.Set("LaunchOptions", StringValue(s.LaunchOptions))
	m.Set("IsHidden", UintValue(boolUint(s.IsHidden)))
	m.Set("AllowDesktopConfig", UintValue(boolUint(s.AllowDesktopConfig)))
	m.Set("AllowOverlay", UintValue(boolUint(s.AllowOverlay)))
	m.Set("OpenVR", UintValue(boolUint(s.OpenVR)))
	m.Set("Devkit", UintValue(boolUint(s.Devkit)))
	m.Set("DevkitGameID", StringValue(s.DevkitGameID))
	m.Set("DevkitOverrideAppID", UintValue(s.DevkitOverrideAppID))
	m.Set("LastPlayTime", UintValue(s.LastPlayTime))
	m.Set("IsInstalled", UintValue(boolUint(s.IsInstalled)))
	m.Set("FlatpakAppID", StringValue(s.FlatpakAppID))

	tags := NewMap()
	for i, tag := range s.Tags {
		tags.Set(strconv.Itoa(i), StringValue(tag))
	}
	m.Set("tags", MapValue(tags))

	return m
}

// SerializeShortcuts writes shortcuts back out as a complete shortcuts.vdf
// document, reindexed from zero.
func SerializeShortcuts(shortcuts []Shortcut, w io.Writer) error {
	scMap := NewMap()
	for i := range shortcuts {
		scMap.Set(strconv.Itoa(i), MapValue(shortcuts[i].toMap()))
	}

	doc := NewMap()
	doc.Set("shortcuts", MapValue(scMap))

	return Serialize(doc, w)
}

func boolUint(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
