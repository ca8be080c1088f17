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

package prefix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// RegistryEntry is a single value under a registry key.
type RegistryEntry struct {
	Key   string // e.g. `HKEY_CURRENT_USER\Software\Wine\DllOverrides`
	Name  string
	Value string // rendered verbatim, so dword values pass "dword:00000001"
}

// UniversalDotnetFixes returns the registry tweaks applied to every
// configured prefix: native mscoree so installed .NET runtimes are used
// instead of Wine Mono, and OnlyUseLatestCLR so mixed-runtime mod tools
// pick the newest framework.
func UniversalDotnetFixes() []RegistryEntry {
	return []RegistryEntry{
		{
			Key:   `HKEY_CURRENT_USER\Software\Wine\DllOverrides`,
			Name:  "mscoree",
			Value: `"native"`,
		},
		{
			Key:   `HKEY_CURRENT_USER\Software\Microsoft\.NETFramework`,
			Name:  "OnlyUseLatestCLR",
			Value: "dword:00000001",
		},
	}
}

// GamePathEntries returns the install-path registry values a game's
// launcher reads. Only games known to need them return entries.
func GamePathEntries(gameAppID uint32, installPath string) []RegistryEntry {
	windowsPath := toWindowsPath(installPath)
	switch gameAppID {
	case 22380: // Fallout New Vegas
		return []RegistryEntry{
			{
				Key:   `HKEY_LOCAL_MACHINE\Software\Wow6432Node\Bethesda Softworks\FalloutNV`,
				Name:  "Installed Path",
				Value: `"` + windowsPath + `"`,
			},
		}
	case 976620: // Enderal Special Edition
		return []RegistryEntry{
			{
				Key:   `HKEY_LOCAL_MACHINE\Software\Wow6432Node\SureAI\Enderal SE`,
				Name:  "Installed Path",
				Value: `"` + windowsPath + `"`,
			},
		}
	default:
		return nil
	}
}

// toWindowsPath maps a Linux path to the prefix's Z: drive with escaped
// backslashes, the form regedit expects inside a .reg file.
func toWindowsPath(p string) string {
	return "Z:" + strings.ReplaceAll(filepath.Clean(p), "/", `\\`)
}

// renderRegFile builds a regedit-importable file from entries.
func renderRegFile(entries []RegistryEntry) string {
	var b strings.Builder
	b.WriteString("Windows Registry Editor Version 5.00\r\n")

	// Group values by key, preserving first-seen key order.
	keys := make([]string, 0, len(entries))
	byKey := make(map[string][]RegistryEntry)
	for _, e := range entries {
		if _, seen := byKey[e.Key]; !seen {
			keys = append(keys, e.Key)
		}
		byKey[e.Key] = append(byKey[e.Key], e)
	}

	for _, key := range keys {
		b.WriteString("\r\n[" + key + "]\r\n")
		for _, e := range byKey[key] {
			b.WriteString(`"` + e.Name + `"=` + e.Value + "\r\n")
		}
	}
	return b.String()
}

// InjectRegistry imports entries into the prefix at compatDataDir using
// wineBinary (the selected tool's bundled wine). The .reg file is left
// in the prefix dir afterwards for debugging.
func (c *Configurator) InjectRegistry(
	ctx context.Context,
	wineBinary, compatDataDir string,
	entries []RegistryEntry,
) error {
	if len(entries) == 0 {
		return nil
	}

	regPath := filepath.Join(compatDataDir, "jackify-inject.reg")
	if err := afero.WriteFile(c.fs, regPath, []byte(renderRegFile(entries)), 0o644); err != nil {
		return fmt.Errorf("failed to write reg file: %w", err)
	}

	env := cleanedEnviron(os.Environ())
	env = append(env,
		"WINEPREFIX="+filepath.Join(compatDataDir, "pfx"),
		"WINEDEBUG=-all",
	)

	out, err := c.cmd.CombinedOutput(ctx, env, wineBinary, "regedit", regPath)
	if err != nil {
		return fmt.Errorf("regedit import failed: %w (%s)", err, tail(out))
	}

	log.Info().Int("entries", len(entries)).
		Str("prefix", compatDataDir).Msg("registry entries injected")
	return nil
}
