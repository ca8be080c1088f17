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

package compat

import "strings"

// GamePolicy captures known quirks of specific games and modlists.
type GamePolicy struct {
	// Pin forces a Proton line by Steam config name (e.g. "proton_9").
	Pin string
	// RegistryInjection marks games whose install path must be written
	// into the prefix registry before the game launcher works.
	RegistryInjection bool
	// GameAppID is the Steam AppID of the underlying game, for
	// registry injection targeting.
	GameAppID uint32
}

// policies maps a lowercased title fragment to its quirks. Lorerim and
// Lost Legacy ship engine fixes that break on Proton 10+. Fallout New
// Vegas and Enderal read their install path from the registry.
var policies = map[string]GamePolicy{
	"lorerim":           {Pin: "proton_9"},
	"lost legacy":       {Pin: "proton_9"},
	"fallout new vegas": {RegistryInjection: true, GameAppID: 22380},
	"fnv":               {RegistryInjection: true, GameAppID: 22380},
	"enderal":           {RegistryInjection: true, GameAppID: 976620},
}

// PolicyFor looks up quirks for a game or modlist title. Matching is
// case-insensitive on title fragments so "Lorerim 3.1" still matches.
func PolicyFor(title string) (GamePolicy, bool) {
	normalized := strings.ToLower(strings.TrimSpace(title))
	if normalized == "" {
		return GamePolicy{}, false
	}
	for fragment, policy := range policies {
		if strings.Contains(normalized, fragment) {
			return policy, true
		}
	}
	return GamePolicy{}, false
}
