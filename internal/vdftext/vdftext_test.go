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

package vdftext_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jackify-dev/jackify-steam/internal/vdftext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginusersSample = `"users"
{
	"76561198012345678"
	{
		"AccountName"		"omni"
		"MostRecent"		"1"
		"Timestamp"		"1723500000"
	}
}
`

func TestParse_NormalizesKeyCase(t *testing.T) {
	t.Parallel()

	m, err := vdftext.Parse(strings.NewReader(loginusersSample))
	require.NoError(t, err)

	users, ok := m["users"].(map[string]any)
	require.True(t, ok)
	user, ok := users["76561198012345678"].(map[string]any)
	require.True(t, ok)

	// MostRecent parsed under lower-cased key regardless of Steam's casing.
	assert.Equal(t, "1", user["mostrecent"])
	assert.Equal(t, "omni", user["accountname"])
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	_, err := vdftext.Parse(strings.NewReader(`"users" { "x"`))
	assert.ErrorIs(t, err, vdftext.ErrMalformedVDF)
}

func TestSerialize_RoundTrips(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"libraryfolders": map[string]any{
			"0": map[string]any{"path": "/home/deck/.steam/steam"},
			"1": map[string]any{"path": "/run/media/mmcblk0p1"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, vdftext.Serialize(doc, &buf))

	parsed, err := vdftext.Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, doc, parsed)
}

func TestFindBlock(t *testing.T) {
	t.Parallel()

	text := `"InstallConfigStore"
{
	"Software"
	{
		"Valve"
		{
			"Steam"
			{
				"CompatToolMapping"
				{
					"123"
					{
						"name"		"proton_experimental"
					}
				}
			}
		}
	}
}
`
	open, closing, err := vdftext.FindBlock(text, "CompatToolMapping", 0)
	require.NoError(t, err)
	assert.Less(t, open, closing)
	assert.Contains(t, text[open:closing], "proton_experimental")

	_, _, err = vdftext.FindBlock(text, "NoSuchKey", 0)
	assert.ErrorIs(t, err, vdftext.ErrMalformedVDF)
}

func TestFindBlock_Unbalanced(t *testing.T) {
	t.Parallel()

	_, _, err := vdftext.FindBlock(`"Steam" { "x" { }`, "Steam", 0)
	assert.ErrorIs(t, err, vdftext.ErrMalformedVDF)
}
