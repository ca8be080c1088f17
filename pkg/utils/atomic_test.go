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

package utils_test

import (
	"testing"
	"time"

	"github.com/jackify-dev/jackify-steam/pkg/utils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/steam/userdata/123/config", 0o755))

	path := "/steam/userdata/123/config/shortcuts.vdf"
	err := utils.WriteFileAtomic(fs, path, []byte("payload"), 0o644)
	require.NoError(t, err)

	got, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	// Overwrite replaces the previous contents entirely.
	err = utils.WriteFileAtomic(fs, path, []byte("v2"), 0o644)
	require.NoError(t, err)
	got, err = afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	// No stray temp files remain next to the destination.
	entries, err := afero.ReadDir(fs, "/steam/userdata/123/config")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBackupFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/steam/config", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/steam/config/config.vdf", []byte("orig"), 0o644))

	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	backup, err := utils.BackupFile(fs, "/steam/config/config.vdf", now)
	require.NoError(t, err)
	assert.Equal(t, "/steam/config/config.vdf.bak-20260314-150926", backup)

	got, err := afero.ReadFile(fs, backup)
	require.NoError(t, err)
	assert.Equal(t, "orig", string(got))
}

func TestBackupFileMissingSource(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	backup, err := utils.BackupFile(fs, "/nowhere/config.vdf", time.Now())
	require.NoError(t, err)
	assert.Empty(t, backup)
}
