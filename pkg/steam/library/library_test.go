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

package library_test

import (
	"testing"

	"github.com/jackify-dev/jackify-steam/pkg/steam/library"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const home = "/home/deck"

func newSteamRoot(t *testing.T, fs afero.Fs, root string, extraFolders ...string) {
	t.Helper()

	require.NoError(t, fs.MkdirAll(root+"/steamapps", 0o755))

	vdf := "\"libraryfolders\"\n{\n"
	vdf += "\t\"0\"\n\t{\n\t\t\"path\"\t\t\"" + root + "\"\n\t}\n"
	for i, folder := range extraFolders {
		require.NoError(t, fs.MkdirAll(folder+"/steamapps", 0o755))
		vdf += "\t\"" + string(rune('1'+i)) + "\"\n\t{\n\t\t\"path\"\t\t\"" + folder + "\"\n\t}\n"
	}
	vdf += "}\n"

	require.NoError(t, afero.WriteFile(fs,
		root+"/steamapps/libraryfolders.vdf", []byte(vdf), 0o644))
}

func addManifest(t *testing.T, fs afero.Fs, folder, appID string) {
	t.Helper()
	manifest := "\"AppState\"\n{\n\t\"appid\"\t\t\"" + appID + "\"\n}\n"
	require.NoError(t, afero.WriteFile(fs,
		folder+"/steamapps/appmanifest_"+appID+".acf", []byte(manifest), 0o644))
}

func TestRootPrefersDotSteam(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	newSteamRoot(t, fs, home+"/.steam/steam")
	newSteamRoot(t, fs, home+"/.local/share/Steam")

	loc := library.NewLocator(fs, home)
	root, err := loc.Root()
	require.NoError(t, err)
	assert.Equal(t, home+"/.steam/steam", root)
}

func TestRootFlatpak(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	flatpak := home + "/.var/app/com.valvesoftware.Steam/.local/share/Steam"
	newSteamRoot(t, fs, flatpak)

	loc := library.NewLocator(fs, home)
	root, err := loc.Root()
	require.NoError(t, err)
	assert.Equal(t, flatpak, root)
}

func TestRootNoInstallation(t *testing.T) {
	t.Parallel()

	loc := library.NewLocator(afero.NewMemMapFs(), home)
	_, err := loc.Root()
	require.ErrorIs(t, err, library.ErrNoSteamInstallation)
}

func TestLocateAllFolders(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	root := home + "/.steam/steam"
	sd := "/run/media/deck/8b3f-9a21"
	newSteamRoot(t, fs, root, sd, "/mnt/games/SteamLibrary")

	addManifest(t, fs, root, "22380")
	addManifest(t, fs, root, "976620")
	addManifest(t, fs, sd, "489830")

	loc := library.NewLocator(fs, home)
	libs, err := loc.Locate(t.Context())
	require.NoError(t, err)
	require.Len(t, libs, 3)

	// Sorted by path regardless of scan order.
	assert.Equal(t, root, libs[0].Path)
	assert.Equal(t, "/mnt/games/SteamLibrary", libs[1].Path)
	assert.Equal(t, sd, libs[2].Path)

	assert.Equal(t, []uint32{22380, 976620}, libs[0].AppIDs)
	assert.Equal(t, []uint32{489830}, libs[2].AppIDs)
}

func TestLocateMissingLibraryFoldersFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	// steamapps exists but libraryfolders.vdf is missing: broken install.
	require.NoError(t, fs.MkdirAll(home+"/.steam/steam/steamapps", 0o755))

	loc := library.NewLocator(fs, home)
	_, err := loc.Locate(t.Context())
	require.ErrorIs(t, err, library.ErrNoSteamInstallation)
}

func TestFindApp(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	root := home + "/.steam/steam"
	newSteamRoot(t, fs, root)
	addManifest(t, fs, root, "22380")

	loc := library.NewLocator(fs, home)

	lib, found, err := loc.FindApp(t.Context(), 22380)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, root, lib.Path)

	_, found, err = loc.FindApp(t.Context(), 999999)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSDCardMounts(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/run/media/mmcblk0p1", 0o755))
	require.NoError(t, fs.MkdirAll("/run/media/deck/8b3f-9a21", 0o755))
	require.NoError(t, fs.MkdirAll("/run/media/deck/0000-aaaa", 0o755))

	loc := library.NewLocator(fs, home)
	mounts := loc.SDCardMounts()
	assert.Equal(t, []string{
		"/run/media/deck/0000-aaaa",
		"/run/media/deck/8b3f-9a21",
		"/run/media/mmcblk0p1",
	}, mounts)
}

func TestIsSDCardPath(t *testing.T) {
	t.Parallel()

	assert.True(t, library.IsSDCardPath("/run/media/mmcblk0p1/SteamLibrary"))
	assert.True(t, library.IsSDCardPath("/run/media/deck/8b3f-9a21/steamapps"))
	assert.False(t, library.IsSDCardPath(home+"/.steam/steam"))
	assert.False(t, library.IsSDCardPath("/mnt/games"))
}

func TestCompatDataPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"/lib/steamapps/compatdata/22380",
		library.CompatDataPath("/lib", 22380))
}

func TestCompatToolDirs(t *testing.T) {
	t.Parallel()

	loc := library.NewLocator(afero.NewMemMapFs(), home)
	dirs := loc.CompatToolDirs(home + "/.steam/steam")

	assert.Contains(t, dirs, home+"/.steam/steam/compatibilitytools.d")
	assert.Contains(t, dirs, home+"/.steam/steam/steamapps/common")
	// Valve builds dir comes last so custom tools shadow them.
	assert.Equal(t, home+"/.steam/steam/steamapps/common", dirs[len(dirs)-1])
}
