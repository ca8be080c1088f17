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

// Package library discovers Steam installations and their library
// folders. It handles native, Flatpak, snap and Steam Deck layouts,
// including SD card mounts.
package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jackify-dev/jackify-steam/internal/vdftext"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// ErrNoSteamInstallation indicates no candidate Steam root contained a
// usable installation. A root without libraryfolders.vdf is treated the
// same: a silent empty result would hide a broken install.
var ErrNoSteamInstallation = errors.New("no Steam installation found")

// Library is a single Steam library folder and the apps installed in it.
type Library struct {
	Path   string
	AppIDs []uint32
}

// Locator finds Steam roots and library folders on the local system.
type Locator struct {
	fs   afero.Fs
	home string
}

func NewLocator(fs afero.Fs, home string) *Locator {
	return &Locator{fs: fs, home: home}
}

// candidateRoots returns possible Steam roots in resolution order. SD
// card mounts are enumerated dynamically since Deck card UUIDs vary.
func (l *Locator) candidateRoots() []string {
	roots := []string{
		filepath.Join(l.home, ".steam", "steam"),
		filepath.Join(l.home, ".local", "share", "Steam"),
		filepath.Join(l.home, ".var", "app", "com.valvesoftware.Steam",
			".local", "share", "Steam"),
		filepath.Join(l.home, ".var", "app", "com.valvesoftware.Steam",
			"data", "Steam"),
		filepath.Join(l.home, "snap", "steam", "common", ".local", "share", "Steam"),
	}
	return append(roots, l.SDCardMounts()...)
}

// SDCardMounts enumerates removable media mount points that may hold a
// Steam library. /run/media/mmcblk0p1 is the Deck's fixed mount; UUID
// mounts live under /run/media/<user>/.
func (l *Locator) SDCardMounts() []string {
	var mounts []string

	if ok, _ := afero.DirExists(l.fs, "/run/media/mmcblk0p1"); ok {
		mounts = append(mounts, "/run/media/mmcblk0p1")
	}

	users, err := afero.ReadDir(l.fs, "/run/media")
	if err != nil {
		return mounts
	}
	for _, user := range users {
		if !user.IsDir() || user.Name() == "mmcblk0p1" {
			continue
		}
		cards, err := afero.ReadDir(l.fs, filepath.Join("/run/media", user.Name()))
		if err != nil {
			continue
		}
		for _, card := range cards {
			if card.IsDir() {
				mounts = append(mounts, filepath.Join("/run/media", user.Name(), card.Name()))
			}
		}
	}

	sort.Strings(mounts)
	return mounts
}

// IsSDCardPath reports whether p lives under a removable media mount.
func IsSDCardPath(p string) bool {
	return strings.HasPrefix(filepath.Clean(p), "/run/media/")
}

// Root returns the first candidate root that holds a Steam install.
func (l *Locator) Root() (string, error) {
	for _, root := range l.candidateRoots() {
		ok, err := afero.DirExists(l.fs, filepath.Join(root, "steamapps"))
		if err != nil {
			return "", fmt.Errorf("failed to check %s: %w", root, err)
		}
		if ok {
			log.Debug().Str("root", root).Msg("found Steam root")
			return root, nil
		}
	}
	return "", ErrNoSteamInstallation
}

// Locate returns every library folder of the installation under root,
// including root's own steamapps, with installed AppIDs per folder.
// Results are sorted by path so output is deterministic regardless of
// scan order.
func (l *Locator) Locate(ctx context.Context) ([]Library, error) {
	root, err := l.Root()
	if err != nil {
		return nil, err
	}

	folders, err := l.libraryFolders(root)
	if err != nil {
		return nil, err
	}

	libs := make([]Library, len(folders))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, folder := range folders {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("library scan cancelled: %w", err)
			}
			apps, err := l.installedApps(folder)
			if err != nil {
				return err
			}
			libs[i] = Library{Path: folder, AppIDs: apps}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(libs, func(i, j int) bool { return libs[i].Path < libs[j].Path })
	return libs, nil
}

// libraryFolders parses steamapps/libraryfolders.vdf for every library
// path. The root library always appears even if the file omits it.
func (l *Locator) libraryFolders(root string) ([]string, error) {
	vdfPath := filepath.Join(root, "steamapps", "libraryfolders.vdf")
	data, err := afero.ReadFile(l.fs, vdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s", ErrNoSteamInstallation, vdfPath)
	}

	parsed, err := vdftext.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", vdfPath, err)
	}

	seen := map[string]bool{root: true}
	folders := []string{root}

	top, ok := parsed["libraryfolders"].(map[string]any)
	if !ok {
		return folders, nil
	}
	for _, v := range top {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		path, ok := entry["path"].(string)
		if !ok || path == "" {
			continue
		}
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			folders = append(folders, path)
		}
	}
	return folders, nil
}

// installedApps enumerates appmanifest_<id>.acf files under a library's
// steamapps directory. The manifest listing is ground truth; the apps
// block of libraryfolders.vdf can go stale.
func (l *Locator) installedApps(folder string) ([]uint32, error) {
	steamapps := filepath.Join(folder, "steamapps")
	entries, err := afero.ReadDir(l.fs, steamapps)
	if err != nil {
		// Library folders can be unmounted (SD card removed).
		log.Debug().Str("folder", folder).Msg("library folder unreadable, skipping apps")
		return nil, nil //nolint:nilerr // unmounted folders are expected
	}

	var apps []uint32
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "appmanifest_") ||
			!strings.HasSuffix(name, ".acf") {
			continue
		}
		idStr := strings.TrimSuffix(strings.TrimPrefix(name, "appmanifest_"), ".acf")
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			continue
		}
		apps = append(apps, uint32(id))
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i] < apps[j] })
	return apps, nil
}

// FindApp returns the library folder that has appID installed.
func (l *Locator) FindApp(ctx context.Context, appID uint32) (Library, bool, error) {
	libs, err := l.Locate(ctx)
	if err != nil {
		return Library{}, false, err
	}
	for _, lib := range libs {
		for _, id := range lib.AppIDs {
			if id == appID {
				return lib, true, nil
			}
		}
	}
	return Library{}, false, nil
}

// CompatDataPath returns the Proton prefix directory for appID inside a
// library folder.
func CompatDataPath(libraryPath string, appID uint32) string {
	return filepath.Join(libraryPath, "steamapps", "compatdata",
		strconv.FormatUint(uint64(appID), 10))
}

// UserdataPath returns the per-user data directory under a Steam root.
func UserdataPath(root string) string {
	return filepath.Join(root, "userdata")
}

// CompatToolDirs returns directories that can hold compatibility tools
// for the installation rooted at root: custom tools first, then Valve's
// own Proton builds under steamapps/common.
func (l *Locator) CompatToolDirs(root string) []string {
	dirs := []string{
		filepath.Join(root, "compatibilitytools.d"),
		filepath.Join(l.home, ".steam", "root", "compatibilitytools.d"),
		filepath.Join(l.home, ".var", "app", "com.valvesoftware.Steam",
			".local", "share", "Steam", "compatibilitytools.d"),
	}

	var out []string
	seen := make(map[string]bool)
	for _, d := range dirs {
		d = filepath.Clean(d)
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	out = append(out, filepath.Join(root, "steamapps", "common"))
	return out
}
