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

package prefix_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jackify-dev/jackify-steam/pkg/steam/prefix"
	"github.com/jackify-dev/jackify-steam/pkg/testing/mocks"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestWaitForPrefixAlreadyExists(t *testing.T) {
	fs := afero.NewOsFs()
	dir := t.TempDir()
	compatData := filepath.Join(dir, "compatdata", "123")
	require.NoError(t, fs.MkdirAll(filepath.Join(compatData, "pfx"), 0o755))
	require.NoError(t, afero.WriteFile(fs,
		filepath.Join(compatData, "pfx", "user.reg"), []byte("WINE REGISTRY"), 0o644))

	cfg := prefix.NewConfigurator(fs, &mocks.MockExecutor{},
		clockwork.NewFakeClock(), nil, "/steam", "")
	require.NoError(t, cfg.WaitForPrefix(t.Context(), compatData, time.Minute))
}

func TestWaitForPrefixAppears(t *testing.T) {
	fs := afero.NewOsFs()
	dir := t.TempDir()
	compatData := filepath.Join(dir, "compatdata", "123")

	clock := clockwork.NewFakeClock()
	cfg := prefix.NewConfigurator(fs, &mocks.MockExecutor{}, clock, nil, "/steam", "")

	done := make(chan error, 1)
	go func() {
		done <- cfg.WaitForPrefix(t.Context(), compatData, time.Minute)
	}()

	// Wait until the timer and poll ticker are armed, create the
	// prefix, then let a poll tick fire.
	clock.BlockUntil(2)
	require.NoError(t, fs.MkdirAll(filepath.Join(compatData, "pfx"), 0o755))
	require.NoError(t, afero.WriteFile(fs,
		filepath.Join(compatData, "pfx", "user.reg"), []byte("WINE REGISTRY"), 0o644))
	clock.Advance(2 * time.Second)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("prefix wait did not return")
	}
}

func TestWaitForPrefixTimeout(t *testing.T) {
	fs := afero.NewOsFs()
	dir := t.TempDir()
	compatData := filepath.Join(dir, "compatdata", "123")

	clock := clockwork.NewFakeClock()
	cfg := prefix.NewConfigurator(fs, &mocks.MockExecutor{}, clock, nil, "/steam", "")

	done := make(chan error, 1)
	go func() {
		done <- cfg.WaitForPrefix(t.Context(), compatData, time.Minute)
	}()

	clock.BlockUntil(2)
	clock.Advance(time.Minute)

	select {
	case err := <-done:
		require.ErrorIs(t, err, prefix.ErrPrefixTimeout)
	case <-time.After(5 * time.Second):
		t.Fatal("prefix wait did not time out")
	}
}
