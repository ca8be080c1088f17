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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStateStore(t *testing.T) *prefix.StateStore {
	t.Helper()
	store, err := prefix.OpenStateStore(filepath.Join(t.TempDir(), "state", "components.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func TestStateStoreRoundTrip(t *testing.T) {
	store := newStateStore(t)

	ok, err := store.IsVerified(appID, "dotnet40")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.MarkVerified(appID, "dotnet40", time.Now()))

	ok, err = store.IsVerified(appID, "dotnet40")
	require.NoError(t, err)
	assert.True(t, ok)

	// Other components and prefixes are unaffected.
	ok, err = store.IsVerified(appID, "vcrun2022")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.IsVerified(appID+1, "dotnet40")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateStoreForget(t *testing.T) {
	store := newStateStore(t)

	require.NoError(t, store.MarkVerified(appID, "dotnet40", time.Now()))
	require.NoError(t, store.MarkVerified(appID, "vcrun2022", time.Now()))
	require.NoError(t, store.Forget(appID))

	ok, err := store.IsVerified(appID, "dotnet40")
	require.NoError(t, err)
	assert.False(t, ok)

	// Forgetting an unknown prefix is a no-op.
	require.NoError(t, store.Forget(424242))
}
