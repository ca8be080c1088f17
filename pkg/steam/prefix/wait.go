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
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrPrefixTimeout indicates the prefix never appeared within the wait
// window.
var ErrPrefixTimeout = errors.New("timed out waiting for Proton prefix")

// WaitForPrefix blocks until compatDataDir/pfx/user.reg exists,
// indicating Proton finished creating the prefix after first launch.
// It combines an fsnotify watch with periodic polling, since the
// compatdata dir itself may not exist yet when the wait starts.
func (c *Configurator) WaitForPrefix(
	ctx context.Context,
	compatDataDir string,
	timeout time.Duration,
) error {
	userReg := filepath.Join(compatDataDir, "pfx", "user.reg")

	ready := func() bool {
		ok, err := afero.Exists(c.fs, userReg)
		return err == nil && ok
	}
	if ready() {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close prefix watcher")
		}
	}()

	// Watch the deepest existing ancestor. Proton creates compatdata,
	// then <appid>, then pfx; events on any of them trigger a recheck.
	watchDir := compatDataDir
	for {
		ok, err := afero.DirExists(c.fs, watchDir)
		if err == nil && ok {
			break
		}
		parent := filepath.Dir(watchDir)
		if parent == watchDir {
			break
		}
		watchDir = parent
	}
	if err := watcher.Add(watchDir); err != nil {
		log.Debug().Err(err).Str("dir", watchDir).Msg("watch failed, polling only")
	}

	timer := c.clock.NewTimer(timeout)
	defer timer.Stop()
	poll := c.clock.NewTicker(2 * time.Second)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("prefix wait cancelled: %w", ctx.Err())
		case <-timer.Chan():
			return fmt.Errorf("%w: %s after %s", ErrPrefixTimeout, compatDataDir, timeout)
		case <-poll.Chan():
			if ready() {
				return nil
			}
		case <-watcher.Events:
			if ready() {
				return nil
			}
		case err := <-watcher.Errors:
			log.Debug().Err(err).Msg("prefix watcher error")
		}
	}
}
