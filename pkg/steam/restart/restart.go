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

// Package restart shuts Steam down and brings it back up so config.vdf
// and shortcuts.vdf edits take effect. Steam only reads both files at
// startup and overwrites them at exit, so edits made while it runs are
// lost.
package restart

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackify-dev/jackify-steam/pkg/helpers/command"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrRestartTimeout indicates Steam did not reach the expected state in
// time. Callers treat it as a warning: the user can restart manually.
var ErrRestartTimeout = errors.New("timed out waiting for Steam")

// Flavor is how Steam is installed and therefore how it is controlled.
type Flavor int

const (
	FlavorNative Flavor = iota
	FlavorFlatpak
	FlavorSteamDeck
)

func (f Flavor) String() string {
	switch f {
	case FlavorNative:
		return "native"
	case FlavorFlatpak:
		return "flatpak"
	case FlavorSteamDeck:
		return "steamdeck"
	default:
		return "unknown"
	}
}

const steamFlatpakID = "com.valvesoftware.Steam"

// webhelperProcess is the last Steam process to exit on shutdown;
// waiting on it avoids racing a half-closed client.
const webhelperProcess = "steamwebhelper"

const (
	shutdownTimeout = 3 * time.Minute // SD card I/O makes clean exits slow
	startupTimeout  = 2 * time.Minute
	pollInterval    = 3 * time.Second
)

// ProcessLister checks for running processes by name.
type ProcessLister interface {
	IsRunning(ctx context.Context, name string) (bool, error)
}

// Controller restarts the Steam client.
type Controller struct {
	cmd    command.Executor
	procs  ProcessLister
	clock  clockwork.Clock
	flavor Flavor
}

func NewController(
	cmd command.Executor,
	procs ProcessLister,
	clock clockwork.Clock,
	flavor Flavor,
) *Controller {
	return &Controller{cmd: cmd, procs: procs, clock: clock, flavor: flavor}
}

// DetectFlavor identifies the Steam installation type: Steam Deck by
// OS release and DMI product, then Flatpak, falling back to native.
func DetectFlavor(ctx context.Context, fs afero.Fs, cmd command.Executor) Flavor {
	if osRelease, err := afero.ReadFile(fs, "/etc/os-release"); err == nil {
		if strings.Contains(string(osRelease), "ID=steamos") {
			return FlavorSteamDeck
		}
	}
	if product, err := afero.ReadFile(fs,
		"/sys/devices/virtual/dmi/id/product_name"); err == nil {
		name := strings.TrimSpace(string(product))
		if name == "Jupiter" || name == "Galileo" {
			return FlavorSteamDeck
		}
	}
	if _, err := cmd.Output(ctx, "flatpak", "info", steamFlatpakID); err == nil {
		return FlavorFlatpak
	}
	return FlavorNative
}

// CleanEnv filters environ down to what a relaunched Steam should see:
// AppImage bundle leakage is dropped, the desktop session vars Steam
// needs to find the display and session bus are kept along with
// anything unrelated.
func CleanEnv(environ []string) []string {
	dropped := map[string]bool{
		"APPDIR":                  true,
		"APPIMAGE":                true,
		"ARGV0":                   true,
		"OWD":                     true,
		"LD_LIBRARY_PATH":         true,
		"LD_PRELOAD":              true,
		"PYTHONPATH":              true,
		"PYTHONHOME":              true,
		"PYTHONDONTWRITEBYTECODE": true,
	}
	out := make([]string, 0, len(environ))
	for _, kv := range environ {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || dropped[name] {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// Restart performs a full restart: staged shutdown with escalation,
// relaunch, then a wait for the client to come back. The returned
// ErrRestartTimeout is advisory; the configuration written beforehand
// is already on disk.
func (c *Controller) Restart(ctx context.Context) error {
	log.Info().Stringer("flavor", c.flavor).Msg("restarting Steam")

	if c.flavor == FlavorSteamDeck {
		// Game mode supervises Steam; systemd does the whole cycle.
		err := c.cmd.Run(ctx, "systemctl", "--user", "restart",
			"app-steam@autostart.service")
		if err != nil {
			return fmt.Errorf("systemctl restart failed: %w", err)
		}
		return c.waitRunning(ctx)
	}

	if err := c.Shutdown(ctx); err != nil {
		return err
	}
	if err := c.Launch(ctx); err != nil {
		return err
	}
	return c.waitRunning(ctx)
}

// RestartSimple fires shutdown and relaunch without waiting on process
// state, for environments where process inspection is unreliable.
func (c *Controller) RestartSimple(ctx context.Context) error {
	if err := c.requestShutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown request failed, launching anyway")
	}
	c.clock.Sleep(10 * time.Second)
	return c.Launch(ctx)
}

// Shutdown stops Steam, first politely, then with pkill, then
// pkill -9, waiting for steamwebhelper to disappear between stages.
func (c *Controller) Shutdown(ctx context.Context) error {
	running, err := c.procs.IsRunning(ctx, webhelperProcess)
	if err == nil && !running {
		return nil
	}

	if err := c.requestShutdown(ctx); err != nil {
		log.Debug().Err(err).Msg("graceful shutdown request failed")
	}
	if c.waitStopped(ctx, shutdownTimeout) {
		return nil
	}

	log.Warn().Msg("Steam did not exit gracefully, escalating to pkill")
	c.killSteam(ctx, false)
	if c.waitStopped(ctx, 30*time.Second) {
		return nil
	}

	log.Warn().Msg("escalating to pkill -9")
	c.killSteam(ctx, true)
	if c.waitStopped(ctx, 30*time.Second) {
		return nil
	}
	return fmt.Errorf("%w: processes still running after pkill -9", ErrRestartTimeout)
}

// steamProcesses are the exact names the escalation kills. pkill -x
// matches the process name exactly; a substring or full-command-line
// match would also hit this binary and anything else merely mentioning
// steam in its arguments.
var steamProcesses = []string{"steam", "steamwebhelper"}

func (c *Controller) killSteam(ctx context.Context, force bool) {
	for _, name := range steamProcesses {
		args := []string{"-x", name}
		if force {
			args = append([]string{"-9"}, args...)
		}
		_ = c.cmd.Run(ctx, "pkill", args...)
	}
}

func (c *Controller) requestShutdown(ctx context.Context) error {
	switch c.flavor {
	case FlavorFlatpak:
		//nolint:wrapcheck // caller logs and escalates
		return c.cmd.Run(ctx, "flatpak", "kill", steamFlatpakID)
	case FlavorSteamDeck:
		//nolint:wrapcheck // caller logs and escalates
		return c.cmd.Run(ctx, "systemctl", "--user", "stop",
			"app-steam@autostart.service")
	case FlavorNative:
		fallthrough
	default:
		//nolint:wrapcheck // caller logs and escalates
		return c.cmd.Run(ctx, "steam", "-shutdown")
	}
}

// Launch starts the Steam client detached so it survives this process.
func (c *Controller) Launch(ctx context.Context) error {
	opts := command.StartOptions{
		Env:           CleanEnv(os.Environ()),
		NewSession:    true,
		DiscardOutput: true,
	}
	var err error
	switch c.flavor {
	case FlavorFlatpak:
		err = c.cmd.StartWithOptions(ctx, opts, "flatpak", "run", steamFlatpakID)
	case FlavorSteamDeck:
		err = c.cmd.Run(ctx, "systemctl", "--user", "start",
			"app-steam@autostart.service")
	case FlavorNative:
		fallthrough
	default:
		err = c.cmd.StartWithOptions(ctx, opts, "steam", "-foreground")
	}
	if err != nil {
		return fmt.Errorf("failed to launch Steam: %w", err)
	}
	return nil
}

// waitStopped polls until steamwebhelper is gone, or the timeout.
func (c *Controller) waitStopped(ctx context.Context, timeout time.Duration) bool {
	deadline := c.clock.Now().Add(timeout)
	for c.clock.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		running, err := c.procs.IsRunning(ctx, webhelperProcess)
		if err == nil && !running {
			return true
		}
		c.clock.Sleep(pollInterval)
	}
	return false
}

// waitRunning polls until the client is back, or ErrRestartTimeout.
func (c *Controller) waitRunning(ctx context.Context) error {
	deadline := c.clock.Now().Add(startupTimeout)
	for c.clock.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("restart wait cancelled: %w", err)
		}
		running, err := c.procs.IsRunning(ctx, webhelperProcess)
		if err == nil && running {
			log.Info().Msg("Steam is back up")
			return nil
		}
		c.clock.Sleep(pollInterval)
	}
	return fmt.Errorf("%w: client not seen within %s", ErrRestartTimeout, startupTimeout)
}
