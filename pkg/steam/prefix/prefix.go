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

// Package prefix installs Windows components into Proton prefixes via
// protontricks and verifies the results on disk. Component installs
// touch the prefix registry hives, so everything runs serially per
// prefix.
package prefix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackify-dev/jackify-steam/pkg/helpers/command"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrComponentInstall marks a single component failure. It is recorded
// in the report and never aborts the remaining components.
var ErrComponentInstall = errors.New("component install failed")

// protontricksFlatpakID is the Flathub ID of protontricks.
const protontricksFlatpakID = "com.github.Matoking.protontricks"

// Status of one component after EnsureComponents.
type Status int

const (
	StatusAlreadyPresent Status = iota
	StatusInstalled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusAlreadyPresent:
		return "already-present"
	case StatusInstalled:
		return "installed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ComponentResult is the outcome for a single component.
type ComponentResult struct {
	Err       error
	Component string
	Status    Status
}

// Report aggregates the outcomes of one EnsureComponents run.
type Report struct {
	Results []ComponentResult
}

// Failed returns the components that could not be installed.
func (r Report) Failed() []ComponentResult {
	var failed []ComponentResult
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

// PartialSuccess reports whether some components succeeded and some
// failed.
func (r Report) PartialSuccess() bool {
	failed := len(r.Failed())
	return failed > 0 && failed < len(r.Results)
}

// AllOK reports whether every component is installed or already there.
func (r Report) AllOK() bool {
	return len(r.Failed()) == 0
}

// Configurator installs components into Proton prefixes.
type Configurator struct {
	fs             afero.Fs
	cmd            command.Executor
	clock          clockwork.Clock
	state          *StateStore
	steamRoot      string
	winetricksPath string
}

// NewConfigurator builds a Configurator. winetricksPath points at the
// bundled winetricks script used as a dotnet40 fallback; empty disables
// the fallback. state may be nil to skip install memoization.
func NewConfigurator(
	fs afero.Fs,
	cmd command.Executor,
	clock clockwork.Clock,
	state *StateStore,
	steamRoot string,
	winetricksPath string,
) *Configurator {
	return &Configurator{
		fs:             fs,
		cmd:            cmd,
		clock:          clock,
		state:          state,
		steamRoot:      steamRoot,
		winetricksPath: winetricksPath,
	}
}

// protontricksInvoker abstracts native vs flatpak protontricks.
type protontricksInvoker struct {
	flatpak bool
}

func (p protontricksInvoker) args(appID uint32, component string) (string, []string) {
	id := strconv.FormatUint(uint64(appID), 10)
	if p.flatpak {
		return "flatpak", []string{"run", "--filesystem=home",
			protontricksFlatpakID, id, "-q", component}
	}
	return "protontricks", []string{id, "-q", component}
}

// detectProtontricks finds a working protontricks, preferring the
// native install over the Flatpak.
func (c *Configurator) detectProtontricks(ctx context.Context) (protontricksInvoker, error) {
	if _, err := c.cmd.Output(ctx, "protontricks", "--version"); err == nil {
		return protontricksInvoker{flatpak: false}, nil
	}
	if _, err := c.cmd.Output(ctx, "flatpak", "info", protontricksFlatpakID); err == nil {
		return protontricksInvoker{flatpak: true}, nil
	}
	return protontricksInvoker{}, fmt.Errorf("%w: protontricks not found (native or flatpak)",
		ErrComponentInstall)
}

// installEnv builds the environment for component installs: the current
// environment minus launcher pollution, plus the Steam compat paths
// protontricks needs to find the prefix.
func (c *Configurator) installEnv(compatDataDir string) []string {
	env := cleanedEnviron(os.Environ())
	env = append(env,
		"STEAM_COMPAT_DATA_PATH="+compatDataDir,
		"STEAM_COMPAT_CLIENT_INSTALL_PATH="+c.steamRoot,
	)
	return env
}

// cleanedEnviron strips variables that leak out of AppImage bundles and
// break subprocesses, keeping the session vars GUI tools need.
func cleanedEnviron(environ []string) []string {
	dropped := map[string]bool{
		"APPDIR":          true,
		"APPIMAGE":        true,
		"ARGV0":           true,
		"LD_LIBRARY_PATH": true,
		"LD_PRELOAD":      true,
		"PYTHONPATH":      true,
		"PYTHONHOME":      true,
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

// EnsureComponents installs the given components into the prefix at
// compatDataDir for appID, serially and in order. Already-verified
// components are skipped. A failing component is recorded and the rest
// still run; inspect the Report for partial success. The returned
// error is only for total preconditions (no protontricks at all).
func (c *Configurator) EnsureComponents(
	ctx context.Context,
	appID uint32,
	compatDataDir string,
	components []string,
) (Report, error) {
	report := Report{Results: make([]ComponentResult, 0, len(components))}
	if len(components) == 0 {
		return report, nil
	}

	invoker, err := c.detectProtontricks(ctx)
	if err != nil {
		return report, err
	}

	env := c.installEnv(compatDataDir)

	for _, component := range components {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("component install cancelled: %w", err)
		}

		if c.isVerified(appID, compatDataDir, component) {
			log.Debug().Str("component", component).Msg("component already present")
			report.Results = append(report.Results, ComponentResult{
				Component: component, Status: StatusAlreadyPresent,
			})
			continue
		}

		err := c.installComponent(ctx, invoker, env, appID, compatDataDir, component)
		if err == nil && !c.probe(compatDataDir, component) {
			// Exit status lies often enough that the prefix itself is
			// the source of truth.
			err = fmt.Errorf("%w: %s reported success but verification probe failed",
				ErrComponentInstall, component)
		}
		if err != nil {
			log.Warn().Err(err).Str("component", component).Msg("component install failed")
			report.Results = append(report.Results, ComponentResult{
				Component: component, Status: StatusFailed,
				Err: fmt.Errorf("%w: %s: %w", ErrComponentInstall, component, err),
			})
			continue
		}

		c.markVerified(appID, component)
		log.Info().Str("component", component).Msg("component installed")
		report.Results = append(report.Results, ComponentResult{
			Component: component, Status: StatusInstalled,
		})
	}

	return report, nil
}

func (c *Configurator) installComponent(
	ctx context.Context,
	invoker protontricksInvoker,
	env []string,
	appID uint32,
	compatDataDir, component string,
) error {
	name, args := invoker.args(appID, component)
	out, err := c.cmd.CombinedOutput(ctx, env, name, args...)
	if err == nil {
		return nil
	}
	log.Debug().Err(err).Str("output", tail(out)).
		Str("component", component).Msg("protontricks failed")

	// dotnet40 regularly trips protontricks' arch checks; the bundled
	// winetricks handles it.
	if component == "dotnet40" && c.winetricksPath != "" {
		wtEnv := make([]string, 0, len(env)+1)
		wtEnv = append(wtEnv, env...)
		wtEnv = append(wtEnv, "WINEPREFIX="+filepath.Join(compatDataDir, "pfx"))
		out, wtErr := c.cmd.CombinedOutput(ctx, wtEnv, c.winetricksPath, "-q", "dotnet40")
		if wtErr == nil {
			return nil
		}
		log.Debug().Err(wtErr).Str("output", tail(out)).Msg("winetricks fallback failed")
		return fmt.Errorf("protontricks: %w; winetricks fallback: %w", err, wtErr)
	}
	return fmt.Errorf("protontricks: %w", err)
}

// isVerified consults the state db, then confirms against the prefix.
// State entries for a rebuilt prefix are ignored.
func (c *Configurator) isVerified(appID uint32, compatDataDir, component string) bool {
	if c.state == nil {
		return false
	}
	ok, err := c.state.IsVerified(appID, component)
	if err != nil || !ok {
		return false
	}
	return c.probe(compatDataDir, component)
}

func (c *Configurator) markVerified(appID uint32, component string) {
	if c.state == nil {
		return
	}
	if err := c.state.MarkVerified(appID, component, c.clock.Now()); err != nil {
		log.Warn().Err(err).Msg("failed to record component state")
	}
}

// probeVerbs maps exact component names to a file or directory whose
// presence inside pfx/ proves the install took. Modern .NET lands under
// Program Files; only .NET Framework creates the windows/Microsoft.NET
// tree, so the two must not share a probe.
var probeVerbs = map[string]string{
	"dotnet6": "drive_c/Program Files/dotnet",
	"dotnet7": "drive_c/Program Files/dotnet",
	"dotnet8": "drive_c/Program Files/dotnet",
	"dotnet9": "drive_c/Program Files/dotnet",
}

// probeFamilies is the fallback by component name prefix. Components
// matching neither map are trusted on exit status.
var probeFamilies = map[string]string{
	"dotnet":      "drive_c/windows/Microsoft.NET/Framework",
	"vcrun":       "drive_c/windows/system32/msvcp140.dll",
	"d3dcompiler": "drive_c/windows/system32/d3dcompiler_47.dll",
	"xact":        "drive_c/windows/system32/xactengine3_7.dll",
}

func (c *Configurator) probe(compatDataDir, component string) bool {
	rel, found := probeVerbs[component]
	if !found {
		for family, path := range probeFamilies {
			if strings.HasPrefix(component, family) {
				rel, found = path, true
				break
			}
		}
	}
	if !found {
		return true
	}
	ok, err := afero.Exists(c.fs, filepath.Join(compatDataDir, "pfx", rel))
	return err == nil && ok
}

// tail keeps error logs readable when a tool dumps pages of output.
func tail(out []byte) string {
	const max = 400
	s := strings.TrimSpace(string(out))
	if len(s) > max {
		return "..." + s[len(s)-max:]
	}
	return s
}
