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

// Package workflow runs the end-to-end Steam configuration for one
// installed modlist: shortcut, compatibility tool mapping, prefix
// components and client restart. Steps are strictly sequential and
// each re-reads state from disk; nothing is cached across steps.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackify-dev/jackify-steam/pkg/config"
	"github.com/jackify-dev/jackify-steam/pkg/steam/compat"
	"github.com/jackify-dev/jackify-steam/pkg/steam/library"
	"github.com/jackify-dev/jackify-steam/pkg/steam/prefix"
	"github.com/jackify-dev/jackify-steam/pkg/steam/shortcuts"
	"github.com/jackify-dev/jackify-steam/pkg/steam/users"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrPathCorruption indicates the request mixes SD-card and fixed-drive
// path forms. Steam stores such shortcuts but they break the moment the
// card is remounted, so the engine refuses before mutating anything.
var ErrPathCorruption = errors.New("mixed SD-card and fixed-drive paths")

// ConfigureRequest describes one modlist to wire into Steam.
type ConfigureRequest struct {
	Name          string
	Exe           string
	StartDir      string // empty: derived from Exe
	InstallDir    string // empty: derived from Exe
	Icon          string
	LaunchOptions string
	ToolOverride  string   // per-shortcut Proton choice, beats everything
	Components    []string // nil: configured defaults
	RestartSteam  bool
	WaitForPrefix bool // block until Proton creates the prefix
}

// prefixWaitTimeout bounds how long a WaitForPrefix run blocks for the
// user to launch the shortcut once.
const prefixWaitTimeout = 5 * time.Minute

// ModlistInstaller is the contract the installer side of Jackify
// fulfils. The workflow consumes its output, it never installs.
type ModlistInstaller interface {
	// InstallRoot is the directory the modlist landed in.
	InstallRoot() string
	// LaunchExecutable is the path of the exe Steam should launch.
	LaunchExecutable() string
}

// RequestFor builds a ConfigureRequest from an installer's results.
func RequestFor(installer ModlistInstaller, name string) ConfigureRequest {
	return ConfigureRequest{
		Name:       name,
		Exe:        installer.LaunchExecutable(),
		InstallDir: installer.InstallRoot(),
	}
}

// Result reports what a Run did.
type Result struct {
	RunID      string
	User       users.User
	Tool       compat.Tool
	AppID      shortcuts.AppID
	Components prefix.Report
	Warnings   []string
}

// ShortcutUpserter writes shortcut entries.
type ShortcutUpserter interface {
	Upsert(path string, entry shortcuts.Entry) (shortcuts.AppID, error)
}

// CompatMapper maps AppIDs to tools in config.vdf.
type CompatMapper interface {
	Set(configPath string, appID uint32, toolName string) error
}

// ComponentInstaller installs prefix components and registry entries.
type ComponentInstaller interface {
	EnsureComponents(ctx context.Context, appID uint32, compatDataDir string,
		components []string) (prefix.Report, error)
	InjectRegistry(ctx context.Context, wineBinary, compatDataDir string,
		entries []prefix.RegistryEntry) error
	WaitForPrefix(ctx context.Context, compatDataDir string,
		timeout time.Duration) error
}

// SteamRestarter restarts the Steam client.
type SteamRestarter interface {
	Restart(ctx context.Context) error
	RestartSimple(ctx context.Context) error
}

// Engine wires the steps together.
type Engine struct {
	fs        afero.Fs
	cfg       *config.Instance
	locator   *library.Locator
	shortcuts ShortcutUpserter
	compatmap CompatMapper
	prefixes  ComponentInstaller
	restarter SteamRestarter
}

func NewEngine(
	fs afero.Fs,
	cfg *config.Instance,
	locator *library.Locator,
	upserter ShortcutUpserter,
	mapper CompatMapper,
	installer ComponentInstaller,
	restarter SteamRestarter,
) *Engine {
	return &Engine{
		fs:        fs,
		cfg:       cfg,
		locator:   locator,
		shortcuts: upserter,
		compatmap: mapper,
		prefixes:  installer,
		restarter: restarter,
	}
}

// Run executes the full configuration. Shortcut and mapping failures
// abort; component and restart failures degrade to warnings because
// the shortcut mutation already on disk remains valid and the user can
// finish those steps manually.
//
//nolint:gocognit,funlen // sequential pipeline reads best in one place
func (e *Engine) Run(ctx context.Context, req ConfigureRequest) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	logger := log.With().Str("run", res.RunID).Str("name", req.Name).Logger()

	if req.Name == "" || req.Exe == "" {
		return res, errors.New("configure request needs a name and an exe")
	}
	if req.StartDir == "" {
		req.StartDir = filepath.Dir(req.Exe)
	}
	if req.InstallDir == "" {
		req.InstallDir = filepath.Dir(req.Exe)
	}

	if library.IsSDCardPath(req.Exe) != library.IsSDCardPath(req.InstallDir) {
		return res, fmt.Errorf("%w: exe %s vs install dir %s",
			ErrPathCorruption, req.Exe, req.InstallDir)
	}

	// Locate the installation and the active user.
	root, err := e.locator.Root()
	if err != nil {
		return res, err
	}
	user, err := users.Resolve(e.fs, root)
	if err != nil {
		return res, err
	}
	res.User = user
	logger.Info().Str("root", root).Str("user", user.Name).Msg("configuring Steam")

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("cancelled: %w", err)
	}

	// Pick a compatibility tool.
	tools, err := compat.Scan(e.fs, e.locator.CompatToolDirs(root))
	if err != nil {
		return res, err
	}
	var policyPtr *compat.GamePolicy
	policy, hasPolicy := compat.PolicyFor(req.Name)
	if hasPolicy {
		policyPtr = &policy
	}
	tool, err := compat.Select(tools, req.ToolOverride, e.cfg.GameProton(), policyPtr)
	if err != nil {
		return res, err
	}
	res.Tool = tool
	logger.Info().Str("tool", tool.Name).Msg("selected compatibility tool")

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("cancelled: %w", err)
	}

	// Write the shortcut.
	appID, err := e.shortcuts.Upsert(shortcuts.Path(user.ConfigDir(root)), shortcuts.Entry{
		Name:          req.Name,
		Exe:           req.Exe,
		StartDir:      req.StartDir,
		Icon:          req.Icon,
		LaunchOptions: req.LaunchOptions,
		Tags:          []string{"Jackify"},
	})
	if err != nil {
		return res, err
	}
	res.AppID = appID

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("cancelled: %w", err)
	}

	// Map the tool in config.vdf.
	configVdf := filepath.Join(root, "config", "config.vdf")
	if err := e.compatmap.Set(configVdf, appID.Unsigned(), tool.SteamName()); err != nil {
		return res, err
	}

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("cancelled: %w", err)
	}

	// Prefix components. The prefix only exists after the shortcut has
	// been launched once, so a missing one is a warning, not an error —
	// unless the caller asked to block for it.
	compatData := library.CompatDataPath(root, appID.Unsigned())
	prefixExists, _ := afero.DirExists(e.fs, filepath.Join(compatData, "pfx"))
	if !prefixExists && req.WaitForPrefix {
		logger.Info().Str("compatdata", compatData).
			Msg("waiting for the shortcut's first launch to create the prefix")
		if waitErr := e.prefixes.WaitForPrefix(ctx, compatData, prefixWaitTimeout); waitErr == nil {
			prefixExists = true
		} else {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"gave up waiting for prefix %s (%v); re-run to install components",
				compatData, waitErr))
		}
	}
	switch {
	case prefixExists:
		res.Components, res.Warnings = e.configurePrefix(
			ctx, req, appID, compatData, tool, policyPtr, res.Warnings)
	case !req.WaitForPrefix:
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"Proton prefix %s does not exist yet; launch the shortcut once, then re-run to install components",
			compatData))
	}

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("cancelled: %w", err)
	}

	// Restart so Steam picks the new files up.
	if req.RestartSteam {
		var restartErr error
		if e.cfg.SteamRestartStrategy() == config.RestartStrategySimple {
			restartErr = e.restarter.RestartSimple(ctx)
		} else {
			restartErr = e.restarter.Restart(ctx)
		}
		if restartErr != nil {
			logger.Warn().Err(restartErr).Msg("Steam restart failed")
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"Steam restart failed (%v); restart Steam manually to load the new shortcut",
				restartErr))
		}
	}

	logger.Info().Str("appid", appID.String()).Msg("configuration complete")
	return res, nil
}

func (e *Engine) configurePrefix(
	ctx context.Context,
	req ConfigureRequest,
	appID shortcuts.AppID,
	compatData string,
	tool compat.Tool,
	policy *compat.GamePolicy,
	warnings []string,
) (prefix.Report, []string) {
	components := req.Components
	if components == nil {
		components = e.cfg.Components()
		if ov, ok := e.cfg.GameOverride(slug(req.Name)); ok && ov.Components != nil {
			components = ov.Components
		}
	}

	report, err := e.prefixes.EnsureComponents(ctx, appID.Unsigned(), compatData, components)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf(
			"component install unavailable (%v); install components manually via protontricks", err))
	}
	for _, failed := range report.Failed() {
		warnings = append(warnings, fmt.Sprintf(
			"component %s failed (%v); re-run or install it manually",
			failed.Component, failed.Err))
	}

	entries := prefix.UniversalDotnetFixes()
	if policy != nil && policy.RegistryInjection {
		entries = append(entries, prefix.GamePathEntries(policy.GameAppID, req.InstallDir)...)
	}
	if err := e.prefixes.InjectRegistry(ctx, tool.WineBinary(), compatData, entries); err != nil {
		warnings = append(warnings, fmt.Sprintf(
			"registry injection failed (%v); game launchers may not find their install path", err))
	}

	return report, warnings
}

// slug normalizes a modlist name to its [games] config table key.
func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
