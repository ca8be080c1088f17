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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jackify-dev/jackify-steam/pkg/config"
	"github.com/jackify-dev/jackify-steam/pkg/helpers/command"
	"github.com/jackify-dev/jackify-steam/pkg/steam/compat"
	"github.com/jackify-dev/jackify-steam/pkg/steam/compatmap"
	"github.com/jackify-dev/jackify-steam/pkg/steam/library"
	"github.com/jackify-dev/jackify-steam/pkg/steam/prefix"
	"github.com/jackify-dev/jackify-steam/pkg/steam/restart"
	"github.com/jackify-dev/jackify-steam/pkg/steam/shortcuts"
	"github.com/jackify-dev/jackify-steam/pkg/steam/users"
	"github.com/jackify-dev/jackify-steam/pkg/utils"
	"github.com/jackify-dev/jackify-steam/pkg/workflow"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// appVersion is set at build time via -ldflags.
var appVersion = "dev"

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

//nolint:funlen // flag wiring is linear and clearer unsplit
func run() error {
	doConfigure := flag.Bool(
		"configure",
		false,
		"add a Steam shortcut and configure Proton for a modlist",
	)
	name := flag.String(
		"name",
		"",
		"display name of the shortcut",
	)
	exe := flag.String(
		"exe",
		"",
		"path to the executable the shortcut launches",
	)
	installDir := flag.String(
		"install-dir",
		"",
		"modlist install directory (defaults to the exe's directory)",
	)
	proton := flag.String(
		"proton",
		"",
		"force a specific Proton build (name or Steam config name)",
	)
	components := flag.String(
		"components",
		"",
		"comma-separated prefix components to install instead of the defaults",
	)
	noRestart := flag.Bool(
		"no-restart",
		false,
		"skip the Steam restart after configuring",
	)
	waitPrefix := flag.Bool(
		"wait-prefix",
		false,
		"block until the Proton prefix exists before installing components",
	)
	listShortcuts := flag.Bool(
		"list-shortcuts",
		false,
		"print the active user's non-Steam shortcuts",
	)
	listProton := flag.Bool(
		"list-proton",
		false,
		"print installed Proton builds in selection order",
	)
	restartSteam := flag.Bool(
		"restart-steam",
		false,
		"restart the Steam client and exit",
	)
	showVersion := flag.Bool(
		"version",
		false,
		"print version and exit",
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("jackify-steam", appVersion)
		return nil
	}

	cfg, err := config.NewConfig(config.ConfigDir(), config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var console []io.Writer
	if cfg.DebugLogging() {
		console = append(console, zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if err := utils.InitLogging(config.LogDir(), console); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := afero.NewOsFs()
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to find home directory: %w", err)
	}
	locator := library.NewLocator(fs, home)

	switch {
	case *listShortcuts:
		return printShortcuts(fs, locator, cfg)
	case *listProton:
		return printProton(fs, locator)
	case *restartSteam:
		return newRestarter(ctx, fs).Restart(ctx)
	case *doConfigure:
		return configure(ctx, fs, locator, cfg, request(
			*name, *exe, *installDir, *proton, *components, !*noRestart, *waitPrefix))
	default:
		flag.Usage()
		return errors.New("no action given")
	}
}

func request(
	name, exe, installDir, proton, components string,
	restartSteam, waitPrefix bool,
) workflow.ConfigureRequest {
	req := workflow.ConfigureRequest{
		Name:          name,
		Exe:           exe,
		InstallDir:    installDir,
		ToolOverride:  proton,
		RestartSteam:  restartSteam,
		WaitForPrefix: waitPrefix,
	}
	if components != "" {
		for _, c := range strings.Split(components, ",") {
			if c = strings.TrimSpace(c); c != "" {
				req.Components = append(req.Components, c)
			}
		}
	}
	return req
}

func newRestarter(ctx context.Context, fs afero.Fs) *restart.Controller {
	cmd := &command.RealExecutor{}
	return restart.NewController(cmd, restart.GopsutilLister{},
		clockwork.NewRealClock(), restart.DetectFlavor(ctx, fs, cmd))
}

func configure(
	ctx context.Context,
	fs afero.Fs,
	locator *library.Locator,
	cfg *config.Instance,
	req workflow.ConfigureRequest,
) error {
	root, err := locator.Root()
	if err != nil {
		return err
	}

	state, err := prefix.OpenStateStore(
		filepath.Join(config.DataDir(), "components.db"))
	if err != nil {
		return err
	}
	defer func() {
		if err := state.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close state store")
		}
	}()

	clock := clockwork.NewRealClock()
	cmd := &command.RealExecutor{}
	engine := workflow.NewEngine(
		fs,
		cfg,
		locator,
		shortcuts.NewManager(fs, clock, cfg.RandomAppIDs()),
		compatmap.NewEditor(fs, clock),
		prefix.NewConfigurator(fs, cmd, clock, state, root,
			filepath.Join(config.DataDir(), "winetricks")),
		newRestarter(ctx, fs),
	)

	res, err := engine.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("Shortcut %q configured (AppID %s, tool %s)\n",
		req.Name, res.AppID, res.Tool.Name)
	for _, warning := range res.Warnings {
		fmt.Println("Warning:", warning)
	}
	return nil
}

func printShortcuts(fs afero.Fs, locator *library.Locator, cfg *config.Instance) error {
	root, err := locator.Root()
	if err != nil {
		return err
	}
	user, err := users.Resolve(fs, root)
	if err != nil {
		return err
	}

	mgr := shortcuts.NewManager(fs, clockwork.NewRealClock(), cfg.RandomAppIDs())
	list, err := mgr.List(shortcuts.Path(user.ConfigDir(root)))
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No non-Steam shortcuts for", user.Name)
		return nil
	}
	for _, sc := range list {
		fmt.Printf("%d\t%s\t%s\n", sc.AppID, sc.AppName, sc.Exe)
	}
	return nil
}

func printProton(fs afero.Fs, locator *library.Locator) error {
	root, err := locator.Root()
	if err != nil {
		return err
	}
	tools, err := compat.Scan(fs, locator.CompatToolDirs(root))
	if err != nil {
		return err
	}
	if len(tools) == 0 {
		return compat.ErrNoCompatibleTool
	}
	for _, tool := range tools {
		fmt.Printf("%s\t(%s)\t%s\n", tool.Name, tool.SteamName(), tool.Path)
	}
	return nil
}
