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

package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jackify-dev/jackify-steam/pkg/config"
	"github.com/jackify-dev/jackify-steam/pkg/steam/library"
	"github.com/jackify-dev/jackify-steam/pkg/steam/prefix"
	"github.com/jackify-dev/jackify-steam/pkg/steam/shortcuts"
	"github.com/jackify-dev/jackify-steam/pkg/steam/users"
	"github.com/jackify-dev/jackify-steam/pkg/workflow"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	home = "/home/deck"
	root = home + "/.steam/steam"
)

var testAppID = shortcuts.AppID(0x80000001)

type fakeUpserter struct {
	err   error
	path  string
	entry shortcuts.Entry
	id    shortcuts.AppID
	calls int
}

func (f *fakeUpserter) Upsert(path string, entry shortcuts.Entry) (shortcuts.AppID, error) {
	f.calls++
	f.path = path
	f.entry = entry
	if f.err != nil {
		return 0, f.err
	}
	return f.id, nil
}

type fakeMapper struct {
	err        error
	configPath string
	toolName   string
	appID      uint32
	calls      int
}

func (f *fakeMapper) Set(configPath string, appID uint32, toolName string) error {
	f.calls++
	f.configPath = configPath
	f.appID = appID
	f.toolName = toolName
	return f.err
}

type fakeInstaller struct {
	ensureErr  error
	regErr     error
	waitErr    error
	onWait     func()
	report     prefix.Report
	components []string
	regEntries []prefix.RegistryEntry
	wineBinary string
	ensures    int
	injects    int
	waits      int
}

func (f *fakeInstaller) EnsureComponents(
	_ context.Context, _ uint32, _ string, components []string,
) (prefix.Report, error) {
	f.ensures++
	f.components = components
	return f.report, f.ensureErr
}

func (f *fakeInstaller) InjectRegistry(
	_ context.Context, wineBinary, _ string, entries []prefix.RegistryEntry,
) error {
	f.injects++
	f.wineBinary = wineBinary
	f.regEntries = entries
	return f.regErr
}

func (f *fakeInstaller) WaitForPrefix(_ context.Context, _ string, _ time.Duration) error {
	f.waits++
	if f.onWait != nil {
		f.onWait()
	}
	return f.waitErr
}

type fakeRestarter struct {
	err     error
	fulls   int
	simples int
}

func (f *fakeRestarter) Restart(context.Context) error {
	f.fulls++
	return f.err
}

func (f *fakeRestarter) RestartSimple(context.Context) error {
	f.simples++
	return f.err
}

type deps struct {
	fs        afero.Fs
	cfg       *config.Instance
	upserter  *fakeUpserter
	mapper    *fakeMapper
	installer *fakeInstaller
	restarter *fakeRestarter
}

func steamFixture(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(root+"/steamapps", 0o755))

	id := users.FromID3(1001)
	loginusers := "\"users\"\n{\n\t\"" + id.String() + "\"\n\t{\n" +
		"\t\t\"AccountName\"\t\t\"deckuser\"\n" +
		"\t\t\"MostRecent\"\t\t\"1\"\n\t}\n}\n"
	require.NoError(t, afero.WriteFile(fs,
		root+"/config/loginusers.vdf", []byte(loginusers), 0o644))
	require.NoError(t, fs.MkdirAll(root+"/userdata/1001/config", 0o755))

	require.NoError(t, fs.MkdirAll(root+"/compatibilitytools.d/GE-Proton10-12", 0o755))
	require.NoError(t, fs.MkdirAll(root+"/steamapps/common/Proton 9.0 (Beta)", 0o755))
	return fs
}

func newDeps(t *testing.T, cfgDoc string) deps {
	t.Helper()

	dir := t.TempDir()
	if cfgDoc != "" {
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, config.CfgFile), []byte(cfgDoc), 0o600))
	}
	cfg, err := config.NewConfig(dir, config.BaseDefaults)
	require.NoError(t, err)

	return deps{
		fs:        steamFixture(t),
		cfg:       cfg,
		upserter:  &fakeUpserter{id: testAppID},
		mapper:    &fakeMapper{},
		installer: &fakeInstaller{},
		restarter: &fakeRestarter{},
	}
}

func (d deps) engine() *workflow.Engine {
	return workflow.NewEngine(d.fs, d.cfg, library.NewLocator(d.fs, home),
		d.upserter, d.mapper, d.installer, d.restarter)
}

func addPrefix(t *testing.T, fs afero.Fs, id shortcuts.AppID) string {
	t.Helper()
	compatData := root + "/steamapps/compatdata/" +
		strconv.FormatUint(uint64(id.Unsigned()), 10)
	require.NoError(t, fs.MkdirAll(compatData+"/pfx", 0o755))
	return compatData
}

func TestRunHappyPathWithoutPrefix(t *testing.T) {
	d := newDeps(t, "")

	res, err := d.engine().Run(t.Context(), workflow.ConfigureRequest{
		Name:         "Tempus Maledictum",
		Exe:          home + "/lists/tempus/ModOrganizer.exe",
		RestartSteam: true,
	})
	require.NoError(t, err)

	assert.Equal(t, testAppID, res.AppID)
	assert.Equal(t, "deckuser", res.User.Name)
	assert.Equal(t, "GE-Proton10-12", res.Tool.Name)
	assert.NotEmpty(t, res.RunID)

	assert.Equal(t, root+"/userdata/1001/config/shortcuts.vdf", d.upserter.path)
	assert.Equal(t, home+"/lists/tempus", d.upserter.entry.StartDir)
	assert.Equal(t, []string{"Jackify"}, d.upserter.entry.Tags)

	assert.Equal(t, root+"/config/config.vdf", d.mapper.configPath)
	assert.Equal(t, testAppID.Unsigned(), d.mapper.appID)
	assert.Equal(t, "GE-Proton10-12", d.mapper.toolName)

	// No prefix yet: components skipped with guidance, restart still runs.
	assert.Zero(t, d.installer.ensures)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "launch the shortcut once")
	assert.Equal(t, 1, d.restarter.fulls)
}

func TestRunConfiguresExistingPrefix(t *testing.T) {
	d := newDeps(t, "")
	addPrefix(t, d.fs, testAppID)

	res, err := d.engine().Run(t.Context(), workflow.ConfigureRequest{
		Name: "Tempus Maledictum",
		Exe:  home + "/lists/tempus/ModOrganizer.exe",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	assert.Equal(t, 1, d.installer.ensures)
	assert.Equal(t, config.BaseDefaults.Components, d.installer.components)

	// Universal dotnet fixes go to every prefix.
	assert.Equal(t, 1, d.installer.injects)
	assert.Len(t, d.installer.regEntries, 2)
	assert.Contains(t, d.installer.wineBinary, "GE-Proton10-12")

	// No restart requested.
	assert.Zero(t, d.restarter.fulls)
	assert.Zero(t, d.restarter.simples)
}

func TestRunWaitsForPrefixWhenAsked(t *testing.T) {
	d := newDeps(t, "")
	// The prefix appears while the engine is waiting, as if the user
	// launched the shortcut.
	d.installer.onWait = func() { addPrefix(t, d.fs, testAppID) }

	res, err := d.engine().Run(t.Context(), workflow.ConfigureRequest{
		Name:          "Tempus Maledictum",
		Exe:           home + "/lists/tempus/ModOrganizer.exe",
		WaitForPrefix: true,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 1, d.installer.waits)
	assert.Equal(t, 1, d.installer.ensures)
}

func TestRunWaitForPrefixTimeoutIsWarning(t *testing.T) {
	d := newDeps(t, "")
	d.installer.waitErr = prefix.ErrPrefixTimeout

	res, err := d.engine().Run(t.Context(), workflow.ConfigureRequest{
		Name:          "Tempus Maledictum",
		Exe:           home + "/lists/tempus/ModOrganizer.exe",
		WaitForPrefix: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, d.installer.waits)
	assert.Zero(t, d.installer.ensures)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "gave up waiting")
}

func TestRunDoesNotWaitWhenPrefixExists(t *testing.T) {
	d := newDeps(t, "")
	addPrefix(t, d.fs, testAppID)

	_, err := d.engine().Run(t.Context(), workflow.ConfigureRequest{
		Name:          "Tempus Maledictum",
		Exe:           home + "/lists/tempus/ModOrganizer.exe",
		WaitForPrefix: true,
	})
	require.NoError(t, err)
	assert.Zero(t, d.installer.waits)
	assert.Equal(t, 1, d.installer.ensures)
}

func TestRunPolicyPinAndRegistryInjection(t *testing.T) {
	d := newDeps(t, "")
	addPrefix(t, d.fs, testAppID)

	res, err := d.engine().Run(t.Context(), workflow.ConfigureRequest{
		Name:       "Fallout New Vegas - Begin Again",
		Exe:        home + "/lists/fnv/ModOrganizer.exe",
		InstallDir: home + "/lists/fnv",
	})
	require.NoError(t, err)

	// FNV has no pin, so the chain picks GE; but it gets the game's
	// install path injected on top of the universal fixes.
	assert.Equal(t, "GE-Proton10-12", res.Tool.Name)
	assert.Len(t, d.installer.regEntries, 3)

	// Lorerim pins the Proton 9 line.
	d2 := newDeps(t, "")
	res, err = d2.engine().Run(t.Context(), workflow.ConfigureRequest{
		Name: "Lorerim 3.1",
		Exe:  home + "/lists/lorerim/ModOrganizer.exe",
	})
	require.NoError(t, err)
	assert.Equal(t, "Proton 9.0 (Beta)", res.Tool.Name)
	assert.Equal(t, "proton_9", d2.mapper.toolName)
}

func TestRunToolOverrideBeatsPin(t *testing.T) {
	d := newDeps(t, "")

	res, err := d.engine().Run(t.Context(), workflow.ConfigureRequest{
		Name:         "Lorerim 3.1",
		Exe:          home + "/lists/lorerim/ModOrganizer.exe",
		ToolOverride: "GE-Proton10-12",
	})
	require.NoError(t, err)
	assert.Equal(t, "GE-Proton10-12", res.Tool.Name)
}

func TestRunPathCorruption(t *testing.T) {
	d := newDeps(t, "")

	_, err := d.engine().Run(t.Context(), workflow.ConfigureRequest{
		Name:       "Lorerim 3.1",
		Exe:        "/run/media/mmcblk0p1/lists/lorerim/ModOrganizer.exe",
		InstallDir: home + "/lists/lorerim",
	})
	require.ErrorIs(t, err, workflow.ErrPathCorruption)

	// Nothing was mutated.
	assert.Zero(t, d.upserter.calls)
	assert.Zero(t, d.mapper.calls)
}

func TestRunComponentFailuresAreWarnings(t *testing.T) {
	d := newDeps(t, "")
	addPrefix(t, d.fs, testAppID)
	d.installer.report = prefix.Report{Results: []prefix.ComponentResult{
		{Component: "dotnet40", Status: prefix.StatusInstalled},
		{Component: "vcrun2022", Status: prefix.StatusFailed,
			Err: errors.New("exit 1")},
	}}

	res, err := d.engine().Run(t.Context(), workflow.ConfigureRequest{
		Name: "Tempus Maledictum",
		Exe:  home + "/lists/tempus/ModOrganizer.exe",
	})
	require.NoError(t, err, "partial component failure must not fail the run")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "vcrun2022")
	assert.True(t, res.Components.PartialSuccess())
}

func TestRunRestartFailureIsWarning(t *testing.T) {
	d := newDeps(t, "")
	d.restarter.err = errors.New("timed out waiting for Steam")

	res, err := d.engine().Run(t.Context(), workflow.ConfigureRequest{
		Name:         "Tempus Maledictum",
		Exe:          home + "/lists/tempus/ModOrganizer.exe",
		RestartSteam: true,
	})
	require.NoError(t, err)

	// One warning for the missing prefix, one for the restart.
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[1], "restart Steam manually")
	// The shortcut write happened before the failed restart.
	assert.Equal(t, 1, d.upserter.calls)
}

func TestRunSimpleRestartStrategy(t *testing.T) {
	doc := "config_schema = 1\nsteam_restart_strategy = \"nak_simple\"\n"
	d := newDeps(t, doc)

	_, err := d.engine().Run(t.Context(), workflow.ConfigureRequest{
		Name:         "Tempus Maledictum",
		Exe:          home + "/lists/tempus/ModOrganizer.exe",
		RestartSteam: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, d.restarter.simples)
	assert.Zero(t, d.restarter.fulls)
}

func TestRunNoSteamInstallation(t *testing.T) {
	d := newDeps(t, "")
	d.fs = afero.NewMemMapFs() // empty system

	_, err := d.engine().Run(t.Context(), workflow.ConfigureRequest{
		Name: "Tempus Maledictum",
		Exe:  home + "/lists/tempus/ModOrganizer.exe",
	})
	require.ErrorIs(t, err, library.ErrNoSteamInstallation)
}

func TestRunValidatesRequest(t *testing.T) {
	d := newDeps(t, "")

	_, err := d.engine().Run(t.Context(), workflow.ConfigureRequest{Name: "x"})
	require.Error(t, err)
	_, err = d.engine().Run(t.Context(), workflow.ConfigureRequest{Exe: "/x/y.exe"})
	require.Error(t, err)
}

type stubInstallerReport struct {
	root string
	exe  string
}

func (s stubInstallerReport) InstallRoot() string      { return s.root }
func (s stubInstallerReport) LaunchExecutable() string { return s.exe }

func TestRequestFor(t *testing.T) {
	t.Parallel()

	req := workflow.RequestFor(stubInstallerReport{
		root: "/lists/lorerim",
		exe:  "/lists/lorerim/ModOrganizer.exe",
	}, "Lorerim")

	assert.Equal(t, "Lorerim", req.Name)
	assert.Equal(t, "/lists/lorerim/ModOrganizer.exe", req.Exe)
	assert.Equal(t, "/lists/lorerim", req.InstallDir)
}
