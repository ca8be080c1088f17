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

// Package compat discovers installed Proton builds and selects one for
// a game. GE-Proton is preferred over Valve's builds; Proton versions
// before 9 are never selected and there is no Wine fallback.
package compat

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrNoCompatibleTool indicates no usable Proton build was found. The
// engine never falls back to plain Wine.
var ErrNoCompatibleTool = errors.New("no compatible Proton tool found")

// Kind distinguishes community GE builds from Valve's own.
type Kind int

const (
	KindGE Kind = iota
	KindValve
)

// Tool is an installed compatibility tool.
type Tool struct {
	Name  string
	Path  string
	Kind  Kind
	Major int
	Minor int
}

var (
	geRe    = regexp.MustCompile(`^GE-Proton(\d+)-(\d+)$`)
	valveRe = regexp.MustCompile(`^Proton (\d+)\.(\d+)`)
)

const experimentalName = "Proton - Experimental"

// parseTool identifies a directory name as a known tool.
func parseTool(name, path string) (Tool, bool) {
	if m := geRe.FindStringSubmatch(name); m != nil {
		major, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		return Tool{Name: name, Path: path, Kind: KindGE, Major: major, Minor: minor}, true
	}
	if name == experimentalName {
		return Tool{Name: name, Path: path, Kind: KindValve}, true
	}
	if m := valveRe.FindStringSubmatch(name); m != nil {
		major, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		return Tool{Name: name, Path: path, Kind: KindValve, Major: major, Minor: minor}, true
	}
	return Tool{}, false
}

// Priority orders tools for automatic selection. Higher wins. Zero
// means the tool is never auto-selected (Proton before 9).
func (t Tool) Priority() int {
	if t.Kind == KindGE {
		return 200 + t.Major*100 + t.Minor
	}
	if t.Name == experimentalName {
		return 150
	}
	if t.Major >= 9 {
		// Numbered Valve builds always rank below Experimental.
		return 100 + t.Major
	}
	return 0
}

// SteamName converts a tool to the name Steam uses in config.vdf's
// CompatToolMapping: GE builds verbatim, Valve builds lowercased with
// underscores and the minor version dropped.
func (t Tool) SteamName() string {
	if t.Kind == KindGE {
		return t.Name
	}
	if t.Name == experimentalName {
		return "proton_experimental"
	}
	return "proton_" + strconv.Itoa(t.Major)
}

// matches reports whether a user-supplied name refers to this tool,
// accepting either the directory name or the Steam config name.
func (t Tool) matches(name string) bool {
	return strings.EqualFold(name, t.Name) || strings.EqualFold(name, t.SteamName())
}

// WineBinary returns the wine executable bundled with the tool, used
// for registry edits inside a prefix.
func (t Tool) WineBinary() string {
	return filepath.Join(t.Path, "files", "bin", "wine")
}

// ProtonBinary returns the tool's proton launcher script.
func (t Tool) ProtonBinary() string {
	return filepath.Join(t.Path, "proton")
}

// Scan enumerates installed tools across the given directories
// (compatibilitytools.d dirs plus steamapps/common). The first
// occurrence of a name wins, so custom tool dirs shadow Valve's.
// Output is sorted by priority descending, then name, so results are
// deterministic regardless of readdir order.
func Scan(fs afero.Fs, dirs []string) ([]Tool, error) {
	seen := make(map[string]bool)
	var tools []Tool

	for _, dir := range dirs {
		entries, err := afero.ReadDir(fs, dir)
		if err != nil {
			// Not all candidate dirs exist on every layout.
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			tool, ok := parseTool(entry.Name(), filepath.Join(dir, entry.Name()))
			if !ok || seen[tool.Name] {
				continue
			}
			seen[tool.Name] = true
			tools = append(tools, tool)
		}
	}

	sortByPriority(tools)

	log.Debug().Int("count", len(tools)).Msg("scanned compatibility tools")
	return tools, nil
}

// sortByPriority orders tools by priority descending, then name.
func sortByPriority(tools []Tool) {
	sort.Slice(tools, func(i, j int) bool {
		if tools[i].Priority() != tools[j].Priority() {
			return tools[i].Priority() > tools[j].Priority()
		}
		return tools[i].Name < tools[j].Name
	})
}

// Select picks a tool for a game. Precedence: explicit override, then
// the game policy pin, then the user's configured default, then the
// priority chain. An override naming a missing tool is an error; a
// missing pin or default falls through with a warning.
//
// "auto" (or empty) for override/userDefault means no preference.
// Candidates are re-sorted internally, so the outcome is the same for
// any input order.
func Select(tools []Tool, override, userDefault string, policy *GamePolicy) (Tool, error) {
	sorted := make([]Tool, len(tools))
	copy(sorted, tools)
	sortByPriority(sorted)

	if isExplicit(override) {
		for _, t := range sorted {
			if t.matches(override) {
				return t, nil
			}
		}
		return Tool{}, fmt.Errorf("%w: requested tool %q is not installed",
			ErrNoCompatibleTool, override)
	}

	if policy != nil && policy.Pin != "" {
		if t, ok := findByName(sorted, policy.Pin); ok {
			return t, nil
		}
		log.Warn().Str("pin", policy.Pin).Msg("pinned tool not installed, using default chain")
	}

	if isExplicit(userDefault) {
		if t, ok := findByName(sorted, userDefault); ok {
			return t, nil
		}
		log.Warn().Str("tool", userDefault).Msg("configured tool not installed, using default chain")
	}

	for _, t := range sorted {
		if t.Priority() > 0 {
			return t, nil
		}
	}
	return Tool{}, ErrNoCompatibleTool
}

func isExplicit(name string) bool {
	return name != "" && !strings.EqualFold(name, "auto")
}

// findByName returns the highest-priority tool matching name. tools
// must already be priority-sorted.
func findByName(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t.matches(name) {
			return t, true
		}
	}
	return Tool{}, false
}
