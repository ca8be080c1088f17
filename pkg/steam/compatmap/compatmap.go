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

// Package compatmap edits the CompatToolMapping block of Steam's
// config.vdf. Edits are splices: only the bytes of the affected entry
// change, everything else in the file stays verbatim. Steam is fussy
// about this file and a reformat can reset unrelated settings.
package compatmap

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackify-dev/jackify-steam/internal/vdftext"
	"github.com/jackify-dev/jackify-steam/pkg/utils"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// mappingPriority is the priority value Steam writes for user-chosen
// tools.
const mappingPriority = "250"

// Editor splice-edits a Steam config.vdf.
type Editor struct {
	fs    afero.Fs
	clock clockwork.Clock
}

func NewEditor(fs afero.Fs, clock clockwork.Clock) *Editor {
	return &Editor{fs: fs, clock: clock}
}

// Set maps appID to toolName in CompatToolMapping, replacing any
// existing entry for that ID. The block is created under "Steam" if the
// file has none. A timestamped backup is written first.
func (e *Editor) Set(configPath string, appID uint32, toolName string) error {
	data, err := afero.ReadFile(e.fs, configPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", configPath, err)
	}
	text := string(data)

	steamOpen, steamClose, err := findSteamBlock(text)
	if err != nil {
		return err
	}

	id := strconv.FormatUint(uint64(appID), 10)

	ctOpen, ctClose, err := vdftext.FindBlock(text, "CompatToolMapping", steamOpen)
	if err != nil || ctOpen > steamClose {
		// No mapping block yet: create one at the top of "Steam".
		indent := lineIndent(text, steamOpen) + "\t"
		block := indent + "\"CompatToolMapping\"\n" +
			indent + "{\n" +
			entryText(indent+"\t", id, toolName) +
			indent + "}\n"
		insertAt := steamOpen + 1
		if insertAt < len(text) && text[insertAt] == '\n' {
			insertAt++
		}
		text = text[:insertAt] + block + text[insertAt:]
		return e.write(configPath, text)
	}

	entry := entryText(lineIndent(text, ctOpen)+"\t", id, toolName)

	keyIdx := indexKeyWithin(text, id, ctOpen+1, ctClose)
	if keyIdx != -1 {
		// Replace the existing entry, from its line start through the
		// line after its closing brace.
		_, entryClose, err := vdftext.FindBlock(text, id, keyIdx)
		if err != nil {
			return fmt.Errorf("corrupt CompatToolMapping entry for %s: %w", id, err)
		}
		start := lineStart(text, keyIdx)
		end := entryClose + 1
		if end < len(text) && text[end] == '\n' {
			end++
		}
		text = text[:start] + entry + text[end:]
	} else {
		// Insert before the block's closing brace.
		start := lineStart(text, ctClose)
		text = text[:start] + entry + text[start:]
	}

	return e.write(configPath, text)
}

// Get returns the mapped tool name for appID, for post-restart
// verification.
func (e *Editor) Get(configPath string, appID uint32) (string, bool, error) {
	data, err := afero.ReadFile(e.fs, configPath)
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	parsed, err := vdftext.Parse(bytes.NewReader(data))
	if err != nil {
		return "", false, err
	}

	cursor := parsed
	for _, key := range []string{"installconfigstore", "software", "valve", "steam", "compattoolmapping"} {
		next, ok := cursor[key].(map[string]any)
		if !ok {
			return "", false, nil
		}
		cursor = next
	}

	entry, ok := cursor[strconv.FormatUint(uint64(appID), 10)].(map[string]any)
	if !ok {
		return "", false, nil
	}
	name, _ := entry["name"].(string)
	return name, name != "", nil
}

func (e *Editor) write(configPath, text string) error {
	if _, err := utils.BackupFile(e.fs, configPath, e.clock.Now()); err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(e.fs, configPath, []byte(text), 0o644); err != nil {
		return err
	}
	log.Debug().Str("path", configPath).Msg("updated CompatToolMapping")
	return nil
}

// findSteamBlock walks InstallConfigStore > Software > Valve > Steam so
// a "Steam" key elsewhere in the file cannot be matched by mistake.
func findSteamBlock(text string) (open, closing int, err error) {
	swOpen, swClose, err := vdftext.FindBlock(text, "Software", 0)
	if err != nil {
		return 0, 0, fmt.Errorf("config.vdf has no Software block: %w", err)
	}
	valveOpen, valveClose, err := vdftext.FindBlock(text, "Valve", swOpen)
	if err != nil || valveOpen > swClose {
		return 0, 0, fmt.Errorf("config.vdf has no Valve block: %w", vdftext.ErrMalformedVDF)
	}
	steamOpen, steamClose, err := vdftext.FindBlock(text, "Steam", valveOpen)
	if err != nil || steamOpen > valveClose {
		return 0, 0, fmt.Errorf("config.vdf has no Steam block: %w", vdftext.ErrMalformedVDF)
	}
	return steamOpen, steamClose, nil
}

// entryText renders one mapping entry in Steam's own format.
func entryText(indent, id, toolName string) string {
	var b strings.Builder
	b.WriteString(indent + "\"" + id + "\"\n")
	b.WriteString(indent + "{\n")
	b.WriteString(indent + "\t\"name\"\t\t\"" + toolName + "\"\n")
	b.WriteString(indent + "\t\"config\"\t\t\"\"\n")
	b.WriteString(indent + "\t\"priority\"\t\t\"" + mappingPriority + "\"\n")
	b.WriteString(indent + "}\n")
	return b.String()
}

// lineIndent returns the leading whitespace of the line containing idx.
func lineIndent(text string, idx int) string {
	start := lineStart(text, idx)
	end := start
	for end < len(text) && (text[end] == '\t' || text[end] == ' ') {
		end++
	}
	return text[start:end]
}

func lineStart(text string, idx int) int {
	start := strings.LastIndexByte(text[:idx], '\n')
	return start + 1
}

// indexKeyWithin finds a quoted key between from and until, or -1.
func indexKeyWithin(text, key string, from, until int) int {
	if from >= len(text) || from >= until {
		return -1
	}
	idx := strings.Index(text[from:until], "\""+key+"\"")
	if idx == -1 {
		return -1
	}
	return from + idx
}
