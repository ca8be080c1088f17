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

// Package vdftext reads and writes Valve's plain-text VDF format, used by
// libraryfolders.vdf, loginusers.vdf and config.vdf. Reads normalize keys
// to lower case since Steam has shipped both casings; writes use canonical
// tab-indented formatting.
package vdftext

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/andygrunwald/vdf"
)

// ErrMalformedVDF wraps any text VDF parse failure.
var ErrMalformedVDF = errors.New("malformed text vdf")

// Parse reads a text VDF document into a nested map with lower-cased keys.
func Parse(r io.Reader) (map[string]any, error) {
	p := vdf.NewParser(r)
	m, err := p.Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedVDF, err)
	}
	return normalizeKeys(m), nil
}

// normalizeKeys recursively lower-cases map keys.
func normalizeKeys(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = normalizeKeys(nested)
		}
		result[strings.ToLower(k)] = v
	}
	return result
}

// Serialize writes a nested map as canonical text VDF: quoted keys, tab
// indentation, keys sorted for deterministic output.
func Serialize(m map[string]any, w io.Writer) error {
	return writeMap(m, w, 0)
}

func writeMap(m map[string]any, w io.Writer, depth int) error {
	indent := strings.Repeat("\t", depth)

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := m[k].(type) {
		case map[string]any:
			if _, err := fmt.Fprintf(w, "%s%q\n%s{\n", indent, k, indent); err != nil {
				return fmt.Errorf("write vdf block: %w", err)
			}
			if err := writeMap(v, w, depth+1); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "%s}\n", indent); err != nil {
				return fmt.Errorf("write vdf block: %w", err)
			}
		case string:
			if _, err := fmt.Fprintf(w, "%s%q\t\t%q\n", indent, k, v); err != nil {
				return fmt.Errorf("write vdf value: %w", err)
			}
		default:
			if _, err := fmt.Fprintf(w, "%s%q\t\t%q\n", indent, k, fmt.Sprint(v)); err != nil {
				return fmt.Errorf("write vdf value: %w", err)
			}
		}
	}
	return nil
}

// FindBlock locates the byte range of the brace-delimited block following
// the quoted key, searching from offset. It returns the index of the
// opening brace and the index of its matching closing brace. Used for
// splice edits that must not reformat the rest of the file.
func FindBlock(text, key string, from int) (open, closing int, err error) {
	keyIdx := indexQuotedKey(text, key, from)
	if keyIdx == -1 {
		return 0, 0, fmt.Errorf("%w: key %q not found", ErrMalformedVDF, key)
	}

	open = strings.Index(text[keyIdx:], "{")
	if open == -1 {
		return 0, 0, fmt.Errorf("%w: no opening brace after %q", ErrMalformedVDF, key)
	}
	open += keyIdx

	depth := 1
	for i := open + 1; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return open, i, nil
			}
		}
	}
	return 0, 0, fmt.Errorf("%w: unbalanced braces after %q", ErrMalformedVDF, key)
}

// indexQuotedKey finds `"key"` case-insensitively, starting at from.
func indexQuotedKey(text, key string, from int) int {
	if from < 0 || from > len(text) {
		return -1
	}
	idx := strings.Index(strings.ToLower(text[from:]), strings.ToLower(`"`+key+`"`))
	if idx == -1 {
		return -1
	}
	return from + idx
}
