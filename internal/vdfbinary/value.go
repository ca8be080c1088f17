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

package vdfbinary

import "strings"

// Value is a single binary VDF value: a nested *Map, a string, or a uint32.
type Value struct {
	v any
}

// MapValue wraps a nested map.
func MapValue(m *Map) Value { return Value{m} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{s} }

// UintValue wraps a 32-bit number.
func UintValue(n uint32) Value { return Value{n} }

// AsMap returns the nested map, if this value holds one.
func (v Value) AsMap() (*Map, bool) {
	m, ok := v.v.(*Map)
	return m, ok
}

// AsString returns the string value, if this value holds one.
func (v Value) AsString() (string, bool) {
	s, ok := v.v.(string)
	return s, ok
}

// AsUint returns the numeric value, if this value holds one.
func (v Value) AsUint() (uint32, bool) {
	n, ok := v.v.(uint32)
	return n, ok
}

// Map is an ordered string-keyed VDF map. Lookups are case-insensitive but
// the original casing and insertion order of keys are retained for writes.
type Map struct {
	vals map[string]Value
	// canonical maps the lowercased key to the casing first seen for it
	canonical map[string]string
	keys      []string
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{
		vals:      make(map[string]Value),
		canonical: make(map[string]string),
	}
}

// Len returns the number of keys.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order with original casing.
func (m *Map) Keys() []string { return m.keys }

// Get looks up a value case-insensitively.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.vals[strings.ToLower(key)]
	return v, ok
}

// Set stores a value. If a key already exists under any casing its original
// casing and position are kept, otherwise the key is appended as given.
func (m *Map) Set(key string, value Value) {
	lower := strings.ToLower(key)
	if _, exists := m.vals[lower]; !exists {
		m.canonical[lower] = key
		m.keys = append(m.keys, key)
	}
	m.vals[lower] = value
}

// Delete removes a key under any casing. Returns true if it was present.
func (m *Map) Delete(key string) bool {
	lower := strings.ToLower(key)
	if _, exists := m.vals[lower]; !exists {
		return false
	}
	orig := m.canonical[lower]
	delete(m.vals, lower)
	delete(m.canonical, lower)
	for i, k := range m.keys {
		if k == orig {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// GetMap looks up a nested map by key.
func (m *Map) GetMap(key string) (*Map, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	return v.AsMap()
}

// GetString looks up a string by key.
func (m *Map) GetString(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// GetUint looks up a number by key.
func (m *Map) GetUint(key string) (uint32, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	return v.AsUint()
}

// GetBool looks up a number by key and interprets it as a flag.
func (m *Map) GetBool(key string) (bool, bool) {
	n, ok := m.GetUint(key)
	if !ok {
		return false, false
	}
	return n != 0, true
}
