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

// Package vdfbinary parses and serializes Valve's binary VDF format, the
// on-disk encoding of shortcuts.vdf. Key lookups are case-insensitive
// (Steam has shipped both "appid" and "AppID" historically) but original
// key casing and ordering are preserved so an untouched file round-trips
// byte for byte.
package vdfbinary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	markerMap         = 0x00
	markerString      = 0x01
	markerNumber      = 0x02
	markerEndOfMap    = 0x08
	markerEndOfString = 0x00
)

var (
	// ErrMalformedVDF is the base error every parse failure matches via
	// errors.Is.
	ErrMalformedVDF = errors.New("malformed binary vdf")

	ErrEmptyVDF     = fmt.Errorf("%w: input is empty", ErrMalformedVDF)
	ErrNotBinaryVDF = fmt.Errorf("%w: input does not look like binary vdf, is it a text vdf?", ErrMalformedVDF)
	ErrCorruptedVDF = fmt.Errorf("%w: reached end of input earlier than expected", ErrMalformedVDF)
)

// Parse reads a complete binary VDF document into a Map.
func Parse(r io.Reader) (*Map, error) {
	buf := bufio.NewReader(r)

	first, err := buf.Peek(1)
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyVDF
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedVDF, err)
	}

	b := first[0]
	if b != markerMap && b != markerString && b != markerNumber && b != markerEndOfMap {
		return nil, ErrNotBinaryVDF
	}

	m, err := parseMap(buf)
	if errors.Is(err, io.EOF) {
		return nil, ErrCorruptedVDF
	}
	return m, err
}

func parseMap(buf *bufio.Reader) (*Map, error) {
	m := NewMap()

	for {
		b, err := buf.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: read marker: %w", ErrMalformedVDF, err)
		}

		if b == markerEndOfMap {
			break
		}

		key, err := parseString(buf)
		if err != nil {
			return nil, err
		}

		var value Value
		switch b {
		case markerMap:
			var child *Map
			child, err = parseMap(buf)
			value = MapValue(child)
		case markerNumber:
			var n uint32
			n, err = parseNumber(buf)
			value = UintValue(n)
		case markerString:
			var s string
			s, err = parseString(buf)
			value = StringValue(s)
		default:
			err = fmt.Errorf("%w: unexpected marker 0x%02x", ErrMalformedVDF, b)
		}

		if err != nil {
			return nil, err
		}

		m.Set(key, value)
	}

	return m, nil
}

func parseNumber(buf *bufio.Reader) (uint32, error) {
	var bf [4]byte
	if _, err := io.ReadFull(buf, bf[:]); err != nil {
		return 0, fmt.Errorf("%w: read number: %w", ErrMalformedVDF, err)
	}
	return binary.LittleEndian.Uint32(bf[:]), nil
}

func parseString(buf *bufio.Reader) (string, error) {
	s, err := buf.ReadString(markerEndOfString)
	if err != nil {
		return "", fmt.Errorf("%w: read string: %w", ErrMalformedVDF, err)
	}
	return s[:len(s)-1], nil
}

// Serialize writes m as a binary VDF document. Keys are written in
// insertion order with their original casing, so Serialize(Parse(x))
// reproduces x exactly for well-formed input.
func Serialize(m *Map, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := writeMapBody(m, bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush vdf output: %w", err)
	}
	return nil
}

func writeMapBody(m *Map, bw *bufio.Writer) error {
	for _, key := range m.Keys() {
		value, _ := m.Get(key)
		switch v := value.v.(type) {
		case *Map:
			if err := writeKey(bw, markerMap, key); err != nil {
				return err
			}
			if err := writeMapBody(v, bw); err != nil {
				return err
			}
		case string:
			if err := writeKey(bw, markerString, key); err != nil {
				return err
			}
			if _, err := bw.WriteString(v); err != nil {
				return fmt.Errorf("write string value: %w", err)
			}
			if err := bw.WriteByte(markerEndOfString); err != nil {
				return fmt.Errorf("write string terminator: %w", err)
			}
		case uint32:
			if err := writeKey(bw, markerNumber, key); err != nil {
				return err
			}
			var bf [4]byte
			binary.LittleEndian.PutUint32(bf[:], v)
			if _, err := bw.Write(bf[:]); err != nil {
				return fmt.Errorf("write number value: %w", err)
			}
		default:
			return fmt.Errorf("unsupported vdf value type %T for key %q", v, key)
		}
	}
	if err := bw.WriteByte(markerEndOfMap); err != nil {
		return fmt.Errorf("write end of map: %w", err)
	}
	return nil
}

func writeKey(bw *bufio.Writer, marker byte, key string) error {
	if err := bw.WriteByte(marker); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	if _, err := bw.WriteString(key); err != nil {
		return fmt.Errorf("write key: %w", err)
	}
	if err := bw.WriteByte(markerEndOfString); err != nil {
		return fmt.Errorf("write key terminator: %w", err)
	}
	return nil
}
