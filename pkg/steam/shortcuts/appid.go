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

package shortcuts

import (
	"hash/crc32"
	"math/rand/v2"
	"strconv"
)

// AppID identifies a non-Steam shortcut. Steam stores it unsigned in
// shortcuts.vdf but renders it signed in some UIs and uses a shifted
// 64-bit form for Big Picture and compatdata; keeping it a distinct
// type stops the representations from being mixed up.
type AppID uint32

// Unsigned returns the raw 32-bit value as stored in shortcuts.vdf.
func (a AppID) Unsigned() uint32 { return uint32(a) }

// Signed returns the two's-complement form some Steam surfaces show.
func (a AppID) Signed() int32 { return int32(a) }

// BigPicture returns the 64-bit launch ID used in steam://rungameid
// URLs and Big Picture.
func (a AppID) BigPicture() uint64 {
	return uint64(a)<<32 | 0x02000000
}

func (a AppID) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// FromSigned converts Steam's signed display form back to an AppID.
func FromSigned(v int32) AppID { return AppID(v) }

// GenerateAppID derives a stable shortcut AppID from the exe and name,
// matching the CRC scheme Steam itself uses. The high bit marks the ID
// as a shortcut.
func GenerateAppID(exe, name string) AppID {
	crc := crc32.ChecksumIEEE([]byte(exe + name))
	return AppID(crc | 0x80000000)
}

// GenerateRandomAppID returns a random ID in the shortcut range. Used
// as an opt-in workaround for Steam's stale icon cache, which keys art
// by AppID and survives shortcut rewrites.
func GenerateRandomAppID() AppID {
	return AppID(rand.Uint32() | 0x80000000) //nolint:gosec // not security sensitive
}
