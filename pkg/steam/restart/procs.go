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

package restart

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// GopsutilLister checks running processes via /proc. Matching is on
// process name and falls back to the command line, since Steam's
// processes show up under wrapper names on some layouts.
type GopsutilLister struct{}

var _ ProcessLister = (*GopsutilLister)(nil)

func (GopsutilLister) IsRunning(ctx context.Context, name string) (bool, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list processes: %w", err)
	}
	for _, p := range procs {
		if pname, err := p.NameWithContext(ctx); err == nil &&
			strings.Contains(pname, name) {
			return true, nil
		}
		if cmdline, err := p.CmdlineWithContext(ctx); err == nil &&
			strings.Contains(cmdline, name) {
			return true, nil
		}
	}
	return false, nil
}
