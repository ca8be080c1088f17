//go:build !windows

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

package command

import (
	"context"
	"os/exec"
	"syscall"
)

// StartWithOptions starts a command with the given options on Unix.
// NewSession detaches via setsid so a relaunched Steam survives this
// process exiting.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) StartWithOptions(
	ctx context.Context,
	opts StartOptions,
	name string,
	args ...string,
) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if opts.Env != nil {
		cmd.Env = opts.Env
	}
	if opts.NewSession {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		// A detached command must not die with our context.
		cmd.Cancel = nil
	}
	if opts.DiscardOutput {
		cmd.Stdout = nil
		cmd.Stderr = nil
		cmd.Stdin = nil
	}
	return cmd.Start()
}
