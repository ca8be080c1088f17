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

// Package command provides an abstraction over exec.Command for
// testability. Steam, Proton and protontricks invocations all need a
// controlled environment, so every method takes an optional env slice.
package command

import (
	"context"
	"os/exec"
)

// StartOptions configures how a detached command is started.
type StartOptions struct {
	// Env replaces the subprocess environment when non-nil.
	Env []string
	// NewSession detaches the command into its own session so it outlives
	// this process (used when relaunching Steam).
	NewSession bool
	// DiscardOutput connects stdout/stderr to /dev/null.
	DiscardOutput bool
}

// Executor runs system commands. Production code uses RealExecutor; tests
// substitute a mock so no real processes are spawned.
type Executor interface {
	// Run executes a command and waits for it to complete.
	Run(ctx context.Context, name string, args ...string) error

	// RunWithEnv executes a command with a replacement environment and
	// waits for it to complete. A nil env inherits the parent environment.
	RunWithEnv(ctx context.Context, env []string, name string, args ...string) error

	// Output runs a command and returns its standard output.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// CombinedOutput runs a command with a replacement environment and
	// returns interleaved stdout and stderr.
	CombinedOutput(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

	// Start starts a command without waiting for it to complete.
	Start(ctx context.Context, name string, args ...string) error

	// StartWithOptions starts a command with the given options, without
	// waiting for it to complete.
	StartWithOptions(ctx context.Context, opts StartOptions, name string, args ...string) error
}

// RealExecutor uses exec.Command to execute system commands.
type RealExecutor struct{}

// Compile-time interface implementation check.
var _ Executor = (*RealExecutor)(nil)

// Run executes a system command using exec.CommandContext.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// RunWithEnv executes a system command with a replacement environment.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) RunWithEnv(ctx context.Context, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env
	return cmd.Run()
}

// Output runs a command and returns its standard output.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// CombinedOutput runs a command with a replacement environment and returns
// interleaved stdout and stderr.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) CombinedOutput(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env
	return cmd.CombinedOutput()
}

// Start starts a command without waiting for it to complete.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) Start(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Start()
}
