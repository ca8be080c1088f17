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

// Package mocks holds testify mocks shared across package tests.
package mocks

import (
	"context"

	"github.com/jackify-dev/jackify-steam/pkg/helpers/command"
	"github.com/stretchr/testify/mock"
)

// MockExecutor is a testify mock for command.Executor. It allows testing
// code that executes system commands without actually running them.
//
// Example:
//
//	cmd := &mocks.MockExecutor{}
//	cmd.On("Run", mock.Anything, "pkill", []string{"steam"}).Return(nil)
type MockExecutor struct {
	mock.Mock
}

// Compile-time interface implementation check.
var _ command.Executor = (*MockExecutor)(nil)

// Run mocks the execution of a system command.
func (m *MockExecutor) Run(ctx context.Context, name string, args ...string) error {
	called := m.Called(ctx, name, args)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return called.Error(0)
}

// RunWithEnv mocks the execution of a command with a custom environment.
func (m *MockExecutor) RunWithEnv(ctx context.Context, env []string, name string, args ...string) error {
	called := m.Called(ctx, env, name, args)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return called.Error(0)
}

// Output mocks running a command and capturing stdout.
func (m *MockExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	called := m.Called(ctx, name, args)
	out, _ := called.Get(0).([]byte)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return out, called.Error(1)
}

// CombinedOutput mocks running a command and capturing all output.
func (m *MockExecutor) CombinedOutput(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	called := m.Called(ctx, env, name, args)
	out, _ := called.Get(0).([]byte)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return out, called.Error(1)
}

// Start mocks starting a command without waiting.
func (m *MockExecutor) Start(ctx context.Context, name string, args ...string) error {
	called := m.Called(ctx, name, args)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return called.Error(0)
}

// StartWithOptions mocks starting a command with options.
func (m *MockExecutor) StartWithOptions(
	ctx context.Context, opts command.StartOptions, name string, args ...string,
) error {
	called := m.Called(ctx, opts, name, args)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return called.Error(0)
}
