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

// Package config manages the on-disk TOML configuration. Access goes
// through Instance so concurrent readers and the save path never race.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/jackify-dev/jackify-steam/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "JACKIFY_STEAM_CFG"
	CfgFile       = "config.toml"

	// ProtonAuto selects the highest-priority installed tool.
	ProtonAuto = "auto"

	// RestartStrategyFull performs the staged shutdown with process
	// checks and a verified relaunch.
	RestartStrategyFull = "jackify"
	// RestartStrategySimple fires the shutdown and relaunch without
	// waiting for process state.
	RestartStrategySimple = "nak_simple"
)

// Values is the full TOML document.
type Values struct {
	Games                map[string]GameOverride `toml:"games,omitempty"`
	InstallProton        string                  `toml:"install_proton" validate:"required"`
	GameProton           string                  `toml:"game_proton" validate:"required"`
	SteamRestartStrategy string                  `toml:"steam_restart_strategy" validate:"oneof=jackify nak_simple"`
	Components           []string                `toml:"components,omitempty,multiline"`
	ConfigSchema         int                     `toml:"config_schema"`
	RandomAppIDs         bool                    `toml:"random_app_ids"`
	DebugLogging         bool                    `toml:"debug_logging"`
}

// GameOverride customizes handling for a single modlist or game,
// keyed by its slug in the [games] table.
type GameOverride struct {
	Proton            string   `toml:"proton,omitempty"`
	Components        []string `toml:"components,omitempty,multiline"`
	RegistryInjection bool     `toml:"registry_injection"`
}

var BaseDefaults = Values{
	ConfigSchema:         SchemaVersion,
	InstallProton:        ProtonAuto,
	GameProton:           ProtonAuto,
	SteamRestartStrategy: RestartStrategyFull,
	Components:           []string{"dotnet40", "dotnet8", "vcrun2022"},
}

// Instance is a live configuration bound to a file on disk.
type Instance struct {
	vals     Values
	defaults Values
	cfgPath  string
	mu       syncutil.RWMutex
}

var validate = validator.New(validator.WithRequiredStructEnabled())

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		mu:       syncutil.RWMutex{},
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Path returns the config file location on disk.
func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	if _, err := os.Stat(c.cfgPath); err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	// Fields not present in the file retain their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	if err := validate.Struct(&newVals); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.vals = newVals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) InstallProton() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.InstallProton
}

func (c *Instance) SetInstallProton(tool string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.InstallProton = tool
}

func (c *Instance) GameProton() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.GameProton
}

func (c *Instance) SetGameProton(tool string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.GameProton = tool
}

func (c *Instance) SteamRestartStrategy() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.SteamRestartStrategy
}

func (c *Instance) RandomAppIDs() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.RandomAppIDs
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}

// Components returns the default prefix components to install.
func (c *Instance) Components() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.vals.Components))
	copy(out, c.vals.Components)
	return out
}

// GameOverride looks up per-game customization by slug.
func (c *Instance) GameOverride(slug string) (GameOverride, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ov, ok := c.vals.Games[slug]
	return ov, ok
}

func (c *Instance) SetGameOverride(slug string, ov GameOverride) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vals.Games == nil {
		c.vals.Games = make(map[string]GameOverride)
	}
	c.vals.Games[slug] = ov
}
