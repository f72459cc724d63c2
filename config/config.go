// go-mfrc522
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-mfrc522.
//
// go-mfrc522 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-mfrc522 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-mfrc522; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package config loads the YAML file shared by the mfrc522 CLI and agent
package config

import (
	"fmt"
	"os"
	"time"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration file
type Config struct {
	Keys    KeysConfig    `yaml:"keys"`
	Reader  ReaderConfig  `yaml:"reader"`
	Agent   AgentConfig   `yaml:"agent"`
	Polling PollingConfig `yaml:"polling"`
}

// ---- READER ----

// ReaderConfig selects the bus and tunes the chip
type ReaderConfig struct {
	// AntennaGain is the RxGain index 0..7 (18 dB .. 48 dB)
	AntennaGain   *int   `yaml:"antenna_gain"`
	Transport     string `yaml:"transport"`
	Path          string `yaml:"path"`
	ResetPin      string `yaml:"reset_pin"`
	SpeedHz       int64  `yaml:"speed_hz"`
	BaudRate      int    `yaml:"baud_rate"`
	Address       uint16 `yaml:"address"`
	PollBudget    int    `yaml:"poll_budget"`
	CRCPollBudget int    `yaml:"crc_poll_budget"`
	SoftwareCRC   bool   `yaml:"software_crc"`
	AutoDetect    bool   `yaml:"auto_detect"`
}

// ---- POLLING ----

// PollingConfig drives the card presence monitor
type PollingConfig struct {
	IntervalMs       int `yaml:"interval_ms"`
	RemovalTimeoutMs int `yaml:"removal_timeout_ms"`
}

// Interval returns the poll interval
func (p PollingConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// RemovalTimeout returns how long a card may be silent before it counts as removed
func (p PollingConfig) RemovalTimeout() time.Duration {
	return time.Duration(p.RemovalTimeoutMs) * time.Millisecond
}

// ---- AGENT ----

// AgentConfig configures the websocket agent
type AgentConfig struct {
	Listen string `yaml:"listen"`
	Name   string `yaml:"name"`
	MDNS   bool   `yaml:"mdns"`
}

// ---- KEYS ----

// KeysConfig holds MIFARE keys as 12-digit hex strings
type KeysConfig struct {
	Sectors map[int]SectorKeyConfig `yaml:"sectors"`
	Default string                  `yaml:"default"`
}

// SectorKeyConfig overrides the keys of one sector. Empty means the default key.
type SectorKeyConfig struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// Default returns a configuration with every default filled in
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads and parses the YAML file at path, fills defaults and validates it
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, fills defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes cfg back to YAML
func Marshal(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// ApplyDefaults fills every unset field. Transport-specific defaults follow
// reader.transport, so call it again after changing the transport.
func ApplyDefaults(cfg *Config) {
	r := &cfg.Reader
	if r.Transport == "" {
		r.Transport = "spi"
	}
	if r.PollBudget == 0 {
		r.PollBudget = mfrc522.DefaultPollBudget
	}
	if r.CRCPollBudget == 0 {
		r.CRCPollBudget = mfrc522.DefaultCRCPollBudget
	}
	if r.Transport == "i2c" && r.Address == 0 {
		r.Address = 0x28
	}
	if r.Transport == "uart" && r.BaudRate == 0 {
		r.BaudRate = 9600
	}

	if cfg.Polling.IntervalMs == 0 {
		cfg.Polling.IntervalMs = 250
	}
	if cfg.Polling.RemovalTimeoutMs == 0 {
		cfg.Polling.RemovalTimeoutMs = 1000
	}

	if cfg.Agent.Listen == "" {
		cfg.Agent.Listen = ":7522"
	}
	if cfg.Agent.Name == "" {
		cfg.Agent.Name = "mfrc522"
	}

	if cfg.Keys.Default == "" {
		cfg.Keys.Default = mfrc522.DefaultKey.String()
	}
}
