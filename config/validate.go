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

package config

import (
	"errors"
	"fmt"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks configuration correctness.
// It does not mutate the configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := validateReader(&cfg.Reader); err != nil {
		return err
	}

	if cfg.Polling.IntervalMs <= 0 {
		return fmt.Errorf("%w: polling.interval_ms must be positive", ErrInvalidConfig)
	}
	if cfg.Polling.RemovalTimeoutMs < 2*cfg.Polling.IntervalMs {
		return fmt.Errorf("%w: polling.removal_timeout_ms %d shorter than twice interval %d",
			ErrInvalidConfig, cfg.Polling.RemovalTimeoutMs, cfg.Polling.IntervalMs)
	}

	if _, err := cfg.Keys.Build(); err != nil {
		return err
	}
	return nil
}

func validateReader(r *ReaderConfig) error {
	switch r.Transport {
	case "spi", "i2c", "uart":
	default:
		return fmt.Errorf("%w: reader.transport %q (want spi, i2c or uart)", ErrInvalidConfig, r.Transport)
	}

	if r.Path == "" && !r.AutoDetect {
		return fmt.Errorf("%w: reader.path is required unless auto_detect is set", ErrInvalidConfig)
	}
	if r.Transport == "i2c" && (r.Address < 0x08 || r.Address > 0x77) {
		return fmt.Errorf("%w: reader.address 0x%02X out of range", ErrInvalidConfig, r.Address)
	}
	if r.SpeedHz < 0 || r.BaudRate < 0 {
		return fmt.Errorf("%w: reader speed must not be negative", ErrInvalidConfig)
	}
	if r.AntennaGain != nil && (*r.AntennaGain < 0 || *r.AntennaGain > 7) {
		return fmt.Errorf("%w: reader.antenna_gain %d (want 0..7)", ErrInvalidConfig, *r.AntennaGain)
	}
	if r.PollBudget <= 0 || r.CRCPollBudget <= 0 {
		return fmt.Errorf("%w: poll budgets must be positive", ErrInvalidConfig)
	}
	return nil
}

// Build turns the hex strings into a key store
func (k KeysConfig) Build() (*mfrc522.MifareKeys, error) {
	def, err := mfrc522.ParseKey(k.Default)
	if err != nil {
		return nil, fmt.Errorf("%w: keys.default: %w", ErrInvalidConfig, err)
	}

	keys := mfrc522.BlankKeys()
	for sector := 0; sector < mfrc522.Classic1KSectors; sector++ {
		if err := keys.Set(sector, mfrc522.SectorKey{A: def, B: def}); err != nil {
			return nil, err
		}
	}

	for sector, sk := range k.Sectors {
		if sector < 0 || sector >= mfrc522.Classic1KSectors {
			return nil, fmt.Errorf("%w: keys.sectors: sector %d out of range", ErrInvalidConfig, sector)
		}
		for _, side := range []struct {
			hex string
			t   mfrc522.KeyType
		}{{sk.A, mfrc522.KeyA}, {sk.B, mfrc522.KeyB}} {
			if side.hex == "" {
				continue
			}
			key, err := mfrc522.ParseKey(side.hex)
			if err != nil {
				return nil, fmt.Errorf("%w: keys.sectors.%d.%s: %w", ErrInvalidConfig, sector, side.t, err)
			}
			if err := keys.SetKey(sector, side.t, key); err != nil {
				return nil, err
			}
		}
	}
	return keys, nil
}

// DeviceOptions converts the reader section into device options
func (r ReaderConfig) DeviceOptions() []mfrc522.Option {
	opts := []mfrc522.Option{
		mfrc522.WithPollBudget(r.PollBudget),
		mfrc522.WithCRCPollBudget(r.CRCPollBudget),
	}
	if r.AntennaGain != nil {
		opts = append(opts, mfrc522.WithAntennaGain(byte(*r.AntennaGain)<<4))
	}
	if r.SoftwareCRC {
		opts = append(opts, mfrc522.WithSoftwareCRC())
	}
	return opts
}
