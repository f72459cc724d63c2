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

package mfrc522

import "fmt"

const (
	// DefaultPollBudget is the number of CommIrqReg reads a transceive waits
	DefaultPollBudget = 2000
	// DefaultCRCPollBudget is the number of DivIrqReg reads a CRC calculation waits
	DefaultCRCPollBudget = 255
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// AntennaGain is written to RFCfgReg during Init when HasAntennaGain is set
	AntennaGain byte
	// HasAntennaGain selects whether Init programs the receiver gain
	HasAntennaGain bool
	// PollBudget bounds the transceive completion poll
	PollBudget int
	// CRCPollBudget bounds the CRC coprocessor poll
	CRCPollBudget int
	// SoftwareCRC computes CRC_A on the host instead of the chip coprocessor
	SoftwareCRC bool
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		PollBudget:    DefaultPollBudget,
		CRCPollBudget: DefaultCRCPollBudget,
	}
}

// Validate checks the configuration for usable values
func (c *DeviceConfig) Validate() error {
	if c.PollBudget <= 0 {
		return fmt.Errorf("%w: poll budget must be positive, got %d", ErrInvalidArgument, c.PollBudget)
	}
	if c.CRCPollBudget <= 0 {
		return fmt.Errorf("%w: CRC poll budget must be positive, got %d", ErrInvalidArgument, c.CRCPollBudget)
	}
	if c.HasAntennaGain && c.AntennaGain&^rxGainMask != 0 {
		return fmt.Errorf("%w: antenna gain %02X outside RxGain bits", ErrInvalidArgument, c.AntennaGain)
	}
	return nil
}

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithDeviceConfig replaces the whole device configuration
func WithDeviceConfig(config *DeviceConfig) Option {
	return func(d *Device) error {
		if config == nil {
			return fmt.Errorf("%w: nil device config", ErrInvalidArgument)
		}
		c := *config
		d.config = &c
		return nil
	}
}

// WithResetPin sets the line driven high by Init to release the chip from hard power-down.
// Close releases pin if it implements io.Closer.
func WithResetPin(pin ResetPin) Option {
	return func(d *Device) error {
		d.resetPin = pin
		return nil
	}
}

// WithPollBudget sets the transceive poll budget
func WithPollBudget(budget int) Option {
	return func(d *Device) error {
		if budget <= 0 {
			return fmt.Errorf("%w: poll budget must be positive, got %d", ErrInvalidArgument, budget)
		}
		d.config.PollBudget = budget
		return nil
	}
}

// WithCRCPollBudget sets the CRC coprocessor poll budget
func WithCRCPollBudget(budget int) Option {
	return func(d *Device) error {
		if budget <= 0 {
			return fmt.Errorf("%w: CRC poll budget must be positive, got %d", ErrInvalidArgument, budget)
		}
		d.config.CRCPollBudget = budget
		return nil
	}
}

// WithAntennaGain programs the receiver gain during Init
func WithAntennaGain(gain byte) Option {
	return func(d *Device) error {
		if gain&^rxGainMask != 0 {
			return fmt.Errorf("%w: antenna gain %02X outside RxGain bits", ErrInvalidArgument, gain)
		}
		d.config.AntennaGain = gain
		d.config.HasAntennaGain = true
		return nil
	}
}

// WithSoftwareCRC computes CRC_A on the host
func WithSoftwareCRC() Option {
	return func(d *Device) error {
		d.config.SoftwareCRC = true
		return nil
	}
}
