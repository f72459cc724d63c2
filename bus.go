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

import (
	"fmt"
)

// Bus defines the register-level interface to an MFRC522 chip.
// This can be implemented by SPI, I2C, or UART backends.
//
// Each call must be a single atomic exchange on the underlying bus.
type Bus interface {
	// WriteRegister writes value to the register at addr
	WriteRegister(addr, value byte) error

	// ReadRegister reads the register at addr
	ReadRegister(addr byte) (byte, error)

	// Close releases the bus and any reset-line ownership
	Close() error

	// Type returns the bus type
	Type() BusType
}

// BusType represents the type of register bus
type BusType string

const (
	// BusSPI represents SPI bus transport.
	BusSPI BusType = "spi"
	// BusI2C represents I2C bus transport.
	BusI2C BusType = "i2c"
	// BusUART represents UART/serial transport.
	BusUART BusType = "uart"
	// BusMock represents a mock bus for testing
	BusMock BusType = "mock"
)

// ResetPin is the digital output wired to the chip's NRSTPD pin.
type ResetPin interface {
	// SetHigh drives the line high, bringing the chip out of hard power-down
	SetHigh() error
	// SetLow drives the line low
	SetLow() error
}

// setBitMask sets mask bits in reg with a read-modify-write
func (d *Device) setBitMask(reg, mask byte) error {
	tmp, err := d.bus.ReadRegister(reg)
	if err != nil {
		return fmt.Errorf("read register %02X: %w", reg, err)
	}
	if err := d.bus.WriteRegister(reg, tmp|mask); err != nil {
		return fmt.Errorf("write register %02X: %w", reg, err)
	}
	return nil
}

// clearBitMask clears mask bits in reg with a read-modify-write
func (d *Device) clearBitMask(reg, mask byte) error {
	tmp, err := d.bus.ReadRegister(reg)
	if err != nil {
		return fmt.Errorf("read register %02X: %w", reg, err)
	}
	if err := d.bus.WriteRegister(reg, tmp&^mask); err != nil {
		return fmt.Errorf("write register %02X: %w", reg, err)
	}
	return nil
}

// writeRegs writes a list of (register, value) pairs.
func (d *Device) writeRegs(regVals ...byte) error {
	if len(regVals)%2 != 0 {
		panic("register values not paired")
	}
	for i := 0; i < len(regVals); i += 2 {
		if err := d.bus.WriteRegister(regVals[i], regVals[i+1]); err != nil {
			return fmt.Errorf("write register %02X: %w", regVals[i], err)
		}
	}
	return nil
}
