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

// Package resetpin drives the MFRC522 NRSTPD line through a periph GPIO.
package resetpin

import (
	"errors"
	"fmt"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// ErrPinNotFound is returned when the named GPIO is not registered.
var ErrPinNotFound = errors.New("gpio pin not found")

// Pin is a reset line backed by a periph output pin.
type Pin struct {
	out gpio.PinOut
}

// New wraps an already resolved output pin
func New(out gpio.PinOut) *Pin {
	return &Pin{out: out}
}

// Open resolves a GPIO by name ("GPIO25", "22", ...) and returns it as a
// reset line. The pin is not driven until SetHigh or SetLow is called.
func Open(name string) (*Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return New(p), nil
}

// SetHigh releases the chip from hard power-down
func (p *Pin) SetHigh() error {
	if err := p.out.Out(gpio.High); err != nil {
		return fmt.Errorf("drive %s high: %w", p.out, err)
	}
	return nil
}

// SetLow holds the chip in hard power-down
func (p *Pin) SetLow() error {
	if err := p.out.Out(gpio.Low); err != nil {
		return fmt.Errorf("drive %s low: %w", p.out, err)
	}
	return nil
}

// Name returns the underlying pin name
func (p *Pin) Name() string {
	return p.out.Name()
}

// Close stops driving the pin
func (p *Pin) Close() error {
	if err := p.out.Halt(); err != nil {
		return fmt.Errorf("halt %s: %w", p.out, err)
	}
	return nil
}

var _ mfrc522.ResetPin = (*Pin)(nil)
