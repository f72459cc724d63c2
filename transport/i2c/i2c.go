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

// Package i2c provides the I2C register bus for the MFRC522
package i2c

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	"github.com/ZaparooProject/go-mfrc522/transport/resetpin"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddress is the 7-bit address with both EA pins tied low
	// on common breakout boards.
	DefaultAddress uint16 = 0x28

	// Max clock frequency (400 kHz fast mode).
	maxClockFreq = 400 * physic.KiloHertz

	regMask = 0x3F
)

// Bus implements mfrc522.Bus over a periph I2C device
type Bus struct {
	dev     *i2c.Dev
	bus     i2c.BusCloser
	reset   *resetpin.Pin
	busName string
	mu      sync.Mutex
	closed  bool
}

type config struct {
	resetPin string
	addr     uint16
}

// Option configures the I2C bus
type Option func(*config) error

// WithAddress overrides the 7-bit device address
func WithAddress(addr uint16) Option {
	return func(c *config) error {
		if addr < 0x08 || addr > 0x77 {
			return fmt.Errorf("%w: i2c address 0x%02X out of range", mfrc522.ErrInvalidArgument, addr)
		}
		c.addr = addr
		return nil
	}
}

// WithResetPin names a GPIO wired to NRSTPD; it is driven high on open
func WithResetPin(name string) Option {
	return func(c *config) error {
		c.resetPin = name
		return nil
	}
}

func applyOptions(opts []Option) (*config, error) {
	cfg := &config{addr: DefaultAddress}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// New opens the named I2C bus ("/dev/i2c-1", "1", or "" for the first one).
// A "bus:0xNN" path, as reported by detection, also selects the address.
func New(path string, opts ...Option) (*Bus, error) {
	busName, addr, hasAddr := splitPath(path)
	if hasAddr {
		opts = append([]Option{WithAddress(addr)}, opts...)
	}

	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, mfrc522.NewBusError("open", busName, err)
	}

	_ = bus.SetSpeed(maxClockFreq) // Ignore error, continue with default speed

	b := newBus(bus, busName, cfg)
	if cfg.resetPin != "" {
		pin, err := resetpin.Open(cfg.resetPin)
		if err == nil {
			err = pin.SetHigh()
		}
		if err != nil {
			_ = bus.Close()
			return nil, fmt.Errorf("reset pin: %w", err)
		}
		b.reset = pin
	}

	return b, nil
}

// NewFromBus builds a register bus on an already opened I2C bus
func NewFromBus(bus i2c.BusCloser, opts ...Option) (*Bus, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return newBus(bus, bus.String(), cfg), nil
}

// splitPath separates a trailing ":0xNN" address from the bus name
func splitPath(path string) (busName string, addr uint16, ok bool) {
	i := strings.LastIndex(path, ":")
	if i < 0 {
		return path, 0, false
	}
	v, err := strconv.ParseUint(path[i+1:], 0, 8)
	if err != nil {
		return path, 0, false
	}
	return path[:i], uint16(v), true
}

func newBus(bus i2c.BusCloser, name string, cfg *config) *Bus {
	return &Bus{
		dev:     &i2c.Dev{Addr: cfg.addr, Bus: bus},
		bus:     bus,
		busName: name,
	}
}

// WriteRegister writes value to the register at addr
func (b *Bus) WriteRegister(addr, value byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return mfrc522.NewBusError("write", b.busName, mfrc522.ErrBusClosed)
	}

	if err := b.dev.Tx([]byte{addr & regMask, value}, nil); err != nil {
		return mfrc522.NewBusError("write", b.busName, err)
	}
	return nil
}

// ReadRegister reads the register at addr with a repeated-start transfer
func (b *Bus) ReadRegister(addr byte) (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, mfrc522.NewBusError("read", b.busName, mfrc522.ErrBusClosed)
	}

	r := make([]byte, 1)
	if err := b.dev.Tx([]byte{addr & regMask}, r); err != nil {
		return 0, mfrc522.NewBusError("read", b.busName, err)
	}
	return r[0], nil
}

// ResetPin returns the reset line opened by WithResetPin, or nil
func (b *Bus) ResetPin() mfrc522.ResetPin {
	if b.reset == nil {
		return nil
	}
	return b.reset
}

// Address returns the 7-bit device address
func (b *Bus) Address() uint16 {
	return b.dev.Addr
}

// Close releases the I2C bus and the reset line
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	if err := b.bus.Close(); err != nil {
		firstErr = mfrc522.NewBusError("close", b.busName, err)
	}
	if b.reset != nil {
		if err := b.reset.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Type returns the bus type
func (*Bus) Type() mfrc522.BusType {
	return mfrc522.BusI2C
}

// NewFactory returns a factory suitable for mfrc522.WithBusFactory
func NewFactory(opts ...Option) mfrc522.BusFactory {
	return func(path string) (mfrc522.Bus, error) {
		return New(path, opts...)
	}
}

// Ensure Bus implements mfrc522.Bus
var _ mfrc522.Bus = (*Bus)(nil)
