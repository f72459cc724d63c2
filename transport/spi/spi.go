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

// Package spi provides the SPI register bus for the MFRC522
package spi

import (
	"fmt"
	"io"
	"sync"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	"github.com/ZaparooProject/go-mfrc522/transport/resetpin"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// DefaultSpeed is the SPI clock used unless WithSpeed overrides it.
	// The chip accepts up to 10 MHz; long jumper wires do not.
	DefaultSpeed = 1 * physic.MegaHertz

	// MaxSpeed is the fastest clock the MFRC522 SPI interface supports.
	MaxSpeed = 10 * physic.MegaHertz

	// Address byte layout: bit 7 selects read, bits 6..1 carry the register.
	addrMask = 0x7E
	readBit  = 0x80
)

// Bus implements mfrc522.Bus over a periph SPI connection.
// Every register exchange is one two-byte full-duplex transfer.
type Bus struct {
	conn   conn.Conn
	port   io.Closer
	lock   io.Closer
	reset  *resetpin.Pin
	name   string
	mu     sync.Mutex
	closed bool
}

type config struct {
	resetPin string
	speed    physic.Frequency
	mode     spi.Mode
}

// Option configures the SPI bus
type Option func(*config) error

// WithSpeed sets the SPI clock frequency
func WithSpeed(f physic.Frequency) Option {
	return func(c *config) error {
		if f <= 0 || f > MaxSpeed {
			return fmt.Errorf("%w: spi speed %s out of range", mfrc522.ErrInvalidArgument, f)
		}
		c.speed = f
		return nil
	}
}

// WithMode sets the SPI mode. The MFRC522 samples on the rising edge (mode 0).
func WithMode(mode spi.Mode) Option {
	return func(c *config) error {
		c.mode = mode
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
	cfg := &config{speed: DefaultSpeed, mode: spi.Mode0}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// New opens the named SPI port ("/dev/spidev0.0", "SPI0.0", or "" for the
// first one) and claims it exclusively.
func New(portName string, opts ...Option) (*Bus, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	lock, err := lockPort(portName)
	if err != nil {
		return nil, mfrc522.NewBusError("open", portName, err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		_ = lock.Close()
		return nil, mfrc522.NewBusError("open", portName, err)
	}

	bus, err := newFromPort(port, portName, cfg)
	if err != nil {
		_ = port.Close()
		_ = lock.Close()
		return nil, err
	}
	bus.lock = lock

	if cfg.resetPin != "" {
		if err := bus.openResetPin(cfg.resetPin); err != nil {
			_ = bus.Close()
			return nil, err
		}
	}

	return bus, nil
}

// NewFromPort builds a bus on an already opened port
func NewFromPort(port spi.PortCloser, opts ...Option) (*Bus, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return newFromPort(port, port.String(), cfg)
}

func newFromPort(port spi.PortCloser, name string, cfg *config) (*Bus, error) {
	c, err := port.Connect(cfg.speed, cfg.mode, 8)
	if err != nil {
		return nil, mfrc522.NewBusError("connect", name, err)
	}
	return &Bus{conn: c, port: port, name: name, lock: nopCloser{}}, nil
}

func (b *Bus) openResetPin(name string) error {
	pin, err := resetpin.Open(name)
	if err != nil {
		return fmt.Errorf("reset pin: %w", err)
	}
	if err := pin.SetHigh(); err != nil {
		return fmt.Errorf("reset pin: %w", err)
	}
	b.reset = pin
	return nil
}

// WriteRegister writes value to the register at addr
func (b *Bus) WriteRegister(addr, value byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return mfrc522.NewBusError("write", b.name, mfrc522.ErrBusClosed)
	}

	w := []byte{(addr << 1) & addrMask, value}
	if err := b.conn.Tx(w, nil); err != nil {
		return mfrc522.NewBusError("write", b.name, err)
	}
	return nil
}

// ReadRegister reads the register at addr
func (b *Bus) ReadRegister(addr byte) (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, mfrc522.NewBusError("read", b.name, mfrc522.ErrBusClosed)
	}

	w := []byte{(addr<<1)&addrMask | readBit, 0x00}
	r := make([]byte, len(w))
	if err := b.conn.Tx(w, r); err != nil {
		return 0, mfrc522.NewBusError("read", b.name, err)
	}
	return r[1], nil
}

// ResetPin returns the reset line opened by WithResetPin, or nil
func (b *Bus) ResetPin() mfrc522.ResetPin {
	if b.reset == nil {
		return nil
	}
	return b.reset
}

// Close releases the port, the exclusive claim and the reset line
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	if err := b.port.Close(); err != nil {
		firstErr = mfrc522.NewBusError("close", b.name, err)
	}
	if b.reset != nil {
		if err := b.reset.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := b.lock.Close(); err != nil && firstErr == nil {
		firstErr = mfrc522.NewBusError("unlock", b.name, err)
	}
	return firstErr
}

// Type returns the bus type
func (*Bus) Type() mfrc522.BusType {
	return mfrc522.BusSPI
}

// String returns the port name
func (b *Bus) String() string {
	return b.name
}

// NewFactory returns a factory suitable for mfrc522.WithBusFactory
func NewFactory(opts ...Option) mfrc522.BusFactory {
	return func(path string) (mfrc522.Bus, error) {
		return New(path, opts...)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

var _ mfrc522.Bus = (*Bus)(nil)
