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

// Package uart provides the serial register bus for the MFRC522
package uart

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	"github.com/ZaparooProject/go-mfrc522/internal/retry"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the rate the chip comes out of reset with
	DefaultBaudRate = 9600

	// DefaultReadTimeout bounds a single byte read; at 9600 baud a byte
	// takes about a millisecond on the wire.
	DefaultReadTimeout = 20 * time.Millisecond

	defaultReadRetries = 2

	regMask = 0x3F
	readBit = 0x80
)

// port is the subset of serial.Port the bus needs
type port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
}

// Bus implements mfrc522.Bus over a UART link
type Bus struct {
	port        port
	portName    string
	readRetries int
	mu          sync.Mutex
	closed      bool
}

type config struct {
	baudRate    int
	readTimeout time.Duration
	readRetries int
}

// Option configures the UART bus
type Option func(*config) error

// WithBaudRate sets the line speed; the chip must already be programmed
// for it through SerialSpeedReg.
func WithBaudRate(rate int) Option {
	return func(c *config) error {
		if rate <= 0 {
			return fmt.Errorf("%w: baud rate %d", mfrc522.ErrInvalidArgument, rate)
		}
		c.baudRate = rate
		return nil
	}
}

// WithReadTimeout bounds each byte read
func WithReadTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return fmt.Errorf("%w: read timeout %s", mfrc522.ErrInvalidArgument, d)
		}
		c.readTimeout = d
		return nil
	}
}

// WithReadRetries sets how many extra read timeouts are tolerated per byte
func WithReadRetries(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return fmt.Errorf("%w: read retries %d", mfrc522.ErrInvalidArgument, n)
		}
		c.readRetries = n
		return nil
	}
}

func applyOptions(opts []Option) (*config, error) {
	cfg := &config{
		baudRate:    DefaultBaudRate,
		readTimeout: DefaultReadTimeout,
		readRetries: defaultReadRetries,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// New opens the serial port at portName
func New(portName string, opts ...Option) (*Bus, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: cfg.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(portName, mode)
	if err != nil {
		return nil, mfrc522.NewBusError("open", portName, err)
	}

	bus, err := newBus(p, portName, cfg)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return bus, nil
}

func newBus(p port, name string, cfg *config) (*Bus, error) {
	if err := p.SetReadTimeout(cfg.readTimeout); err != nil {
		return nil, mfrc522.NewBusError("open", name, err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		return nil, mfrc522.NewBusError("open", name, err)
	}
	return &Bus{port: p, portName: name, readRetries: cfg.readRetries}, nil
}

// WriteRegister sends the address and value; the chip acknowledges by
// echoing the address byte.
func (b *Bus) WriteRegister(addr, value byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return mfrc522.NewBusError("write", b.portName, mfrc522.ErrBusClosed)
	}

	a := addr & regMask
	if _, err := b.port.Write([]byte{a, value}); err != nil {
		return mfrc522.NewBusError("write", b.portName, err)
	}

	echo, err := b.readByte("write echo")
	if err != nil {
		return mfrc522.NewBusError("write", b.portName, err)
	}
	if echo != a {
		_ = b.port.ResetInputBuffer()
		return mfrc522.NewBusError("write", b.portName,
			fmt.Errorf("%w: sent %02X got %02X", mfrc522.ErrEchoMismatch, a, echo))
	}
	return nil
}

// ReadRegister sends the read address and returns the reply byte
func (b *Bus) ReadRegister(addr byte) (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, mfrc522.NewBusError("read", b.portName, mfrc522.ErrBusClosed)
	}

	if _, err := b.port.Write([]byte{readBit | addr&regMask}); err != nil {
		return 0, mfrc522.NewBusError("read", b.portName, err)
	}

	v, err := b.readByte("read reply")
	if err != nil {
		return 0, mfrc522.NewBusError("read", b.portName, err)
	}
	return v, nil
}

// readByte waits for one byte, tolerating readRetries empty reads
func (b *Bus) readByte(what string) (byte, error) {
	buf := make([]byte, 1)
	v, err := retry.Do(retry.Config{
		Description: what,
		MaxRetries:  b.readRetries,
	}, func() (byte, bool, error) {
		n, err := b.port.Read(buf)
		if err != nil {
			return 0, false, fmt.Errorf("%w: %w", mfrc522.ErrBusIO, err)
		}
		if n == 0 {
			return 0, true, nil
		}
		return buf[0], false, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		return 0, fmt.Errorf("%w: %w", mfrc522.ErrTimeout, err)
	}
	return v, err
}

// Close closes the serial port
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if err := b.port.Close(); err != nil {
		return mfrc522.NewBusError("close", b.portName, err)
	}
	return nil
}

// Type returns the bus type
func (*Bus) Type() mfrc522.BusType {
	return mfrc522.BusUART
}

// NewFactory returns a factory suitable for mfrc522.WithBusFactory
func NewFactory(opts ...Option) mfrc522.BusFactory {
	return func(path string) (mfrc522.Bus, error) {
		return New(path, opts...)
	}
}

// Ensure Bus implements mfrc522.Bus
var _ mfrc522.Bus = (*Bus)(nil)
