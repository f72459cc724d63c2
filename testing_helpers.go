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
	"sync"

	testutil "github.com/ZaparooProject/go-mfrc522/internal/testing"
)

// RegisterWrite records one register write seen by MockBus
type RegisterWrite struct {
	Addr  byte
	Value byte
}

// MockBus is a scripted register bus for unit tests. Reads return the last
// value written to a register unless ReadFunc overrides them.
type MockBus struct {
	ReadFunc  func(addr byte) (byte, bool)
	ReadErr   error
	WriteErr  error
	regs      map[byte]byte
	writes    []RegisterWrite
	reads     int
	mu        sync.Mutex
	closed    bool
	closeHits int
}

// NewMockBus creates a new mock bus with all registers zero
func NewMockBus() *MockBus {
	return &MockBus{regs: make(map[byte]byte)}
}

// WriteRegister records the write
func (m *MockBus) WriteRegister(addr, value byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrBusClosed
	}
	if m.WriteErr != nil {
		return NewBusError("write", "mock", m.WriteErr)
	}
	m.writes = append(m.writes, RegisterWrite{Addr: addr, Value: value})
	m.regs[addr] = value
	return nil
}

// ReadRegister returns the scripted or stored register value
func (m *MockBus) ReadRegister(addr byte) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrBusClosed
	}
	if m.ReadErr != nil {
		return 0, NewBusError("read", "mock", m.ReadErr)
	}
	m.reads++
	if m.ReadFunc != nil {
		if v, ok := m.ReadFunc(addr); ok {
			return v, nil
		}
	}
	return m.regs[addr], nil
}

// Close marks the bus as closed
func (m *MockBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closeHits++
	return nil
}

// Type returns BusMock
func (*MockBus) Type() BusType {
	return BusMock
}

// SetRegister presets a register value
func (m *MockBus) SetRegister(addr, value byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[addr] = value
}

// Register returns the stored value of a register
func (m *MockBus) Register(addr byte) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[addr]
}

// Writes returns a copy of the recorded writes
func (m *MockBus) Writes() []RegisterWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RegisterWrite(nil), m.writes...)
}

// WritesTo returns the values written to addr in order
func (m *MockBus) WritesTo(addr byte) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []byte
	for _, w := range m.writes {
		if w.Addr == addr {
			out = append(out, w.Value)
		}
	}
	return out
}

// Reads returns the number of register reads
func (m *MockBus) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// IOCount returns the number of register reads and writes
func (m *MockBus) IOCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads + len(m.writes)
}

// CloseCount returns how many times Close was called
func (m *MockBus) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeHits
}

var _ Bus = (*MockBus)(nil)

// simulatedBus adapts the register-level chip simulator to Bus
type simulatedBus struct {
	*testutil.VirtualChip
}

// Type returns BusMock
func (simulatedBus) Type() BusType {
	return BusMock
}

// NewSimulatedBus wraps a simulated chip as a Bus
func NewSimulatedBus(chip *testutil.VirtualChip) Bus {
	return simulatedBus{VirtualChip: chip}
}
