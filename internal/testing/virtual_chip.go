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

package testing

import (
	"errors"
	"sync"

	"github.com/ZaparooProject/go-mfrc522/internal/frame"
)

// Register addresses used by VirtualChip
const (
	CommandReg    = 0x01
	CommIEnReg    = 0x02
	CommIrqReg    = 0x04
	DivIrqReg     = 0x05
	ErrorReg      = 0x06
	Status2Reg    = 0x08
	FIFODataReg   = 0x09
	FIFOLevelReg  = 0x0A
	ControlReg    = 0x0C
	BitFramingReg = 0x0D
	TxControlReg  = 0x14
	CRCResultRegM = 0x21
	CRCResultRegL = 0x22
	RFCfgReg      = 0x26
	VersionReg    = 0x37
)

// PCD commands
const (
	CmdIdle       = 0x00
	CmdCalcCRC    = 0x03
	CmdTransceive = 0x0C
	CmdAuthent    = 0x0E
	CmdSoftReset  = 0x0F
)

const (
	irqTimer  = 0x01
	irqIdle   = 0x10
	irqRx     = 0x20
	irqSet    = 0x80
	divIrqCRC = 0x04
	crypto1On = 0x08
	startSend = 0x80
)

// ErrChipClosed is returned by a closed VirtualChip
var ErrChipClosed = errors.New("virtual chip closed")

// VirtualChip is a register-level MFRC522 simulator. Transceive and
// authentication frames are routed to the attached VirtualCard.
type VirtualChip struct {
	card      *VirtualCard
	ReadErr   error
	WriteErr  error
	fifo      []byte
	regs      [64]byte
	reads     int
	writes    int
	commands  map[byte]int
	mu        sync.Mutex
	version   byte
	injectErr byte
	wedged    bool
	wedgedCRC bool
	closed    bool
}

// NewVirtualChip creates a chip reporting version 0x92 with card in its field.
// card may be nil for an empty field.
func NewVirtualChip(card *VirtualCard) *VirtualChip {
	chip := &VirtualChip{
		card:     card,
		version:  0x92,
		commands: make(map[byte]int),
	}
	chip.softReset()
	return chip
}

func (v *VirtualChip) softReset() {
	v.regs = [64]byte{}
	v.fifo = nil
	v.regs[CommIEnReg] = 0x80
	v.regs[TxControlReg] = 0x80
	v.regs[RFCfgReg] = 0x48
	v.regs[VersionReg] = v.version
}

// SetVersion changes the VersionReg value
func (v *VirtualChip) SetVersion(version byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.version = version
	v.regs[VersionReg] = version
}

// SetCard replaces the card in the field
func (v *VirtualChip) SetCard(card *VirtualCard) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.card = card
}

// Card returns the card in the field
func (v *VirtualChip) Card() *VirtualCard {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.card
}

// Wedge stops the chip from ever raising a CommIrqReg bit
func (v *VirtualChip) Wedge(wedged bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.wedged = wedged
}

// WedgeCRC stops the CRC coprocessor from ever finishing
func (v *VirtualChip) WedgeCRC(wedged bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.wedgedCRC = wedged
}

// InjectError sets ErrorReg to bits on the next transceive
func (v *VirtualChip) InjectError(bits byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.injectErr = bits
}

// WriteRegister implements the register write side of the bus
func (v *VirtualChip) WriteRegister(addr, value byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrChipClosed
	}
	if v.WriteErr != nil {
		return v.WriteErr
	}
	v.writes++

	switch addr & 0x3F {
	case CommandReg:
		v.regs[CommandReg] = value & 0x0F
		v.command(value & 0x0F)
	case CommIrqReg:
		setOrClear(&v.regs[CommIrqReg], value)
	case DivIrqReg:
		setOrClear(&v.regs[DivIrqReg], value)
	case FIFOLevelReg:
		if value&0x80 != 0 {
			v.fifo = v.fifo[:0]
		}
	case FIFODataReg:
		if len(v.fifo) < frame.FIFOSize {
			v.fifo = append(v.fifo, value)
		}
	case BitFramingReg:
		v.regs[BitFramingReg] = value
		if value&startSend != 0 && v.regs[CommandReg] == CmdTransceive {
			v.transceive()
		}
	case VersionReg:
	default:
		v.regs[addr&0x3F] = value
	}
	return nil
}

// ReadRegister implements the register read side of the bus
func (v *VirtualChip) ReadRegister(addr byte) (byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return 0, ErrChipClosed
	}
	if v.ReadErr != nil {
		return 0, v.ReadErr
	}
	v.reads++

	switch addr & 0x3F {
	case FIFODataReg:
		if len(v.fifo) == 0 {
			return 0, nil
		}
		b := v.fifo[0]
		v.fifo = v.fifo[1:]
		return b, nil
	case FIFOLevelReg:
		return byte(len(v.fifo)), nil
	default:
		return v.regs[addr&0x3F], nil
	}
}

// Close marks the chip closed
func (v *VirtualChip) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

// Closed reports whether Close was called
func (v *VirtualChip) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// Reads returns the number of register reads
func (v *VirtualChip) Reads() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reads
}

// Writes returns the number of register writes
func (v *VirtualChip) Writes() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.writes
}

// IOCount returns the number of register reads and writes
func (v *VirtualChip) IOCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reads + v.writes
}

// CommandCount returns how many times a PCD command was issued
func (v *VirtualChip) CommandCount(cmd byte) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.commands[cmd]
}

// Register returns a raw register value
func (v *VirtualChip) Register(addr byte) byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.regs[addr&0x3F]
}

// setOrClear applies Set1/Set2 semantics: bit 7 selects whether the other
// marked bits are set or cleared.
func setOrClear(reg *byte, value byte) {
	if value&irqSet != 0 {
		*reg |= value &^ irqSet
	} else {
		*reg &^= value
	}
}

func (v *VirtualChip) command(cmd byte) {
	v.commands[cmd]++

	switch cmd {
	case CmdSoftReset:
		v.softReset()
	case CmdCalcCRC:
		if v.wedgedCRC {
			return
		}
		lo, hi := frame.CRCA(v.fifo)
		v.fifo = v.fifo[:0]
		v.regs[CRCResultRegL] = lo
		v.regs[CRCResultRegM] = hi
		v.regs[DivIrqReg] |= divIrqCRC
	case CmdAuthent:
		v.authenticate()
	}
}

func (v *VirtualChip) authenticate() {
	data := append([]byte(nil), v.fifo...)
	v.fifo = v.fifo[:0]
	if v.wedged {
		return
	}

	if v.card != nil && len(data) == 12 && v.card.authenticate(data[0], int(data[1]), data[2:8], data[8:12]) {
		v.regs[Status2Reg] |= crypto1On
		v.regs[CommIrqReg] |= irqIdle
		return
	}
	v.regs[Status2Reg] &^= crypto1On
	v.regs[CommIrqReg] |= irqTimer
}

func (v *VirtualChip) transceive() {
	data := append([]byte(nil), v.fifo...)
	v.fifo = v.fifo[:0]
	v.regs[ErrorReg] = 0
	if v.wedged {
		return
	}

	if v.injectErr != 0 {
		v.regs[ErrorReg] = v.injectErr
		v.injectErr = 0
		v.regs[CommIrqReg] |= irqIdle | irqRx
		return
	}

	if v.card == nil {
		v.regs[CommIrqReg] |= irqTimer
		return
	}
	if v.regs[Status2Reg]&crypto1On == 0 {
		v.card.dropAuth()
	}

	resp, bits, ok := v.card.transceive(data, int(v.regs[BitFramingReg]&0x07))
	if !ok {
		v.regs[CommIrqReg] |= irqTimer
		return
	}
	v.fifo = append(v.fifo, resp...)
	v.regs[ControlReg] = v.regs[ControlReg]&^0x07 | byte(bits%8)
	v.regs[CommIrqReg] |= irqIdle | irqRx
}
