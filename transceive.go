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

	"github.com/ZaparooProject/go-mfrc522/internal/frame"
)

// Response is the outcome of one Transceive call
type Response struct {
	// Data holds the bytes drained from the FIFO
	Data []byte
	// Bits is the number of valid bits received
	Bits int
	// Status is the link outcome
	Status Status
}

// Transceive runs a PCD command with send loaded into the FIFO and busy-polls
// CommIrqReg until the command completes, the chip timer fires, or the poll
// budget runs out. Link outcomes are reported in Response.Status; a non-nil
// error is always a bus fault.
func (d *Device) Transceive(cmd Command, send []byte) (Response, error) {
	if len(send) > frame.FIFOSize {
		return Response{}, fmt.Errorf("%w: %d bytes exceed the FIFO", ErrInvalidArgument, len(send))
	}

	var irqEn, waitIRq byte
	switch cmd {
	case PCDAuthent:
		irqEn, waitIRq = authIrqEn, authWaitIrq
	case PCDTransceive:
		irqEn, waitIRq = transceiveIrqEn, transceiveWaitIrq
	default:
		waitIRq = irqIdle
	}

	err := d.writeRegs(
		CommIEnReg, irqEn|irqSet1,
		CommIrqReg, irqClear,
		FIFOLevelReg, fifoFlush,
		CommandReg, byte(PCDIdle),
	)
	if err != nil {
		return Response{}, err
	}

	for _, b := range send {
		if err := d.bus.WriteRegister(FIFODataReg, b); err != nil {
			return Response{}, fmt.Errorf("failed to load FIFO: %w", err)
		}
	}

	if err := d.bus.WriteRegister(CommandReg, byte(cmd)); err != nil {
		return Response{}, fmt.Errorf("failed to issue command %02X: %w", byte(cmd), err)
	}

	if cmd == PCDTransceive {
		if err := d.setBitMask(BitFramingReg, startSend); err != nil {
			return Response{}, err
		}
	}

	irq, completed, err := d.pollCommIrq(waitIRq)
	if err != nil {
		return Response{}, err
	}

	if err := d.clearBitMask(BitFramingReg, startSend); err != nil {
		return Response{}, err
	}

	if !completed {
		debugf("Command %02X timed out after %d polls", byte(cmd), d.config.PollBudget)
		return Response{Status: StatusTimeout}, nil
	}

	errReg, err := d.bus.ReadRegister(ErrorReg)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read ErrorReg: %w", err)
	}
	if errReg&errorMask != 0 {
		debugf("Command %02X failed: ErrorReg=%02X", byte(cmd), errReg)
		return Response{Status: StatusError}, nil
	}

	resp := Response{Status: StatusOK}
	if irq&irqEn&irqTimer != 0 {
		resp.Status = StatusNoTag
	}

	if cmd == PCDTransceive {
		data, bits, err := d.drainFIFO()
		if err != nil {
			return Response{}, err
		}
		resp.Data, resp.Bits = data, bits
	}

	debugf("Command %02X: status=%s bits=%d data=%X", byte(cmd), resp.Status, resp.Bits, resp.Data)
	return resp, nil
}

// pollCommIrq reads CommIrqReg until TimerIRq or one of waitIRq is set.
func (d *Device) pollCommIrq(waitIRq byte) (irq byte, completed bool, err error) {
	for i := 0; i < d.config.PollBudget; i++ {
		irq, err = d.bus.ReadRegister(CommIrqReg)
		if err != nil {
			return 0, false, fmt.Errorf("failed to read CommIrqReg: %w", err)
		}
		if irq&irqTimer != 0 || irq&waitIRq != 0 {
			return irq, true, nil
		}
	}
	return irq, false, nil
}

// drainFIFO reads the received frame. The byte count is clamped to [1, MaxLen].
func (d *Device) drainFIFO() (data []byte, bits int, err error) {
	level, err := d.bus.ReadRegister(FIFOLevelReg)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read FIFOLevelReg: %w", err)
	}
	control, err := d.bus.ReadRegister(ControlReg)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read ControlReg: %w", err)
	}

	n := int(level & 0x7F)
	lastBits := int(control & rxLastBits)
	switch {
	case n == 0:
		bits = 0
	case lastBits != 0:
		bits = (n-1)*8 + lastBits
	default:
		bits = n * 8
	}

	if n == 0 {
		n = 1
	}
	if n > frame.MaxLen {
		n = frame.MaxLen
	}

	data = make([]byte, n)
	for i := range data {
		if data[i], err = d.bus.ReadRegister(FIFODataReg); err != nil {
			return nil, 0, fmt.Errorf("failed to read FIFO: %w", err)
		}
	}
	return data, bits, nil
}
