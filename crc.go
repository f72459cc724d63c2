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

// CalculateCRC computes the ISO14443-A CRC_A of data.
//
// The chip coprocessor is used unless the device was created with
// WithSoftwareCRC. If the coprocessor does not signal completion within the
// CRC poll budget the result is StatusTimeout and the returned bytes are zero.
func (d *Device) CalculateCRC(data []byte) (lo, hi byte, status Status, err error) {
	if d.config.SoftwareCRC {
		lo, hi = frame.CRCA(data)
		return lo, hi, StatusOK, nil
	}

	if len(data) > frame.FIFOSize {
		return 0, 0, StatusError, fmt.Errorf("%w: %d bytes exceed the FIFO", ErrInvalidArgument, len(data))
	}

	err = d.writeRegs(
		CommandReg, byte(PCDIdle),
		DivIrqReg, divIrqCRC,
		FIFOLevelReg, fifoFlush,
	)
	if err != nil {
		return 0, 0, StatusError, err
	}

	for _, b := range data {
		if err := d.bus.WriteRegister(FIFODataReg, b); err != nil {
			return 0, 0, StatusError, fmt.Errorf("failed to load FIFO: %w", err)
		}
	}

	if err := d.bus.WriteRegister(CommandReg, byte(PCDCalcCRC)); err != nil {
		return 0, 0, StatusError, fmt.Errorf("failed to start CRC: %w", err)
	}

	done := false
	for i := 0; i < d.config.CRCPollBudget; i++ {
		n, err := d.bus.ReadRegister(DivIrqReg)
		if err != nil {
			return 0, 0, StatusError, fmt.Errorf("failed to read DivIrqReg: %w", err)
		}
		if n&divIrqCRC != 0 {
			done = true
			break
		}
	}

	if err := d.bus.WriteRegister(CommandReg, byte(PCDIdle)); err != nil {
		return 0, 0, StatusError, fmt.Errorf("failed to stop CRC: %w", err)
	}

	if !done {
		warnf("CRC coprocessor did not finish after %d polls", d.config.CRCPollBudget)
		return 0, 0, StatusTimeout, nil
	}

	if lo, err = d.bus.ReadRegister(CRCResultRegL); err != nil {
		return 0, 0, StatusError, fmt.Errorf("failed to read CRCResultRegL: %w", err)
	}
	if hi, err = d.bus.ReadRegister(CRCResultRegM); err != nil {
		return 0, 0, StatusError, fmt.Errorf("failed to read CRCResultRegM: %w", err)
	}
	return lo, hi, StatusOK, nil
}

// appendCRC returns buf with its CRC_A appended
func (d *Device) appendCRC(buf []byte) ([]byte, Status, error) {
	lo, hi, status, err := d.CalculateCRC(buf)
	if err != nil || status != StatusOK {
		return nil, status, err
	}
	out := make([]byte, 0, len(buf)+2)
	out = append(out, buf...)
	return append(out, lo, hi), StatusOK, nil
}

// transceiveWithCRC appends CRC_A to buf and transceives it. A CRC failure
// is returned without transmitting anything.
func (d *Device) transceiveWithCRC(buf []byte) (Response, error) {
	framed, status, err := d.appendCRC(buf)
	if err != nil {
		return Response{}, err
	}
	if status != StatusOK {
		return Response{Status: status}, nil
	}
	return d.Transceive(PCDTransceive, framed)
}
