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

// Request sends REQA (PICCReqIdle) or WUPA (PICCReqAll) as a 7-bit short
// frame. Anything other than a 16-bit ATQA reply is reported as StatusError.
func (d *Device) Request(mode byte) (Status, error) {
	if mode != PICCReqIdle && mode != PICCReqAll {
		return StatusError, fmt.Errorf("%w: request mode %02X", ErrInvalidArgument, mode)
	}

	if err := d.bus.WriteRegister(BitFramingReg, reqBitFraming); err != nil {
		return StatusError, fmt.Errorf("failed to set bit framing: %w", err)
	}

	resp, err := d.Transceive(PCDTransceive, []byte{mode})
	if err != nil {
		return StatusError, err
	}
	if err := d.bus.WriteRegister(BitFramingReg, fullBitFraming); err != nil {
		return StatusError, fmt.Errorf("failed to reset bit framing: %w", err)
	}
	if resp.Status != StatusOK || resp.Bits != requestBits {
		return StatusError, nil
	}
	return StatusOK, nil
}

// Anticoll runs one cascade level of anticollision and returns the UID.
// A reply that is not exactly 5 bytes or fails the BCC check is StatusError.
func (d *Device) Anticoll() (UID, Status, error) {
	if err := d.bus.WriteRegister(BitFramingReg, fullBitFraming); err != nil {
		return UID{}, StatusError, fmt.Errorf("failed to set bit framing: %w", err)
	}

	resp, err := d.Transceive(PCDTransceive, []byte{PICCAnticoll, piccNVB})
	if err != nil {
		return UID{}, StatusError, err
	}
	if resp.Status != StatusOK {
		return UID{}, resp.Status, nil
	}

	uid, err := UIDFromBytes(resp.Data)
	if err != nil {
		debugf("Anticollision returned %d bytes", len(resp.Data))
		return UID{}, StatusError, nil
	}
	if !uid.Valid() {
		debugf("Anticollision BCC mismatch for %X", uid[:])
		return UID{}, StatusError, nil
	}
	return uid, StatusOK, nil
}

// SelectTag selects the card with uid and returns its SAK byte, or 0 on failure
func (d *Device) SelectTag(uid UID) (byte, Status, error) {
	buf := make([]byte, 0, 2+len(uid))
	buf = append(buf, PICCSelectTag, piccNVBSelect)
	buf = append(buf, uid[:]...)

	resp, err := d.transceiveWithCRC(buf)
	if err != nil {
		return 0, StatusError, err
	}
	if resp.Status != StatusOK {
		return 0, resp.Status, nil
	}
	if resp.Bits != selectBits {
		debugf("Select returned %d bits", resp.Bits)
		return 0, StatusError, nil
	}
	return resp.Data[0], StatusOK, nil
}

// Halt sends HLTA. A halted card stays silent, so a NoTag or Timeout
// outcome is reported as StatusOK and any reply as StatusError.
func (d *Device) Halt() (Status, error) {
	framed, status, err := d.appendCRC([]byte{PICCHalt, 0x00})
	if err != nil || status != StatusOK {
		return status, err
	}

	resp, err := d.Transceive(PCDTransceive, framed)
	if err != nil {
		return StatusError, err
	}
	switch resp.Status {
	case StatusNoTag, StatusTimeout:
		return StatusOK, nil
	case StatusOK:
		debugf("Card answered HLTA with %d bits", resp.Bits)
		return StatusError, nil
	default:
		return resp.Status, nil
	}
}
