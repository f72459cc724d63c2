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
	"encoding/binary"
	"fmt"

	"github.com/ZaparooProject/go-mfrc522/internal/frame"
)

// MIFARE memory structure
const (
	mifareBlockSize         = frame.BlockSize
	mifareManufacturerBlock = 0
	mifareValueSize         = 4
)

// Authenticate runs the Crypto1 handshake for block with key t. The chip
// performs the cipher; the host only supplies the key and the UID prefix.
//
// A failure is logged and returned as a status so the caller can retry with
// the other key.
func (d *Device) Authenticate(t KeyType, block byte, key Key, uid UID) (Status, error) {
	if t != KeyA && t != KeyB {
		return StatusError, fmt.Errorf("%w: key type %02X", ErrInvalidArgument, byte(t))
	}

	buf := make([]byte, 0, 2+KeySize+4)
	buf = append(buf, byte(t), block)
	buf = append(buf, key[:]...)
	buf = append(buf, uid[:4]...)

	resp, err := d.Transceive(PCDAuthent, buf)
	if err != nil {
		return StatusError, err
	}
	if resp.Status != StatusOK {
		errorf("Authentication with key %s failed for block %d: %s", t, block, resp.Status)
		return resp.Status, nil
	}

	on, err := d.Crypto1On()
	if err != nil {
		return StatusError, err
	}
	if !on {
		errorf("Authentication with key %s for block %d did not set MFCrypto1On", t, block)
		return StatusError, nil
	}
	return StatusOK, nil
}

// ReadBlock reads one 16-byte block. The sector must be authenticated.
// A reply shorter than a block returns ErrNoData.
func (d *Device) ReadBlock(block byte) ([]byte, Status, error) {
	resp, err := d.transceiveWithCRC([]byte{PICCRead, block})
	if err != nil {
		return nil, StatusError, err
	}
	if resp.Status != StatusOK {
		errorf("Read of block %d failed: %s", block, resp.Status)
		return nil, resp.Status, nil
	}
	if len(resp.Data) < mifareBlockSize || resp.Bits < mifareBlockSize*8 {
		return nil, StatusError, fmt.Errorf("block %d: %w", block, ErrNoData)
	}

	debugf("Block %d: %X", block, resp.Data)
	return resp.Data[:mifareBlockSize], StatusOK, nil
}

// WriteBlock writes 16 bytes to block in two phases, each acknowledged by
// the card. Writing block 0 or a sector trailer is logged but allowed.
func (d *Device) WriteBlock(block byte, data []byte) (Status, error) {
	if len(data) != mifareBlockSize {
		return StatusError, fmt.Errorf("%w: block data must be %d bytes, got %d",
			ErrInvalidArgument, mifareBlockSize, len(data))
	}

	if block == mifareManufacturerBlock {
		errorf("Writing to block 0, manufacturer block")
	}
	if IsSectorTrailer(int(block)) {
		warnf("Writing to sector trailer block %d", block)
	}

	status, err := d.sendAcked(PICCWrite, block)
	if err != nil || status != StatusOK {
		return status, err
	}

	resp, err := d.transceiveWithCRC(data)
	if err != nil {
		return StatusError, err
	}
	if !isACK(resp) {
		errorf("Error while writing block %d: status=%s bits=%d", block, resp.Status, resp.Bits)
		return ackStatus(resp), nil
	}

	debugf("Data written to block %d", block)
	return StatusOK, nil
}

// Increment adds delta to the value block into the chip's transfer buffer.
// Call Transfer to commit.
func (d *Device) Increment(block byte, delta int32) (Status, error) {
	return d.valueOp(PICCIncrement, block, delta)
}

// Decrement subtracts delta from the value block into the transfer buffer
func (d *Device) Decrement(block byte, delta int32) (Status, error) {
	return d.valueOp(PICCDecrement, block, delta)
}

// Restore copies the value block into the transfer buffer unchanged
func (d *Device) Restore(block byte) (Status, error) {
	return d.valueOp(PICCRestore, block, 0)
}

// Transfer commits the transfer buffer into block
func (d *Device) Transfer(block byte) (Status, error) {
	return d.sendAcked(PICCTransfer, block)
}

// valueOp runs the two-phase value command. The card may stay silent after
// the operand, so a Timeout or NoTag on the second phase counts as success.
func (d *Device) valueOp(cmd, block byte, operand int32) (Status, error) {
	status, err := d.sendAcked(cmd, block)
	if err != nil || status != StatusOK {
		return status, err
	}

	var buf [mifareValueSize]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(operand))

	framed, status, err := d.appendCRC(buf[:])
	if err != nil || status != StatusOK {
		return status, err
	}

	resp, err := d.Transceive(PCDTransceive, framed)
	if err != nil {
		return StatusError, err
	}

	switch {
	case resp.Status == StatusTimeout, resp.Status == StatusNoTag:
		debugf("Value command %02X on block %d: card silent after operand", cmd, block)
		return StatusOK, nil
	case isACK(resp):
		return StatusOK, nil
	default:
		errorf("Error while sending value operand to block %d: status=%s bits=%d", block, resp.Status, resp.Bits)
		return ackStatus(resp), nil
	}
}

// sendAcked sends a two-byte command with CRC and expects a 4-bit ACK
func (d *Device) sendAcked(cmd, block byte) (Status, error) {
	resp, err := d.transceiveWithCRC([]byte{cmd, block})
	if err != nil {
		return StatusError, err
	}
	if !isACK(resp) {
		errorf("Command %02X on block %d not acknowledged: status=%s bits=%d", cmd, block, resp.Status, resp.Bits)
		return ackStatus(resp), nil
	}
	return StatusOK, nil
}

func isACK(resp Response) bool {
	return resp.Status == StatusOK &&
		resp.Bits == piccACKBits &&
		len(resp.Data) > 0 &&
		resp.Data[0]&piccACKMask == piccACK
}

// ackStatus returns the status to report for a reply that is not an ACK
func ackStatus(resp Response) Status {
	if resp.Status != StatusOK {
		return resp.Status
	}
	return StatusError
}
