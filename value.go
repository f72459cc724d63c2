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

// FormatValueBlock builds the redundant value block layout: the value, its
// inverse and the value again (little-endian), then addr, ^addr, addr, ^addr.
func FormatValueBlock(value int32, addr byte) [frame.BlockSize]byte {
	var b [frame.BlockSize]byte
	v := uint32(value)
	binary.LittleEndian.PutUint32(b[0:4], v)
	binary.LittleEndian.PutUint32(b[4:8], ^v)
	binary.LittleEndian.PutUint32(b[8:12], v)
	b[12], b[13], b[14], b[15] = addr, ^addr, addr, ^addr
	return b
}

// CheckValueBlock reports whether block satisfies the value block redundancy
func CheckValueBlock(block []byte) bool {
	if len(block) != frame.BlockSize {
		return false
	}

	v := binary.LittleEndian.Uint32(block[0:4])
	inv := binary.LittleEndian.Uint32(block[4:8])
	dup := binary.LittleEndian.Uint32(block[8:12])
	if v != ^inv || v != dup {
		return false
	}
	return block[12] == block[14] && block[13] == block[15] && block[12] == ^block[13]
}

// GetBlockValue decodes the value stored in a value block
func GetBlockValue(block []byte) (int32, error) {
	if !CheckValueBlock(block) {
		return 0, fmt.Errorf("%w: %X", ErrInvalidValueBlock, block)
	}
	return int32(binary.LittleEndian.Uint32(block[0:4])), nil
}

// GetBlockAddress returns the address byte of a value block
func GetBlockAddress(block []byte) (byte, error) {
	if !CheckValueBlock(block) {
		return 0, fmt.Errorf("%w: %X", ErrInvalidValueBlock, block)
	}
	return block[12], nil
}

// ReadValue reads block and decodes it as a value block. The sector must be
// authenticated.
func (d *Device) ReadValue(block byte) (int32, Status, error) {
	data, status, err := d.ReadBlock(block)
	if err != nil || status != StatusOK {
		return 0, status, err
	}
	v, err := GetBlockValue(data)
	if err != nil {
		return 0, StatusError, err
	}
	return v, StatusOK, nil
}

// WriteValue formats value as a value block and writes it to block
func (d *Device) WriteValue(block byte, value int32) (Status, error) {
	b := FormatValueBlock(value, block)
	return d.WriteBlock(block, b[:])
}
