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

// Package frame provides ISO14443-A framing helpers shared by the driver
// and the chip simulator: CRC_A, BCC and frame size limits.
package frame

// Frame size limits
const (
	// MaxLen is the number of bytes drained from the FIFO for one response.
	MaxLen = 16
	// FIFOSize is the capacity of the MFRC522 FIFO buffer.
	FIFOSize = 64
	// BlockSize is the size of a MIFARE Classic data block.
	BlockSize = 16
	// UIDSize is the length of an anticollision response (4 UID bytes + BCC).
	UIDSize = 5
)

// crcAPreset is the ISO14443-3 Type A CRC register preset.
const crcAPreset = 0x6363

// CRCA calculates an ISO14443-A CRC over data and returns it as (low, high).
func CRCA(data []byte) (lo, hi byte) {
	crc := uint32(crcAPreset)
	for _, bt := range data {
		bt ^= uint8(crc & 0xff)
		bt ^= bt << 4
		bt32 := uint32(bt)
		crc = (crc >> 8) ^ (bt32 << 8) ^ (bt32 << 3) ^ (bt32 >> 4)
	}
	return byte(crc & 0xff), byte((crc >> 8) & 0xff)
}

// AppendCRCA calculates the CRC_A of data and appends it low byte first.
func AppendCRCA(data []byte) []byte {
	lo, hi := CRCA(data)
	return append(data, lo, hi)
}

// CheckCRCA reports whether the last two bytes of data are a valid CRC_A
// over the preceding bytes.
func CheckCRCA(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	lo, hi := CRCA(data[:len(data)-2])
	return data[len(data)-2] == lo && data[len(data)-1] == hi
}

// BCC returns the block check character (XOR) of the first four UID bytes.
func BCC(uid []byte) byte {
	var bcc byte
	for i := 0; i < len(uid) && i < 4; i++ {
		bcc ^= uid[i]
	}
	return bcc
}
