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
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-mfrc522/internal/frame"
)

// UID is a 4-byte card identity followed by its BCC check byte
type UID [frame.UIDSize]byte

// NewUID builds a UID from identity bytes, appending the BCC
func NewUID(id [4]byte) UID {
	return UID{id[0], id[1], id[2], id[3], frame.BCC(id[:])}
}

// UIDFromBytes copies a 5-byte anticollision response into a UID
func UIDFromBytes(b []byte) (UID, error) {
	var u UID
	if len(b) != len(u) {
		return u, fmt.Errorf("%w: UID must be %d bytes, got %d", ErrInvalidArgument, len(u), len(b))
	}
	copy(u[:], b)
	return u, nil
}

// ID returns the 4 identity bytes
func (u UID) ID() []byte {
	return u[:4]
}

// BCC returns the stored check byte
func (u UID) BCC() byte {
	return u[4]
}

// Valid reports whether the check byte matches the identity bytes
func (u UID) Valid() bool {
	return frame.BCC(u[:4]) == u[4]
}

// Hex returns the identity bytes as 8 lowercase hex characters
func (u UID) Hex() string {
	return hex.EncodeToString(u[:4])
}

// Uint64 returns all 5 UID bytes as a big-endian number
func (u UID) Uint64() uint64 {
	var n uint64
	for _, b := range u {
		n = n<<8 | uint64(b)
	}
	return n
}

// String implements fmt.Stringer
func (u UID) String() string {
	return strings.ToUpper(u.Hex())
}

// UIDToHex encodes the identity bytes of u as hex
func UIDToHex(u UID) string {
	return u.Hex()
}

// HexToUID decodes an 8-character hex identity and appends its BCC
func HexToUID(s string) (UID, error) {
	if len(s) != 8 {
		return UID{}, fmt.Errorf("%w: UID hex must be 8 characters, got %d", ErrInvalidArgument, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return UID{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return NewUID([4]byte{b[0], b[1], b[2], b[3]}), nil
}
