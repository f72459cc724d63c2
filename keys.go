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
)

// KeySize is the length of a MIFARE Classic key
const KeySize = 6

// Key is a 6-byte MIFARE Classic sector key
type Key [KeySize]byte

// DefaultKey is the transport key blank cards ship with
var DefaultKey = Key{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// ParseKey decodes a 12-character hex key
func ParseKey(s string) (Key, error) {
	var k Key
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return k, fmt.Errorf("%w: key %q: %w", ErrInvalidArgument, s, err)
	}
	if len(b) != KeySize {
		return k, fmt.Errorf("%w: key must be %d bytes, got %d", ErrInvalidArgument, KeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// String returns the key as uppercase hex
func (k Key) String() string {
	return strings.ToUpper(hex.EncodeToString(k[:]))
}

// KeyType selects key A or key B for authentication
type KeyType byte

// Key types, valued as the PICC authentication command
const (
	KeyA KeyType = PICCAuthent1A
	KeyB KeyType = PICCAuthent1B
)

// String returns "A" or "B"
func (t KeyType) String() string {
	switch t {
	case KeyA:
		return "A"
	case KeyB:
		return "B"
	default:
		return fmt.Sprintf("KeyType(%02X)", byte(t))
	}
}

// SectorKey holds the A and B keys of one sector
type SectorKey struct {
	A Key
	B Key
}

// Key returns the key for t
func (s SectorKey) Key(t KeyType) Key {
	if t == KeyB {
		return s.B
	}
	return s.A
}

// KeyStore supplies sector keys for authentication
type KeyStore interface {
	SectorKey(sector int) (SectorKey, error)
}

// MIFARE Classic 1K layout
const (
	Classic1KSectors = 16
	Classic1KBlocks  = 64
	blocksPerSector  = 4
	keysBlobSize     = Classic1KSectors * 2 * KeySize
)

// MifareKeys is a KeyStore for the 16 sectors of a Classic 1K card
type MifareKeys struct {
	sectors [Classic1KSectors]SectorKey
}

var _ KeyStore = (*MifareKeys)(nil)

// BlankKeys returns a key store with DefaultKey for every sector
func BlankKeys() *MifareKeys {
	keys := &MifareKeys{}
	for i := range keys.sectors {
		keys.sectors[i] = SectorKey{A: DefaultKey, B: DefaultKey}
	}
	return keys
}

// NewMifareKeysFromBytes loads a 192-byte blob: 12 bytes per sector, key A then key B
func NewMifareKeysFromBytes(blob []byte) (*MifareKeys, error) {
	if len(blob) != keysBlobSize {
		return nil, fmt.Errorf("%w: key blob must be %d bytes, got %d", ErrInvalidArgument, keysBlobSize, len(blob))
	}

	keys := &MifareKeys{}
	for i := range keys.sectors {
		off := i * 2 * KeySize
		copy(keys.sectors[i].A[:], blob[off:off+KeySize])
		copy(keys.sectors[i].B[:], blob[off+KeySize:off+2*KeySize])
	}
	return keys, nil
}

// NewMifareKeysFromList loads 32 keys as consecutive (A, B) pairs per sector
func NewMifareKeysFromList(list []Key) (*MifareKeys, error) {
	if len(list) != 2*Classic1KSectors {
		return nil, fmt.Errorf("%w: key list must hold %d keys, got %d",
			ErrInvalidArgument, 2*Classic1KSectors, len(list))
	}

	keys := &MifareKeys{}
	for i := range keys.sectors {
		keys.sectors[i] = SectorKey{A: list[2*i], B: list[2*i+1]}
	}
	return keys, nil
}

// SectorKey returns the keys for sector
func (m *MifareKeys) SectorKey(sector int) (SectorKey, error) {
	if sector < 0 || sector >= Classic1KSectors {
		return SectorKey{}, fmt.Errorf("%w: sector %d", ErrInvalidArgument, sector)
	}
	return m.sectors[sector], nil
}

// ForBlock returns the keys of the sector holding block
func (m *MifareKeys) ForBlock(block int) (SectorKey, error) {
	if block < 0 || block >= Classic1KBlocks {
		return SectorKey{}, fmt.Errorf("%w: block %d", ErrInvalidArgument, block)
	}
	return m.sectors[block/blocksPerSector], nil
}

// Set replaces the keys of sector
func (m *MifareKeys) Set(sector int, key SectorKey) error {
	if sector < 0 || sector >= Classic1KSectors {
		return fmt.Errorf("%w: sector %d", ErrInvalidArgument, sector)
	}
	m.sectors[sector] = key
	return nil
}

// SetKey replaces one key of sector
func (m *MifareKeys) SetKey(sector int, t KeyType, key Key) error {
	if sector < 0 || sector >= Classic1KSectors {
		return fmt.Errorf("%w: sector %d", ErrInvalidArgument, sector)
	}
	if t == KeyB {
		m.sectors[sector].B = key
	} else {
		m.sectors[sector].A = key
	}
	return nil
}

// Bytes returns the 192-byte blob form
func (m *MifareKeys) Bytes() []byte {
	out := make([]byte, 0, keysBlobSize)
	for _, s := range m.sectors {
		out = append(out, s.A[:]...)
		out = append(out, s.B[:]...)
	}
	return out
}

// SectorOf returns the sector holding block
func SectorOf(block int) int {
	return block / blocksPerSector
}

// TrailerOf returns the trailer block of sector
func TrailerOf(sector int) int {
	return sector*blocksPerSector + blocksPerSector - 1
}

// IsSectorTrailer reports whether block is a sector trailer
func IsSectorTrailer(block int) bool {
	return block%blocksPerSector == blocksPerSector-1
}
