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

// Package tagops identifies ISO14443-A cards from their SELECT answer
package tagops

import "fmt"

const (
	unknownTagName    = "Unknown"
	ultralightName    = "MIFARE Ultralight"
	mifareClassicName = "MIFARE Classic"
	mifarePlusName    = "MIFARE Plus"
	iso14443_4Name    = "ISO14443-4"
)

// TagType is the family a card belongs to
type TagType int

// Tag families
const (
	TagTypeUnknown TagType = iota
	TagTypeUltralight
	TagTypeMIFARE
	TagTypeMIFAREPlus
	TagTypeISO14443_4
)

// SAK bits
const (
	sakCascade    = 0x04
	sakISO14443   = 0x20
	sakClassicBit = 0x08
)

// TagInfo contains detailed information about a detected tag
type TagInfo struct {
	TypeName   string
	MIFAREType string

	Type        TagType
	SAK         byte
	Sectors     int
	Blocks      int
	TotalMemory int
	UserMemory  int
}

// Identify classifies a card from the SAK byte returned by SELECT
func Identify(sak byte) TagInfo {
	info := TagInfo{SAK: sak}

	switch sak {
	case 0x00:
		info.Type = TagTypeUltralight
		info.MIFAREType = ultralightName
	case 0x09:
		info.setClassic("MIFARE Mini", 5)
	case 0x08, 0x88:
		info.setClassic("MIFARE Classic 1K", 16)
	case 0x18:
		info.setClassic("MIFARE Classic 4K", 40)
	case 0x10:
		info.Type = TagTypeMIFAREPlus
		info.MIFAREType = "MIFARE Plus 2K"
	case 0x11:
		info.Type = TagTypeMIFAREPlus
		info.MIFAREType = "MIFARE Plus 4K"
	default:
		switch {
		case sak&sakCascade != 0:
			// UID not complete, the card needs another cascade level
		case sak&sakISO14443 != 0:
			info.Type = TagTypeISO14443_4
		case sak&sakClassicBit != 0:
			info.setClassic(fmt.Sprintf("MIFARE Classic (SAK %02X)", sak), 16)
		}
	}

	info.TypeName = info.Type.String()
	return info
}

// setClassic fills the memory layout of a Classic card. Sectors past 32
// hold 16 blocks instead of 4.
func (t *TagInfo) setClassic(name string, sectors int) {
	t.Type = TagTypeMIFARE
	t.MIFAREType = name
	t.Sectors = sectors

	small := min(sectors, 32)
	t.Blocks = small*4 + (sectors-small)*16
	t.TotalMemory = t.Blocks * 16

	// Every sector gives up its trailer and sector 0 its manufacturer block
	t.UserMemory = t.TotalMemory - sectors*16 - 16
}

// String returns a human-readable name for the tag family
func (t TagType) String() string {
	switch t {
	case TagTypeUltralight:
		return ultralightName
	case TagTypeMIFARE:
		return mifareClassicName
	case TagTypeMIFAREPlus:
		return mifarePlusName
	case TagTypeISO14443_4:
		return iso14443_4Name
	default:
		return unknownTagName
	}
}

// IsClassic reports whether the card speaks the MIFARE Classic command set
func (t TagInfo) IsClassic() bool {
	return t.Type == TagTypeMIFARE
}

// String returns the most specific name known for the card
func (t TagInfo) String() string {
	if t.MIFAREType != "" {
		return t.MIFAREType
	}
	return t.TypeName
}
