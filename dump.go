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
	"errors"
	"fmt"
)

// DumpBlock is one block read during a dump
type DumpBlock struct {
	Data    []byte  `json:"data" cbor:"2,keyasint"`
	Block   int     `json:"block" cbor:"1,keyasint"`
	KeyType KeyType `json:"key_type" cbor:"3,keyasint"`
}

// Dump is the best-effort content of a Classic 1K card
type Dump struct {
	Blocks  []DumpBlock `json:"blocks" cbor:"2,keyasint"`
	Skipped []int       `json:"skipped,omitempty" cbor:"3,keyasint,omitempty"`
	UID     UID         `json:"uid" cbor:"1,keyasint"`
}

// Bytes concatenates the data of every block that was read
func (d *Dump) Bytes() []byte {
	out := make([]byte, 0, len(d.Blocks)*mifareBlockSize)
	for _, b := range d.Blocks {
		out = append(out, b.Data...)
	}
	return out
}

// Block returns the data of block n, if it was read
func (d *Dump) Block(n int) ([]byte, bool) {
	for _, b := range d.Blocks {
		if b.Block == n {
			return b.Data, true
		}
	}
	return nil, false
}

// DumpClassic1K reads all 64 blocks of a selected Classic 1K card. Each block
// is authenticated with key A, then key B. Blocks that cannot be
// authenticated or read are recorded in Skipped and left out of Blocks.
//
// Only bus faults and key store errors abort the dump.
func (d *Device) DumpClassic1K(keys KeyStore, uid UID) (*Dump, error) {
	dump := &Dump{UID: uid}

	for block := 0; block < Classic1KBlocks; block++ {
		sk, err := keys.SectorKey(SectorOf(block))
		if err != nil {
			return dump, fmt.Errorf("failed to get keys for block %d: %w", block, err)
		}

		keyType, err := d.authenticateEither(byte(block), sk, uid)
		if err != nil {
			return dump, err
		}
		if keyType == 0 {
			errorf("Authentication error for block %d", block)
			dump.Skipped = append(dump.Skipped, block)
			continue
		}

		data, status, err := d.ReadBlock(byte(block))
		if err != nil && !errors.Is(err, ErrNoData) {
			return dump, err
		}
		if err != nil || status != StatusOK {
			dump.Skipped = append(dump.Skipped, block)
			continue
		}

		dump.Blocks = append(dump.Blocks, DumpBlock{Block: block, Data: data, KeyType: keyType})
	}

	if err := d.StopCrypto1(); err != nil {
		return dump, err
	}
	return dump, nil
}

// authenticateEither tries key A then key B, waking and reselecting the card
// between attempts since a failed handshake drops it out of the selected state.
// It returns 0 when neither key works.
func (d *Device) authenticateEither(block byte, sk SectorKey, uid UID) (KeyType, error) {
	for _, t := range []KeyType{KeyA, KeyB} {
		status, err := d.Authenticate(t, block, sk.Key(t), uid)
		if err != nil {
			return 0, err
		}
		if status == StatusOK {
			return t, nil
		}
		if err := d.reselect(uid); err != nil {
			return 0, err
		}
	}
	return 0, nil
}

// reselect wakes a card that fell out of the selected state and selects uid again
func (d *Device) reselect(uid UID) error {
	if err := d.StopCrypto1(); err != nil {
		return err
	}
	if _, err := d.Request(PICCReqAll); err != nil {
		return err
	}
	_, status, err := d.SelectTag(uid)
	if err != nil {
		return err
	}
	if status != StatusOK {
		debugf("Reselect of %s failed: %s", uid, status)
	}
	return nil
}
