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

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	"github.com/ZaparooProject/go-mfrc522/tagops"
)

// Dump output formats
const (
	formatHex  = "hex"
	formatJSON = "json"
	formatCBOR = "cbor"
)

// HexBytes is a byte slice that encodes as a hex string in JSON and as a
// byte string in CBOR
type HexBytes []byte

// MarshalJSON implements json.Marshaler
func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.ToUpper(hex.EncodeToString(h)))
}

// UnmarshalJSON implements json.Unmarshaler
func (h *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*h = b
	return nil
}

// DumpRecordBlock is one exported block
type DumpRecordBlock struct {
	Key   string   `json:"key" cbor:"3,keyasint"`
	Data  HexBytes `json:"data" cbor:"2,keyasint"`
	Block int      `json:"block" cbor:"1,keyasint"`
}

// DumpRecord is the exported form of a card dump
type DumpRecord struct {
	ReadAt  time.Time         `json:"read_at" cbor:"4,keyasint"`
	UID     string            `json:"uid" cbor:"1,keyasint"`
	Type    string            `json:"type" cbor:"5,keyasint"`
	Blocks  []DumpRecordBlock `json:"blocks" cbor:"2,keyasint"`
	Skipped []int             `json:"skipped,omitempty" cbor:"3,keyasint,omitempty"`
}

func newDumpRecord(d *mfrc522.Dump, sak byte, readAt time.Time) DumpRecord {
	rec := DumpRecord{
		UID:     d.UID.String(),
		Type:    tagops.Identify(sak).String(),
		ReadAt:  readAt.UTC(),
		Blocks:  make([]DumpRecordBlock, 0, len(d.Blocks)),
		Skipped: d.Skipped,
	}
	for _, b := range d.Blocks {
		rec.Blocks = append(rec.Blocks, DumpRecordBlock{
			Block: b.Block,
			Key:   b.KeyType.String(),
			Data:  HexBytes(b.Data),
		})
	}
	return rec
}

func writeDump(w io.Writer, rec DumpRecord, format string) error {
	switch format {
	case formatHex:
		return writeHexDump(w, rec)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	case formatCBOR:
		out, err := cbor.Marshal(rec)
		if err != nil {
			return fmt.Errorf("cbor encode: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unknown dump format %q (want hex, json or cbor)", format)
	}
}

func writeHexDump(w io.Writer, rec DumpRecord) error {
	if _, err := fmt.Fprintf(w, "UID %s (%s)\n", rec.UID, rec.Type); err != nil {
		return err
	}
	for _, b := range rec.Blocks {
		marker := ""
		if mfrc522.IsSectorTrailer(b.Block) {
			marker = " trailer"
		}
		if _, err := fmt.Fprintf(w, "S%02d B%02d [%s] % X%s\n",
			mfrc522.SectorOf(b.Block), b.Block, b.Key, []byte(b.Data), marker); err != nil {
			return err
		}
	}
	if len(rec.Skipped) > 0 {
		if _, err := fmt.Fprintf(w, "skipped %v\n", rec.Skipped); err != nil {
			return err
		}
	}
	return nil
}
