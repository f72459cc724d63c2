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

package simple

import (
	"errors"
	"fmt"

	"github.com/hsanjuan/go-ndef"
)

const (
	tlvNDEF       = 0x03
	tlvTerminator = 0xFE
	ndefLanguage  = "en"
)

// ErrNoNDEF is returned when the blocks hold no NDEF message TLV
var ErrNoNDEF = errors.New("no NDEF message")

// encodeNDEF wraps text in a single text record and an NDEF message TLV,
// zero-padded to size.
func encodeNDEF(text string, size int) ([]byte, error) {
	msg := ndef.NewTextMessage(text, ndefLanguage)
	payload, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal NDEF: %w", err)
	}

	// type, length, terminator
	if len(payload)+3 > size || len(payload) > 0xFE {
		return nil, fmt.Errorf("%w: NDEF message is %d bytes, room for %d", ErrTextTooLong, len(payload), size-3)
	}

	out := make([]byte, size)
	out[0] = tlvNDEF
	out[1] = byte(len(payload))
	copy(out[2:], payload)
	out[2+len(payload)] = tlvTerminator
	return out, nil
}

// decodeNDEF extracts the text of the first record of the NDEF TLV in data
func decodeNDEF(data []byte) (string, error) {
	if len(data) < 2 || data[0] != tlvNDEF {
		return "", ErrNoNDEF
	}
	n := int(data[1])
	if 2+n > len(data) {
		return "", fmt.Errorf("%w: TLV length %d exceeds %d bytes", ErrNoNDEF, n, len(data)-2)
	}

	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(data[2 : 2+n]); err != nil {
		return "", fmt.Errorf("unmarshal NDEF: %w", err)
	}
	if len(msg.Records) == 0 {
		return "", ErrNoNDEF
	}

	payload, err := msg.Records[0].Payload()
	if err != nil {
		return "", fmt.Errorf("NDEF payload: %w", err)
	}
	return payload.String(), nil
}
