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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexToUID(t *testing.T) {
	t.Parallel()

	uid, err := HexToUID("61626364")
	require.NoError(t, err)
	assert.Equal(t, UID{97, 98, 99, 100, 4}, uid)
	assert.True(t, uid.Valid())
	assert.Equal(t, "61626364", UIDToHex(uid))
}

func TestUID_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   [4]byte
	}{
		{name: "zeros", id: [4]byte{0, 0, 0, 0}},
		{name: "ones", id: [4]byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{name: "mixed", id: [4]byte{0x12, 0x34, 0x56, 0x78}},
		{name: "high bits", id: [4]byte{0xDE, 0xAD, 0xBE, 0xEF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			uid := NewUID(tt.id)
			assert.Equal(t, tt.id[0]^tt.id[1]^tt.id[2]^tt.id[3], uid.BCC())

			back, err := HexToUID(UIDToHex(uid))
			require.NoError(t, err)
			assert.Equal(t, uid, back)
		})
	}
}

func TestHexToUID_Invalid(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "6162636", "616263646", "zz626364"} {
		_, err := HexToUID(s)
		require.ErrorIs(t, err, ErrInvalidArgument, s)
	}
}

func TestUID_Valid(t *testing.T) {
	t.Parallel()

	uid := UID{0x12, 0x34, 0x56, 0x78, 0x08}
	assert.True(t, uid.Valid())

	uid[4] = 0x09
	assert.False(t, uid.Valid())
}

func TestUID_Uint64(t *testing.T) {
	t.Parallel()

	uid := UID{0x01, 0x02, 0x03, 0x04, 0x04}
	assert.Equal(t, uint64(0x0102030404), uid.Uint64())
	assert.Equal(t, "01020304", uid.String())
}

func TestUIDFromBytes(t *testing.T) {
	t.Parallel()

	uid, err := UIDFromBytes([]byte{1, 2, 3, 4, 4})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, uid.ID())

	_, err = UIDFromBytes([]byte{1, 2, 3, 4})
	require.ErrorIs(t, err, ErrInvalidArgument)
}
