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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/ZaparooProject/go-mfrc522/internal/testing"
)

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		keyType KeyType
		key     Key
		want    Status
	}{
		{name: "key A", keyType: KeyA, key: DefaultKey, want: StatusOK},
		{name: "key B", keyType: KeyB, key: DefaultKey, want: StatusOK},
		{name: "wrong key", keyType: KeyA, key: Key{1, 2, 3, 4, 5, 6}, want: StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, _ := newSimDevice(t, testutil.NewVirtualMIFARE1K(nil))
			uid := selectCard(t, device)

			status, err := device.Authenticate(tt.keyType, 8, tt.key, uid)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)

			on, err := device.Crypto1On()
			require.NoError(t, err)
			assert.Equal(t, tt.want == StatusOK, on)
		})
	}
}

func TestAuthenticate_InvalidKeyType(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	device, err := New(bus)
	require.NoError(t, err)

	_, err = device.Authenticate(KeyType(0x30), 4, DefaultKey, UID{})
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Zero(t, bus.IOCount())
}

func TestReadWriteBlock(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualMIFARE1K(nil)
	device, _ := newSimDevice(t, card)
	uid := selectCard(t, device)
	authenticate(t, device, 8, uid)

	payload := []byte("0123456789ABCDEF")
	status, err := device.WriteBlock(9, payload)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, payload, card.Block(9))

	data, status, err := device.ReadBlock(9)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, payload, data)
}

func TestReadBlock_NotAuthenticated(t *testing.T) {
	t.Parallel()

	device, _ := newSimDevice(t, testutil.NewVirtualMIFARE1K(nil))
	uid := selectCard(t, device)
	authenticate(t, device, 8, uid)

	// Block 12 lives in sector 3; the card NAKs with a 4-bit reply.
	data, status, err := device.ReadBlock(12)
	require.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, StatusError, status)
	assert.Nil(t, data)
}

func TestReadBlock_TrailerMasksKeyA(t *testing.T) {
	t.Parallel()

	device, _ := newSimDevice(t, testutil.NewVirtualMIFARE1K(nil))
	uid := selectCard(t, device)
	authenticate(t, device, 7, uid)

	data, status, err := device.ReadBlock(7)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, make([]byte, 6), data[:6])
	assert.Equal(t, testutil.DefaultTrailer[6:], data[6:])
}

func TestWriteBlock_WrongLength(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 15, 17} {
		bus := NewMockBus()
		device, err := New(bus)
		require.NoError(t, err)

		status, err := device.WriteBlock(4, make([]byte, n))
		require.ErrorIs(t, err, ErrInvalidArgument)
		assert.Equal(t, StatusError, status)
		assert.Zero(t, bus.IOCount(), "no bus I/O for %d bytes", n)
	}
}

func TestWriteBlock_Unauthenticated(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualMIFARE1K(nil)
	device, _ := newSimDevice(t, card)
	selectCard(t, device)

	status, err := device.WriteBlock(9, bytes.Repeat([]byte{0x11}, 16))
	require.NoError(t, err)
	assert.Equal(t, StatusError, status)
	assert.Equal(t, make([]byte, 16), card.Block(9))
}

// Log capture swaps the package logger, so these tests do not run in parallel.
func TestWriteBlock_LogsProtectedBlocks(t *testing.T) {
	var logs bytes.Buffer
	SetLogOutput(&logs)
	defer SetLogOutput(testLogOutput())

	card := testutil.NewVirtualMIFARE1K(nil)
	device, _ := newSimDevice(t, card)
	uid := selectCard(t, device)
	authenticate(t, device, 0, uid)

	status, err := device.WriteBlock(0, make([]byte, 16))
	require.NoError(t, err)
	assert.Equal(t, StatusError, status, "card refuses the manufacturer block")
	assert.Contains(t, logs.String(), "ERROR Writing to block 0")

	logs.Reset()
	trailer := append([]byte(nil), testutil.DefaultTrailer...)
	status, err = device.WriteBlock(3, trailer)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Contains(t, logs.String(), "WARN Writing to sector trailer block 3")
}

func TestAuthenticate_LogsFailure(t *testing.T) {
	var logs bytes.Buffer
	SetLogOutput(&logs)
	defer SetLogOutput(testLogOutput())

	device, _ := newSimDevice(t, testutil.NewVirtualMIFARE1K(nil))
	uid := selectCard(t, device)

	status, err := device.Authenticate(KeyA, 4, Key{}, uid)
	require.NoError(t, err)
	assert.Equal(t, StatusError, status)
	assert.True(t, strings.Contains(logs.String(), "MFCrypto1On"))
}

func TestValueOperations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		op    func(d *Device, block byte) (Status, error)
		name  string
		start int32
		want  int32
	}{
		{
			name:  "increment",
			start: 100,
			want:  142,
			op:    func(d *Device, block byte) (Status, error) { return d.Increment(block, 42) },
		},
		{
			name:  "decrement",
			start: 100,
			want:  58,
			op:    func(d *Device, block byte) (Status, error) { return d.Decrement(block, 42) },
		},
		{
			name:  "decrement below zero",
			start: 5,
			want:  -5,
			op:    func(d *Device, block byte) (Status, error) { return d.Decrement(block, 10) },
		},
		{
			name:  "restore",
			start: 77,
			want:  77,
			op:    func(d *Device, block byte) (Status, error) { return d.Restore(block) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			card := testutil.NewVirtualMIFARE1K(nil)
			require.NoError(t, card.SetValueBlock(5, tt.start))
			device, _ := newSimDevice(t, card)
			uid := selectCard(t, device)
			authenticate(t, device, 5, uid)

			status, err := tt.op(device, 5)
			require.NoError(t, err)
			require.Equal(t, StatusOK, status)

			status, err = device.Transfer(5)
			require.NoError(t, err)
			require.Equal(t, StatusOK, status)

			v, status, err := device.ReadValue(5)
			require.NoError(t, err)
			require.Equal(t, StatusOK, status)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestValueOperations_InvalidBlock(t *testing.T) {
	t.Parallel()

	device, _ := newSimDevice(t, testutil.NewVirtualMIFARE1K(nil))
	uid := selectCard(t, device)
	authenticate(t, device, 5, uid)

	status, err := device.Increment(5, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusError, status, "blank block is not a value block")

	status, err = device.Transfer(5)
	require.NoError(t, err)
	assert.Equal(t, StatusError, status, "nothing to transfer")
}

func TestWriteValue(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualMIFARE1K(nil)
	device, _ := newSimDevice(t, card)
	uid := selectCard(t, device)
	authenticate(t, device, 6, uid)

	status, err := device.WriteValue(6, -1234)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	v, err := GetBlockValue(card.Block(6))
	require.NoError(t, err)
	assert.Equal(t, int32(-1234), v)

	_, status, err = device.ReadValue(6)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
}
