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

	testutil "github.com/ZaparooProject/go-mfrc522/internal/testing"
)

func TestSession_Begin(t *testing.T) {
	t.Parallel()

	device, _ := newSimDevice(t, testutil.NewVirtualMIFARE1K(testutil.TestTextUID))
	session := NewSession(device)
	assert.Equal(t, SessionIdle, session.State())

	uid, status, err := session.Begin(PICCReqIdle)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, "61626364", uid.Hex())
	assert.Equal(t, SessionSelected, session.State())
	assert.Equal(t, byte(testutil.SAK1K), session.SAK())
	assert.Equal(t, -1, session.Sector())
}

func TestSession_OutOfOrder(t *testing.T) {
	t.Parallel()

	device, chip := newSimDevice(t, testutil.NewVirtualMIFARE1K(nil))
	session := NewSession(device)
	before := chip.IOCount()

	_, _, err := session.Anticoll()
	require.ErrorIs(t, err, ErrInvalidState)
	_, _, err = session.Select()
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = session.Authenticate(KeyA, 4, DefaultKey)
	require.ErrorIs(t, err, ErrInvalidState)
	_, _, err = session.ReadBlock(4)
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = session.WriteBlock(4, make([]byte, 16))
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = session.Increment(4, 1)
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = session.Transfer(4)
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = session.Halt()
	require.ErrorIs(t, err, ErrInvalidState)

	assert.Equal(t, before, chip.IOCount())
	assert.Equal(t, SessionIdle, session.State())
}

func TestSession_FailureReturnsToIdle(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualMIFARE1K(nil)
	card.CorruptBCC(true)
	device, _ := newSimDevice(t, card)
	session := NewSession(device)

	status, err := session.Request(PICCReqIdle)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, SessionRequested, session.State())

	_, status, err = session.Anticoll()
	require.NoError(t, err)
	assert.Equal(t, StatusError, status)
	assert.Equal(t, SessionIdle, session.State())

	card.Remove()
	status, err = session.Request(PICCReqIdle)
	require.NoError(t, err)
	assert.NotEqual(t, StatusOK, status)
	assert.Equal(t, SessionIdle, session.State())
}

func TestSession_AuthFailureStaysSelected(t *testing.T) {
	t.Parallel()

	device, _ := newSimDevice(t, testutil.NewVirtualMIFARE1K(nil))
	session := NewSession(device)
	_, status, err := session.Begin(PICCReqIdle)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	status, err = session.Authenticate(KeyA, 4, Key{})
	require.NoError(t, err)
	assert.Equal(t, StatusError, status)
	assert.Equal(t, SessionSelected, session.State())

	_, _, err = session.ReadBlock(4)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestSession_AuthenticateWith(t *testing.T) {
	t.Parallel()

	keyB := Key{6, 5, 4, 3, 2, 1}
	card := testutil.NewVirtualMIFARE1K(nil)
	card.SetSectorKeys(1, []byte{1, 1, 1, 1, 1, 1}, keyB[:])

	keys := BlankKeys()
	require.NoError(t, keys.SetKey(1, KeyB, keyB))

	device, _ := newSimDevice(t, card)
	session := NewSession(device)
	_, status, err := session.Begin(PICCReqIdle)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	status, err = session.AuthenticateWith(keys, 4)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, SessionAuthenticated, session.State())
	assert.Equal(t, 1, session.Sector())

	_, status, err = session.ReadBlock(4)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
}

func TestSession_FullTap(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualMIFARE1K(nil)
	require.NoError(t, card.SetValueBlock(9, 10))
	device, _ := newSimDevice(t, card)
	session := NewSession(device)

	_, status, err := session.Begin(PICCReqIdle)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	status, err = session.Authenticate(KeyA, 8, DefaultKey)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	status, err = session.WriteBlock(8, []byte("session write 16"))
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	status, err = session.Increment(9, 5)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	status, err = session.Transfer(9)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	v, err := GetBlockValue(card.Block(9))
	require.NoError(t, err)
	assert.Equal(t, int32(15), v)

	require.NoError(t, session.Close())
	assert.Equal(t, SessionIdle, session.State())

	on, err := device.Crypto1On()
	require.NoError(t, err)
	assert.False(t, on)
}

func TestSession_Halt(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualMIFARE1K(nil)
	device, _ := newSimDevice(t, card)
	session := NewSession(device)
	_, status, err := session.Begin(PICCReqIdle)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	status, err = session.Halt()
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, SessionIdle, session.State())
	assert.True(t, card.Halted())
}
