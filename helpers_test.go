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
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	testutil "github.com/ZaparooProject/go-mfrc522/internal/testing"
)

// newSimDevice creates an initialized device on a simulated chip with card in the field
func newSimDevice(t *testing.T, card *testutil.VirtualCard, opts ...Option) (*Device, *testutil.VirtualChip) {
	t.Helper()

	chip := testutil.NewVirtualChip(card)
	device, err := New(NewSimulatedBus(chip), opts...)
	require.NoError(t, err)
	require.NoError(t, device.Init())
	return device, chip
}

// selectCard runs request, anticollision and select and requires each to succeed
func selectCard(t *testing.T, device *Device) UID {
	t.Helper()

	status, err := device.Request(PICCReqIdle)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	uid, status, err := device.Anticoll()
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	_, status, err = device.SelectTag(uid)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	return uid
}

// authenticate authenticates block with the factory key A
func authenticate(t *testing.T, device *Device, block byte, uid UID) {
	t.Helper()

	status, err := device.Authenticate(KeyA, block, DefaultKey, uid)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
}

// testLogOutput is where the package logger writes outside log-capturing tests
func testLogOutput() io.Writer {
	return os.Stderr
}
