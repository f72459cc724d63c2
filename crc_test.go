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

	"github.com/ZaparooProject/go-mfrc522/internal/frame"
	testutil "github.com/ZaparooProject/go-mfrc522/internal/testing"
)

func TestCalculateCRC(t *testing.T) {
	t.Parallel()

	inputs := [][]byte{
		{},
		{PICCHalt, 0x00},
		{PICCRead, 0x00},
		{PICCSelectTag, 0x70, 0x12, 0x34, 0x56, 0x78, 0x08},
	}

	hw, _ := newSimDevice(t, nil)
	sw, chip := newSimDevice(t, nil, WithSoftwareCRC())

	for _, in := range inputs {
		wantLo, wantHi := frame.CRCA(in)

		lo, hi, status, err := hw.CalculateCRC(in)
		require.NoError(t, err)
		assert.Equal(t, StatusOK, status)
		assert.Equal(t, []byte{wantLo, wantHi}, []byte{lo, hi}, "%X", in)

		lo, hi, status, err = sw.CalculateCRC(in)
		require.NoError(t, err)
		assert.Equal(t, StatusOK, status)
		assert.Equal(t, []byte{wantLo, wantHi}, []byte{lo, hi}, "%X", in)
	}

	assert.Zero(t, chip.CommandCount(testutil.CmdCalcCRC))
}

func TestCalculateCRC_KnownValue(t *testing.T) {
	t.Parallel()

	device, _ := newSimDevice(t, nil)
	lo, hi, status, err := device.CalculateCRC([]byte{PICCHalt, 0x00})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, byte(0x57), lo)
	assert.Equal(t, byte(0xCD), hi)
}

func TestCalculateCRC_Timeout(t *testing.T) {
	t.Parallel()

	device, chip := newSimDevice(t, testutil.NewVirtualMIFARE1K(nil), WithCRCPollBudget(10))
	chip.WedgeCRC(true)

	_, _, status, err := device.CalculateCRC([]byte{PICCRead, 4})
	require.NoError(t, err)
	assert.Equal(t, StatusTimeout, status)
}

func TestCRCTimeout_NothingTransmitted(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualMIFARE1K(nil)
	device, chip := newSimDevice(t, card)

	status, err := device.Request(PICCReqIdle)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	uid, status, err := device.Anticoll()
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	chip.WedgeCRC(true)
	before := chip.CommandCount(testutil.CmdTransceive)

	sak, status, err := device.SelectTag(uid)
	require.NoError(t, err)
	assert.Equal(t, StatusTimeout, status)
	assert.Zero(t, sak)

	_, status, err = device.ReadBlock(4)
	require.NoError(t, err)
	assert.Equal(t, StatusTimeout, status)

	status, err = device.Halt()
	require.NoError(t, err)
	assert.Equal(t, StatusTimeout, status)

	assert.Equal(t, before, chip.CommandCount(testutil.CmdTransceive))
}
